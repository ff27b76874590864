package wizard

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/odyssey-erp/stockwizard/internal/openboxes"
)

// Directory resolves ids posted by forms into reference objects.
type Directory interface {
	Location(ctx context.Context, id string) (*openboxes.Location, error)
	User(ctx context.Context, id string) (*openboxes.Person, error)
}

func formField(form url.Values, key string) string {
	return strings.TrimSpace(form.Get(key))
}

func rowField(prefix string, i int, field string) string {
	return fmt.Sprintf("%s.%d.%s", prefix, i, field)
}

// parseDraft reads the create form.
func parseDraft(ctx context.Context, dir Directory, form url.Values) (Draft, error) {
	d := Draft{
		StockMovementID: formField(form, "stockMovementId"),
		Description:     formField(form, "description"),
		DateRequested:   formField(form, "dateRequested"),
		ForceUpdate:     formField(form, "forceUpdate") == "true",
	}
	var err error
	if d.Origin, err = dir.Location(ctx, formField(form, "origin.id")); err != nil {
		return d, err
	}
	if d.Destination, err = dir.Location(ctx, formField(form, "destination.id")); err != nil {
		return d, err
	}
	if d.RequestedBy, err = dir.User(ctx, formField(form, "requestedBy.id")); err != nil {
		return d, err
	}
	if id := formField(form, "stocklist.id"); id != "" {
		d.Stocklist = &openboxes.Stocklist{ID: id, Name: formField(form, "stocklist.name")}
	}
	return d, nil
}

// draftValues turns a draft back into form values, used by confirmation pages.
func draftValues(d Draft) url.Values {
	v := url.Values{}
	v.Set("stockMovementId", d.StockMovementID)
	v.Set("description", d.Description)
	v.Set("dateRequested", d.DateRequested)
	v.Set("origin.id", locationID(d.Origin))
	v.Set("destination.id", locationID(d.Destination))
	v.Set("requestedBy.id", personID(d.RequestedBy))
	v.Set("stocklist.id", stocklistID(d.Stocklist))
	if d.Stocklist != nil {
		v.Set("stocklist.name", d.Stocklist.Name)
	}
	return v
}

// parseEditItems applies posted revisions to the mounted rows. Rows whose
// inputs were not posted keep their values.
func parseEditItems(form url.Values, items []EditItem) []EditItem {
	out := make([]EditItem, len(items))
	for i, item := range items {
		item.InvalidQuantity = false
		qtyKey := rowField("items", i, "quantityRevised")
		if _, posted := form[qtyKey]; posted {
			raw := formField(form, qtyKey)
			item.QuantityRevised = nil
			if raw != "" {
				n, err := strconv.Atoi(raw)
				if err != nil {
					item.InvalidQuantity = true
				} else {
					item.QuantityRevised = &n
				}
			}
		}
		reasonKey := rowField("items", i, "reasonCode")
		if _, posted := form[reasonKey]; posted {
			item.ReasonCode = formField(form, reasonKey)
		}
		out[i] = item
	}
	return out
}

// parsePackItems applies posted recipients, pallets and boxes to the mounted rows.
func parsePackItems(ctx context.Context, dir Directory, form url.Values, items []openboxes.PackPageItem) ([]openboxes.PackPageItem, error) {
	out := make([]openboxes.PackPageItem, len(items))
	for i, item := range items {
		if key := rowField("items", i, "recipient.id"); form.Has(key) {
			recipient, err := dir.User(ctx, formField(form, key))
			if err != nil {
				return nil, err
			}
			item.Recipient = recipient
		}
		if key := rowField("items", i, "palletName"); form.Has(key) {
			item.PalletName = formField(form, key)
		}
		if key := rowField("items", i, "boxName"); form.Has(key) {
			item.BoxName = formField(form, key)
		}
		out[i] = item
	}
	return out, nil
}

// parseSplitRows reads the split-line dialog. Product details always come from the parent.
func parseSplitRows(ctx context.Context, dir Directory, form url.Values, item openboxes.PackPageItem) ([]SplitRow, error) {
	count, err := strconv.Atoi(formField(form, "rowCount"))
	if err != nil || count < 0 {
		return nil, fmt.Errorf("wizard: invalid row count %q", form.Get("rowCount"))
	}
	rows := make([]SplitRow, 0, count)
	for i := 0; i < count; i++ {
		recipient, err := dir.User(ctx, formField(form, rowField("rows", i, "recipient.id")))
		if err != nil {
			return nil, err
		}
		rows = append(rows, SplitRow{
			ProductName:     item.ProductName,
			LotNumber:       item.LotNumber,
			ExpirationDate:  item.ExpirationDate,
			BinLocationName: item.BinLocationName,
			QuantityShipped: formField(form, rowField("rows", i, "quantityShipped")),
			Recipient:       recipient,
			PalletName:      formField(form, rowField("rows", i, "palletName")),
			BoxName:         formField(form, rowField("rows", i, "boxName")),
		})
	}
	return rows, nil
}
