package wizard

import (
	"math"
	"strconv"
	"strings"

	"github.com/odyssey-erp/stockwizard/internal/openboxes"
)

// SplitRow is one editable row of the split-line dialog. QuantityShipped keeps
// the raw user input.
type SplitRow struct {
	ProductName     string            `json:"productName"`
	LotNumber       string            `json:"lotNumber"`
	ExpirationDate  string            `json:"expirationDate"`
	BinLocationName string            `json:"binLocationName"`
	QuantityShipped string            `json:"quantityShipped"`
	Recipient       *openboxes.Person `json:"recipient,omitempty"`
	PalletName      string            `json:"palletName"`
	BoxName         string            `json:"boxName"`
}

// OpenSplitLines seeds the dialog with a single row copied from the parent line.
func OpenSplitLines(item openboxes.PackPageItem) []SplitRow {
	return []SplitRow{{
		ProductName:     item.ProductName,
		LotNumber:       item.LotNumber,
		ExpirationDate:  item.ExpirationDate,
		BinLocationName: item.BinLocationName,
		QuantityShipped: strconv.Itoa(item.QuantityShipped),
		Recipient:       item.Recipient,
		PalletName:      item.PalletName,
		BoxName:         item.BoxName,
	}}
}

// AddSplitLine appends an empty-quantity row that repeats the parent's product details.
func AddSplitLine(item openboxes.PackPageItem, rows []SplitRow) []SplitRow {
	out := append([]SplitRow(nil), rows...)
	return append(out, SplitRow{
		ProductName:     item.ProductName,
		LotNumber:       item.LotNumber,
		ExpirationDate:  item.ExpirationDate,
		BinLocationName: item.BinLocationName,
		Recipient:       item.Recipient,
	})
}

// toInteger converts loosely: non-numeric input is 0 and fractions are truncated.
func toInteger(raw string) int {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(math.Trunc(f))
}

func isNegative(raw string) bool {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	return err == nil && f < 0
}

// PackedQuantity sums the rows' quantities.
func PackedQuantity(rows []SplitRow) int {
	total := 0
	for _, row := range rows {
		total += toInteger(row.QuantityShipped)
	}
	return total
}

// ValidateSplitLines checks that the rows add up to the parent's shipped
// quantity and that no row is negative.
func ValidateSplitLines(item openboxes.PackPageItem, rows []SplitRow) *ValidationErrors {
	v := &ValidationErrors{}
	mismatch := PackedQuantity(rows) != item.QuantityShipped
	for i, row := range rows {
		if mismatch {
			v.setRow(i, "quantityShipped", MsgPackingQty)
		}
		if isNegative(row.QuantityShipped) {
			v.setRow(i, "quantityShipped", MsgNegativeQtyShipped)
		}
	}
	if v.Empty() {
		return nil
	}
	return v
}

// blankQuantity reports input that is empty or numerically zero.
// Non-numeric text is not blank.
func blankQuantity(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return true
	}
	f, err := strconv.ParseFloat(raw, 64)
	return err == nil && f == 0
}

// FilterSplitLines drops rows with a blank or zero quantity and converts the rest.
func FilterSplitLines(rows []SplitRow) []openboxes.SplitLineItem {
	out := make([]openboxes.SplitLineItem, 0, len(rows))
	for _, row := range rows {
		if blankQuantity(row.QuantityShipped) {
			continue
		}
		qty := toInteger(row.QuantityShipped)
		out = append(out, openboxes.SplitLineItem{
			ProductName:     row.ProductName,
			LotNumber:       row.LotNumber,
			ExpirationDate:  row.ExpirationDate,
			BinLocationName: row.BinLocationName,
			QuantityShipped: qty,
			Recipient:       row.Recipient,
			PalletName:      row.PalletName,
			BoxName:         row.BoxName,
		})
	}
	return out
}
