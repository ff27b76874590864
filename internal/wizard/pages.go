package wizard

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/odyssey-erp/stockwizard/internal/openboxes"
	"github.com/odyssey-erp/stockwizard/internal/view"
)

type createPage struct {
	Movement  Movement
	Current   *openboxes.Location
	Locations []view.Option
	IsNew     bool
	Direction string
	Action    string
	Fields    []view.Field
	Errors    *ValidationErrors
}

type editRow struct {
	Fields        []view.Field
	Substitutions [][]view.Field
	Substituted   bool
	Error         FieldErrors
}

type editPage struct {
	Movement    Movement
	StatusCode  string
	SubmitToken string
	Headers     []string
	Rows        []editRow
	Errors      *ValidationErrors
}

type packRow struct {
	Index  int
	Fields []view.Field
	Splits []openboxes.SplitLineItem
}

type packPage struct {
	Movement    Movement
	SubmitToken string
	Headers     []string
	Rows        []packRow
}

type splitPage struct {
	Movement Movement
	RowIndex int
	Item     openboxes.PackPageItem
	Rows     [][]view.Field
	RowCount int
	Packed   int
	Errors   *ValidationErrors
}

type confirmPage struct {
	Title   string
	Message string
	Action  string
	Values  url.Values
	NoURL   string
}

type shipPage struct {
	Movement Movement
	Items    []openboxes.PackPageItem
}

func locationOptions(locations []openboxes.Location) []view.Option {
	out := make([]view.Option, len(locations))
	for i := range locations {
		out[i] = view.Option{Value: locations[i].ID, Label: locations[i].Label()}
	}
	return out
}

func userOptions(users []openboxes.Person) []view.Option {
	out := make([]view.Option, len(users))
	for i, u := range users {
		out[i] = view.Option{Value: u.ID, Label: u.Name}
	}
	return out
}

func stocklistOptions(lists []openboxes.Stocklist) []view.Option {
	out := make([]view.Option, len(lists))
	for i, s := range lists {
		out[i] = view.Option{Value: s.ID, Label: s.Name}
	}
	return out
}

func reasonOptions(codes []openboxes.ReasonCode) []view.Option {
	out := make([]view.Option, len(codes))
	for i, c := range codes {
		out[i] = view.Option{Value: c.ID, Label: c.Name}
	}
	return out
}

func createFields(d Draft, locations []view.Option, users []view.Option, stocklists []view.Option, disabled string, errs *ValidationErrors) []view.Field {
	fieldErr := func(name string) string {
		if errs == nil {
			return ""
		}
		return errs.Fields[name]
	}
	fields := []view.Field{
		{Kind: view.FieldHidden, Name: "stockMovementId", Value: d.StockMovementID},
		{Kind: view.FieldText, Name: "description", Label: "stockMovement.description.label", Value: d.Description, Required: true, Error: fieldErr("description")},
		{Kind: view.FieldSelect, Name: "origin.id", Label: "stockMovement.origin.label", Value: locationID(d.Origin), Options: locations, Required: true, Disabled: disabled == "origin", Error: fieldErr("origin")},
		{Kind: view.FieldSelect, Name: "destination.id", Label: "stockMovement.destination.label", Value: locationID(d.Destination), Options: locations, Required: true, Disabled: disabled == "destination", Error: fieldErr("destination")},
		{Kind: view.FieldSelect, Name: "stocklist.id", Label: "stockMovement.stocklist.label", Value: stocklistID(d.Stocklist), Options: stocklists, Disabled: locationID(d.Origin) == "" || locationID(d.Destination) == ""},
		{Kind: view.FieldSelect, Name: "requestedBy.id", Label: "stockMovement.requestedBy.label", Value: personID(d.RequestedBy), Options: users, Required: true, Error: fieldErr("requestedBy")},
		{Kind: view.FieldDate, Name: "dateRequested", Label: "stockMovement.dateRequested.label", Value: d.DateRequested, Required: true, Error: fieldErr("dateRequested")},
	}
	// Disabled selects are not posted.
	switch disabled {
	case "origin":
		fields = append(fields, view.Field{Kind: view.FieldHidden, Name: "origin.id", Value: locationID(d.Origin)})
	case "destination":
		fields = append(fields, view.Field{Kind: view.FieldHidden, Name: "destination.id", Value: locationID(d.Destination)})
	}
	return fields
}

var editHeaders = []string{
	"stockMovement.code.label",
	"stockMovement.productName.label",
	"stockMovement.quantityRequested.label",
	"stockMovement.quantityAvailable.label",
	"stockMovement.totalMonthlyQty.label",
	"stockMovement.monthlyQuantity.label",
	"stockMovement.substitution.label",
	"stockMovement.quantityRevised.label",
	"stockMovement.reasonCode.label",
	"default.button.undo.label",
}

func intValue(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func editRows(movementID string, items []EditItem, reasons []view.Option, errs *ValidationErrors) []editRow {
	rows := make([]editRow, len(items))
	for i, item := range items {
		substituted := item.StatusCode == openboxes.ItemStatusSubstituted
		rowErr := errs.Row(i)
		availableClass := ""
		if item.QuantityAvailable == 0 || item.QuantityAvailable < item.QuantityRequested {
			availableClass = "text-danger"
		}
		revised := intValue(item.QuantityRevised)
		showRevert := item.StatusCode == openboxes.ItemStatusChanged || item.StatusCode == openboxes.ItemStatusCanceled
		rows[i] = editRow{
			Substituted: substituted,
			Error:       rowErr,
			Fields: []view.Field{
				{Kind: view.FieldLabel, Value: item.ProductCode},
				{Kind: view.FieldLabel, Value: item.ProductName},
				{Kind: view.FieldLabel, Value: view.FormatQuantity(item.QuantityRequested)},
				{Kind: view.FieldLabel, Value: view.FormatQuantity(item.QuantityAvailable), Class: availableClass},
				{Kind: view.FieldLabel, Value: view.FormatQuantity(item.TotalMonthlyQuantity)},
				{Kind: view.FieldLabel, Value: view.FormatQuantity(item.QuantityConsumed)},
				{Kind: view.FieldLabel, Value: item.SubstitutionStatus},
				{Kind: view.FieldNumber, Name: rowField("items", i, "quantityRevised"), Value: revised, Disabled: substituted, Error: rowErr["quantityRevised"]},
				{Kind: view.FieldSelect, Name: rowField("items", i, "reasonCode"), Value: item.ReasonCode, Options: reasons, Disabled: substituted, Error: rowErr["reasonCode"]},
				{Kind: view.FieldButton, Label: "default.button.undo.label", Class: "btn-outline-danger",
					Action: fmt.Sprintf("/stock-movements/%s/edit/items/%s/revert", url.PathEscape(movementID), url.PathEscape(item.RequisitionItemID)),
					Hidden: !showRevert || item.RequisitionItemID == ""},
			},
		}
		for _, sub := range item.SubstitutionItems {
			rows[i].Substitutions = append(rows[i].Substitutions, []view.Field{
				{Kind: view.FieldLabel, Value: sub.ProductCode, Class: "text-center"},
				{Kind: view.FieldLabel, Value: sub.ProductName, Class: "text-center"},
				{Kind: view.FieldLabel, Value: view.FormatQuantity(sub.QuantitySelected)},
				{Kind: view.FieldLabel, Value: view.FormatQuantity(sub.QuantityAvailable)},
			})
		}
	}
	return rows
}

var packHeaders = []string{
	"stockMovement.code.label",
	"stockMovement.productName.label",
	"stockMovement.binLocation.label",
	"stockMovement.lot.label",
	"stockMovement.expiry.label",
	"stockMovement.quantityShipped.label",
	"UOM",
	"stockMovement.recipient.label",
	"stockMovement.pallet.label",
	"stockMovement.box.label",
	"stockMovement.splitLine.label",
}

func recipientID(p *openboxes.Person) string {
	return personID(p)
}

func packRows(movementID string, items []openboxes.PackPageItem, users []view.Option) []packRow {
	rows := make([]packRow, len(items))
	for i, item := range items {
		rows[i] = packRow{
			Index:  i,
			Splits: item.SplitLineItems,
			Fields: []view.Field{
				{Kind: view.FieldLabel, Value: item.ProductCode},
				{Kind: view.FieldLabel, Value: item.ProductName, Class: "text-left"},
				{Kind: view.FieldLabel, Value: item.BinLocationName},
				{Kind: view.FieldLabel, Value: item.LotNumber},
				{Kind: view.FieldLabel, Value: item.ExpirationDate},
				{Kind: view.FieldLabel, Value: view.FormatQuantity(item.QuantityShipped)},
				{Kind: view.FieldLabel, Value: item.UOM},
				{Kind: view.FieldSelect, Name: rowField("items", i, "recipient.id"), Value: recipientID(item.Recipient), Options: users},
				{Kind: view.FieldText, Name: rowField("items", i, "palletName"), Value: item.PalletName},
				{Kind: view.FieldText, Name: rowField("items", i, "boxName"), Value: item.BoxName},
			},
		}
	}
	return rows
}

func splitRowsFields(rows []SplitRow, users []view.Option, errs *ValidationErrors) [][]view.Field {
	out := make([][]view.Field, len(rows))
	for i, row := range rows {
		rowErr := errs.Row(i)
		out[i] = []view.Field{
			{Kind: view.FieldLabel, Value: row.ProductName},
			{Kind: view.FieldLabel, Value: row.LotNumber},
			{Kind: view.FieldLabel, Value: row.ExpirationDate},
			{Kind: view.FieldLabel, Value: row.BinLocationName},
			{Kind: view.FieldNumber, Name: rowField("rows", i, "quantityShipped"), Value: row.QuantityShipped, Error: rowErr["quantityShipped"]},
			{Kind: view.FieldSelect, Name: rowField("rows", i, "recipient.id"), Value: recipientID(row.Recipient), Options: users, Required: true},
			{Kind: view.FieldText, Name: rowField("rows", i, "palletName"), Value: row.PalletName},
			{Kind: view.FieldText, Name: rowField("rows", i, "boxName"), Value: row.BoxName},
		}
	}
	return out
}
