package wizard

import "github.com/odyssey-erp/stockwizard/internal/openboxes"

// ValidateEditItems applies the revision rules to every row. Rules are evaluated
// in order and the last one that applies is the error reported for the row.
func ValidateEditItems(items []EditItem) *ValidationErrors {
	v := &ValidationErrors{}
	for i, item := range items {
		revised := item.QuantityRevised
		substituted := item.StatusCode == openboxes.ItemStatusSubstituted

		if revised != nil && item.ReasonCode == "" {
			v.setRow(i, "reasonCode", MsgReasonCodeRequired)
		} else if revised == nil && item.ReasonCode != "" && !substituted {
			v.setRow(i, "quantityRevised", MsgRevisedQtyRequired)
		}
		if revised != nil && *revised == item.QuantityRequested {
			v.setRow(i, "quantityRevised", MsgSameRevisedQty)
		}
		if revised == nil && item.QuantityRequested > item.QuantityAvailable && !substituted {
			v.setRow(i, "quantityRevised", MsgLowerQty)
		}
		if revised != nil && *revised > item.QuantityAvailable {
			v.setRow(i, "quantityRevised", MsgHigherQty)
		}
		if revised != nil && *revised < 0 {
			v.setRow(i, "quantityRevised", MsgNegativeQty)
		}
		if item.InvalidQuantity {
			v.setRow(i, "quantityRevised", MsgInvalidQty)
		}
	}
	if v.Empty() {
		return nil
	}
	return v
}
