package view

// Messages is a translation table keyed by message key.
type Messages map[string]string

// T translates key. Backend tables prefix React keys with "react."; unknown
// keys fall back to the built-in English text and finally to the key itself.
func (m Messages) T(key string) string {
	if v, ok := m[key]; ok && v != "" {
		return v
	}
	if v, ok := m["react."+key]; ok && v != "" {
		return v
	}
	if v, ok := defaultMessages[key]; ok {
		return v
	}
	return key
}

var defaultMessages = map[string]string{
	"stockMovement.description.label":       "Description",
	"stockMovement.origin.label":            "Origin",
	"stockMovement.destination.label":       "Destination",
	"stockMovement.stocklist.label":         "Stock list",
	"stockMovement.requestedBy.label":       "Requested by",
	"stockMovement.dateRequested.label":     "Date requested",
	"stockMovement.code.label":              "Code",
	"stockMovement.productName.label":       "Product name",
	"stockMovement.quantityRequested.label": "Requested",
	"stockMovement.quantityAvailable.label": "Available",
	"stockMovement.totalMonthlyQty.label":   "Monthly demand",
	"stockMovement.monthlyQuantity.label":   "Consumed",
	"stockMovement.substitution.label":      "Substitution",
	"stockMovement.quantityRevised.label":   "Revised qty",
	"stockMovement.reasonCode.label":        "Reason code",
	"stockMovement.binLocation.label":       "Bin location",
	"stockMovement.lot.label":               "Lot",
	"stockMovement.expiry.label":            "Expiry",
	"stockMovement.quantityShipped.label":   "Qty shipped",
	"stockMovement.quantityPacked.label":    "Qty packed",
	"stockMovement.recipient.label":         "Recipient",
	"stockMovement.pallet.label":            "Pallet",
	"stockMovement.box.label":               "Box",
	"stockMovement.splitLine.label":         "Split line",
	"stockMovement.create.label":            "Create stock movement",
	"stockMovement.edit.label":              "Edit line items",
	"stockMovement.pack.label":              "Pack items",
	"stockMovement.ship.label":              "Send shipment",
	"stockMovement.list.label":              "Stock movements",
	"stockMovement.new.label":               "New stock movement",
	"default.button.ok.label":               "OK",
	"default.button.login.label":            "Log in",
	"default.button.logout.label":           "Log out",
	"default.username.label":                "Username",
	"default.password.label":                "Password",
	"default.language.label":                "Language",
	"auth.invalidCredentials.label":         "Invalid username or password",
	"auth.upstreamUnavailable.label":        "The server could not be reached, try again later",
	"stockMovement.packingList.label":       "Packing list",
	"default.button.next.label":             "Next",
	"default.button.previous.label":         "Previous",
	"default.button.save.label":             "Save",
	"default.button.refresh.label":          "Reload",
	"default.button.undo.label":             "Undo",
	"default.button.addLine.label":          "Add line",
	"default.yes.label":                     "Yes",
	"default.no.label":                      "No",
	"error.requiredField.label":             "This field is required",
	"errors.reasonCodeRequired.label":       "Reason code required",
	"errors.revisedQuantityRequired.label":  "Revised quantity required",
	"errors.sameRevisedQty.label":           "Revised quantity can't be the same as requested quantity",
	"errors.lowerQty.label":                 "Quantity available is lower than requested. Please revise the quantity",
	"errors.higherQty.label":                "Revised quantity can't be higher than quantity available",
	"errors.negativeQty.label":              "Revised quantity can't be negative",
	"errors.invalidQty.label":               "Quantity must be a whole number",
	"errors.packingQty.label":               "Sum of all split items quantities must equal the line item quantity",
	"errors.negativeQtyShipped.label":       "Shipped quantity can't be negative",
	"error.revertRequisitionItem.label":     "Could not revert requisition item",
	"error.saveRequisitionItems.label":      "Could not save requisition items",
	"alert.saveSuccess.label":               "Changes saved successfully",
	"alert.locationChanged.label":           "Current location changed",
	"error.chooseLocation.label":            "Could not change location",
	"location.current.label":                "Current location",
	"location.change.label":                 "Change",
	"message.confirmChange.label":           "Confirm change",
	"confirmChange.message":                 "Changing the origin, destination or stock list removes the current line items. Continue?",
	"message.confirmRefresh.label":          "Confirm refresh",
	"confirmRefresh.message":                "All unsaved changes will be lost. Continue?",
	"audit.timeline.label":                  "Activity",
	"audit.from.label":                      "From",
	"audit.to.label":                        "To",
	"audit.at.label":                        "Date",
	"audit.actor.label":                     "User",
	"audit.action.label":                    "Action",
	"audit.entityId.label":                  "Movement",
	"audit.details.label":                   "Details",
	"audit.empty.label":                     "No activity in this period",
}
