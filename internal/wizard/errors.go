package wizard

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrConfirmationRequired asks the host to render a Yes/No prompt before retrying.
	ErrConfirmationRequired = errors.New("wizard: confirmation required")
	// ErrCreateFailed is returned when the backend rejects the movement header.
	ErrCreateFailed = errors.New("could not create stock movement")
	// ErrRevertFailed is returned when an item revert fails.
	ErrRevertFailed = errors.New(MsgRevertFailed)
	// ErrSaveItemsFailed is returned when the packing page cannot be saved.
	ErrSaveItemsFailed = errors.New(MsgSaveItemsFailed)
	// ErrRowNotFound is returned for an unknown pack row index.
	ErrRowNotFound = errors.New("wizard: row not found")
	// ErrStaleState is returned when a newer load superseded the result being applied.
	ErrStaleState = errors.New("wizard: stale step state")
	// ErrStateNotFound is returned when no state has been mounted for a step.
	ErrStateNotFound = errors.New("wizard: step state not found")
	// ErrDuplicateSubmit is returned when the same "next" submission is replayed.
	ErrDuplicateSubmit = errors.New("wizard: duplicate submission")
)

// Message keys rendered through the translation table.
const (
	MsgRequiredField         = "error.requiredField.label"
	MsgReasonCodeRequired    = "errors.reasonCodeRequired.label"
	MsgRevisedQtyRequired    = "errors.revisedQuantityRequired.label"
	MsgSameRevisedQty        = "errors.sameRevisedQty.label"
	MsgLowerQty              = "errors.lowerQty.label"
	MsgHigherQty             = "errors.higherQty.label"
	MsgNegativeQty           = "errors.negativeQty.label"
	MsgInvalidQty            = "errors.invalidQty.label"
	MsgPackingQty            = "errors.packingQty.label"
	MsgNegativeQtyShipped    = "errors.negativeQtyShipped.label"
	MsgRevertFailed          = "error.revertRequisitionItem.label"
	MsgSaveItemsFailed       = "error.saveRequisitionItems.label"
	MsgSaveSuccess           = "alert.saveSuccess.label"
	MsgConfirmChangeTitle    = "message.confirmChange.label"
	MsgConfirmChangeMessage  = "confirmChange.message"
	MsgConfirmRefreshTitle   = "message.confirmRefresh.label"
	MsgConfirmRefreshMessage = "confirmRefresh.message"
)

// FieldErrors maps a field name to a message key.
type FieldErrors map[string]string

// ValidationErrors collects header and per-row validation failures.
type ValidationErrors struct {
	Fields FieldErrors
	Rows   map[int]FieldErrors
}

// Empty reports whether no error was recorded.
func (v *ValidationErrors) Empty() bool {
	return v == nil || (len(v.Fields) == 0 && len(v.Rows) == 0)
}

// Row returns the errors of one row, or nil.
func (v *ValidationErrors) Row(i int) FieldErrors {
	if v == nil {
		return nil
	}
	return v.Rows[i]
}

func (v *ValidationErrors) setField(field, key string) {
	if v.Fields == nil {
		v.Fields = FieldErrors{}
	}
	v.Fields[field] = key
}

func (v *ValidationErrors) setRow(i int, field, key string) {
	if v.Rows == nil {
		v.Rows = map[int]FieldErrors{}
	}
	v.Rows[i] = FieldErrors{field: key}
}

func (v *ValidationErrors) Error() string {
	parts := make([]string, 0, len(v.Fields)+len(v.Rows))
	for field, key := range v.Fields {
		parts = append(parts, field+"="+key)
	}
	for i, row := range v.Rows {
		for field, key := range row {
			parts = append(parts, fmt.Sprintf("row %d %s=%s", i, field, key))
		}
	}
	sort.Strings(parts)
	return "wizard: validation failed: " + strings.Join(parts, ", ")
}

// AsValidation unwraps validation errors.
func AsValidation(err error) (*ValidationErrors, bool) {
	var v *ValidationErrors
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
