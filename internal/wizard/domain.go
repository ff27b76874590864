package wizard

import (
	"context"

	"github.com/odyssey-erp/stockwizard/internal/openboxes"
	"github.com/odyssey-erp/stockwizard/internal/shared"
)

// Step identifies a wizard page. Numbers follow the backend step numbers.
type Step int

const (
	// StepCreate captures the stock movement header.
	StepCreate Step = 1
	// StepEdit lets the user revise quantities.
	StepEdit Step = 3
	// StepPack assigns packed items to pallets, boxes and recipients.
	StepPack Step = 5
	// StepShip is the summary shown once the movement reaches CHECKING.
	StepShip Step = 6
)

// Path returns the URL segment of the step.
func (s Step) Path() string {
	switch s {
	case StepCreate:
		return "create"
	case StepEdit:
		return "edit"
	case StepPack:
		return "pack"
	case StepShip:
		return "ship"
	default:
		return ""
	}
}

// Previous returns the step rendered by the "previous" button.
func (s Step) Previous() Step {
	switch s {
	case StepEdit:
		return StepCreate
	case StepPack:
		return StepEdit
	case StepShip:
		return StepPack
	default:
		return StepCreate
	}
}

// Scope binds wizard state to one browser session and one stock movement.
type Scope struct {
	Session  string
	Movement string
}

// Direction pre-fills the create form from the current location.
type Direction string

const (
	// DirectionInbound pre-fills the destination.
	DirectionInbound Direction = "INBOUND"
	// DirectionOutbound pre-fills the origin.
	DirectionOutbound Direction = "OUTBOUND"
)

// Draft is the create form.
type Draft struct {
	StockMovementID string               `json:"stockMovementId,omitempty"`
	Description     string               `json:"description"`
	Origin          *openboxes.Location  `json:"origin,omitempty"`
	Destination     *openboxes.Location  `json:"destination,omitempty"`
	RequestedBy     *openboxes.Person    `json:"requestedBy,omitempty"`
	DateRequested   string               `json:"dateRequested"`
	Stocklist       *openboxes.Stocklist `json:"stocklist,omitempty"`
	ForceUpdate     bool                 `json:"forceUpdate,omitempty"`
}

// Movement is what the create step hands to the following steps.
type Movement struct {
	Draft
	MovementNumber string               `json:"movementNumber,omitempty"`
	Name           string               `json:"name,omitempty"`
	LineItems      []openboxes.LineItem `json:"lineItems,omitempty"`
}

// CreateState is the persisted state of the create step.
type CreateState struct {
	Initial  Draft    `json:"initial"`
	Movement Movement `json:"movement"`
}

// EditItem is an edit page row with its UI row key.
type EditItem struct {
	RowKey string `json:"rowKey"`
	openboxes.EditPageItem
	// InvalidQuantity marks a quantityRevised input that did not parse.
	InvalidQuantity bool `json:"invalidQuantity,omitempty"`
}

// Revision is the baseline tuple captured when the edit step mounts.
type Revision struct {
	RequisitionItemID string `json:"requisitionItemId"`
	QuantityRevised   *int   `json:"quantityRevised"`
	ReasonCode        string `json:"reasonCode"`
}

// EditState is the persisted state of the edit step.
type EditState struct {
	Generation   int64      `json:"generation"`
	StatusCode   string     `json:"statusCode"`
	RevisedItems []Revision `json:"revisedItems"`
	Items        []EditItem `json:"items"`
	SubmitToken  string     `json:"submitToken"`
}

// PackState is the persisted state of the pack step.
type PackState struct {
	Generation  int64                    `json:"generation"`
	Items       []openboxes.PackPageItem `json:"items"`
	SubmitToken string                   `json:"submitToken"`
}

// MovementAPI is the slice of the backend client used by the step controllers.
type MovementAPI interface {
	Stocklists(ctx context.Context, originID, destinationID string) ([]openboxes.Stocklist, error)
	SaveStockMovement(ctx context.Context, id string, payload map[string]any) (openboxes.StockMovement, error)
	StockMovement(ctx context.Context, id string) (openboxes.StockMovement, error)
	StepData(ctx context.Context, id string, step int) (openboxes.StepData, error)
	ReviseItems(ctx context.Context, id string, items []openboxes.RevisedLineItem) error
	RevertItem(ctx context.Context, id, itemID string) (openboxes.EditPage, error)
	SavePackItems(ctx context.Context, id string, items []openboxes.PackPageItem) (openboxes.PackPage, error)
	UpdateStatus(ctx context.Context, id string, update openboxes.StatusUpdate) error
}

// ReasonCodeSource provides cached reason codes.
type ReasonCodeSource interface {
	ReasonCodes(ctx context.Context, force bool) ([]openboxes.ReasonCode, error)
}

// IdempotencyGuard de-duplicates status transitions.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// AuditRecorder persists wizard actions.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}
