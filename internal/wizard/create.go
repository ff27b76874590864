package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/stockwizard/internal/openboxes"
	"github.com/odyssey-erp/stockwizard/internal/shared"
)

// CreateStep controls the first wizard page.
type CreateStep struct {
	api      MovementAPI
	store    StateStore
	busy     Busy
	audit    AuditRecorder
	logger   *slog.Logger
	validate *validator.Validate
}

// NewCreateStep constructs the controller.
func NewCreateStep(api MovementAPI, store StateStore, busy Busy, audit AuditRecorder, logger *slog.Logger) *CreateStep {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("form")
	})
	if logger == nil {
		logger = slog.Default()
	}
	return &CreateStep{api: api, store: store, busy: busyOrNop(busy), audit: audit, logger: logger, validate: v}
}

type draftRules struct {
	Description   string `form:"description" validate:"required"`
	Origin        string `form:"origin" validate:"required"`
	Destination   string `form:"destination" validate:"required"`
	RequestedBy   string `form:"requestedBy" validate:"required"`
	DateRequested string `form:"dateRequested" validate:"required"`
}

func locationID(l *openboxes.Location) string {
	if l == nil {
		return ""
	}
	return l.ID
}

func personID(p *openboxes.Person) string {
	if p == nil {
		return ""
	}
	return p.ID
}

func stocklistID(s *openboxes.Stocklist) string {
	if s == nil {
		return ""
	}
	return s.ID
}

// Validate checks the required header fields. It returns nil when the draft is complete.
func (c *CreateStep) Validate(d Draft) *ValidationErrors {
	rules := draftRules{
		Description:   d.Description,
		Origin:        locationID(d.Origin),
		Destination:   locationID(d.Destination),
		RequestedBy:   personID(d.RequestedBy),
		DateRequested: d.DateRequested,
	}
	err := c.validate.Struct(rules)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &ValidationErrors{Fields: FieldErrors{"general": err.Error()}}
	}
	out := &ValidationErrors{}
	for _, fe := range fieldErrs {
		out.setField(fe.Field(), MsgRequiredField)
	}
	return out
}

// ChangeDetected reports whether saving the draft over initial would discard line items.
func ChangeDetected(initial, d Draft) bool {
	checkOrigin := false
	if initial.Origin != nil && d.Origin != nil {
		oldSupplier := initial.Origin.TypeCode() == openboxes.LocationTypeSupplier
		newSupplier := d.Origin.TypeCode() == openboxes.LocationTypeSupplier
		if !(oldSupplier && newSupplier) {
			checkOrigin = d.Origin.ID != initial.Origin.ID
		}
	}
	checkDestination := false
	if initial.Stocklist != nil && initial.Destination != nil && d.Destination != nil {
		checkDestination = d.Destination.ID != initial.Destination.ID
	}
	checkStocklist := false
	if d.StockMovementID != "" {
		checkStocklist = stocklistID(d.Stocklist) != stocklistID(initial.Stocklist)
	}
	return checkOrigin || checkDestination || checkStocklist
}

func createPayload(d Draft) map[string]any {
	force := ""
	if d.ForceUpdate {
		force = "true"
	}
	return map[string]any{
		"name":           "",
		"description":    d.Description,
		"dateRequested":  d.DateRequested,
		"origin.id":      locationID(d.Origin),
		"destination.id": locationID(d.Destination),
		"requestedBy.id": personID(d.RequestedBy),
		"stocklist.id":   stocklistID(d.Stocklist),
		"forceUpdate":    force,
	}
}

// Stocklists lists stock lists for the pair. Nothing is fetched until both ids are known.
func (c *CreateStep) Stocklists(ctx context.Context, originID, destinationID string) ([]openboxes.Stocklist, error) {
	if originID == "" || destinationID == "" {
		return nil, nil
	}
	c.busy.Show()
	defer c.busy.Hide()
	return c.api.Stocklists(ctx, originID, destinationID)
}

// Defaults pre-fills a new draft from the direction and the current location.
// The returned field name is disabled in the form, or empty.
func Defaults(direction Direction, current *openboxes.Location, isSuperuser bool) (Draft, string) {
	var d Draft
	if current == nil {
		return d, ""
	}
	loc := *current
	switch direction {
	case DirectionInbound:
		d.Destination = &loc
		if !isSuperuser {
			return d, "destination"
		}
	case DirectionOutbound:
		d.Origin = &loc
		if !isSuperuser {
			return d, "origin"
		}
	}
	return d, ""
}

// Movement returns the header state of a movement, loading it from the backend
// when this session has not seen it yet.
func (c *CreateStep) Movement(ctx context.Context, scope Scope) (Movement, error) {
	var state CreateState
	found, err := c.store.Load(ctx, scope, StepCreate, &state)
	if err != nil {
		return Movement{}, err
	}
	if found {
		return state.Movement, nil
	}
	gen, err := c.store.Begin(ctx, scope, StepCreate)
	if err != nil {
		return Movement{}, err
	}
	c.busy.Show()
	sm, err := c.api.StockMovement(ctx, scope.Movement)
	c.busy.Hide()
	if err != nil {
		return Movement{}, err
	}
	m := movementFrom(Draft{StockMovementID: sm.ID}, sm)
	if err := c.store.Commit(ctx, scope, StepCreate, gen, CreateState{Initial: m.Draft, Movement: m}); err != nil && !errors.Is(err, ErrStaleState) {
		return Movement{}, err
	}
	return m, nil
}

func movementFrom(d Draft, sm openboxes.StockMovement) Movement {
	d.StockMovementID = sm.ID
	d.ForceUpdate = false
	d.Stocklist = sm.Stocklist
	if d.Description == "" {
		d.Description = sm.Description
	}
	if d.Origin == nil {
		d.Origin = sm.Origin
	}
	if d.Destination == nil {
		d.Destination = sm.Destination
	}
	if d.RequestedBy == nil {
		d.RequestedBy = sm.RequestedBy
	}
	if d.DateRequested == "" {
		d.DateRequested = sm.DateRequested
	}
	return Movement{
		Draft:          d,
		MovementNumber: sm.Identifier,
		Name:           sm.Name,
		LineItems:      sm.LineItems,
	}
}

// Submit validates the draft and creates or updates the movement.
// It returns *ValidationErrors for an incomplete draft and ErrConfirmationRequired
// when the change would discard line items and ForceUpdate is not set.
func (c *CreateStep) Submit(ctx context.Context, sessionID string, initial, d Draft) (Movement, error) {
	if v := c.Validate(d); v != nil {
		return Movement{}, v
	}
	if !d.ForceUpdate && ChangeDetected(initial, d) {
		return Movement{}, ErrConfirmationRequired
	}

	c.busy.Show()
	sm, err := c.api.SaveStockMovement(ctx, d.StockMovementID, createPayload(d))
	c.busy.Hide()
	if err != nil {
		c.logger.Warn("save stock movement", slog.String("movement", d.StockMovementID), slog.Any("error", err))
		return Movement{}, fmt.Errorf("%w: %w", ErrCreateFailed, err)
	}

	action := "stock_movement.created"
	if d.StockMovementID != "" {
		action = "stock_movement.updated"
	}
	m := movementFrom(d, sm)
	scope := Scope{Session: sessionID, Movement: sm.ID}
	gen, err := c.store.Begin(ctx, scope, StepCreate)
	if err != nil {
		return Movement{}, err
	}
	if err := c.store.Commit(ctx, scope, StepCreate, gen, CreateState{Initial: m.Draft, Movement: m}); err != nil {
		return Movement{}, err
	}
	c.record(ctx, action, sm.ID, map[string]any{"identifier": sm.Identifier, "forceUpdate": d.ForceUpdate})
	return m, nil
}

func (c *CreateStep) record(ctx context.Context, action, movementID string, meta map[string]any) {
	recordAudit(ctx, c.audit, c.logger, action, movementID, meta)
}

func recordAudit(ctx context.Context, audit AuditRecorder, logger *slog.Logger, action, movementID string, meta map[string]any) {
	if audit == nil {
		return
	}
	actor := ""
	if sess := shared.SessionFromContext(ctx); sess != nil {
		actor = sess.User()
	}
	if err := audit.Record(ctx, shared.AuditLog{
		ActorID:  actor,
		Action:   action,
		Entity:   "stock_movement",
		EntityID: movementID,
		Meta:     meta,
	}); err != nil {
		logger.Warn("record audit", slog.String("action", action), slog.Any("error", err))
	}
}
