package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/odyssey-erp/stockwizard/internal/openboxes"
)

// PackStep controls the packing page.
type PackStep struct {
	api    MovementAPI
	store  StateStore
	busy   Busy
	guard  IdempotencyGuard
	audit  AuditRecorder
	logger *slog.Logger
}

// NewPackStep constructs the controller.
func NewPackStep(api MovementAPI, store StateStore, busy Busy, guard IdempotencyGuard, audit AuditRecorder, logger *slog.Logger) *PackStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &PackStep{api: api, store: store, busy: busyOrNop(busy), guard: guard, audit: audit, logger: logger}
}

// Mount loads step 5 from the backend.
func (p *PackStep) Mount(ctx context.Context, scope Scope) (PackState, error) {
	gen, err := p.store.Begin(ctx, scope, StepPack)
	if err != nil {
		return PackState{}, err
	}
	p.busy.Show()
	data, err := p.api.StepData(ctx, scope.Movement, int(StepPack))
	p.busy.Hide()
	if err != nil {
		p.logger.Warn("fetch pack page", slog.String("movement", scope.Movement), slog.Any("error", err))
		return PackState{}, err
	}
	if data.PackPage == nil {
		p.logger.Warn("fetch pack page", slog.String("movement", scope.Movement), slog.String("error", "packPage missing"))
		return PackState{}, fmt.Errorf("%w: packPage missing", openboxes.ErrMalformedResponse)
	}
	state := PackState{Generation: gen, SubmitToken: uuid.NewString(), Items: data.PackPage.PackPageItems}
	if err := p.store.Commit(ctx, scope, StepPack, gen, state); err != nil {
		return PackState{}, err
	}
	return state, nil
}

// State returns the mounted state, mounting it when the session has none.
func (p *PackStep) State(ctx context.Context, scope Scope) (PackState, error) {
	var state PackState
	found, err := p.store.Load(ctx, scope, StepPack, &state)
	if err != nil {
		return PackState{}, err
	}
	if found {
		return state, nil
	}
	return p.Mount(ctx, scope)
}

func (p *PackStep) loaded(ctx context.Context, scope Scope) (PackState, error) {
	var state PackState
	found, err := p.store.Load(ctx, scope, StepPack, &state)
	if err != nil {
		return PackState{}, err
	}
	if !found {
		return PackState{}, ErrStateNotFound
	}
	return state, nil
}

// persist posts the whole list and reconciles the local list from the echo.
func (p *PackStep) persist(ctx context.Context, scope Scope, state PackState, items []openboxes.PackPageItem) (PackState, error) {
	state.Items = items
	if len(items) == 0 {
		return state, nil
	}
	p.busy.Show()
	page, err := p.api.SavePackItems(ctx, scope.Movement, items)
	p.busy.Hide()
	if err != nil {
		p.logger.Warn("save pack items", slog.String("movement", scope.Movement), slog.Any("error", err))
		return state, fmt.Errorf("%w: %w", ErrSaveItemsFailed, err)
	}
	return reconcilePackItems(state, page), nil
}

// reconcilePackItems replaces the local list with the echoed packing page.
func reconcilePackItems(state PackState, page openboxes.PackPage) PackState {
	state.Items = page.PackPageItems
	return state
}

// Save persists the packing page without changing step.
func (p *PackStep) Save(ctx context.Context, scope Scope, items []openboxes.PackPageItem) (PackState, error) {
	state, err := p.loaded(ctx, scope)
	if err != nil {
		return PackState{}, err
	}
	state, err = p.persist(ctx, scope, state, items)
	if err != nil {
		return state, err
	}
	if err := p.store.Commit(ctx, scope, StepPack, state.Generation, state); err != nil {
		return state, err
	}
	recordAudit(ctx, p.audit, p.logger, "stock_movement.packed", scope.Movement, map[string]any{"lineItems": len(items)})
	return state, nil
}

// SaveSplitLines replaces the split lines of the row at rowIndex and saves the page.
func (p *PackStep) SaveSplitLines(ctx context.Context, scope Scope, rowIndex int, lines []openboxes.SplitLineItem) (PackState, error) {
	state, err := p.loaded(ctx, scope)
	if err != nil {
		return PackState{}, err
	}
	if rowIndex < 0 || rowIndex >= len(state.Items) {
		return state, ErrRowNotFound
	}
	items := append([]openboxes.PackPageItem(nil), state.Items...)
	items[rowIndex].SplitLineItems = lines
	state, err = p.persist(ctx, scope, state, items)
	if err != nil {
		return state, err
	}
	if err := p.store.Commit(ctx, scope, StepPack, state.Generation, state); err != nil {
		return state, err
	}
	return state, nil
}

// Row returns one row of the mounted page.
func (p *PackStep) Row(ctx context.Context, scope Scope, rowIndex int) (openboxes.PackPageItem, error) {
	state, err := p.State(ctx, scope)
	if err != nil {
		return openboxes.PackPageItem{}, err
	}
	if rowIndex < 0 || rowIndex >= len(state.Items) {
		return openboxes.PackPageItem{}, ErrRowNotFound
	}
	return state.Items[rowIndex], nil
}

// Refresh reloads the page once the user confirmed.
func (p *PackStep) Refresh(ctx context.Context, scope Scope, confirmed bool) (PackState, error) {
	if !confirmed {
		return PackState{}, ErrConfirmationRequired
	}
	if err := p.store.Clear(ctx, scope, StepPack); err != nil {
		return PackState{}, err
	}
	return p.Mount(ctx, scope)
}

// NextPage saves the page then moves the movement to CHECKING.
func (p *PackStep) NextPage(ctx context.Context, scope Scope, items []openboxes.PackPageItem, submitToken string) (PackState, error) {
	state, err := p.loaded(ctx, scope)
	if err != nil {
		return PackState{}, err
	}
	key := transitionKey(scope.Movement, openboxes.StatusChecking, submitToken)
	release, err := claimTransition(ctx, p.guard, p.logger, key)
	if err != nil {
		return state, err
	}

	state, err = p.persist(ctx, scope, state, items)
	if err != nil {
		release()
		return state, err
	}
	p.busy.Show()
	err = p.api.UpdateStatus(ctx, scope.Movement, openboxes.StatusUpdate{Status: openboxes.StatusChecking})
	p.busy.Hide()
	if err != nil {
		release()
		p.logger.Warn("transition to checking", slog.String("movement", scope.Movement), slog.Any("error", err))
		_ = p.store.Commit(ctx, scope, StepPack, state.Generation, state)
		return state, err
	}
	state.SubmitToken = uuid.NewString()
	if err := p.store.Commit(ctx, scope, StepPack, state.Generation, state); err != nil && !errors.Is(err, ErrStaleState) {
		return state, err
	}
	recordAudit(ctx, p.audit, p.logger, "stock_movement.status", scope.Movement, map[string]any{"status": openboxes.StatusChecking})
	return state, nil
}
