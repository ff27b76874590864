package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/odyssey-erp/stockwizard/internal/openboxes"
	"github.com/odyssey-erp/stockwizard/internal/shared"
)

const statusTransitionModule = "stock_movement.status"

// EditStep controls the revise page.
type EditStep struct {
	api     MovementAPI
	reasons ReasonCodeSource
	store   StateStore
	busy    Busy
	guard   IdempotencyGuard
	audit   AuditRecorder
	logger  *slog.Logger
}

// NewEditStep constructs the controller.
func NewEditStep(api MovementAPI, reasons ReasonCodeSource, store StateStore, busy Busy, guard IdempotencyGuard, audit AuditRecorder, logger *slog.Logger) *EditStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &EditStep{api: api, reasons: reasons, store: store, busy: busyOrNop(busy), guard: guard, audit: audit, logger: logger}
}

// ReasonCodes returns the cached reason codes. Failures are logged and yield an empty list.
func (e *EditStep) ReasonCodes(ctx context.Context, force bool) []openboxes.ReasonCode {
	if e.reasons == nil {
		return nil
	}
	e.busy.Show()
	defer e.busy.Hide()
	codes, err := e.reasons.ReasonCodes(ctx, force)
	if err != nil {
		e.logger.Warn("fetch reason codes", slog.Any("error", err))
		return nil
	}
	return codes
}

// Mount loads step 3 from the backend. force refreshes the reason codes too.
// It returns ErrStaleState when a newer mount started while this one was in flight.
func (e *EditStep) Mount(ctx context.Context, scope Scope, force bool) (EditState, error) {
	gen, err := e.store.Begin(ctx, scope, StepEdit)
	if err != nil {
		return EditState{}, err
	}
	e.ReasonCodes(ctx, force)

	e.busy.Show()
	data, err := e.api.StepData(ctx, scope.Movement, int(StepEdit))
	e.busy.Hide()
	if err != nil {
		e.logger.Warn("fetch edit page", slog.String("movement", scope.Movement), slog.Any("error", err))
		return EditState{}, err
	}

	if data.EditPage == nil {
		e.logger.Warn("fetch edit page", slog.String("movement", scope.Movement), slog.String("error", "editPage missing"))
		return EditState{}, fmt.Errorf("%w: editPage missing", openboxes.ErrMalformedResponse)
	}
	items := prepareEditItems(data.EditPage.EditPageItems)
	state := EditState{
		Generation:   gen,
		StatusCode:   data.StatusCode,
		RevisedItems: Baseline(items),
		Items:        items,
		SubmitToken:  uuid.NewString(),
	}
	if err := e.store.Commit(ctx, scope, StepEdit, gen, state); err != nil {
		return EditState{}, err
	}
	return state, nil
}

// State returns the mounted state, mounting it when the session has none.
func (e *EditStep) State(ctx context.Context, scope Scope) (EditState, error) {
	var state EditState
	found, err := e.store.Load(ctx, scope, StepEdit, &state)
	if err != nil {
		return EditState{}, err
	}
	if found {
		return state, nil
	}
	return e.Mount(ctx, scope, false)
}

func (e *EditStep) loaded(ctx context.Context, scope Scope) (EditState, error) {
	var state EditState
	found, err := e.store.Load(ctx, scope, StepEdit, &state)
	if err != nil {
		return EditState{}, err
	}
	if !found {
		return EditState{}, ErrStateNotFound
	}
	return state, nil
}

// revise validates items and posts the revisions that differ from the baseline.
// The returned state carries the user input even when an error is returned.
func (e *EditStep) revise(ctx context.Context, scope Scope, state EditState, items []EditItem) (EditState, error) {
	state.Items = items
	if v := ValidateEditItems(items); v != nil {
		return state, v
	}
	revisions := RevisionsToSend(state.RevisedItems, items)
	if len(revisions) == 0 {
		return state, nil
	}
	e.busy.Show()
	err := e.api.ReviseItems(ctx, scope.Movement, revisions)
	e.busy.Hide()
	if err != nil {
		e.logger.Warn("revise items", slog.String("movement", scope.Movement), slog.Any("error", err))
		return state, err
	}
	state.RevisedItems = mergeBaseline(state.RevisedItems, revisions)
	recordAudit(ctx, e.audit, e.logger, "stock_movement.revised", scope.Movement, map[string]any{"lineItems": len(revisions)})
	return state, nil
}

// Save validates and sends the pending revisions without changing step.
func (e *EditStep) Save(ctx context.Context, scope Scope, items []EditItem) (EditState, error) {
	state, err := e.loaded(ctx, scope)
	if err != nil {
		return EditState{}, err
	}
	state, reviseErr := e.revise(ctx, scope, state, items)
	if err := e.store.Commit(ctx, scope, StepEdit, state.Generation, state); err != nil {
		return state, err
	}
	return state, reviseErr
}

// Refresh discards unsaved changes and reloads the page. Without confirmation
// it returns ErrConfirmationRequired.
func (e *EditStep) Refresh(ctx context.Context, scope Scope, confirmed bool) (EditState, error) {
	if !confirmed {
		return EditState{}, ErrConfirmationRequired
	}
	if err := e.store.Clear(ctx, scope, StepEdit); err != nil {
		return EditState{}, err
	}
	return e.Mount(ctx, scope, true)
}

// RevertItem reverts revisions and substitutions of one requisition item. The
// local list is replaced by the page echoed by the backend.
func (e *EditStep) RevertItem(ctx context.Context, scope Scope, itemID string) (EditState, error) {
	state, err := e.loaded(ctx, scope)
	if err != nil {
		return EditState{}, err
	}
	e.busy.Show()
	page, err := e.api.RevertItem(ctx, scope.Movement, itemID)
	e.busy.Hide()
	if err != nil {
		e.logger.Warn("revert item", slog.String("movement", scope.Movement), slog.String("item", itemID), slog.Any("error", err))
		return state, fmt.Errorf("%w: %w", ErrRevertFailed, err)
	}
	state = reconcileEditItems(state, page)
	if err := e.store.Commit(ctx, scope, StepEdit, state.Generation, state); err != nil {
		return state, err
	}
	recordAudit(ctx, e.audit, e.logger, "stock_movement.reverted", scope.Movement, map[string]any{"requisitionItemId": itemID})
	return state, nil
}

// reconcileEditItems treats the echoed page as the source of truth.
func reconcileEditItems(state EditState, page openboxes.EditPage) EditState {
	items := prepareEditItems(page.EditPageItems)
	state.Items = items
	state.RevisedItems = Baseline(items)
	return state
}

// NextPage sends pending revisions then moves the movement to PICKING. A
// replayed submitToken yields ErrDuplicateSubmit.
func (e *EditStep) NextPage(ctx context.Context, scope Scope, items []EditItem, submitToken string) (EditState, error) {
	state, err := e.loaded(ctx, scope)
	if err != nil {
		return EditState{}, err
	}
	if v := ValidateEditItems(items); v != nil {
		state.Items = items
		return state, v
	}

	key := transitionKey(scope.Movement, openboxes.StatusPicking, submitToken)
	release, err := e.claim(ctx, key)
	if err != nil {
		return state, err
	}

	state, err = e.revise(ctx, scope, state, items)
	if err != nil {
		release()
		_ = e.store.Commit(ctx, scope, StepEdit, state.Generation, state)
		return state, err
	}

	update := openboxes.StatusUpdate{Status: openboxes.StatusPicking, CreatePicklist: "false"}
	if state.StatusCode == openboxes.StatusVerifying {
		update.CreatePicklist = "true"
	}
	e.busy.Show()
	err = e.api.UpdateStatus(ctx, scope.Movement, update)
	e.busy.Hide()
	if err != nil {
		release()
		e.logger.Warn("transition to picking", slog.String("movement", scope.Movement), slog.Any("error", err))
		_ = e.store.Commit(ctx, scope, StepEdit, state.Generation, state)
		return state, err
	}

	state.StatusCode = openboxes.StatusPicking
	state.SubmitToken = uuid.NewString()
	if err := e.store.Commit(ctx, scope, StepEdit, state.Generation, state); err != nil && !errors.Is(err, ErrStaleState) {
		return state, err
	}
	recordAudit(ctx, e.audit, e.logger, "stock_movement.status", scope.Movement, map[string]any{
		"status":         update.Status,
		"createPicklist": update.CreatePicklist,
	})
	return state, nil
}

func (e *EditStep) claim(ctx context.Context, key string) (func(), error) {
	return claimTransition(ctx, e.guard, e.logger, key)
}

func transitionKey(movement, status, token string) string {
	return fmt.Sprintf("%s:%s:%s", movement, status, token)
}

// claimTransition records the idempotency key and returns a function that
// releases it when the transition fails.
func claimTransition(ctx context.Context, guard IdempotencyGuard, logger *slog.Logger, key string) (func(), error) {
	if guard == nil {
		return func() {}, nil
	}
	if err := guard.CheckAndInsert(ctx, key, statusTransitionModule); err != nil {
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			return nil, ErrDuplicateSubmit
		}
		return nil, err
	}
	return func() {
		if err := guard.Delete(context.WithoutCancel(ctx), key); err != nil {
			logger.Warn("release idempotency key", slog.String("key", key), slog.Any("error", err))
		}
	}, nil
}
