package wizard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/stockwizard/internal/openboxes"
	"github.com/odyssey-erp/stockwizard/internal/shared"
)

type stubAPI struct {
	mu sync.Mutex

	stocklists    []openboxes.Stocklist
	saved         openboxes.StockMovement
	saveErr       error
	savePayloads  []map[string]any
	saveIDs       []string
	movement      openboxes.StockMovement
	stepData      map[int]openboxes.StepData
	stepErr       error
	stepCalls     int
	revisions     [][]openboxes.RevisedLineItem
	reviseErr     error
	revertPage    openboxes.EditPage
	revertErr     error
	packSaves     [][]openboxes.PackPageItem
	packEcho      *openboxes.PackPage
	packErr       error
	statusUpdates []openboxes.StatusUpdate
	statusErr     error
}

func (s *stubAPI) Stocklists(_ context.Context, _, _ string) ([]openboxes.Stocklist, error) {
	return s.stocklists, nil
}

func (s *stubAPI) SaveStockMovement(_ context.Context, id string, payload map[string]any) (openboxes.StockMovement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveIDs = append(s.saveIDs, id)
	s.savePayloads = append(s.savePayloads, payload)
	return s.saved, s.saveErr
}

func (s *stubAPI) StockMovement(_ context.Context, _ string) (openboxes.StockMovement, error) {
	return s.movement, nil
}

func (s *stubAPI) StepData(_ context.Context, _ string, step int) (openboxes.StepData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stepCalls++
	if s.stepErr != nil {
		return openboxes.StepData{}, s.stepErr
	}
	return s.stepData[step], nil
}

func (s *stubAPI) ReviseItems(_ context.Context, _ string, items []openboxes.RevisedLineItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revisions = append(s.revisions, items)
	return s.reviseErr
}

func (s *stubAPI) RevertItem(_ context.Context, _, _ string) (openboxes.EditPage, error) {
	return s.revertPage, s.revertErr
}

func (s *stubAPI) SavePackItems(_ context.Context, _ string, items []openboxes.PackPageItem) (openboxes.PackPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.packSaves = append(s.packSaves, items)
	if s.packErr != nil {
		return openboxes.PackPage{}, s.packErr
	}
	if s.packEcho != nil {
		return *s.packEcho, nil
	}
	return openboxes.PackPage{PackPageItems: items}, nil
}

func (s *stubAPI) UpdateStatus(_ context.Context, _ string, update openboxes.StatusUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusUpdates = append(s.statusUpdates, update)
	return s.statusErr
}

type countingBusy struct {
	mu    sync.Mutex
	shown int
	open  int
}

func (b *countingBusy) Show() {
	b.mu.Lock()
	b.shown++
	b.open++
	b.mu.Unlock()
}

func (b *countingBusy) Hide() {
	b.mu.Lock()
	b.open--
	b.mu.Unlock()
}

func (b *countingBusy) balanced() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open == 0
}

type memGuard struct {
	mu   sync.Mutex
	keys map[string]string
}

func newMemGuard() *memGuard {
	return &memGuard{keys: map[string]string{}}
}

func (g *memGuard) CheckAndInsert(_ context.Context, key, module string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.keys[key]; ok {
		return shared.ErrIdempotencyConflict
	}
	g.keys[key] = module
	return nil
}

func (g *memGuard) Delete(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.keys, key)
	return nil
}

type recordingAudit struct {
	mu   sync.Mutex
	logs []shared.AuditLog
}

func (a *recordingAudit) Record(_ context.Context, log shared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, log)
	return nil
}

func (a *recordingAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.logs))
	for i, l := range a.logs {
		out[i] = l.Action
	}
	return out
}

type stubReasons struct {
	codes  []openboxes.ReasonCode
	err    error
	forced int
}

func (s *stubReasons) ReasonCodes(_ context.Context, force bool) ([]openboxes.ReasonCode, error) {
	if force {
		s.forced++
	}
	return s.codes, s.err
}

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, time.Hour), mr
}

func intPtr(v int) *int { return &v }

var testScope = Scope{Session: "sess-1", Movement: "sm-1"}

func editItem(id string, requested, available int) openboxes.EditPageItem {
	return openboxes.EditPageItem{
		RequisitionItemID: id,
		ProductCode:       "P-" + id,
		ProductName:       "Product " + id,
		QuantityRequested: requested,
		QuantityAvailable: available,
	}
}

func mountEdit(t *testing.T, api *stubAPI, items ...openboxes.EditPageItem) (*EditStep, *countingBusy, *recordingAudit) {
	t.Helper()
	store, _ := newTestStore(t)
	busy := &countingBusy{}
	audit := &recordingAudit{}
	if api.stepData == nil {
		api.stepData = map[int]openboxes.StepData{}
	}
	api.stepData[int(StepEdit)] = openboxes.StepData{
		ID:         testScope.Movement,
		StatusCode: openboxes.StatusVerifying,
		EditPage:   &openboxes.EditPage{EditPageItems: items},
	}
	step := NewEditStep(api, &stubReasons{}, store, busy, newMemGuard(), audit, nil)
	_, err := step.Mount(context.Background(), testScope, false)
	require.NoError(t, err)
	return step, busy, audit
}
