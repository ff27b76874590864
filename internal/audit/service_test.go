package audit

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/odyssey-erp/stockwizard/internal/view"
)

type stubTimelineRepo struct {
	windowRows     []TimelineRow
	allRows        []TimelineRow
	lastWindowCall Query
	lastAllCall    Query
}

func (s *stubTimelineRepo) TimelineWindow(ctx context.Context, q Query) ([]TimelineRow, error) {
	s.lastWindowCall = q
	return s.windowRows, nil
}

func (s *stubTimelineRepo) TimelineAll(ctx context.Context, q Query) ([]TimelineRow, error) {
	s.lastAllCall = q
	return s.allRows, nil
}

func TestServiceTimelinePaging(t *testing.T) {
	repo := &stubTimelineRepo{
		windowRows: []TimelineRow{
			mockRow("2024-03-10T10:00:00Z", "u1", "stock_movement.created", "sm-1"),
			mockRow("2024-03-09T09:00:00Z", "u1", "stock_movement.status", "sm-1"),
			mockRow("2024-03-08T08:00:00Z", "u2", "stock_movement.created", "sm-2"),
		},
	}
	svc := NewService(repo)
	result, err := svc.Timeline(context.Background(), TimelineFilters{
		From:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		To:       time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		Page:     2,
		PageSize: 2,
	})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(result.Rows))
	}
	if !result.Paging.HasNext || result.Paging.NextPage != 3 || result.Paging.PrevPage != 1 {
		t.Fatalf("unexpected paging: %+v", result.Paging)
	}
	if repo.lastWindowCall.Limit != 3 {
		t.Fatalf("expected limit 3, got %d", repo.lastWindowCall.Limit)
	}
	if repo.lastWindowCall.Offset != 2 {
		t.Fatalf("expected offset 2, got %d", repo.lastWindowCall.Offset)
	}
	want := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	if !repo.lastWindowCall.ToAt.Time.Equal(want) {
		t.Fatalf("expected inclusive upper bound %s, got %s", want, repo.lastWindowCall.ToAt.Time)
	}
}

func TestServiceClampsPageSize(t *testing.T) {
	repo := &stubTimelineRepo{}
	svc := NewService(repo)
	result, err := svc.Timeline(context.Background(), TimelineFilters{PageSize: 500})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if result.Paging.PageSize != 50 || result.Paging.Page != 1 {
		t.Fatalf("unexpected paging: %+v", result.Paging)
	}
	if repo.lastWindowCall.FromAt.Valid {
		t.Fatalf("expected open lower bound")
	}
}

func TestServiceExportReturnsAllRows(t *testing.T) {
	repo := &stubTimelineRepo{
		allRows: []TimelineRow{
			mockRow("2024-03-10T10:00:00Z", "u1", "stock_movement.created", "sm-1"),
			mockRow("2024-03-09T09:00:00Z", "u1", "stock_movement.status", "sm-1"),
		},
	}
	svc := NewService(repo)
	rows, err := svc.Export(context.Background(), TimelineFilters{
		From:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		EntityID: " sm-1 ",
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if repo.lastAllCall.Actor != (pgtype.Text{}) {
		t.Fatalf("expected actor filter empty")
	}
	if repo.lastAllCall.EntityID != (pgtype.Text{String: "sm-1", Valid: true}) {
		t.Fatalf("unexpected entity filter: %+v", repo.lastAllCall.EntityID)
	}
}

func TestServiceWithoutRepository(t *testing.T) {
	if _, err := NewService(nil).Timeline(context.Background(), TimelineFilters{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestExporterWriteCSV(t *testing.T) {
	row := mockRow("2024-03-10T10:00:00Z", "u1", "stock_movement.status", "sm-1")
	row.Meta = map[string]any{"status": "PICKING"}
	out, err := NewExporter(nil, nil).WriteCSV([]TimelineRow{row})
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %q", out)
	}
	if lines[0] != "occurred_at,actor,action,entity,entity_id,meta" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if lines[1] != `2024-03-10T10:00:00Z,u1,stock_movement.status,stock_movement,sm-1,"{""status"":""PICKING""}"` {
		t.Fatalf("unexpected row %q", lines[1])
	}
}

type stubPDF struct {
	html string
}

func (s *stubPDF) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	s.html = html
	return []byte("%PDF"), nil
}

func TestExporterRenderPDF(t *testing.T) {
	if _, err := NewExporter(nil, nil).RenderPDF(context.Background(), ViewModel{}); err != ErrPDFUnavailable {
		t.Fatalf("expected ErrPDFUnavailable, got %v", err)
	}

	engine, err := view.NewEngine()
	if err != nil {
		t.Fatalf("parse templates: %v", err)
	}
	pdf := &stubPDF{}
	vm := ViewModel{Rows: []TimelineRow{mockRow("2024-03-10T10:00:00Z", "u1", "stock_movement.created", "sm-1")}}
	out, err := NewExporter(engine, pdf).RenderPDF(context.Background(), vm)
	if err != nil {
		t.Fatalf("pdf: %v", err)
	}
	if string(out) != "%PDF" {
		t.Fatalf("unexpected pdf bytes %q", out)
	}
	if !strings.Contains(pdf.html, "stock_movement.created") {
		t.Fatalf("expected action in printed html: %s", pdf.html)
	}
}

func mockRow(ts, actor, action, entityID string) TimelineRow {
	tval, _ := time.Parse(time.RFC3339, ts)
	return TimelineRow{
		At:       tval,
		Actor:    actor,
		Action:   action,
		Entity:   "stock_movement",
		EntityID: entityID,
	}
}
