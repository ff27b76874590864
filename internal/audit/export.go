package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"time"

	"github.com/odyssey-erp/stockwizard/internal/view"
)

// ErrPDFUnavailable is returned when no PDF renderer is configured.
var ErrPDFUnavailable = errors.New("audit: pdf export unavailable")

// PrintTemplate is the page rendered for PDF exports.
const PrintTemplate = "pages/audit_print.html"

// HTMLRenderer renders a named template to a string.
type HTMLRenderer interface {
	RenderString(name string, data view.TemplateData) (string, error)
}

// PDFRenderer converts HTML to PDF.
type PDFRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// Exporter writes timeline exports.
type Exporter struct {
	html HTMLRenderer
	pdf  PDFRenderer
}

// NewExporter constructs the exporter. PDF export needs both renderers.
func NewExporter(html HTMLRenderer, pdf PDFRenderer) *Exporter {
	return &Exporter{html: html, pdf: pdf}
}

var csvHeader = []string{"occurred_at", "actor", "action", "entity", "entity_id", "meta"}

// WriteCSV encodes rows as CSV with a header line.
func (e *Exporter) WriteCSV(rows []TimelineRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, row := range rows {
		meta := ""
		if len(row.Meta) > 0 {
			raw, err := json.Marshal(row.Meta)
			if err != nil {
				return nil, err
			}
			meta = string(raw)
		}
		at := ""
		if !row.At.IsZero() {
			at = row.At.UTC().Format(time.RFC3339)
		}
		if err := w.Write([]string{at, row.Actor, row.Action, row.Entity, row.EntityID, meta}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderPDF prints the view model through the print template.
func (e *Exporter) RenderPDF(ctx context.Context, vm ViewModel) ([]byte, error) {
	if e == nil || e.html == nil || e.pdf == nil {
		return nil, ErrPDFUnavailable
	}
	html, err := e.html.RenderString(PrintTemplate, view.TemplateData{Title: "Activity", Data: vm})
	if err != nil {
		return nil, err
	}
	return e.pdf.RenderHTML(ctx, html)
}
