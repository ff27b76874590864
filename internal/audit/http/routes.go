package audithttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/odyssey-erp/stockwizard/internal/platform/httpx"
	"github.com/odyssey-erp/stockwizard/internal/shared"
)

// Exports scan the whole date range, so they get a tighter per-user budget
// than the page itself.
const (
	rateLimit  = 10
	rateWindow = time.Minute
)

// MountRoutes registers /audit and its exports.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	exportLimit := httprate.Limit(rateLimit, rateWindow,
		httprate.WithKeyFuncs(exportKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "export limit reached, retry in a minute")
		}),
	)
	r.Route("/audit", func(r chi.Router) {
		r.Get("/", h.handleTimeline)
		r.With(exportLimit).Get("/export.csv", h.handleExport)
		r.With(exportLimit).Get("/pdf", h.handlePDF)
	})
}

// exportKey limits by user, falling back to the client address.
func exportKey(r *http.Request) (string, error) {
	if sess := shared.SessionFromContext(r.Context()); loggedIn(sess) {
		return "user:" + sess.User(), nil
	}
	ip, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + ip, nil
}
