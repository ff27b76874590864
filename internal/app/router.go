package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	audithttp "github.com/odyssey-erp/stockwizard/internal/audit/http"
	"github.com/odyssey-erp/stockwizard/internal/auth"
	"github.com/odyssey-erp/stockwizard/internal/observability"
	"github.com/odyssey-erp/stockwizard/internal/requisition"
	"github.com/odyssey-erp/stockwizard/internal/shared"
	"github.com/odyssey-erp/stockwizard/internal/view"
	"github.com/odyssey-erp/stockwizard/internal/wizard"
	"github.com/odyssey-erp/stockwizard/jobs"
	"github.com/odyssey-erp/stockwizard/report"
	"github.com/odyssey-erp/stockwizard/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	Templates          *view.Engine
	SessionManager     *shared.SessionManager
	CSRFManager        *shared.CSRFManager
	AuthHandler        *auth.Handler
	WizardHandler      *wizard.Handler
	RequisitionHandler *requisition.Handler
	AuditHandler       *audithttp.Handler
	ReportHandler      *report.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with stockwizard defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Landing page for anonymous users.
	r.Get("/welcome", func(w http.ResponseWriter, r *http.Request) {
		renderPage(w, r, params, "pages/landing.html", nil)
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.User() == "" {
			http.Redirect(w, r, "/welcome", http.StatusSeeOther)
			return
		}
		data := map[string]any{}
		if params.Config != nil {
			data["AppEnv"] = params.Config.AppEnv
			data["Languages"] = params.Config.SupportedLanguages
		}
		renderPage(w, r, params, "pages/home.html", data)
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	r.Route("/stock-movements", func(r chi.Router) {
		r.Use(params.AuthHandler.RequireLogin)
		params.WizardHandler.MountRoutes(r)
	})
	if params.RequisitionHandler != nil {
		r.Route("/requisitions", func(r chi.Router) {
			r.Use(params.AuthHandler.RequireLogin)
			params.RequisitionHandler.MountRoutes(r)
		})
	}
	if params.AuditHandler != nil {
		r.Group(func(r chi.Router) {
			r.Use(params.AuthHandler.RequireLogin)
			params.AuditHandler.MountRoutes(r)
		})
	}
	if params.ReportHandler != nil {
		r.Route("/report", params.ReportHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

func renderPage(w http.ResponseWriter, r *http.Request, params RouterParams, name string, data any) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := params.CSRFManager.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	lang := ""
	if sess != nil {
		flash = sess.PopFlash()
		lang = sess.Get(shared.LanguageSessionKey)
	}
	msgs := view.Messages(nil)
	td := view.TemplateData{
		Title:       msgs.T("stockMovement.list.label"),
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Lang:        lang,
		Messages:    msgs,
		Data:        data,
	}
	if err := params.Templates.Render(w, name, td); err != nil {
		params.Logger.Error("render page", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// staticCacheHandler sets a one hour browser cache on static assets.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
