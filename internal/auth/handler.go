package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/stockwizard/internal/openboxes"
	"github.com/odyssey-erp/stockwizard/internal/shared"
	"github.com/odyssey-erp/stockwizard/internal/view"
)

// LoginPath is where anonymous requests are sent.
const LoginPath = "/auth/login"

// Languages lists the locales a user may switch to.
type Languages interface {
	Supported() []string
	Match(acceptLanguage string) string
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	templates      *view.Engine
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	languages      Languages
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager, languages Languages) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		templates:      templates,
		sessionManager: sessions,
		csrfManager:    csrf,
		languages:      languages,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Post("/language", h.handleLanguage)
}

// RequireLogin redirects anonymous requests to the login page and hands the
// upstream session cookie to the API client through the request context.
func (h *Handler) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.User() == "" || sess.Get(shared.UpstreamSessionKey) == "" {
			target := LoginPath
			if r.Method == http.MethodGet {
				target += "?next=" + url.QueryEscape(r.URL.RequestURI())
			}
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		ctx := openboxes.WithSession(r.Context(), sess.Get(shared.UpstreamSessionKey))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type loginPageData struct {
	Form      Credentials
	Next      string
	Errors    map[string]string
	Languages []string
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	h.renderLogin(w, r, http.StatusOK, loginPageData{Next: safeNext(r.URL.Query().Get("next"))})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())

	form := Credentials{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Password: r.PostFormValue("password"),
	}
	next := safeNext(r.PostFormValue("next"))
	errs := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fieldErr := range verrs {
				errs[fieldErr.Field()] = "error.requiredField.label"
			}
		}
	}

	if len(errs) == 0 {
		principal, err := h.service.Authenticate(r.Context(), form)
		switch {
		case err == nil:
			h.startSession(r, sess, principal)
			http.Redirect(w, r, next, http.StatusSeeOther)
			return
		case errors.Is(err, shared.ErrInvalidCredentials):
			errs["general"] = "auth.invalidCredentials.label"
		default:
			h.logger.Warn("upstream login", slog.Any("error", err))
			errs["general"] = "auth.upstreamUnavailable.label"
		}
	}

	form.Password = ""
	h.renderLogin(w, r, http.StatusBadRequest, loginPageData{Form: form, Next: next, Errors: errs})
}

func (h *Handler) startSession(r *http.Request, sess *shared.Session, p *Principal) {
	if sess == nil {
		h.logger.Error("session missing during login")
		return
	}
	h.sessionManager.Renew(sess)
	sess.SetUser(p.UserID)
	sess.Set(shared.UpstreamSessionKey, p.Cookie)
	lang := sess.Get(shared.LanguageSessionKey)
	if lang == "" && p.Language != "" && h.supported(p.Language) {
		lang = p.Language
		sess.Set(shared.LanguageSessionKey, lang)
	}
	if lang == "" && h.languages != nil {
		lang = h.languages.Match(r.Header.Get("Accept-Language"))
	}
	expiresAt := time.Now().Add(h.sessionManager.TTL())
	if err := h.service.RegisterSession(r.Context(), sess.ID, p, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}
	h.service.WarmTranslations(r.Context(), lang)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		h.sessionManager.Destroy(sess)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) handleLanguage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	lang := r.PostFormValue("lang")
	if !h.supported(lang) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.Set(shared.LanguageSessionKey, lang)
	}
	h.service.WarmTranslations(r.Context(), lang)
	http.Redirect(w, r, safeNext(r.PostFormValue("next")), http.StatusSeeOther)
}

func (h *Handler) supported(lang string) bool {
	if h.languages == nil || lang == "" {
		return false
	}
	return slices.Contains(h.languages.Supported(), lang)
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, status int, data loginPageData) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrfManager.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	lang := ""
	if sess != nil {
		lang = sess.Get(shared.LanguageSessionKey)
	}
	if h.languages != nil {
		data.Languages = h.languages.Supported()
		if lang == "" {
			lang = h.languages.Match(r.Header.Get("Accept-Language"))
		}
	}
	msgs := view.Messages(nil)
	viewData := view.TemplateData{
		Title:       msgs.T("default.button.login.label"),
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Lang:        lang,
		Messages:    msgs,
		Data:        data,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, "pages/login.html", viewData); err != nil {
		h.logger.Error("render login", slog.Any("error", err))
	}
}

// safeNext keeps redirects on this host.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, LoginPath) {
		return "/"
	}
	return next
}
