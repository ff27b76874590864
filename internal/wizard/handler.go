package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/stockwizard/internal/openboxes"
	"github.com/odyssey-erp/stockwizard/internal/platform/httpx"
	"github.com/odyssey-erp/stockwizard/internal/shared"
	"github.com/odyssey-erp/stockwizard/internal/view"
)

// AppState is the shared reference data used to build the pages.
type AppState interface {
	Directory
	Users(ctx context.Context, force bool) ([]openboxes.Person, error)
	Locations(ctx context.Context, force bool) ([]openboxes.Location, error)
	Session(ctx context.Context, userKey string) (openboxes.SessionInfo, error)
	ChangeLocation(ctx context.Context, userKey, locationID string) error
	Translations(ctx context.Context, lang string) (map[string]string, error)
}

// LanguageMatcher resolves an Accept-Language header.
type LanguageMatcher interface {
	Match(acceptLanguage string) string
}

// PDFRenderer converts an HTML document to PDF.
type PDFRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// HandlerParams groups the handler dependencies.
type HandlerParams struct {
	Logger    *slog.Logger
	Templates *view.Engine
	CSRF      *shared.CSRFManager
	Create    *CreateStep
	Edit      *EditStep
	Pack      *PackStep
	State     AppState
	Languages LanguageMatcher
	PDF       PDFRenderer
}

// Handler serves the stock movement wizard.
type Handler struct {
	logger    *slog.Logger
	templates *view.Engine
	csrf      *shared.CSRFManager
	create    *CreateStep
	edit      *EditStep
	pack      *PackStep
	state     AppState
	languages LanguageMatcher
	pdf       PDFRenderer
}

// NewHandler constructs the wizard handler.
func NewHandler(p HandlerParams) *Handler {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		templates: p.Templates,
		csrf:      p.CSRF,
		create:    p.Create,
		edit:      p.Edit,
		pack:      p.Pack,
		state:     p.State,
		languages: p.Languages,
		pdf:       p.PDF,
	}
}

// MountRoutes registers the wizard routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/new", h.showNew)
	r.Post("/", h.handleCreate)
	r.Get("/stocklists", h.listStocklists)
	r.Post("/location", h.handleChangeLocation)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/create", h.showCreate)
		r.Post("/create", h.handleCreate)
		r.Get("/edit", h.showEdit)
		r.Post("/edit", h.handleEdit)
		r.Post("/edit/refresh", h.handleEditRefresh)
		r.Post("/edit/items/{itemID}/revert", h.handleRevert)
		r.Get("/pack", h.showPack)
		r.Post("/pack", h.handlePack)
		r.Post("/pack/refresh", h.handlePackRefresh)
		r.Get("/pack/rows/{row}/split", h.showSplit)
		r.Post("/pack/rows/{row}/split", h.handleSplit)
		r.Get("/pack/packing-list.pdf", h.packingList)
		r.Get("/ship", h.showShip)
		r.Post("/previous", h.handlePrevious)
	})
}

func stepURL(movementID string, step Step) string {
	return fmt.Sprintf("/stock-movements/%s/%s", url.PathEscape(movementID), step.Path())
}

func reloadURL(movementID string, step Step) string {
	return stepURL(movementID, step) + "?reload=1"
}

func (h *Handler) scope(r *http.Request) (Scope, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return Scope{}, false
	}
	return Scope{Session: sess.ID, Movement: chi.URLParam(r, "id")}, true
}

func (h *Handler) language(r *http.Request) string {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		if lang := sess.Get(shared.LanguageSessionKey); lang != "" {
			return lang
		}
	}
	if h.languages == nil {
		return "en"
	}
	return h.languages.Match(r.Header.Get("Accept-Language"))
}

func (h *Handler) messages(ctx context.Context, lang string) view.Messages {
	if h.state == nil {
		return nil
	}
	msgs, err := h.state.Translations(ctx, lang)
	if err != nil {
		h.logger.Warn("load translations", slog.String("lang", lang), slog.Any("error", err))
		return nil
	}
	return view.Messages(msgs)
}

func (h *Handler) flash(r *http.Request, kind, key string) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return
	}
	msgs := h.messages(r.Context(), h.language(r))
	sess.AddFlash(shared.FlashMessage{Kind: kind, Message: msgs.T(key)})
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name, titleKey string, data any) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	lang := h.language(r)
	msgs := h.messages(r.Context(), lang)
	viewData := view.TemplateData{
		Title:       msgs.T(titleKey),
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Lang:        lang,
		Messages:    msgs,
		Data:        data,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, name, viewData); err != nil {
		h.logger.Error("render wizard page", slog.String("template", name), slog.Any("error", err))
	}
}

// fail maps controller errors to responses shared by every step.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, scope Scope, step Step, err error) {
	switch {
	case errors.Is(err, openboxes.ErrUnauthenticated):
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
	case errors.Is(err, openboxes.ErrNotFound), errors.Is(err, ErrRowNotFound):
		http.NotFound(w, r)
	case errors.Is(err, ErrStateNotFound):
		http.Redirect(w, r, reloadURL(scope.Movement, step), http.StatusSeeOther)
	case errors.Is(err, ErrStaleState):
		http.Redirect(w, r, stepURL(scope.Movement, step), http.StatusSeeOther)
	default:
		h.logger.Error("wizard request", slog.String("movement", scope.Movement), slog.String("step", step.Path()), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
	}
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request, titleKey, messageKey string, values url.Values, noURL string) {
	h.render(w, r, http.StatusOK, "pages/confirm.html", titleKey, confirmPage{
		Title:   titleKey,
		Message: messageKey,
		Action:  r.URL.Path,
		Values:  values,
		NoURL:   noURL,
	})
}

func (h *Handler) referenceOptions(ctx context.Context) ([]view.Option, []view.Option) {
	locations, err := h.state.Locations(ctx, false)
	if err != nil {
		h.logger.Warn("load locations", slog.Any("error", err))
	}
	users, err := h.state.Users(ctx, false)
	if err != nil {
		h.logger.Warn("load users", slog.Any("error", err))
	}
	return locationOptions(locations), userOptions(users)
}

func (h *Handler) renderCreate(w http.ResponseWriter, r *http.Request, status int, m Movement, disabled string, errs *ValidationErrors) {
	ctx := r.Context()
	locations, users := h.referenceOptions(ctx)
	lists, err := h.create.Stocklists(ctx, locationID(m.Origin), locationID(m.Destination))
	if err != nil {
		h.logger.Warn("load stocklists", slog.Any("error", err))
	}
	action := "/stock-movements/"
	if m.StockMovementID != "" {
		action = stepURL(m.StockMovementID, StepCreate)
	}
	direction := r.URL.Query().Get("direction")
	if direction == "" {
		direction = r.PostFormValue("direction")
	}
	h.render(w, r, status, "pages/create.html", "stockMovement.create.label", createPage{
		Movement:  m,
		Current:   h.sessionInfo(r).Location,
		Locations: locations,
		IsNew:     m.StockMovementID == "",
		Direction: strings.ToUpper(direction),
		Action:    action,
		Fields:    createFields(m.Draft, locations, users, stocklistOptions(lists), disabled, errs),
		Errors:    errs,
	})
}

func (h *Handler) sessionInfo(r *http.Request) openboxes.SessionInfo {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || h.state == nil {
		return openboxes.SessionInfo{}
	}
	info, err := h.state.Session(r.Context(), sess.User())
	if err != nil {
		h.logger.Warn("load session info", slog.Any("error", err))
	}
	return info
}

func (h *Handler) newDisabledField(r *http.Request, direction Direction) (Draft, string) {
	info := h.sessionInfo(r)
	return Defaults(direction, info.Location, info.IsSuperuser)
}

func (h *Handler) showNew(w http.ResponseWriter, r *http.Request) {
	direction := Direction(strings.ToUpper(r.URL.Query().Get("direction")))
	d, disabled := h.newDisabledField(r, direction)
	h.renderCreate(w, r, http.StatusOK, Movement{Draft: d}, disabled, nil)
}

// handleChangeLocation switches the user's current location and reopens the
// create step so direction defaults pick up the new location.
func (h *Handler) handleChangeLocation(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	locationID := strings.TrimSpace(r.PostForm.Get("location"))
	sess := shared.SessionFromContext(r.Context())
	if locationID == "" || sess == nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if err := h.state.ChangeLocation(r.Context(), sess.User(), locationID); err != nil {
		h.logger.Warn("change location", slog.String("location", locationID), slog.Any("error", err))
		h.flash(r, "danger", "error.chooseLocation.label")
	} else {
		h.flash(r, "success", "alert.locationChanged.label")
	}
	target := "/stock-movements/new"
	if direction := strings.ToUpper(r.PostForm.Get("direction")); direction != "" {
		target += "?direction=" + url.QueryEscape(direction)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *Handler) showCreate(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(r)
	if !ok {
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return
	}
	m, err := h.create.Movement(r.Context(), scope)
	if err != nil {
		h.fail(w, r, scope, StepCreate, err)
		return
	}
	h.renderCreate(w, r, http.StatusOK, m, "", nil)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	scope, ok := h.scope(r)
	if !ok {
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return
	}
	ctx := r.Context()
	d, err := parseDraft(ctx, h.state, r.PostForm)
	if err != nil {
		h.fail(w, r, scope, StepCreate, err)
		return
	}

	var initial Draft
	disabled := ""
	if scope.Movement != "" {
		d.StockMovementID = scope.Movement
		current, err := h.create.Movement(ctx, scope)
		if err != nil {
			h.fail(w, r, scope, StepCreate, err)
			return
		}
		initial = current.Draft
	} else {
		_, disabled = h.newDisabledField(r, Direction(strings.ToUpper(r.PostForm.Get("direction"))))
	}

	sess := shared.SessionFromContext(ctx)
	m, err := h.create.Submit(ctx, sess.ID, initial, d)
	if v, ok := AsValidation(err); ok {
		h.renderCreate(w, r, http.StatusUnprocessableEntity, Movement{Draft: d}, disabled, v)
		return
	}
	switch {
	case errors.Is(err, ErrConfirmationRequired):
		values := draftValues(d)
		values.Set("forceUpdate", "true")
		noURL := "/stock-movements/new"
		if d.StockMovementID != "" {
			noURL = stepURL(d.StockMovementID, StepCreate)
		}
		h.confirm(w, r, MsgConfirmChangeTitle, MsgConfirmChangeMessage, values, noURL)
		return
	case errors.Is(err, ErrCreateFailed):
		h.logger.Warn("create stock movement", slog.Any("error", err))
		sess.AddFlash(shared.FlashMessage{Kind: "danger", Message: ErrCreateFailed.Error()})
		h.renderCreate(w, r, http.StatusBadGateway, Movement{Draft: d}, disabled, nil)
		return
	case err != nil:
		h.fail(w, r, scope, StepCreate, err)
		return
	}
	http.Redirect(w, r, reloadURL(m.StockMovementID, StepEdit), http.StatusSeeOther)
}

func (h *Handler) listStocklists(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lists, err := h.create.Stocklists(r.Context(), q.Get("origin"), q.Get("destination"))
	if err != nil {
		h.logger.Warn("list stocklists", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Bad Gateway", "could not load stock lists")
		return
	}
	if lists == nil {
		lists = []openboxes.Stocklist{}
	}
	httpx.JSON(w, http.StatusOK, lists)
}

func (h *Handler) renderEdit(w http.ResponseWriter, r *http.Request, status int, scope Scope, state EditState, errs *ValidationErrors) {
	ctx := r.Context()
	m, err := h.create.Movement(ctx, scope)
	if err != nil {
		h.fail(w, r, scope, StepEdit, err)
		return
	}
	reasons := reasonOptions(h.edit.ReasonCodes(ctx, false))
	h.render(w, r, status, "pages/edit.html", "stockMovement.edit.label", editPage{
		Movement:    m,
		StatusCode:  state.StatusCode,
		SubmitToken: state.SubmitToken,
		Headers:     editHeaders,
		Rows:        editRows(scope.Movement, state.Items, reasons, errs),
		Errors:      errs,
	})
}

func (h *Handler) showEdit(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(r)
	if !ok {
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return
	}
	var (
		state EditState
		err   error
	)
	if r.URL.Query().Get("reload") != "" {
		state, err = h.edit.Mount(r.Context(), scope, false)
	} else {
		state, err = h.edit.State(r.Context(), scope)
	}
	if err != nil {
		h.fail(w, r, scope, StepEdit, err)
		return
	}
	h.renderEdit(w, r, http.StatusOK, scope, state, nil)
}

func (h *Handler) handleEdit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	scope, ok := h.scope(r)
	if !ok {
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return
	}
	ctx := r.Context()
	current, err := h.edit.State(ctx, scope)
	if err != nil {
		h.fail(w, r, scope, StepEdit, err)
		return
	}
	items := parseEditItems(r.PostForm, current.Items)

	var state EditState
	next := r.PostForm.Get("action") == "next"
	if next {
		state, err = h.edit.NextPage(ctx, scope, items, r.PostForm.Get("submitToken"))
	} else {
		state, err = h.edit.Save(ctx, scope, items)
	}
	if v, ok := AsValidation(err); ok {
		h.renderEdit(w, r, http.StatusUnprocessableEntity, scope, state, v)
		return
	}
	switch {
	case errors.Is(err, ErrDuplicateSubmit):
		http.Redirect(w, r, stepURL(scope.Movement, StepPack), http.StatusSeeOther)
		return
	case errors.Is(err, openboxes.ErrUnauthenticated), errors.Is(err, ErrStaleState), errors.Is(err, ErrStateNotFound):
		h.fail(w, r, scope, StepEdit, err)
		return
	case err != nil:
		h.logger.Warn("edit step", slog.String("movement", scope.Movement), slog.Any("error", err))
		h.flash(r, "danger", MsgSaveItemsFailed)
		h.renderEdit(w, r, http.StatusBadGateway, scope, state, nil)
		return
	}
	if next {
		http.Redirect(w, r, reloadURL(scope.Movement, StepPack), http.StatusSeeOther)
		return
	}
	h.flash(r, "success", MsgSaveSuccess)
	http.Redirect(w, r, stepURL(scope.Movement, StepEdit), http.StatusSeeOther)
}

func (h *Handler) handleEditRefresh(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	scope, ok := h.scope(r)
	if !ok {
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return
	}
	_, err := h.edit.Refresh(r.Context(), scope, r.PostForm.Get("confirm") == "yes")
	if errors.Is(err, ErrConfirmationRequired) {
		h.confirm(w, r, MsgConfirmRefreshTitle, MsgConfirmRefreshMessage, url.Values{"confirm": {"yes"}}, stepURL(scope.Movement, StepEdit))
		return
	}
	if err != nil {
		h.fail(w, r, scope, StepEdit, err)
		return
	}
	http.Redirect(w, r, stepURL(scope.Movement, StepEdit), http.StatusSeeOther)
}

func (h *Handler) handleRevert(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(r)
	if !ok {
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return
	}
	_, err := h.edit.RevertItem(r.Context(), scope, chi.URLParam(r, "itemID"))
	switch {
	case errors.Is(err, ErrRevertFailed):
		h.flash(r, "danger", MsgRevertFailed)
	case err != nil:
		h.fail(w, r, scope, StepEdit, err)
		return
	}
	http.Redirect(w, r, stepURL(scope.Movement, StepEdit), http.StatusSeeOther)
}

func (h *Handler) renderPack(w http.ResponseWriter, r *http.Request, status int, scope Scope, state PackState) {
	ctx := r.Context()
	m, err := h.create.Movement(ctx, scope)
	if err != nil {
		h.fail(w, r, scope, StepPack, err)
		return
	}
	_, users := h.referenceOptions(ctx)
	h.render(w, r, status, "pages/pack.html", "stockMovement.pack.label", packPage{
		Movement:    m,
		SubmitToken: state.SubmitToken,
		Headers:     packHeaders,
		Rows:        packRows(scope.Movement, state.Items, users),
	})
}

func (h *Handler) showPack(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(r)
	if !ok {
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return
	}
	var (
		state PackState
		err   error
	)
	if r.URL.Query().Get("reload") != "" {
		state, err = h.pack.Mount(r.Context(), scope)
	} else {
		state, err = h.pack.State(r.Context(), scope)
	}
	if err != nil {
		h.fail(w, r, scope, StepPack, err)
		return
	}
	h.renderPack(w, r, http.StatusOK, scope, state)
}

func (h *Handler) handlePack(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	scope, ok := h.scope(r)
	if !ok {
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return
	}
	ctx := r.Context()
	current, err := h.pack.State(ctx, scope)
	if err != nil {
		h.fail(w, r, scope, StepPack, err)
		return
	}
	items, err := parsePackItems(ctx, h.state, r.PostForm, current.Items)
	if err != nil {
		h.fail(w, r, scope, StepPack, err)
		return
	}

	var state PackState
	next := r.PostForm.Get("action") == "next"
	if next {
		state, err = h.pack.NextPage(ctx, scope, items, r.PostForm.Get("submitToken"))
	} else {
		state, err = h.pack.Save(ctx, scope, items)
	}
	switch {
	case errors.Is(err, ErrDuplicateSubmit):
		http.Redirect(w, r, stepURL(scope.Movement, StepShip), http.StatusSeeOther)
		return
	case errors.Is(err, ErrSaveItemsFailed):
		h.flash(r, "danger", MsgSaveItemsFailed)
		h.renderPack(w, r, http.StatusBadGateway, scope, state)
		return
	case err != nil:
		h.fail(w, r, scope, StepPack, err)
		return
	}
	if next {
		http.Redirect(w, r, stepURL(scope.Movement, StepShip), http.StatusSeeOther)
		return
	}
	h.flash(r, "success", MsgSaveSuccess)
	http.Redirect(w, r, stepURL(scope.Movement, StepPack), http.StatusSeeOther)
}

func (h *Handler) handlePackRefresh(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	scope, ok := h.scope(r)
	if !ok {
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return
	}
	_, err := h.pack.Refresh(r.Context(), scope, r.PostForm.Get("confirm") == "yes")
	if errors.Is(err, ErrConfirmationRequired) {
		h.confirm(w, r, MsgConfirmRefreshTitle, MsgConfirmRefreshMessage, url.Values{"confirm": {"yes"}}, stepURL(scope.Movement, StepPack))
		return
	}
	if err != nil {
		h.fail(w, r, scope, StepPack, err)
		return
	}
	http.Redirect(w, r, stepURL(scope.Movement, StepPack), http.StatusSeeOther)
}

func rowIndex(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "row"))
}

func (h *Handler) renderSplit(w http.ResponseWriter, r *http.Request, status int, scope Scope, index int, item openboxes.PackPageItem, rows []SplitRow, errs *ValidationErrors) {
	ctx := r.Context()
	m, err := h.create.Movement(ctx, scope)
	if err != nil {
		h.fail(w, r, scope, StepPack, err)
		return
	}
	_, users := h.referenceOptions(ctx)
	h.render(w, r, status, "pages/split.html", "stockMovement.splitLine.label", splitPage{
		Movement: m,
		RowIndex: index,
		Item:     item,
		Rows:     splitRowsFields(rows, users, errs),
		RowCount: len(rows),
		Packed:   PackedQuantity(rows),
		Errors:   errs,
	})
}

func (h *Handler) showSplit(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(r)
	if !ok {
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return
	}
	index, err := rowIndex(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	item, err := h.pack.Row(r.Context(), scope, index)
	if err != nil {
		h.fail(w, r, scope, StepPack, err)
		return
	}
	h.renderSplit(w, r, http.StatusOK, scope, index, item, OpenSplitLines(item), nil)
}

func (h *Handler) handleSplit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	scope, ok := h.scope(r)
	if !ok {
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return
	}
	index, err := rowIndex(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	ctx := r.Context()
	item, err := h.pack.Row(ctx, scope, index)
	if err != nil {
		h.fail(w, r, scope, StepPack, err)
		return
	}
	rows, err := parseSplitRows(ctx, h.state, r.PostForm, item)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if r.PostForm.Get("action") == "add" {
		h.renderSplit(w, r, http.StatusOK, scope, index, item, AddSplitLine(item, rows), nil)
		return
	}
	if v := ValidateSplitLines(item, rows); v != nil {
		h.renderSplit(w, r, http.StatusUnprocessableEntity, scope, index, item, rows, v)
		return
	}
	_, err = h.pack.SaveSplitLines(ctx, scope, index, FilterSplitLines(rows))
	switch {
	case errors.Is(err, ErrSaveItemsFailed):
		h.flash(r, "danger", MsgSaveItemsFailed)
	case err != nil:
		h.fail(w, r, scope, StepPack, err)
		return
	}
	http.Redirect(w, r, stepURL(scope.Movement, StepPack), http.StatusSeeOther)
}

func (h *Handler) shipData(r *http.Request, scope Scope) (shipPage, error) {
	ctx := r.Context()
	m, err := h.create.Movement(ctx, scope)
	if err != nil {
		return shipPage{}, err
	}
	state, err := h.pack.State(ctx, scope)
	if err != nil {
		return shipPage{}, err
	}
	return shipPage{Movement: m, Items: state.Items}, nil
}

func (h *Handler) showShip(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(r)
	if !ok {
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return
	}
	data, err := h.shipData(r, scope)
	if err != nil {
		h.fail(w, r, scope, StepShip, err)
		return
	}
	h.render(w, r, http.StatusOK, "pages/ship.html", "stockMovement.ship.label", data)
}

func (h *Handler) packingList(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(r)
	if !ok {
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return
	}
	data, err := h.shipData(r, scope)
	if err != nil {
		h.fail(w, r, scope, StepPack, err)
		return
	}
	lang := h.language(r)
	html, err := h.templates.RenderString("pages/packing_list.html", view.TemplateData{
		Title:    data.Movement.MovementNumber,
		Lang:     lang,
		Messages: h.messages(r.Context(), lang),
		Data:     data,
	})
	if err != nil {
		h.logger.Error("render packing list", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if h.pdf == nil {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(html))
		return
	}
	pdf, err := h.pdf.RenderHTML(r.Context(), html)
	if err != nil {
		h.logger.Error("render packing list pdf", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", "packing-list-"+scope.Movement+".pdf"))
	_, _ = w.Write(pdf)
}

func stepFromPath(path string) (Step, bool) {
	for _, s := range []Step{StepCreate, StepEdit, StepPack, StepShip} {
		if s.Path() == path {
			return s, true
		}
	}
	return 0, false
}

// handlePrevious navigates back one step. The target page is reloaded from the backend.
func (h *Handler) handlePrevious(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	from, ok := stepFromPath(r.PostForm.Get("from"))
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	movementID := chi.URLParam(r, "id")
	target := from.Previous()
	if target == StepCreate {
		http.Redirect(w, r, stepURL(movementID, target), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, reloadURL(movementID, target), http.StatusSeeOther)
}
