package requisition

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/stockwizard/internal/openboxes"
	"github.com/odyssey-erp/stockwizard/internal/platform/httpx"
)

// Handler exposes the requisition JSON endpoints.
type Handler struct {
	logger  *slog.Logger
	local   *LocalStore
	service *Service
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, local *LocalStore, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, local: local, service: service}
}

// MountRoutes registers the requisition routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/local", h.saveLocal)
	r.Get("/local/{id}", h.getLocal)
	r.Post("/save", h.save)
}

type localResponse struct {
	Key string `json:"key,omitempty"`
}

func (h *Handler) saveLocal(w http.ResponseWriter, r *http.Request) {
	var req Requisition
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid requisition document")
		return
	}
	key, err := h.local.SaveRequisitionToLocal(r.Context(), req)
	if err != nil {
		h.logger.Error("save requisition locally", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, localResponse{Key: key})
}

func (h *Handler) getLocal(w http.ResponseWriter, r *http.Request) {
	req, err := h.local.GetRequisitionFromLocal(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.logger.Error("read requisition locally", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if req == nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	httpx.JSON(w, http.StatusOK, req)
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request) {
	var req Requisition
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid requisition document")
		return
	}
	saved, err := h.service.Save(r.Context(), req)
	switch {
	case err == nil:
		httpx.JSON(w, http.StatusOK, saved)
	case errors.Is(err, ErrSaveRejected):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Save Rejected", err.Error())
	case errors.Is(err, openboxes.ErrUnauthenticated):
		httpx.RespondError(w, httpx.ErrUnauthorized)
	default:
		h.logger.Warn("save requisition", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Bad Gateway", "could not save requisition")
	}
}
