package requisition

import (
	"context"
	"fmt"
	"log/slog"
)

const saveRoute = "/json/saveRequisition"

// Poster sends JSON documents to the backend.
type Poster interface {
	PostJSON(ctx context.Context, route, path string, payload any, out any) error
}

type saveEnvelope struct {
	Success bool         `json:"success"`
	Data    SaveResponse `json:"data"`
	Errors  any          `json:"errors,omitempty"`
}

// Service saves requisitions and keeps the local cache in step.
type Service struct {
	poster Poster
	local  *LocalStore
	logger *slog.Logger
}

// NewService constructs the service.
func NewService(poster Poster, local *LocalStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{poster: poster, local: local, logger: logger}
}

// Save posts the requisition, merges the echo and refreshes the cached draft.
func (s *Service) Save(ctx context.Context, r Requisition) (Requisition, error) {
	var resp saveEnvelope
	if err := s.poster.PostJSON(ctx, saveRoute, saveRoute, r.Payload(), &resp); err != nil {
		return r, fmt.Errorf("requisition: save: %w", err)
	}
	if !resp.Success {
		return r, fmt.Errorf("%w: %v", ErrSaveRejected, resp.Errors)
	}
	r.Merge(resp.Data)
	if s.local != nil {
		if _, err := s.local.SaveRequisitionToLocal(ctx, r); err != nil {
			s.logger.Warn("cache requisition", slog.String("id", r.ID), slog.Any("error", err))
		}
	}
	return r, nil
}
