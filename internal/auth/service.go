package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/odyssey-erp/stockwizard/internal/openboxes"
	"github.com/odyssey-erp/stockwizard/internal/shared"
)

// Upstream is the login surface of the OpenBoxes client.
type Upstream interface {
	Login(ctx context.Context, username, password string) (string, error)
	Session(ctx context.Context) (openboxes.SessionInfo, error)
}

// Warmer schedules a background load of a translation table.
type Warmer interface {
	EnqueueWarmTranslations(ctx context.Context, lang string) error
}

// Service wraps authentication business rules.
type Service struct {
	upstream Upstream
	repo     Repository
	warmer   Warmer
	logger   *slog.Logger
	clock    func() time.Time
}

// NewService constructs a new Service. repo and warmer are optional.
func NewService(upstream Upstream, repo Repository, warmer Warmer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{upstream: upstream, repo: repo, warmer: warmer, logger: logger, clock: time.Now}
}

// Authenticate logs in upstream and resolves the user behind the new session.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (*Principal, error) {
	cookie, err := s.upstream.Login(ctx, creds.Username, creds.Password)
	if err != nil {
		if errors.Is(err, openboxes.ErrUnauthenticated) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("auth: login: %w", err)
	}
	info, err := s.upstream.Session(openboxes.WithSession(ctx, cookie))
	if err != nil {
		return nil, fmt.Errorf("auth: session: %w", err)
	}
	userID := info.User.ID
	if userID == "" {
		userID = creds.Username
	}
	return &Principal{
		UserID:   userID,
		Username: creds.Username,
		Cookie:   cookie,
		Language: info.ActiveLanguage,
		LoggedAt: s.clock(),
	}, nil
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, p *Principal, expiresAt time.Time, ip, ua string) error {
	if s.repo == nil || p == nil {
		return nil
	}
	return s.repo.CreateSession(ctx, id, p.UserID, p.Username, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	if s.repo == nil {
		return nil
	}
	return s.repo.DeleteSession(ctx, id)
}

// WarmTranslations enqueues a translation warmup. Failures are only logged.
func (s *Service) WarmTranslations(ctx context.Context, lang string) {
	if s.warmer == nil || lang == "" {
		return
	}
	if err := s.warmer.EnqueueWarmTranslations(ctx, lang); err != nil {
		s.logger.Warn("enqueue translation warmup", slog.String("lang", lang), slog.Any("error", err))
	}
}
