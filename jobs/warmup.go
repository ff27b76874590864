package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/stockwizard/internal/jobs"
	"github.com/odyssey-erp/stockwizard/internal/openboxes"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// ReferenceData is the cache surface the warmups fill.
type ReferenceData interface {
	ReasonCodes(ctx context.Context, force bool) ([]openboxes.ReasonCode, error)
	Users(ctx context.Context, force bool) ([]openboxes.Person, error)
	Locations(ctx context.Context, force bool) ([]openboxes.Location, error)
	Translations(ctx context.Context, lang string) (map[string]string, error)
}

// Authenticator opens an upstream session for the worker.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, error)
}

// WarmupJob keeps the shared reference-data cache populated so the first
// wizard page of the day does not pay for the loads.
type WarmupJob struct {
	State     ReferenceData
	Auth      Authenticator
	Username  string
	Password  string
	Languages []string
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	clock     func() time.Time
}

// NewWarmupJob wires dependencies for the warmup handlers.
func NewWarmupJob(state ReferenceData, auth Authenticator, username, password string, languages []string, logger *slog.Logger, metrics *jobmetrics.Metrics) *WarmupJob {
	return &WarmupJob{
		State:     state,
		Auth:      auth,
		Username:  username,
		Password:  password,
		Languages: languages,
		Logger:    logger,
		Metrics:   metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// HandleReferenceData reloads reason codes, users and locations.
func (j *WarmupJob) HandleReferenceData(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.State == nil {
		return errors.New("warmup: handler not configured")
	}
	var payload WarmReferenceDataPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	tracker := j.metrics().Track(TaskWarmReferenceData)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger(TaskWarmReferenceData)
	start := j.now()
	ctx, err := j.session(ctx)
	if err != nil {
		logger.Error("warmup login", slog.Any("error", err))
		return err
	}

	codes, err := j.State.ReasonCodes(ctx, true)
	if err != nil {
		logger.Error("warm reason codes", slog.Any("error", err))
		return err
	}
	j.metrics().AddWarmed("reason_codes", len(codes))

	users, err := j.State.Users(ctx, true)
	if err != nil {
		logger.Error("warm users", slog.Any("error", err))
		return err
	}
	j.metrics().AddWarmed("users", len(users))

	locations, err := j.State.Locations(ctx, true)
	if err != nil {
		logger.Error("warm locations", slog.Any("error", err))
		return err
	}
	j.metrics().AddWarmed("locations", len(locations))

	logger.Info("completed reference data warmup",
		slog.Int("reason_codes", len(codes)),
		slog.Int("users", len(users)),
		slog.Int("locations", len(locations)),
		slog.Duration("duration", j.now().Sub(start)))
	return nil
}

// HandleTranslations loads the requested translation tables.
func (j *WarmupJob) HandleTranslations(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.State == nil {
		return errors.New("warmup: handler not configured")
	}
	var payload WarmTranslationsPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	languages := payload.Languages
	if len(languages) == 0 {
		languages = j.Languages
	}
	tracker := j.metrics().Track(TaskWarmTranslations)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger(TaskWarmTranslations)
	ctx, err := j.session(ctx)
	if err != nil {
		logger.Error("warmup login", slog.Any("error", err))
		return err
	}
	for _, lang := range languages {
		table, err := j.State.Translations(ctx, lang)
		if err != nil {
			logger.Error("warm translations", slog.String("lang", lang), slog.Any("error", err))
			return fmt.Errorf("warmup: translations %s: %w", lang, err)
		}
		j.metrics().AddWarmed("translations", len(table))
	}
	logger.Info("completed translation warmup", slog.Any("languages", languages))
	return nil
}

// session logs in with the worker credentials unless ctx already carries a session.
func (j *WarmupJob) session(ctx context.Context) (context.Context, error) {
	if openboxes.SessionFromContext(ctx) != "" || j.Auth == nil || j.Username == "" {
		return ctx, nil
	}
	cookie, err := j.Auth.Login(ctx, j.Username, j.Password)
	if err != nil {
		return ctx, err
	}
	return openboxes.WithSession(ctx, cookie), nil
}

func (j *WarmupJob) logger(job string) *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", job))
	}
	return slog.Default().With(slog.String("job", job))
}

func (j *WarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *WarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
