package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/odyssey-erp/stockwizard/internal/jobs"
	"github.com/odyssey-erp/stockwizard/internal/platform/db"
)

// DefaultIdempotencyRetention keeps processed submit tokens for three days.
const DefaultIdempotencyRetention = 72 * time.Hour

// PurgeResult counts the rows removed by one purge.
type PurgeResult struct {
	IdempotencyKeys int64
	Sessions        int64
}

// Purger deletes expired rows.
type Purger interface {
	Purge(ctx context.Context, keysBefore, now time.Time) (PurgeResult, error)
}

// PGPurger purges postgres tables in a single transaction.
type PGPurger struct {
	pool *pgxpool.Pool
}

// NewPGPurger constructs the purger.
func NewPGPurger(pool *pgxpool.Pool) *PGPurger {
	return &PGPurger{pool: pool}
}

// Purge removes idempotency keys created before keysBefore and login records expired at now.
func (p *PGPurger) Purge(ctx context.Context, keysBefore, now time.Time) (PurgeResult, error) {
	var res PurgeResult
	err := db.WithTx(ctx, p.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, keysBefore)
		if err != nil {
			return err
		}
		res.IdempotencyKeys = tag.RowsAffected()
		tag, err = tx.Exec(ctx, `DELETE FROM user_sessions WHERE expires_at < $1`, now)
		if err != nil {
			return err
		}
		res.Sessions = tag.RowsAffected()
		return nil
	})
	return res, err
}

// MaintenanceJob runs the periodic purge.
type MaintenanceJob struct {
	Purger  Purger
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewMaintenanceJob wires dependencies for the purge handler.
func NewMaintenanceJob(purger Purger, logger *slog.Logger, metrics *jobmetrics.Metrics) *MaintenanceJob {
	return &MaintenanceJob{Purger: purger, Logger: logger, Metrics: metrics, clock: func() time.Time {
		return time.Now().UTC()
	}}
}

// Handle processes maintenance tasks.
func (j *MaintenanceJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Purger == nil {
		return errors.New("maintenance: handler not configured")
	}
	var payload MaintenancePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Retention <= 0 {
		payload.Retention = DefaultIdempotencyRetention
	}
	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskMaintenance)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := slog.Default()
	if j.Logger != nil {
		logger = j.Logger
	}
	logger = logger.With(slog.String("job", TaskMaintenance))

	now := time.Now().UTC()
	if j.clock != nil {
		now = j.clock()
	}
	res, err := j.Purger.Purge(ctx, now.Add(-payload.Retention), now)
	if err != nil {
		logger.Error("purge", slog.Any("error", err))
		return err
	}
	logger.Info("completed purge", slog.Int64("idempotency_keys", res.IdempotencyKeys), slog.Int64("sessions", res.Sessions))
	return nil
}
