package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskWarmReferenceData reloads reason codes, users and locations.
	TaskWarmReferenceData = "appstate:warm_reference_data"
	// TaskWarmTranslations loads translation tables into the cache.
	TaskWarmTranslations = "appstate:warm_translations"
	// TaskMaintenance purges expired idempotency keys and login records.
	TaskMaintenance = "maintenance:purge"
)

// WarmReferenceDataPayload describes a reference-data warmup.
type WarmReferenceDataPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// WarmTranslationsPayload lists the languages to load. Empty means all supported languages.
type WarmTranslationsPayload struct {
	Languages []string `json:"languages,omitempty"`
}

// MaintenancePayload carries the retention of processed idempotency keys.
type MaintenancePayload struct {
	Retention time.Duration `json:"retention"`
}

// NewWarmReferenceDataTask constructs the reference-data warmup task.
func NewWarmReferenceDataTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(WarmReferenceDataPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWarmReferenceData, body, asynq.Queue(QueueDefault), asynq.MaxRetry(2)), nil
}

// NewWarmTranslationsTask constructs a translation warmup task.
func NewWarmTranslationsTask(languages ...string) (*asynq.Task, error) {
	body, err := json.Marshal(WarmTranslationsPayload{Languages: languages})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWarmTranslations, body, asynq.Queue(QueueDefault), asynq.MaxRetry(2)), nil
}

// NewMaintenanceTask constructs the purge task.
func NewMaintenanceTask(retention time.Duration) (*asynq.Task, error) {
	body, err := json.Marshal(MaintenancePayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMaintenance, body, asynq.Queue(QueueDefault)), nil
}
