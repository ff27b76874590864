package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/stockwizard/internal/app"
	"github.com/odyssey-erp/stockwizard/internal/appstate"
	jobmetrics "github.com/odyssey-erp/stockwizard/internal/jobs"
	"github.com/odyssey-erp/stockwizard/internal/openboxes"
	"github.com/odyssey-erp/stockwizard/internal/platform/cache"
	"github.com/odyssey-erp/stockwizard/internal/platform/db"
	"github.com/odyssey-erp/stockwizard/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	if cfg.OpenBoxesUsername == "" {
		logger.Warn("OPENBOXES_USERNAME not set, warmups will run without an upstream session")
	}

	metrics := jobmetrics.NewMetrics(nil)
	api := openboxes.NewClient(cfg.OpenBoxesBaseURL, cfg.OpenBoxesTimeout)
	state := appstate.New(api, appstate.NewCache(redisClient, cfg.CacheTTL), logger)

	warmupJob := jobs.NewWarmupJob(state, api, cfg.OpenBoxesUsername, cfg.OpenBoxesPassword, cfg.SupportedLanguages, logger, metrics)
	maintenanceJob := jobs.NewMaintenanceJob(jobs.NewPGPurger(pool), logger, metrics)

	referenceTask, err := jobs.NewWarmReferenceDataTask(time.Now().UTC())
	if err != nil {
		logger.Error("build reference data task", slog.Any("error", err))
		os.Exit(1)
	}
	translationsTask, err := jobs.NewWarmTranslationsTask()
	if err != nil {
		logger.Error("build translations task", slog.Any("error", err))
		os.Exit(1)
	}
	maintenanceTask, err := jobs.NewMaintenanceTask(cfg.IdempotencyTTL)
	if err != nil {
		logger.Error("build maintenance task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskWarmReferenceData, Handler: warmupJob.HandleReferenceData},
			{Type: jobs.TaskWarmTranslations, Handler: warmupJob.HandleTranslations},
			{Type: jobs.TaskMaintenance, Handler: maintenanceJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "*/30 * * * *", Task: referenceTask},
			{Spec: "5 * * * *", Task: translationsTask},
			{Spec: "30 3 * * *", Task: maintenanceTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
