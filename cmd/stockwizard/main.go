package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/stockwizard/cmd/stockwizard/cli"
	"github.com/odyssey-erp/stockwizard/internal/app"
	"github.com/odyssey-erp/stockwizard/internal/appstate"
	"github.com/odyssey-erp/stockwizard/internal/audit"
	audithttp "github.com/odyssey-erp/stockwizard/internal/audit/http"
	"github.com/odyssey-erp/stockwizard/internal/auth"
	"github.com/odyssey-erp/stockwizard/internal/observability"
	"github.com/odyssey-erp/stockwizard/internal/openboxes"
	"github.com/odyssey-erp/stockwizard/internal/platform/cache"
	"github.com/odyssey-erp/stockwizard/internal/platform/db"
	"github.com/odyssey-erp/stockwizard/internal/requisition"
	"github.com/odyssey-erp/stockwizard/internal/shared"
	"github.com/odyssey-erp/stockwizard/internal/view"
	"github.com/odyssey-erp/stockwizard/internal/wizard"
	"github.com/odyssey-erp/stockwizard/jobs"
	"github.com/odyssey-erp/stockwizard/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		os.Exit(runJobs(ctx, cfg, os.Args[2:]))
	}

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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

	sessionManager := shared.NewSessionManager(redisClient, "stockwizard_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	api := openboxes.NewClient(cfg.OpenBoxesBaseURL, cfg.OpenBoxesTimeout, openboxes.WithObserver(metrics))

	state := appstate.New(api, appstate.NewCache(redisClient, cfg.CacheTTL), logger)
	languages := appstate.NewLanguages(cfg.SupportedLanguages)

	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)
	stepStore := wizard.NewRedisStore(redisClient, cfg.WizardStateTTL)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	authService := auth.NewService(api, auth.NewRepository(dbpool), jobClient, logger)
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager, languages)

	reportClient := report.NewClient(cfg.GotenbergURL, 0)
	reportHandler := report.NewHandler(reportClient, logger)

	wizardHandler := wizard.NewHandler(wizard.HandlerParams{
		Logger:    logger,
		Templates: templates,
		CSRF:      csrfManager,
		Create:    wizard.NewCreateStep(api, stepStore, metrics, auditLogger, logger),
		Edit:      wizard.NewEditStep(api, state, stepStore, metrics, idempotencyStore, auditLogger, logger),
		Pack:      wizard.NewPackStep(api, stepStore, metrics, idempotencyStore, auditLogger, logger),
		State:     state,
		Languages: languages,
		PDF:       reportClient,
	})

	requisitionStore := requisition.NewLocalStore(redisClient, cfg.RequisitionTTL)
	requisitionHandler := requisition.NewHandler(logger, requisitionStore, requisition.NewService(api, requisitionStore, logger))

	var auditPDF audit.PDFRenderer
	if cfg.GotenbergURL != "" {
		auditPDF = reportClient
	}
	auditHandler := audithttp.NewHandler(logger,
		audit.NewService(audit.NewPGRepository(dbpool)),
		templates,
		audit.NewExporter(templates, auditPDF),
		csrfManager,
	)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Templates:          templates,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		AuthHandler:        authHandler,
		WizardHandler:      wizardHandler,
		RequisitionHandler: requisitionHandler,
		AuditHandler:       auditHandler,
		ReportHandler:      reportHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("openboxes", cfg.OpenBoxesBaseURL))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

func runJobs(ctx context.Context, cfg *app.Config, args []string) int {
	fs := flag.NewFlagSet("jobs", flag.ContinueOnError)
	jsonOutput := fs.Bool("json", false, "print JSON")
	retention := fs.Duration("retention", cfg.IdempotencyTTL, "idempotency key retention for maintenance:purge")
	if len(args) == 0 {
		args = []string{"help"}
	}
	action, rest := args[0], args[1:]
	name := ""
	if len(rest) > 0 && !strings.HasPrefix(rest[0], "-") {
		name, rest = rest[0], rest[1:]
	}
	if err := fs.Parse(rest); err != nil {
		return 2
	}
	jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		slog.Default().Error("init jobs cli", slog.Any("error", err))
		return 1
	}
	defer func() {
		_ = jobsCLI.Close()
	}()
	return jobsCLI.Command(ctx, cli.JobsOptions{
		Action:     action,
		Name:       name,
		Retention:  *retention,
		JSONOutput: *jsonOutput,
	})
}
