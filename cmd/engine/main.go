package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwalitptl/reminder-engine/config"
	"github.com/jwalitptl/reminder-engine/internal/email"
	reminderhandler "github.com/jwalitptl/reminder-engine/internal/handler/reminder"
	"github.com/jwalitptl/reminder-engine/internal/notify"
	"github.com/jwalitptl/reminder-engine/internal/repository/cached"
	"github.com/jwalitptl/reminder-engine/internal/repository/postgres"
	"github.com/jwalitptl/reminder-engine/internal/router"
	"github.com/jwalitptl/reminder-engine/internal/service/alerter"
	"github.com/jwalitptl/reminder-engine/internal/service/dismissal"
	"github.com/jwalitptl/reminder-engine/internal/service/gate"
	"github.com/jwalitptl/reminder-engine/internal/service/logstatus"
	"github.com/jwalitptl/reminder-engine/internal/service/migration"
	"github.com/jwalitptl/reminder-engine/internal/service/scheduler"
	"github.com/jwalitptl/reminder-engine/pkg/logger"
	"github.com/jwalitptl/reminder-engine/pkg/metrics"
	"github.com/jwalitptl/reminder-engine/pkg/worker"
)

func main() {
	log := logger.NewLogger(nil)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err, "failed to load config")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	gateway, err := notify.NewRedisGateway(notify.Config{
		URL:          cfg.Bridge.URL,
		MaxRetries:   cfg.Bridge.MaxRetries,
		RetryBackoff: cfg.Bridge.RetryBackoff,
		PoolSize:     cfg.Bridge.PoolSize,
		MinIdleConns: cfg.Bridge.MinIdleConns,
		CallTimeout:  cfg.Bridge.CallTimeout,
	}, log)
	if err != nil {
		log.Fatal(err, "failed to connect to notification bridge")
	}
	defer gateway.Close()

	m := metrics.NewMetrics("reminder_engine")

	mappingRepo := postgres.NewMappingRepository(db)
	actionLogRepo := postgres.NewActionLogRepository(db)
	errorLogRepo := postgres.NewErrorLogRepository(db)
	migrationRepo := postgres.NewMigrationStateRepository(db)
	cfgRepo := cached.NewActionConfigRepository(
		postgres.NewActionConfigRepository(db),
		cfg.Engine.CacheTTL,
		cfg.Engine.CacheCleanup,
	)

	emailSvc := email.NewService(email.Config{
		Host:     cfg.Email.Host,
		Port:     cfg.Email.Port,
		Username: cfg.Email.Username,
		Password: cfg.Email.Password,
		From:     cfg.Email.From,
	})

	alertSvc := alerter.NewService(gateway, errorLogRepo, nil, emailSvc, alerter.Config{
		Window:      cfg.Engine.AlertWindow,
		Limit:       cfg.Engine.AlertLimit,
		NotifyEmail: cfg.Engine.AlertEmail,
	}, log, m)

	checker := logstatus.NewChecker(cfgRepo, actionLogRepo)
	gateSvc := gate.NewService(checker, alertSvc, log, m)
	schedSvc := scheduler.NewService(cfgRepo, mappingRepo, gateway, log, m)
	dismissSvc := dismissal.NewService(mappingRepo, cfgRepo, checker, gateway, dismissal.Config{
		MinConfidence:  cfg.Engine.MinConfidence,
		FallbackWindow: cfg.Engine.FallbackWindow,
	}, log, m)
	migrationRunner := migration.NewRunner(migrationRepo, gateway, schedSvc, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// One-time conversion of legacy recurring notifications. Runs before
	// the API comes up so delivery checks never see the old model.
	if err := migrationRunner.Run(ctx); err != nil {
		log.Error(err, "legacy notification migration failed, continuing")
	}

	reconciler := worker.NewReconciler(mappingRepo, gateway, worker.ReconcilerConfig{
		BatchSize:    cfg.Reconciler.BatchSize,
		PollInterval: cfg.Reconciler.PollInterval,
		GracePeriod:  cfg.Reconciler.GracePeriod,
	}, log, m)
	go reconciler.Start(ctx)

	routerCfg := router.Config{Monitoring: cfg.Monitoring.PrometheusEnabled}
	if cfg.RateLimit.Enabled {
		routerCfg.RateLimit = cfg.RateLimit.RequestsPerSecond
		routerCfg.RateBurst = cfg.RateLimit.Burst
	}
	r := router.New(routerCfg, reminderhandler.NewHandler(schedSvc, gateSvc, dismissSvc, migrationRunner))

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		log.Info("starting reminder engine", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err, "server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "graceful shutdown failed")
		os.Exit(1)
	}
}
