package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jwalitptl/reminder-engine/config"
	"github.com/jwalitptl/reminder-engine/internal/notify"
	"github.com/jwalitptl/reminder-engine/internal/repository/postgres"
	"github.com/jwalitptl/reminder-engine/pkg/logger"
	"github.com/jwalitptl/reminder-engine/pkg/metrics"
	"github.com/jwalitptl/reminder-engine/pkg/worker"
)

// Standalone sweep for deployments that run the HTTP engine and the
// mapping reconciler as separate processes.
type envConfig struct {
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"postgres"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"reminders"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	BridgeURL string `envconfig:"BRIDGE_URL" default:"redis://localhost:6379"`

	BatchSize    int           `envconfig:"RECONCILER_BATCH_SIZE" default:"100"`
	PollInterval time.Duration `envconfig:"RECONCILER_POLL_INTERVAL" default:"5m"`
	GracePeriod  time.Duration `envconfig:"RECONCILER_GRACE_PERIOD" default:"24h"`

	MetricsPort string `envconfig:"METRICS_PORT" default:"9090"`
}

func main() {
	log := logger.NewLogger(nil)

	var cfg envConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatal(err, "failed to process environment config")
	}

	db, err := postgres.NewDB(config.DatabaseConfig{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Name:     cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	gateway, err := notify.NewRedisGateway(notify.Config{URL: cfg.BridgeURL}, log)
	if err != nil {
		log.Fatal(err, "failed to connect to notification bridge")
	}
	defer gateway.Close()

	m := metrics.NewMetrics("reminder_reconciler")

	reconciler := worker.NewReconciler(
		postgres.NewMappingRepository(db),
		gateway,
		worker.ReconcilerConfig{
			BatchSize:    cfg.BatchSize,
			PollInterval: cfg.PollInterval,
			GracePeriod:  cfg.GracePeriod,
		},
		log, m,
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	go func() {
		if err := http.ListenAndServe(":"+cfg.MetricsPort, mux); err != nil && err != http.ErrServerClosed {
			log.Error(err, "metrics server failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting mapping reconciler",
		"poll_interval", cfg.PollInterval.String(),
		"grace_period", cfg.GracePeriod.String())
	reconciler.Start(ctx)
	log.Info("reconciler stopped")
}
