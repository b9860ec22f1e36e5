package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/reminder-engine/internal/notify"
	"github.com/jwalitptl/reminder-engine/internal/repository"
	"github.com/jwalitptl/reminder-engine/pkg/logger"
	"github.com/jwalitptl/reminder-engine/pkg/metrics"
)

// ReconcilerConfig controls the orphaned-mapping sweep.
type ReconcilerConfig struct {
	BatchSize    int
	PollInterval time.Duration
	// GracePeriod is how long after its trigger time a mapping may
	// outlive its OS notification before it is considered orphaned.
	GracePeriod time.Duration
}

// Reconciler removes mapping rows whose notification is gone from both
// the tray and the pending queue. Orphaned mappings only cost a missed
// optimization, so the sweep is deliberately conservative: a mapping
// whose notification is still visible anywhere is never touched.
type Reconciler struct {
	mappings repository.MappingRepository
	gateway  notify.Gateway
	config   ReconcilerConfig
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewReconciler(
	mappings repository.MappingRepository,
	gateway notify.Gateway,
	config ReconcilerConfig,
	log *logger.Logger,
	m *metrics.Metrics,
) *Reconciler {
	if config.BatchSize <= 0 {
		panic("BatchSize must be greater than 0")
	}
	if config.PollInterval <= 0 {
		panic("PollInterval must be greater than 0")
	}
	if config.GracePeriod <= 0 {
		panic("GracePeriod must be greater than 0")
	}

	return &Reconciler{
		mappings: mappings,
		gateway:  gateway,
		config:   config,
		logger:   log,
		metrics:  m,
	}
}

func (r *Reconciler) Start(ctx context.Context) {
	ticker := time.NewTicker(r.config.PollInterval)
	defer ticker.Stop()

	r.logger.Info("starting mapping reconciler")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("shutting down mapping reconciler")
			return
		case <-ticker.C:
			if err := r.Sweep(ctx); err != nil {
				r.logger.Error(err, "reconciliation pass failed")
			}
		}
	}
}

// Sweep runs a single reconciliation pass.
func (r *Reconciler) Sweep(ctx context.Context) error {
	timer := prometheus.NewTimer(r.metrics.ReconciliationLatency)
	defer timer.ObserveDuration()
	r.metrics.ReconcilerPasses.Inc()

	stale, err := r.mappings.ListStale(ctx, time.Now().Add(-r.config.GracePeriod), r.config.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to list stale mappings: %w", err)
	}
	if len(stale) == 0 {
		return nil
	}

	live, err := r.liveNotificationIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to snapshot live notifications: %w", err)
	}

	removed := 0
	for _, mapping := range stale {
		if _, ok := live[mapping.NotificationID]; ok {
			continue
		}
		if err := r.mappings.Delete(ctx, mapping.NotificationID); err != nil {
			r.logger.Error(err, "failed to delete orphaned mapping",
				"notification_id", mapping.NotificationID)
			continue
		}
		removed++
	}

	if removed > 0 {
		r.metrics.MappingsReconciled.Add(float64(removed))
		r.logger.Info("removed orphaned mappings", "count", removed)
	}
	return nil
}

func (r *Reconciler) liveNotificationIDs(ctx context.Context) (map[string]struct{}, error) {
	live := make(map[string]struct{})

	presented, err := r.gateway.Presented(ctx)
	if err != nil {
		return nil, err
	}
	for _, n := range presented {
		live[n.ID] = struct{}{}
	}

	pending, err := r.gateway.Pending(ctx)
	if err != nil {
		return nil, err
	}
	for _, n := range pending {
		live[n.ID] = struct{}{}
	}
	return live, nil
}
