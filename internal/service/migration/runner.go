package migration

import (
	"context"

	"github.com/jwalitptl/reminder-engine/internal/model"
	"github.com/jwalitptl/reminder-engine/internal/notify"
	"github.com/jwalitptl/reminder-engine/internal/repository"
	"github.com/jwalitptl/reminder-engine/internal/service/scheduler"
	"github.com/jwalitptl/reminder-engine/pkg/errors"
	"github.com/jwalitptl/reminder-engine/pkg/logger"
)

// MigrationName is the persisted completion flag key for the one-time
// conversion from recurring-trigger notifications to the one-time +
// mapping model.
const MigrationName = "one_time_notifications"

type Runner struct {
	state     repository.MigrationStateRepository
	gateway   notify.Gateway
	scheduler scheduler.Service
	logger    *logger.Logger
}

func NewRunner(
	state repository.MigrationStateRepository,
	gateway notify.Gateway,
	sched scheduler.Service,
	log *logger.Logger,
) *Runner {
	return &Runner{
		state:     state,
		gateway:   gateway,
		scheduler: sched,
		logger:    log,
	}
}

// Run converts legacy recurring reminder notifications into the one-time
// model. Idempotent: a set completion flag makes it a no-op. The flag is
// set even after partial errors, since a few missed notifications cost
// less than retrying a failing migration on every start.
func (r *Runner) Run(ctx context.Context) error {
	complete, err := r.state.IsComplete(ctx, MigrationName)
	if err != nil {
		return errors.NewTransientIO("failed to check migration state", err)
	}
	if complete {
		r.logger.Debug("notification migration already complete")
		return nil
	}

	r.logger.Info("running one-time notification migration")

	pending, err := r.gateway.Pending(ctx)
	if err != nil {
		// Without the pending list nothing was converted; leave the flag
		// unset so the next start retries from scratch.
		return errors.NewTransientIO("failed to enumerate pending notifications", err)
	}

	cancelled, failed := 0, 0
	for _, p := range pending {
		// Only reminder notifications are ours to touch.
		if !model.IsReminderCategory(p.Category) {
			continue
		}
		if err := r.gateway.Cancel(ctx, p.ID); err != nil {
			failed++
			r.logger.Warn("failed to cancel legacy notification",
				"notification_id", p.ID,
				"error", err.Error())
			continue
		}
		cancelled++
	}

	if _, err := r.scheduler.Sync(ctx); err != nil {
		failed++
		r.logger.Error(err, "failed to rebuild one-time schedule during migration")
	}

	if err := r.state.MarkComplete(ctx, MigrationName); err != nil {
		return errors.NewTransientIO("failed to persist migration completion", err)
	}

	r.logger.Info("notification migration finished",
		"cancelled", cancelled,
		"failures", failed)
	return nil
}
