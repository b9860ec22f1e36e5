package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/reminder-engine/internal/model"
)

// All repository interfaces in one file
type (
	// MappingRepository persists notification-id to action/schedule mappings.
	MappingRepository interface {
		Create(ctx context.Context, mapping *model.NotificationMapping) error
		Get(ctx context.Context, notificationID string) (*model.NotificationMapping, error)
		ListByWindow(ctx context.Context, from, to time.Time) ([]*model.NotificationMapping, error)
		ListByActionName(ctx context.Context, name string) ([]*model.NotificationMapping, error)
		ListByCategory(ctx context.Context, category string) ([]*model.NotificationMapping, error)
		ListStale(ctx context.Context, before time.Time, limit int) ([]*model.NotificationMapping, error)
		Delete(ctx context.Context, notificationID string) error
	}

	// ActionLogRepository answers whether an action was already performed
	// for a given schedule on a given day. Authoritative; never cached.
	ActionLogRepository interface {
		WasLoggedForSchedule(ctx context.Context, actionID, scheduleID uuid.UUID, day time.Time, timezone string) (bool, error)
	}

	// ActionConfigRepository reads the action-configuration subsystem's data.
	ActionConfigRepository interface {
		ListActiveSchedules(ctx context.Context) ([]*model.ReminderSchedule, error)
		GetAction(ctx context.Context, id uuid.UUID) (*model.Action, error)
		GetSchedule(ctx context.Context, id uuid.UUID) (*model.ReminderSchedule, error)
	}

	// ErrorLogRepository is the durable failure log.
	ErrorLogRepository interface {
		Create(ctx context.Context, entry *model.ErrorLogEntry) error
		ListSince(ctx context.Context, since time.Time) ([]*model.ErrorLogEntry, error)
	}

	// MigrationStateRepository tracks one-time migration completion flags.
	MigrationStateRepository interface {
		IsComplete(ctx context.Context, name string) (bool, error)
		MarkComplete(ctx context.Context, name string) error
	}
)
