package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/reminder-engine/internal/model"
)

func (r *actionConfigRepository) ListActiveSchedules(ctx context.Context) ([]*model.ReminderSchedule, error) {
	query := `
		SELECT s.id, s.action_id, s.time_of_day, s.timezone, s.enabled,
			   s.dosage, s.created_at, s.updated_at
		FROM reminder_schedules s
		JOIN actions a ON a.id = s.action_id
		WHERE s.enabled = true
		AND a.active = true
		AND a.deleted_at IS NULL
		ORDER BY s.time_of_day ASC
	`
	var schedules []*model.ReminderSchedule
	err := r.db.SelectContext(ctx, &schedules, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active schedules: %w", err)
	}
	return schedules, nil
}

func (r *actionConfigRepository) GetAction(ctx context.Context, id uuid.UUID) (*model.Action, error) {
	query := `
		SELECT id, name, dosage, follow_up_delay_minutes, critical, active,
			   created_at, updated_at, deleted_at
		FROM actions
		WHERE id = $1
		AND deleted_at IS NULL
	`
	var action model.Action
	err := r.db.GetContext(ctx, &action, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get action: %w", err)
	}
	return &action, nil
}

func (r *actionConfigRepository) GetSchedule(ctx context.Context, id uuid.UUID) (*model.ReminderSchedule, error) {
	query := `
		SELECT id, action_id, time_of_day, timezone, enabled,
			   dosage, created_at, updated_at
		FROM reminder_schedules
		WHERE id = $1
	`
	var schedule model.ReminderSchedule
	err := r.db.GetContext(ctx, &schedule, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	return &schedule, nil
}
