package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jwalitptl/reminder-engine/internal/model"
)

func (r *mappingRepository) Create(ctx context.Context, mapping *model.NotificationMapping) error {
	query := `
		INSERT INTO notification_mappings (
			notification_id, action_ids, schedule_ids, date,
			is_grouped, type, category, scheduled_for, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	mapping.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		mapping.NotificationID,
		mapping.ActionIDs,
		mapping.ScheduleIDs,
		mapping.Date,
		mapping.IsGrouped,
		mapping.Type,
		mapping.Category,
		mapping.ScheduledFor,
		mapping.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification mapping: %w", err)
	}
	return nil
}

func (r *mappingRepository) Get(ctx context.Context, notificationID string) (*model.NotificationMapping, error) {
	query := `
		SELECT notification_id, action_ids, schedule_ids, date,
			   is_grouped, type, category, scheduled_for, created_at
		FROM notification_mappings
		WHERE notification_id = $1
	`
	var mapping model.NotificationMapping
	err := r.db.GetContext(ctx, &mapping, query, notificationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification mapping: %w", err)
	}
	return &mapping, nil
}

func (r *mappingRepository) ListByWindow(ctx context.Context, from, to time.Time) ([]*model.NotificationMapping, error) {
	query := `
		SELECT notification_id, action_ids, schedule_ids, date,
			   is_grouped, type, category, scheduled_for, created_at
		FROM notification_mappings
		WHERE scheduled_for >= $1 AND scheduled_for <= $2
		ORDER BY scheduled_for ASC
	`
	var mappings []*model.NotificationMapping
	err := r.db.SelectContext(ctx, &mappings, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list mappings by window: %w", err)
	}
	return mappings, nil
}

func (r *mappingRepository) ListByActionName(ctx context.Context, name string) ([]*model.NotificationMapping, error) {
	query := `
		SELECT m.notification_id, m.action_ids, m.schedule_ids, m.date,
			   m.is_grouped, m.type, m.category, m.scheduled_for, m.created_at
		FROM notification_mappings m
		WHERE EXISTS (
			SELECT 1 FROM actions a
			WHERE a.id::text = ANY(m.action_ids)
			AND a.name = $1
		)
		ORDER BY m.scheduled_for ASC
	`
	var mappings []*model.NotificationMapping
	err := r.db.SelectContext(ctx, &mappings, query, name)
	if err != nil {
		return nil, fmt.Errorf("failed to list mappings by action name: %w", err)
	}
	return mappings, nil
}

func (r *mappingRepository) ListByCategory(ctx context.Context, category string) ([]*model.NotificationMapping, error) {
	query := `
		SELECT notification_id, action_ids, schedule_ids, date,
			   is_grouped, type, category, scheduled_for, created_at
		FROM notification_mappings
		WHERE category = $1
		ORDER BY scheduled_for ASC
	`
	var mappings []*model.NotificationMapping
	err := r.db.SelectContext(ctx, &mappings, query, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list mappings by category: %w", err)
	}
	return mappings, nil
}

func (r *mappingRepository) ListStale(ctx context.Context, before time.Time, limit int) ([]*model.NotificationMapping, error) {
	query := `
		SELECT notification_id, action_ids, schedule_ids, date,
			   is_grouped, type, category, scheduled_for, created_at
		FROM notification_mappings
		WHERE scheduled_for < $1
		ORDER BY scheduled_for ASC
		LIMIT $2
	`
	var mappings []*model.NotificationMapping
	err := r.db.SelectContext(ctx, &mappings, query, before, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale mappings: %w", err)
	}
	return mappings, nil
}

func (r *mappingRepository) Delete(ctx context.Context, notificationID string) error {
	query := `
		DELETE FROM notification_mappings
		WHERE notification_id = $1
	`
	_, err := r.db.ExecContext(ctx, query, notificationID)
	if err != nil {
		return fmt.Errorf("failed to delete notification mapping: %w", err)
	}
	return nil
}
