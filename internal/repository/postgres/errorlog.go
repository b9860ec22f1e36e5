package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/reminder-engine/internal/model"
)

func (r *errorLogRepository) Create(ctx context.Context, entry *model.ErrorLogEntry) error {
	query := `
		INSERT INTO error_log (
			id, category, severity, message, detail, notified, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.Category,
		entry.Severity,
		entry.Message,
		entry.Detail,
		entry.Notified,
		entry.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create error log entry: %w", err)
	}
	return nil
}

func (r *errorLogRepository) ListSince(ctx context.Context, since time.Time) ([]*model.ErrorLogEntry, error) {
	query := `
		SELECT id, category, severity, message, detail, notified, occurred_at
		FROM error_log
		WHERE occurred_at >= $1
		ORDER BY occurred_at DESC
	`
	var entries []*model.ErrorLogEntry
	err := r.db.SelectContext(ctx, &entries, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list error log entries: %w", err)
	}
	return entries, nil
}
