package postgres

import (
	"context"
	"fmt"
	"time"
)

func (r *migrationStateRepository) IsComplete(ctx context.Context, name string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM migration_state
			WHERE name = $1
		)
	`
	var complete bool
	err := r.db.GetContext(ctx, &complete, query, name)
	if err != nil {
		return false, fmt.Errorf("failed to check migration state: %w", err)
	}
	return complete, nil
}

func (r *migrationStateRepository) MarkComplete(ctx context.Context, name string) error {
	query := `
		INSERT INTO migration_state (name, completed_at)
		VALUES ($1, $2)
		ON CONFLICT (name) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query, name, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark migration complete: %w", err)
	}
	return nil
}
