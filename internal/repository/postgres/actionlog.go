package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// WasLoggedForSchedule reports whether the action was performed for the
// schedule on the given calendar day, evaluated in the schedule's timezone.
// Every caller re-queries this at decision time; results are never cached.
func (r *actionLogRepository) WasLoggedForSchedule(ctx context.Context, actionID, scheduleID uuid.UUID, day time.Time, timezone string) (bool, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return false, fmt.Errorf("failed to load timezone %q: %w", timezone, err)
	}

	local := day.In(loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	dayEnd := dayStart.Add(24 * time.Hour)

	query := `
		SELECT EXISTS (
			SELECT 1 FROM action_log
			WHERE action_id = $1
			AND schedule_id = $2
			AND logged_at >= $3
			AND logged_at < $4
		)
	`
	var logged bool
	err = r.db.GetContext(ctx, &logged, query, actionID, scheduleID, dayStart, dayEnd)
	if err != nil {
		return false, fmt.Errorf("failed to query action log: %w", err)
	}
	return logged, nil
}
