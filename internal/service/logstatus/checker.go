package logstatus

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/reminder-engine/internal/repository"
	"github.com/jwalitptl/reminder-engine/pkg/errors"
)

// Checker answers "was this action performed for this schedule on this
// day" by re-resolving the schedule and querying the authoritative action
// log at call time. It holds no state between calls, so interleaved
// invocations can never observe a cached answer.
type Checker struct {
	cfgRepo repository.ActionConfigRepository
	logRepo repository.ActionLogRepository
	now     func() time.Time
}

func NewChecker(cfgRepo repository.ActionConfigRepository, logRepo repository.ActionLogRepository) *Checker {
	return &Checker{cfgRepo: cfgRepo, logRepo: logRepo, now: time.Now}
}

// NewCheckerWithClock pins "today" for tests.
func NewCheckerWithClock(cfgRepo repository.ActionConfigRepository, logRepo repository.ActionLogRepository, now func() time.Time) *Checker {
	return &Checker{cfgRepo: cfgRepo, logRepo: logRepo, now: now}
}

// IsLoggedOn reports the logged status of (actionID, scheduleID) for the
// given calendar day (YYYY-MM-DD, empty means today in the schedule's
// timezone). Errors carry the engine taxonomy: missing entities and
// schedule drift are data inconsistencies, everything else is transient.
func (c *Checker) IsLoggedOn(ctx context.Context, actionID, scheduleID uuid.UUID, date string) (bool, error) {
	schedule, err := c.cfgRepo.GetSchedule(ctx, scheduleID)
	if err != nil {
		return false, errors.NewTransientIO("failed to resolve schedule", err)
	}
	if schedule == nil {
		return false, errors.NewMissingEntity(fmt.Sprintf("schedule %s", scheduleID), nil)
	}
	if schedule.ActionID != actionID {
		return false, errors.NewScheduleMismatch(
			fmt.Sprintf("schedule %s does not belong to action %s", scheduleID, actionID), nil)
	}

	action, err := c.cfgRepo.GetAction(ctx, actionID)
	if err != nil {
		return false, errors.NewTransientIO("failed to resolve action", err)
	}
	if action == nil {
		return false, errors.NewMissingEntity(fmt.Sprintf("action %s", actionID), nil)
	}

	day, err := c.resolveDay(schedule.Timezone, date)
	if err != nil {
		return false, errors.NewScheduleMismatch("failed to resolve target day", err)
	}

	logged, err := c.logRepo.WasLoggedForSchedule(ctx, actionID, scheduleID, day, schedule.Timezone)
	if err != nil {
		return false, errors.NewTransientIO("failed to query action log", err)
	}
	return logged, nil
}

func (c *Checker) resolveDay(timezone, date string) (time.Time, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to load timezone %q: %w", timezone, err)
	}
	if date == "" {
		return c.now().In(loc), nil
	}
	day, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse date %q: %w", date, err)
	}
	return day, nil
}
