package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Action is the recurring real-world task being tracked (e.g. taking a
// medication dose). Owned by the configuration subsystem; read-only here.
type Action struct {
	ID                   uuid.UUID  `json:"id" db:"id"`
	Name                 string     `json:"name" db:"name"`
	Dosage               string     `json:"dosage" db:"dosage"`
	FollowUpDelayMinutes int        `json:"follow_up_delay_minutes" db:"follow_up_delay_minutes"`
	Critical             bool       `json:"critical" db:"critical"`
	Active               bool       `json:"active" db:"active"`
	CreatedAt            time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt            *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// FollowUpEnabled reports whether a follow-up reminder is configured.
func (a *Action) FollowUpEnabled() bool {
	return a.FollowUpDelayMinutes > 0
}

// ReminderSchedule is one configured time-of-day recurrence for an action.
type ReminderSchedule struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ActionID  uuid.UUID `json:"action_id" db:"action_id"`
	TimeOfDay string    `json:"time_of_day" db:"time_of_day"` // HH:mm
	Timezone  string    `json:"timezone" db:"timezone"`
	Enabled   bool      `json:"enabled" db:"enabled"`
	Dosage    string    `json:"dosage" db:"dosage"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NextTrigger resolves the schedule's trigger instant on the given calendar
// day in the schedule's timezone.
func (s *ReminderSchedule) NextTrigger(day time.Time) (time.Time, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to load timezone %q: %w", s.Timezone, err)
	}

	var hour, minute int
	if _, err := fmt.Sscanf(s.TimeOfDay, "%d:%d", &hour, &minute); err != nil {
		return time.Time{}, fmt.Errorf("failed to parse time of day %q: %w", s.TimeOfDay, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("time of day %q out of range", s.TimeOfDay)
	}

	day = day.In(loc)
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc), nil
}
