package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type NotificationType string

const (
	NotificationTypeInitial      NotificationType = "initial"
	NotificationTypeFollowUp     NotificationType = "follow_up"
	NotificationTypeDailyCheckin NotificationType = "daily_checkin"
)

// Notification categories as tagged on OS notification requests. Only
// reminder categories are owned by this engine; everything else in the
// tray is left untouched.
const (
	CategoryReminder        = "reminder"
	CategoryGroupedReminder = "reminder_group"
	CategoryFollowUp        = "reminder_followup"
	CategoryEngineAlert     = "engine_alert"
)

// ReminderCategories lists every category the engine schedules and is
// allowed to cancel or dismiss.
var ReminderCategories = []string{CategoryReminder, CategoryGroupedReminder, CategoryFollowUp}

// IsReminderCategory reports whether the category belongs to this engine's
// reminder flow.
func IsReminderCategory(category string) bool {
	for _, c := range ReminderCategories {
		if c == category {
			return true
		}
	}
	return false
}

// NotificationMapping is the persisted record linking an OS notification
// identifier to the action/schedule(s) it represents. Exactly one row per
// notification id; ActionIDs and ScheduleIDs are index-aligned (position i
// in ActionIDs corresponds to position i in ScheduleIDs).
type NotificationMapping struct {
	NotificationID string           `json:"notification_id" db:"notification_id"`
	ActionIDs      pq.StringArray   `json:"action_ids" db:"action_ids"`
	ScheduleIDs    pq.StringArray   `json:"schedule_ids" db:"schedule_ids"`
	Date           time.Time        `json:"date" db:"date"`
	IsGrouped      bool             `json:"is_grouped" db:"is_grouped"`
	Type           NotificationType `json:"type" db:"type"`
	Category       string           `json:"category" db:"category"`
	ScheduledFor   time.Time        `json:"scheduled_for" db:"scheduled_for"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
}

// Members returns the index-aligned (actionID, scheduleID) pairs of the
// mapping. Rows whose ids fail to parse are skipped; callers treat a short
// member list as data drift and fail toward keeping the notification.
func (m *NotificationMapping) Members() []MappingMember {
	n := len(m.ActionIDs)
	if len(m.ScheduleIDs) < n {
		n = len(m.ScheduleIDs)
	}

	members := make([]MappingMember, 0, n)
	for i := 0; i < n; i++ {
		actionID, err := uuid.Parse(m.ActionIDs[i])
		if err != nil {
			continue
		}
		scheduleID, err := uuid.Parse(m.ScheduleIDs[i])
		if err != nil {
			continue
		}
		members = append(members, MappingMember{ActionID: actionID, ScheduleID: scheduleID})
	}
	return members
}

// Contains reports whether the mapping references the exact
// (actionID, scheduleID) pair. Matching on action id alone is not enough:
// one action may have several independent daily schedules.
func (m *NotificationMapping) Contains(actionID, scheduleID uuid.UUID) bool {
	for _, member := range m.Members() {
		if member.ActionID == actionID && member.ScheduleID == scheduleID {
			return true
		}
	}
	return false
}

// MappingMember is one (action, schedule) pair carried by a mapping.
type MappingMember struct {
	ActionID   uuid.UUID
	ScheduleID uuid.UUID
}
