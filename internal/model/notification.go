package model

import (
	"encoding/json"
	"time"
)

// NotificationPriority controls delivery urgency at the OS level.
type NotificationPriority string

const (
	PriorityDefault  NotificationPriority = "default"
	PriorityCritical NotificationPriority = "critical"
)

// NotificationRequest is a one-time OS notification to be scheduled
// through the gateway. Payload round-trips back through the delivery
// callback and the presented-notification listing.
type NotificationRequest struct {
	Title     string               `json:"title"`
	Body      string               `json:"body"`
	Category  string               `json:"category"`
	Priority  NotificationPriority `json:"priority"`
	TriggerAt time.Time            `json:"trigger_at"`
	Payload   json.RawMessage      `json:"payload"`
}

// PresentedNotification is a notification currently visible in the OS
// tray. OS-owned and ephemeral; never persisted by this engine.
type PresentedNotification struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Body        string          `json:"body"`
	Category    string          `json:"category"`
	Payload     json.RawMessage `json:"payload"`
	PresentedAt time.Time       `json:"presented_at"`
}

// PendingNotification is a scheduled notification that has not fired yet.
// Recurring is only ever true for legacy entries predating the one-time
// notification model; the migration runner converts them.
type PendingNotification struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"`
	TriggerAt time.Time `json:"trigger_at"`
	Recurring bool      `json:"recurring"`
}
