package model

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// PayloadKind discriminates the reminder payload union.
type PayloadKind string

const (
	PayloadSingle   PayloadKind = "single"
	PayloadGrouped  PayloadKind = "grouped"
	PayloadFollowUp PayloadKind = "follow_up"
	PayloadCheckin  PayloadKind = "checkin"
)

// ReminderPayload is the denormalized data bag carried by every scheduled
// notification, decoded once at the edge into an explicit tagged union so
// matching logic never branches on optional single-vs-array fields.
type ReminderPayload struct {
	Kind        PayloadKind `json:"kind"`
	ActionIDs   []uuid.UUID `json:"action_ids"`
	ScheduleIDs []uuid.UUID `json:"schedule_ids"` // index-aligned with ActionIDs
	Date        string      `json:"date"`         // YYYY-MM-DD, the targeted calendar day
}

// ParseReminderPayload decodes and validates a notification data bag.
func ParseReminderPayload(raw json.RawMessage) (*ReminderPayload, error) {
	var p ReminderPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to decode reminder payload: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate enforces the union's structural invariants.
func (p *ReminderPayload) Validate() error {
	switch p.Kind {
	case PayloadSingle:
		if len(p.ActionIDs) != 1 || len(p.ScheduleIDs) != 1 {
			return fmt.Errorf("single payload must carry exactly one action/schedule pair")
		}
	case PayloadGrouped:
		if len(p.ActionIDs) < 2 {
			return fmt.Errorf("grouped payload must carry at least two actions")
		}
		if len(p.ActionIDs) != len(p.ScheduleIDs) {
			return fmt.Errorf("grouped payload action/schedule arrays must be index-aligned")
		}
	case PayloadFollowUp:
		// A follow-up mirrors the members of the notification it chases,
		// so it may carry one pair or a whole group.
		if len(p.ActionIDs) == 0 {
			return fmt.Errorf("follow-up payload must carry at least one action")
		}
		if len(p.ActionIDs) != len(p.ScheduleIDs) {
			return fmt.Errorf("follow-up payload action/schedule arrays must be index-aligned")
		}
	case PayloadCheckin:
		// Check-in payloads carry no members.
	default:
		return fmt.Errorf("unknown payload kind %q", p.Kind)
	}
	return nil
}

// Members returns the index-aligned (action, schedule) pairs.
func (p *ReminderPayload) Members() []MappingMember {
	members := make([]MappingMember, 0, len(p.ActionIDs))
	for i := range p.ActionIDs {
		if i >= len(p.ScheduleIDs) {
			break
		}
		members = append(members, MappingMember{ActionID: p.ActionIDs[i], ScheduleID: p.ScheduleIDs[i]})
	}
	return members
}
