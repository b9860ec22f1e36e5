package model

import (
	"time"

	"github.com/google/uuid"
)

// ErrorSeverity classifies how a failure should be surfaced.
type ErrorSeverity string

const (
	SeverityTransient    ErrorSeverity = "transient"
	SeverityCatastrophic ErrorSeverity = "catastrophic"
)

// ErrorCategory tags the origin of a failure.
type ErrorCategory string

const (
	CategoryData    ErrorCategory = "data"
	CategoryNetwork ErrorCategory = "network"
	CategorySystem  ErrorCategory = "system"
)

// ErrorLogEntry is the durable record of an internal failure. Written
// unconditionally, whether or not the user was shown a notification.
type ErrorLogEntry struct {
	ID         uuid.UUID     `json:"id" db:"id"`
	Category   ErrorCategory `json:"category" db:"category"`
	Severity   ErrorSeverity `json:"severity" db:"severity"`
	Message    string        `json:"message" db:"message"`
	Detail     string        `json:"detail" db:"detail"`
	Notified   bool          `json:"notified" db:"notified"`
	OccurredAt time.Time     `json:"occurred_at" db:"occurred_at"`
}
