package notify

import (
	"context"

	"github.com/jwalitptl/reminder-engine/internal/model"
)

// Gateway is the engine's contract with the OS notification subsystem.
// All calls are bounded by the bridge's own timeouts; the engine never
// retries failed calls itself.
type Gateway interface {
	// Schedule registers a one-time notification and returns the OS
	// notification identifier once the bridge has accepted it.
	Schedule(ctx context.Context, req *model.NotificationRequest) (string, error)

	// Cancel removes a scheduled (not yet fired) notification.
	Cancel(ctx context.Context, notificationID string) error

	// Presented lists the notifications currently visible in the tray.
	Presented(ctx context.Context) ([]*model.PresentedNotification, error)

	// Pending lists scheduled notifications that have not fired yet.
	Pending(ctx context.Context) ([]*model.PendingNotification, error)

	// Dismiss withdraws an already-presented notification from the tray.
	Dismiss(ctx context.Context, notificationID string) error
}
