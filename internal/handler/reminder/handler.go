package reminder

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/reminder-engine/internal/service/dismissal"
	"github.com/jwalitptl/reminder-engine/internal/service/gate"
	"github.com/jwalitptl/reminder-engine/internal/service/migration"
	"github.com/jwalitptl/reminder-engine/internal/service/scheduler"
	"github.com/jwalitptl/reminder-engine/pkg/errors"
	"github.com/jwalitptl/reminder-engine/pkg/httputil"
	"github.com/jwalitptl/reminder-engine/pkg/validator"
)

type Handler struct {
	scheduler scheduler.Service
	gate      gate.Service
	dismissal dismissal.Service
	migration *migration.Runner
	validator validator.Validator
}

func NewHandler(
	sched scheduler.Service,
	g gate.Service,
	d dismissal.Service,
	m *migration.Runner,
) *Handler {
	return &Handler{
		scheduler: sched,
		gate:      g,
		dismissal: d,
		migration: m,
		validator: validator.New(),
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/reminders/sync", h.SyncReminders)
	rg.POST("/notifications/delivery-check", h.DeliveryCheck)
	rg.POST("/notifications/dismissals", h.Dismiss)
	rg.POST("/migrations/one-time-notifications", h.RunMigration)
}

// SyncReminders rebuilds the one-time notification schedule from the
// current configuration.
func (h *Handler) SyncReminders(c *gin.Context) {
	results, err := h.scheduler.Sync(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	type bucket struct {
		TimeOfDay      string `json:"time_of_day"`
		NotificationID string `json:"notification_id,omitempty"`
		FollowUpID     string `json:"follow_up_id,omitempty"`
		Grouped        bool   `json:"grouped"`
		Failed         bool   `json:"failed"`
	}
	out := make([]bucket, 0, len(results))
	for _, r := range results {
		out = append(out, bucket{
			TimeOfDay:      r.TimeOfDay,
			NotificationID: r.NotificationID,
			FollowUpID:     r.FollowUpID,
			Grouped:        r.Grouped,
			Failed:         r.Err != nil,
		})
	}
	httputil.RespondWithSuccess(c, out)
}

type deliveryCheckRequest struct {
	Payload json.RawMessage `json:"payload" validate:"required"`
}

// DeliveryCheck is the bridge's synchronous callback invoked immediately
// before a scheduled notification is shown.
func (h *Handler) DeliveryCheck(c *gin.Context) {
	var req deliveryCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.NewBadRequest("invalid delivery check request", err))
		return
	}
	if len(req.Payload) == 0 {
		httputil.RespondWithError(c, errors.NewBadRequest("payload is required", nil))
		return
	}

	decision := h.gate.Evaluate(c.Request.Context(), req.Payload)
	c.JSON(http.StatusOK, decision)
}

type dismissRequest struct {
	ActionID   string `json:"action_id" validate:"required,uuid"`
	ScheduleID string `json:"schedule_id" validate:"required,uuid"`
}

// Dismiss is called after an action has been durably logged in-app; it
// withdraws any tray notification the logging resolved.
func (h *Handler) Dismiss(c *gin.Context) {
	var req dismissRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.NewBadRequest("invalid dismissal request", err))
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		httputil.RespondWithError(c, errors.NewBadRequest(err.Error(), err))
		return
	}

	actionID, err := uuid.Parse(req.ActionID)
	if err != nil {
		httputil.RespondWithError(c, errors.NewBadRequest("invalid action id", err))
		return
	}
	scheduleID, err := uuid.Parse(req.ScheduleID)
	if err != nil {
		httputil.RespondWithError(c, errors.NewBadRequest("invalid schedule id", err))
		return
	}

	report, err := h.dismissal.DismissNotificationFor(c.Request.Context(), actionID, scheduleID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, report)
}

// RunMigration triggers the legacy-notification conversion. Idempotent.
func (h *Handler) RunMigration(c *gin.Context) {
	if err := h.migration.Run(c.Request.Context()); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"migration": migration.MigrationName})
}
