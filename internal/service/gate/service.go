package gate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jwalitptl/reminder-engine/internal/model"
	"github.com/jwalitptl/reminder-engine/internal/service/logstatus"
	"github.com/jwalitptl/reminder-engine/pkg/errors"
	"github.com/jwalitptl/reminder-engine/pkg/logger"
	"github.com/jwalitptl/reminder-engine/pkg/metrics"
)

// Alerter surfaces internal failures to the user. Satisfied by the
// alerter service; narrowed here to avoid a dependency on its internals.
type Alerter interface {
	Alert(ctx context.Context, category model.ErrorCategory, err error, message string)
}

// Decision is the synchronous answer returned to the OS delivery callback.
// Suppression clears every display flag; anything else presents the
// notification exactly as scheduled.
type Decision struct {
	ShowBanner  bool   `json:"show_banner"`
	ShowInList  bool   `json:"show_in_list"`
	PlaySound   bool   `json:"play_sound"`
	UpdateBadge bool   `json:"update_badge"`
	Suppressed  bool   `json:"suppressed"`
	Reason      string `json:"reason"`
}

func show(reason string) Decision {
	return Decision{ShowBanner: true, ShowInList: true, PlaySound: true, UpdateBadge: true, Reason: reason}
}

func suppress(reason string) Decision {
	return Decision{Suppressed: true, Reason: reason}
}

type Service interface {
	// Evaluate decides, at the instant the OS is about to display a
	// scheduled notification, whether it should actually be rendered.
	Evaluate(ctx context.Context, payload json.RawMessage) Decision
}

type service struct {
	checker *logstatus.Checker
	alerter Alerter
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewService(checker *logstatus.Checker, alerter Alerter, log *logger.Logger, m *metrics.Metrics) Service {
	return &service{
		checker: checker,
		alerter: alerter,
		logger:  log,
		metrics: m,
	}
}

// Evaluate never returns an error: any failure along the way fails open,
// because silently swallowing a reminder is worse than a redundant one.
func (s *service) Evaluate(ctx context.Context, raw json.RawMessage) Decision {
	s.metrics.DeliveriesEvaluated.Inc()

	payload, err := model.ParseReminderPayload(raw)
	if err != nil {
		s.metrics.GateFailOpen.Inc()
		s.logger.Error(err, "delivery check received malformed payload")
		s.alerter.Alert(ctx, model.CategoryData, err,
			"A reminder could not be verified and was shown as a precaution.")
		return show("malformed payload, fail open")
	}

	if payload.Kind == model.PayloadCheckin {
		return show("check-in notifications are never suppressed")
	}

	// Follow-ups run the identical query, so they are suppressed the
	// moment the underlying action is logged, independent of their own
	// schedule.
	unlogged := 0
	for _, member := range payload.Members() {
		logged, err := s.checker.IsLoggedOn(ctx, member.ActionID, member.ScheduleID, payload.Date)
		if err != nil {
			return s.failOpen(ctx, member, err)
		}
		if !logged {
			unlogged++
		}
	}

	// A group is suppressed only when every member is already logged.
	// Partially-logged groups are shown with their full content; see the
	// documented limitation on narrowing group content.
	if unlogged > 0 {
		return show(fmt.Sprintf("%d member(s) not yet logged", unlogged))
	}

	s.metrics.DeliveriesSuppressed.Inc()
	s.logger.Info("suppressed delivery, all members already logged",
		"members", len(payload.Members()),
		"kind", string(payload.Kind))
	return suppress("all members already logged")
}

func (s *service) failOpen(ctx context.Context, member model.MappingMember, err error) Decision {
	s.metrics.GateFailOpen.Inc()

	switch errors.CodeOf(err) {
	case errors.ErrMissingEntity, errors.ErrScheduleMismatch:
		s.logger.Error(err, "delivery check hit inconsistent data, failing open",
			"action_id", member.ActionID.String(),
			"schedule_id", member.ScheduleID.String())
		s.alerter.Alert(ctx, model.CategoryData, err,
			"A reminder references a missing item. Please review your reminder settings.")
	default:
		s.logger.Error(err, "delivery check failed transiently, failing open",
			"action_id", member.ActionID.String(),
			"schedule_id", member.ScheduleID.String())
		s.alerter.Alert(ctx, model.CategorySystem, err,
			"A temporary issue occurred while checking a reminder. It was shown as a precaution.")
	}
	return show("logged-status check failed, fail open")
}
