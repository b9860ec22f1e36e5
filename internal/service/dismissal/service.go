package dismissal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/reminder-engine/internal/model"
	"github.com/jwalitptl/reminder-engine/internal/notify"
	"github.com/jwalitptl/reminder-engine/internal/repository"
	"github.com/jwalitptl/reminder-engine/internal/service/logstatus"
	"github.com/jwalitptl/reminder-engine/pkg/errors"
	"github.com/jwalitptl/reminder-engine/pkg/logger"
	"github.com/jwalitptl/reminder-engine/pkg/metrics"
)

type Service interface {
	// DismissNotificationFor withdraws every presented notification that
	// is fully resolved by logging (actionID, scheduleID). Called after
	// the action has been durably logged.
	DismissNotificationFor(ctx context.Context, actionID, scheduleID uuid.UUID) (*Report, error)
}

// Report summarizes one dismissal pass.
type Report struct {
	Evaluated int                              `json:"evaluated"`
	Dismissed []string                         `json:"dismissed"`
	Results   map[string]model.DismissalResult `json:"results"`
}

type Config struct {
	// MinConfidence is the threshold a fallback strategy must meet or
	// exceed before its dismissal is acted on.
	MinConfidence int
	// FallbackWindow bounds how far a presented notification's trigger
	// may drift from now and still correlate with the target.
	FallbackWindow time.Duration
}

func DefaultConfig() Config {
	return Config{
		MinConfidence:  70,
		FallbackWindow: 2 * time.Hour,
	}
}

type service struct {
	mappings   repository.MappingRepository
	cfgRepo    repository.ActionConfigRepository
	checker    *logstatus.Checker
	gateway    notify.Gateway
	strategies []Strategy
	config     Config
	logger     *logger.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

func NewService(
	mappings repository.MappingRepository,
	cfgRepo repository.ActionConfigRepository,
	checker *logstatus.Checker,
	gateway notify.Gateway,
	config Config,
	log *logger.Logger,
	m *metrics.Metrics,
) Service {
	s := &service{
		mappings: mappings,
		cfgRepo:  cfgRepo,
		checker:  checker,
		gateway:  gateway,
		config:   config,
		logger:   log,
		metrics:  m,
		now:      time.Now,
	}
	// Fallback order: most precise first. Each is only consulted when the
	// mapping store had no row for the candidate.
	s.strategies = []Strategy{
		&timeWindowStrategy{mappings: mappings, window: config.FallbackWindow, now: func() time.Time { return s.now() }},
		&contentStrategy{},
		&categoryStrategy{window: config.FallbackWindow, now: func() time.Time { return s.now() }},
	}
	return s
}

func (s *service) DismissNotificationFor(ctx context.Context, actionID, scheduleID uuid.UUID) (*Report, error) {
	timer := prometheus.NewTimer(s.metrics.DismissalLatency)
	defer timer.ObserveDuration()
	s.metrics.DismissalPasses.Inc()

	presented, err := s.gateway.Presented(ctx)
	if err != nil {
		// Without a tray listing there is nothing safe to dismiss.
		return nil, errors.NewTransientIO("failed to list presented notifications", err)
	}

	target := Target{ActionID: actionID, ScheduleID: scheduleID, Now: s.now()}
	if action, err := s.cfgRepo.GetAction(ctx, actionID); err == nil && action != nil {
		target.ActionName = action.Name
	} else if err != nil {
		// Content matching degrades without a name; the pass continues.
		s.logger.Warn("failed to resolve action name for content matching",
			"action_id", actionID.String())
	}

	report := &Report{Results: make(map[string]model.DismissalResult)}

	// Candidates are evaluated and dismissed in tray iteration order.
	// A failure on one candidate never aborts the rest of the pass.
	var unmapped []*model.PresentedNotification
	primaryMatched := false
	for _, candidate := range presented {
		if !model.IsReminderCategory(candidate.Category) {
			continue
		}
		report.Evaluated++

		mapping, err := s.mappings.Get(ctx, candidate.ID)
		if err != nil {
			s.metrics.DismissalsRejected.WithLabelValues("candidate_error").Inc()
			s.logger.Error(err, "failed to load mapping for candidate, keeping notification",
				"notification_id", candidate.ID,
				"action_id", actionID.String(),
				"schedule_id", scheduleID.String())
			report.Results[candidate.ID] = model.DismissalResult{
				Strategy: model.StrategyDatabaseID,
				Context:  "mapping lookup failed, fail closed",
			}
			continue
		}

		if mapping == nil {
			// Orphaned OS notification: no mapping row. Held back for
			// the fallback chain, never auto-dismissed.
			unmapped = append(unmapped, candidate)
			continue
		}

		if !mapping.Contains(actionID, scheduleID) {
			continue
		}
		primaryMatched = true

		result := s.evaluatePrimary(ctx, mapping)
		report.Results[candidate.ID] = result
		if result.ShouldDismiss {
			s.dismiss(ctx, candidate.ID, result, report, true)
		}
	}

	// Fallbacks only run when the database lookup matched nothing: the
	// tray can desynchronize from the mapping store if the app was
	// killed mid-write.
	if !primaryMatched {
		s.runFallbacks(ctx, target, unmapped, report)
	}

	return report, nil
}

// evaluatePrimary decides a database-id match. Single mappings already
// matched both ids exactly. Grouped mappings pass only the grouped safety
// check: every member must be logged, and any error while checking a
// member counts as not logged.
func (s *service) evaluatePrimary(ctx context.Context, mapping *model.NotificationMapping) model.DismissalResult {
	if !mapping.IsGrouped {
		return model.DismissalResult{
			ShouldDismiss: true,
			Strategy:      model.StrategyDatabaseID,
			Confidence:    100,
			Context:       "exact action/schedule mapping match",
		}
	}

	date := mapping.Date.Format("2006-01-02")
	members := mapping.Members()
	for _, member := range members {
		logged, err := s.checker.IsLoggedOn(ctx, member.ActionID, member.ScheduleID, date)
		if err != nil {
			s.metrics.DismissalsRejected.WithLabelValues("group_check_error").Inc()
			s.logger.Error(err, "grouped safety check failed for member, keeping notification",
				"notification_id", mapping.NotificationID,
				"action_id", member.ActionID.String(),
				"schedule_id", member.ScheduleID.String())
			return model.DismissalResult{
				Strategy:   model.StrategyDatabaseID,
				Confidence: 100,
				Context:    "member check errored, treated as not logged",
			}
		}
		if !logged {
			s.metrics.DismissalsRejected.WithLabelValues("group_member_unlogged").Inc()
			return model.DismissalResult{
				Strategy:   model.StrategyDatabaseID,
				Confidence: 100,
				Context: fmt.Sprintf("member %s/%s not yet logged",
					member.ActionID, member.ScheduleID),
			}
		}
	}

	return model.DismissalResult{
		ShouldDismiss: true,
		Strategy:      model.StrategyDatabaseID,
		Confidence:    100,
		Context:       fmt.Sprintf("all %d group members logged", len(members)),
	}
}

func (s *service) runFallbacks(ctx context.Context, target Target, candidates []*model.PresentedNotification, report *Report) {
	for _, candidate := range candidates {
		result, ok := s.evaluateFallbacks(ctx, target, candidate)
		report.Results[candidate.ID] = result
		if !ok {
			continue
		}

		// A fallback approval on a grouped payload still runs the
		// grouped safety check before anything leaves the tray.
		if !s.groupSafe(ctx, candidate) {
			s.metrics.DismissalsRejected.WithLabelValues("group_member_unlogged").Inc()
			result.ShouldDismiss = false
			result.Context += "; grouped safety check kept the notification"
			report.Results[candidate.ID] = result
			continue
		}

		s.dismiss(ctx, candidate.ID, result, report, false)
	}
}

func (s *service) evaluateFallbacks(ctx context.Context, target Target, candidate *model.PresentedNotification) (model.DismissalResult, bool) {
	// A parseable payload names its members outright and outranks any
	// content or category resemblance: when it does not carry the target
	// pair the candidate belongs to a different action or schedule, and
	// the chain stops here.
	if payload, err := model.ParseReminderPayload(candidate.Payload); err == nil && !payloadNamesTarget(payload, target) {
		return model.DismissalResult{
			Strategy: model.StrategyTimeWindow,
			Context:  "payload identifies a different action/schedule pair",
		}, false
	}

	var best model.DismissalResult
	for _, strategy := range s.strategies {
		result := strategy.Evaluate(ctx, target, candidate)
		if result.Confidence > best.Confidence {
			best = result
		}
		if result.ShouldDismiss && result.Confidence >= s.config.MinConfidence {
			return result, true
		}
	}
	if best.ShouldDismiss {
		s.metrics.DismissalsRejected.WithLabelValues("low_confidence").Inc()
		best.ShouldDismiss = false
		best.Context += fmt.Sprintf("; confidence below threshold %d", s.config.MinConfidence)
	}
	return best, false
}

func payloadNamesTarget(payload *model.ReminderPayload, target Target) bool {
	for _, member := range payload.Members() {
		if member.ActionID == target.ActionID && member.ScheduleID == target.ScheduleID {
			return true
		}
	}
	return false
}

// groupSafe re-checks every member of a grouped candidate payload. A
// candidate whose payload cannot be parsed is treated as single: the
// fallback already correlated it with the target.
func (s *service) groupSafe(ctx context.Context, candidate *model.PresentedNotification) bool {
	payload, err := model.ParseReminderPayload(candidate.Payload)
	if err != nil || len(payload.Members()) <= 1 {
		return true
	}
	for _, member := range payload.Members() {
		logged, err := s.checker.IsLoggedOn(ctx, member.ActionID, member.ScheduleID, payload.Date)
		if err != nil || !logged {
			return false
		}
	}
	return true
}

func (s *service) dismiss(ctx context.Context, notificationID string, result model.DismissalResult, report *Report, mapped bool) {
	if err := s.gateway.Dismiss(ctx, notificationID); err != nil {
		// Not fatal: the loop keeps attempting remaining candidates.
		s.logger.Warn("failed to dismiss notification",
			"notification_id", notificationID,
			"error", err.Error())
		return
	}

	s.metrics.DismissalsApproved.WithLabelValues(string(result.Strategy)).Inc()
	report.Dismissed = append(report.Dismissed, notificationID)
	s.logger.Info("dismissed notification",
		"notification_id", notificationID,
		"strategy", string(result.Strategy),
		"confidence", result.Confidence)

	if mapped {
		if err := s.mappings.Delete(ctx, notificationID); err != nil {
			// Orphaned row; the reconciler sweeps it up later.
			s.logger.Warn("failed to delete mapping after dismissal",
				"notification_id", notificationID,
				"error", err.Error())
		}
	}
}
