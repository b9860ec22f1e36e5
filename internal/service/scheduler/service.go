package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jwalitptl/reminder-engine/internal/model"
	"github.com/jwalitptl/reminder-engine/internal/notify"
	"github.com/jwalitptl/reminder-engine/internal/repository"
	"github.com/jwalitptl/reminder-engine/pkg/errors"
	"github.com/jwalitptl/reminder-engine/pkg/logger"
	"github.com/jwalitptl/reminder-engine/pkg/metrics"
)

type Service interface {
	// Sync converts the enabled schedules into one-time OS notifications
	// plus follow-ups, writing one mapping row per accepted notification.
	Sync(ctx context.Context) ([]*GroupResult, error)
}

// GroupResult reports the outcome for one time bucket. A failed bucket
// carries Err and no notification ids; other buckets are unaffected.
type GroupResult struct {
	TimeOfDay      string               `json:"time_of_day"`
	NotificationID string               `json:"notification_id,omitempty"`
	FollowUpID     string               `json:"follow_up_id,omitempty"`
	Members        []model.MappingMember `json:"-"`
	Grouped        bool                 `json:"grouped"`
	Err            error                `json:"-"`
}

type service struct {
	cfgRepo  repository.ActionConfigRepository
	mappings repository.MappingRepository
	gateway  notify.Gateway
	logger   *logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewService(
	cfgRepo repository.ActionConfigRepository,
	mappings repository.MappingRepository,
	gateway notify.Gateway,
	log *logger.Logger,
	m *metrics.Metrics,
) Service {
	return &service{
		cfgRepo:  cfgRepo,
		mappings: mappings,
		gateway:  gateway,
		logger:   log,
		metrics:  m,
		now:      time.Now,
	}
}

// NewServiceWithClock lets tests pin the scheduling horizon.
func NewServiceWithClock(
	cfgRepo repository.ActionConfigRepository,
	mappings repository.MappingRepository,
	gateway notify.Gateway,
	log *logger.Logger,
	m *metrics.Metrics,
	now func() time.Time,
) Service {
	svc := NewService(cfgRepo, mappings, gateway, log, m).(*service)
	svc.now = now
	return svc
}

func (s *service) Sync(ctx context.Context) ([]*GroupResult, error) {
	schedules, err := s.cfgRepo.ListActiveSchedules(ctx)
	if err != nil {
		return nil, errors.NewTransientIO("failed to load active schedules", err)
	}

	buckets := bucketByTime(schedules)

	times := make([]string, 0, len(buckets))
	for t := range buckets {
		times = append(times, t)
	}
	sort.Strings(times)

	results := make([]*GroupResult, 0, len(times))
	for _, t := range times {
		result := s.scheduleBucket(ctx, t, buckets[t])
		if result.Err != nil {
			s.metrics.SchedulingFailures.Inc()
			s.logger.Error(result.Err, "failed to schedule bucket",
				"time_of_day", t,
				"members", len(buckets[t]))
		}
		results = append(results, result)
	}
	return results, nil
}

// bucketByTime groups schedules with an identical HH:mm value so that
// co-scheduled actions become one notification instead of tray spam.
func bucketByTime(schedules []*model.ReminderSchedule) map[string][]*model.ReminderSchedule {
	buckets := make(map[string][]*model.ReminderSchedule)
	for _, sched := range schedules {
		buckets[sched.TimeOfDay] = append(buckets[sched.TimeOfDay], sched)
	}
	return buckets
}

func (s *service) scheduleBucket(ctx context.Context, timeOfDay string, bucket []*model.ReminderSchedule) *GroupResult {
	result := &GroupResult{TimeOfDay: timeOfDay, Grouped: len(bucket) >= 2}

	actions := make([]*model.Action, 0, len(bucket))
	for _, sched := range bucket {
		action, err := s.cfgRepo.GetAction(ctx, sched.ActionID)
		if err != nil {
			result.Err = errors.NewTransientIO("failed to resolve action for schedule", err)
			return result
		}
		if action == nil {
			result.Err = errors.NewMissingEntity(fmt.Sprintf("action %s", sched.ActionID), nil)
			return result
		}
		actions = append(actions, action)
		result.Members = append(result.Members, model.MappingMember{ActionID: sched.ActionID, ScheduleID: sched.ID})
	}

	triggerAt, err := bucket[0].NextTrigger(s.now())
	if err != nil {
		result.Err = errors.NewSchedulingFailure("failed to resolve trigger time", err)
		return result
	}

	payload, err := buildPayload(result.Members, triggerAt, result.Grouped, false)
	if err != nil {
		result.Err = errors.NewSchedulingFailure("failed to build payload", err)
		return result
	}

	req := &model.NotificationRequest{
		Title:     title(actions),
		Body:      body(actions, bucket),
		Category:  category(result.Grouped, false),
		Priority:  priority(actions),
		TriggerAt: triggerAt,
		Payload:   payload,
	}

	notificationID, err := s.gateway.Schedule(ctx, req)
	if err != nil {
		result.Err = errors.NewSchedulingFailure("notification rejected by OS bridge", err)
		return result
	}
	result.NotificationID = notificationID
	s.metrics.NotificationsScheduled.WithLabelValues(string(model.NotificationTypeInitial)).Inc()
	s.metrics.GroupSize.Observe(float64(len(bucket)))

	// Mapping rows are written only after the bridge has accepted the
	// notification. A mapping insert failure leaves an unmapped OS
	// notification, which fails safe toward being shown.
	if err := s.insertMapping(ctx, notificationID, result, triggerAt, model.NotificationTypeInitial); err != nil {
		s.logger.Error(err, "failed to persist mapping for scheduled notification",
			"notification_id", notificationID,
			"time_of_day", timeOfDay)
	}

	s.scheduleFollowUp(ctx, result, actions, bucket, triggerAt)
	return result
}

// scheduleFollowUp schedules the chaser notification. The delay is the
// maximum configured across members, and critical delivery is used if any
// member opted in. A follow-up failure never fails the bucket.
func (s *service) scheduleFollowUp(ctx context.Context, result *GroupResult, actions []*model.Action, bucket []*model.ReminderSchedule, triggerAt time.Time) {
	maxDelay := 0
	critical := false
	for _, action := range actions {
		if action.FollowUpDelayMinutes > maxDelay {
			maxDelay = action.FollowUpDelayMinutes
		}
		if action.Critical {
			critical = true
		}
	}
	if maxDelay == 0 {
		return
	}

	followUpAt := triggerAt.Add(time.Duration(maxDelay) * time.Minute)

	payload, err := buildPayload(result.Members, followUpAt, result.Grouped, true)
	if err != nil {
		s.logger.Error(err, "failed to build follow-up payload", "time_of_day", result.TimeOfDay)
		return
	}

	pri := model.PriorityDefault
	if critical {
		pri = model.PriorityCritical
	}

	req := &model.NotificationRequest{
		Title:     "Still due: " + title(actions),
		Body:      body(actions, bucket),
		Category:  model.CategoryFollowUp,
		Priority:  pri,
		TriggerAt: followUpAt,
		Payload:   payload,
	}

	followUpID, err := s.gateway.Schedule(ctx, req)
	if err != nil {
		s.metrics.SchedulingFailures.Inc()
		s.logger.Error(err, "failed to schedule follow-up",
			"time_of_day", result.TimeOfDay,
			"follow_up_at", followUpAt)
		return
	}
	result.FollowUpID = followUpID
	s.metrics.NotificationsScheduled.WithLabelValues(string(model.NotificationTypeFollowUp)).Inc()

	followUpResult := &GroupResult{Members: result.Members, Grouped: result.Grouped}
	if err := s.insertMapping(ctx, followUpID, followUpResult, followUpAt, model.NotificationTypeFollowUp); err != nil {
		s.logger.Error(err, "failed to persist follow-up mapping", "notification_id", followUpID)
	}
}

func (s *service) insertMapping(ctx context.Context, notificationID string, result *GroupResult, triggerAt time.Time, nType model.NotificationType) error {
	mapping := &model.NotificationMapping{
		NotificationID: notificationID,
		Date:           day(triggerAt),
		IsGrouped:      result.Grouped,
		Type:           nType,
		Category:       category(result.Grouped, nType == model.NotificationTypeFollowUp),
		ScheduledFor:   triggerAt,
	}
	for _, member := range result.Members {
		mapping.ActionIDs = append(mapping.ActionIDs, member.ActionID.String())
		mapping.ScheduleIDs = append(mapping.ScheduleIDs, member.ScheduleID.String())
	}
	return s.mappings.Create(ctx, mapping)
}

func buildPayload(members []model.MappingMember, triggerAt time.Time, grouped, followUp bool) (json.RawMessage, error) {
	p := model.ReminderPayload{
		Kind: model.PayloadSingle,
		Date: triggerAt.Format("2006-01-02"),
	}
	if grouped {
		p.Kind = model.PayloadGrouped
	}
	if followUp {
		p.Kind = model.PayloadFollowUp
	}
	for _, member := range members {
		p.ActionIDs = append(p.ActionIDs, member.ActionID)
		p.ScheduleIDs = append(p.ScheduleIDs, member.ScheduleID)
	}
	return json.Marshal(p)
}

func category(grouped, followUp bool) string {
	if followUp {
		return model.CategoryFollowUp
	}
	if grouped {
		return model.CategoryGroupedReminder
	}
	return model.CategoryReminder
}

func priority(actions []*model.Action) model.NotificationPriority {
	for _, action := range actions {
		if action.Critical {
			return model.PriorityCritical
		}
	}
	return model.PriorityDefault
}

func title(actions []*model.Action) string {
	if len(actions) == 1 {
		return actions[0].Name
	}
	return fmt.Sprintf("%d reminders due", len(actions))
}

func body(actions []*model.Action, bucket []*model.ReminderSchedule) string {
	lines := make([]string, 0, len(actions))
	for i, action := range actions {
		dosage := action.Dosage
		if i < len(bucket) && bucket[i].Dosage != "" {
			dosage = bucket[i].Dosage
		}
		if dosage != "" {
			lines = append(lines, fmt.Sprintf("%s (%s)", action.Name, dosage))
		} else {
			lines = append(lines, action.Name)
		}
	}
	return strings.Join(lines, "\n")
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
