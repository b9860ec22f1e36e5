package scheduler

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/reminder-engine/internal/model"
	"github.com/jwalitptl/reminder-engine/pkg/logger"
	"github.com/jwalitptl/reminder-engine/pkg/metrics"
)

type fakeConfigRepo struct {
	schedules []*model.ReminderSchedule
	actions   map[uuid.UUID]*model.Action
	listErr   error
}

func (f *fakeConfigRepo) ListActiveSchedules(_ context.Context) ([]*model.ReminderSchedule, error) {
	return f.schedules, f.listErr
}

func (f *fakeConfigRepo) GetAction(_ context.Context, id uuid.UUID) (*model.Action, error) {
	return f.actions[id], nil
}

func (f *fakeConfigRepo) GetSchedule(_ context.Context, id uuid.UUID) (*model.ReminderSchedule, error) {
	for _, s := range f.schedules {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, nil
}

type fakeMappingRepo struct {
	created   []*model.NotificationMapping
	createErr error
}

func (f *fakeMappingRepo) Create(_ context.Context, m *model.NotificationMapping) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, m)
	return nil
}

func (f *fakeMappingRepo) Get(_ context.Context, _ string) (*model.NotificationMapping, error) {
	return nil, nil
}
func (f *fakeMappingRepo) ListByWindow(_ context.Context, _, _ time.Time) ([]*model.NotificationMapping, error) {
	return nil, nil
}
func (f *fakeMappingRepo) ListByActionName(_ context.Context, _ string) ([]*model.NotificationMapping, error) {
	return nil, nil
}
func (f *fakeMappingRepo) ListByCategory(_ context.Context, _ string) ([]*model.NotificationMapping, error) {
	return nil, nil
}
func (f *fakeMappingRepo) ListStale(_ context.Context, _ time.Time, _ int) ([]*model.NotificationMapping, error) {
	return nil, nil
}
func (f *fakeMappingRepo) Delete(_ context.Context, _ string) error { return nil }

type fakeGateway struct {
	scheduled []*model.NotificationRequest
	failOn    func(req *model.NotificationRequest) error
	nextID    int
}

func (f *fakeGateway) Schedule(_ context.Context, req *model.NotificationRequest) (string, error) {
	if f.failOn != nil {
		if err := f.failOn(req); err != nil {
			return "", err
		}
	}
	f.nextID++
	f.scheduled = append(f.scheduled, req)
	return fmt.Sprintf("os-%d", f.nextID), nil
}

func (f *fakeGateway) Cancel(_ context.Context, _ string) error { return nil }
func (f *fakeGateway) Presented(_ context.Context) ([]*model.PresentedNotification, error) {
	return nil, nil
}
func (f *fakeGateway) Pending(_ context.Context) ([]*model.PendingNotification, error) {
	return nil, nil
}
func (f *fakeGateway) Dismiss(_ context.Context, _ string) error { return nil }

func testLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
}

func testMetrics() *metrics.Metrics {
	return metrics.NewMetricsWith(prometheus.NewRegistry(), "test")
}

func fixedClock() func() time.Time {
	return func() time.Time { return time.Date(2026, 8, 29, 6, 0, 0, 0, time.UTC) }
}

func newSchedule(actionID uuid.UUID, timeOfDay string) *model.ReminderSchedule {
	return &model.ReminderSchedule{
		ID:        uuid.New(),
		ActionID:  actionID,
		TimeOfDay: timeOfDay,
		Timezone:  "UTC",
		Enabled:   true,
	}
}

func TestSyncGroupsCoScheduledActions(t *testing.T) {
	vitaminD := &model.Action{ID: uuid.New(), Name: "Vitamin D", Dosage: "1000 IU", Active: true}
	omega := &model.Action{ID: uuid.New(), Name: "Omega 3", Active: true}
	evening := &model.Action{ID: uuid.New(), Name: "Magnesium", Active: true}

	cfg := &fakeConfigRepo{
		schedules: []*model.ReminderSchedule{
			newSchedule(vitaminD.ID, "08:00"),
			newSchedule(omega.ID, "08:00"),
			newSchedule(evening.ID, "21:00"),
		},
		actions: map[uuid.UUID]*model.Action{vitaminD.ID: vitaminD, omega.ID: omega, evening.ID: evening},
	}
	mappings := &fakeMappingRepo{}
	gateway := &fakeGateway{}

	svc := NewServiceWithClock(cfg, mappings, gateway, testLogger(), testMetrics(), fixedClock())
	results, err := svc.Sync(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)

	morning := results[0]
	assert.Equal(t, "08:00", morning.TimeOfDay)
	assert.True(t, morning.Grouped)
	assert.Len(t, morning.Members, 2)
	assert.NotEmpty(t, morning.NotificationID)

	night := results[1]
	assert.Equal(t, "21:00", night.TimeOfDay)
	assert.False(t, night.Grouped)
	assert.Len(t, night.Members, 1)

	// One mapping row per accepted notification.
	require.Len(t, mappings.created, 2)
	assert.True(t, mappings.created[0].IsGrouped)
	assert.Equal(t, model.CategoryGroupedReminder, mappings.created[0].Category)
	assert.Equal(t, model.CategoryReminder, mappings.created[1].Category)
}

func TestSyncMappingArraysStayIndexAligned(t *testing.T) {
	a1 := &model.Action{ID: uuid.New(), Name: "A", Active: true}
	a2 := &model.Action{ID: uuid.New(), Name: "B", Active: true}
	s1 := newSchedule(a1.ID, "09:00")
	s2 := newSchedule(a2.ID, "09:00")

	cfg := &fakeConfigRepo{
		schedules: []*model.ReminderSchedule{s1, s2},
		actions:   map[uuid.UUID]*model.Action{a1.ID: a1, a2.ID: a2},
	}
	mappings := &fakeMappingRepo{}

	svc := NewServiceWithClock(cfg, mappings, &fakeGateway{}, testLogger(), testMetrics(), fixedClock())
	_, err := svc.Sync(context.Background())
	require.NoError(t, err)

	require.Len(t, mappings.created, 1)
	m := mappings.created[0]
	require.Len(t, m.ActionIDs, 2)
	require.Len(t, m.ScheduleIDs, 2)
	assert.Equal(t, a1.ID.String(), m.ActionIDs[0])
	assert.Equal(t, s1.ID.String(), m.ScheduleIDs[0])
	assert.Equal(t, a2.ID.String(), m.ActionIDs[1])
	assert.Equal(t, s2.ID.String(), m.ScheduleIDs[1])
}

func TestSyncFollowUpUsesMaxDelayAndCriticalUnion(t *testing.T) {
	slow := &model.Action{ID: uuid.New(), Name: "Slow", FollowUpDelayMinutes: 60, Active: true}
	fast := &model.Action{ID: uuid.New(), Name: "Fast", FollowUpDelayMinutes: 15, Critical: true, Active: true}

	cfg := &fakeConfigRepo{
		schedules: []*model.ReminderSchedule{newSchedule(slow.ID, "10:00"), newSchedule(fast.ID, "10:00")},
		actions:   map[uuid.UUID]*model.Action{slow.ID: slow, fast.ID: fast},
	}
	mappings := &fakeMappingRepo{}
	gateway := &fakeGateway{}

	svc := NewServiceWithClock(cfg, mappings, gateway, testLogger(), testMetrics(), fixedClock())
	results, err := svc.Sync(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.NotEmpty(t, results[0].FollowUpID)

	require.Len(t, gateway.scheduled, 2)
	initial, followUp := gateway.scheduled[0], gateway.scheduled[1]
	assert.Equal(t, initial.TriggerAt.Add(60*time.Minute), followUp.TriggerAt)
	assert.Equal(t, model.PriorityCritical, followUp.Priority)
	assert.Equal(t, model.CategoryFollowUp, followUp.Category)

	require.Len(t, mappings.created, 2)
	assert.Equal(t, model.NotificationTypeFollowUp, mappings.created[1].Type)
	assert.ElementsMatch(t, mappings.created[0].ActionIDs, mappings.created[1].ActionIDs)
}

func TestSyncSkipsFollowUpWhenNoDelayConfigured(t *testing.T) {
	action := &model.Action{ID: uuid.New(), Name: "Plain", Active: true}
	cfg := &fakeConfigRepo{
		schedules: []*model.ReminderSchedule{newSchedule(action.ID, "07:00")},
		actions:   map[uuid.UUID]*model.Action{action.ID: action},
	}
	gateway := &fakeGateway{}

	svc := NewServiceWithClock(cfg, &fakeMappingRepo{}, gateway, testLogger(), testMetrics(), fixedClock())
	results, err := svc.Sync(context.Background())
	require.NoError(t, err)
	assert.Empty(t, results[0].FollowUpID)
	assert.Len(t, gateway.scheduled, 1)
}

func TestSyncIsolatesBucketFailures(t *testing.T) {
	ok := &model.Action{ID: uuid.New(), Name: "OK", Active: true}
	bad := &model.Action{ID: uuid.New(), Name: "Bad", Active: true}

	cfg := &fakeConfigRepo{
		schedules: []*model.ReminderSchedule{newSchedule(bad.ID, "08:00"), newSchedule(ok.ID, "12:00")},
		actions:   map[uuid.UUID]*model.Action{ok.ID: ok, bad.ID: bad},
	}
	gateway := &fakeGateway{
		failOn: func(req *model.NotificationRequest) error {
			if req.Title == "Bad" {
				return fmt.Errorf("bridge rejected")
			}
			return nil
		},
	}
	mappings := &fakeMappingRepo{}

	svc := NewServiceWithClock(cfg, mappings, gateway, testLogger(), testMetrics(), fixedClock())
	results, err := svc.Sync(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Error(t, results[0].Err)
	assert.Empty(t, results[0].NotificationID)
	assert.NoError(t, results[1].Err)
	assert.NotEmpty(t, results[1].NotificationID)

	// The failed bucket must not leave a mapping behind.
	require.Len(t, mappings.created, 1)
	assert.Equal(t, ok.ID.String(), mappings.created[0].ActionIDs[0])
}

func TestSyncMappingWrittenOnlyAfterBridgeAccepts(t *testing.T) {
	action := &model.Action{ID: uuid.New(), Name: "Solo", Active: true}
	cfg := &fakeConfigRepo{
		schedules: []*model.ReminderSchedule{newSchedule(action.ID, "08:00")},
		actions:   map[uuid.UUID]*model.Action{action.ID: action},
	}
	gateway := &fakeGateway{failOn: func(*model.NotificationRequest) error { return fmt.Errorf("down") }}
	mappings := &fakeMappingRepo{}

	svc := NewServiceWithClock(cfg, mappings, gateway, testLogger(), testMetrics(), fixedClock())
	results, err := svc.Sync(context.Background())
	require.NoError(t, err)
	assert.Error(t, results[0].Err)
	assert.Empty(t, mappings.created)
}

func TestSyncSurvivesMappingInsertFailure(t *testing.T) {
	action := &model.Action{ID: uuid.New(), Name: "Solo", Active: true}
	cfg := &fakeConfigRepo{
		schedules: []*model.ReminderSchedule{newSchedule(action.ID, "08:00")},
		actions:   map[uuid.UUID]*model.Action{action.ID: action},
	}
	mappings := &fakeMappingRepo{createErr: fmt.Errorf("db down")}

	svc := NewServiceWithClock(cfg, mappings, &fakeGateway{}, testLogger(), testMetrics(), fixedClock())
	results, err := svc.Sync(context.Background())
	require.NoError(t, err)

	// The notification stays scheduled; an unmapped notification fails
	// safe toward being shown.
	assert.NoError(t, results[0].Err)
	assert.NotEmpty(t, results[0].NotificationID)
}

func TestSyncBodyPrefersScheduleDosage(t *testing.T) {
	action := &model.Action{ID: uuid.New(), Name: "Iron", Dosage: "10mg", Active: true}
	sched := newSchedule(action.ID, "08:00")
	sched.Dosage = "20mg"

	cfg := &fakeConfigRepo{
		schedules: []*model.ReminderSchedule{sched},
		actions:   map[uuid.UUID]*model.Action{action.ID: action},
	}
	gateway := &fakeGateway{}

	svc := NewServiceWithClock(cfg, &fakeMappingRepo{}, gateway, testLogger(), testMetrics(), fixedClock())
	_, err := svc.Sync(context.Background())
	require.NoError(t, err)

	require.Len(t, gateway.scheduled, 1)
	assert.Equal(t, "Iron (20mg)", gateway.scheduled[0].Body)
}
