package worker

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/reminder-engine/internal/model"
	"github.com/jwalitptl/reminder-engine/pkg/logger"
	"github.com/jwalitptl/reminder-engine/pkg/metrics"
)

type fakeMappingRepo struct {
	stale    []*model.NotificationMapping
	staleErr error
	deleted  []string
}

func (f *fakeMappingRepo) Create(_ context.Context, _ *model.NotificationMapping) error { return nil }
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
	return f.stale, f.staleErr
}
func (f *fakeMappingRepo) Delete(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeGateway struct {
	presented []*model.PresentedNotification
	pending   []*model.PendingNotification
}

func (f *fakeGateway) Schedule(_ context.Context, _ *model.NotificationRequest) (string, error) {
	return "", nil
}
func (f *fakeGateway) Cancel(_ context.Context, _ string) error { return nil }
func (f *fakeGateway) Presented(_ context.Context) ([]*model.PresentedNotification, error) {
	return f.presented, nil
}
func (f *fakeGateway) Pending(_ context.Context) ([]*model.PendingNotification, error) {
	return f.pending, nil
}
func (f *fakeGateway) Dismiss(_ context.Context, _ string) error { return nil }

func testConfig() ReconcilerConfig {
	return ReconcilerConfig{BatchSize: 10, PollInterval: time.Minute, GracePeriod: time.Hour}
}

func newTestReconciler(mappings *fakeMappingRepo, gateway *fakeGateway) *Reconciler {
	log := logger.NewLogger(&logger.Config{Level: logger.FatalLevel, Output: io.Discard})
	m := metrics.NewMetricsWith(prometheus.NewRegistry(), "test")
	return NewReconciler(mappings, gateway, testConfig(), log, m)
}

func staleMapping(id string) *model.NotificationMapping {
	return &model.NotificationMapping{
		NotificationID: id,
		ScheduledFor:   time.Now().Add(-48 * time.Hour),
	}
}

func TestSweepRemovesOrphanedMappings(t *testing.T) {
	mappings := &fakeMappingRepo{
		stale: []*model.NotificationMapping{staleMapping("gone-1"), staleMapping("gone-2")},
	}

	err := newTestReconciler(mappings, &fakeGateway{}).Sweep(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"gone-1", "gone-2"}, mappings.deleted)
}

func TestSweepKeepsMappingsWithLiveNotifications(t *testing.T) {
	mappings := &fakeMappingRepo{
		stale: []*model.NotificationMapping{
			staleMapping("in-tray"),
			staleMapping("still-pending"),
			staleMapping("gone"),
		},
	}
	gateway := &fakeGateway{
		presented: []*model.PresentedNotification{{ID: "in-tray"}},
		pending:   []*model.PendingNotification{{ID: "still-pending"}},
	}

	err := newTestReconciler(mappings, gateway).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"gone"}, mappings.deleted)
}

func TestSweepNoopWhenNothingStale(t *testing.T) {
	mappings := &fakeMappingRepo{}
	err := newTestReconciler(mappings, &fakeGateway{}).Sweep(context.Background())
	require.NoError(t, err)
	assert.Empty(t, mappings.deleted)
}

func TestSweepPropagatesListFailure(t *testing.T) {
	mappings := &fakeMappingRepo{staleErr: fmt.Errorf("db down")}
	err := newTestReconciler(mappings, &fakeGateway{}).Sweep(context.Background())
	assert.Error(t, err)
}

func TestNewReconcilerValidatesConfig(t *testing.T) {
	log := logger.NewLogger(&logger.Config{Level: logger.FatalLevel, Output: io.Discard})
	m := metrics.NewMetricsWith(prometheus.NewRegistry(), "test")

	assert.Panics(t, func() {
		NewReconciler(&fakeMappingRepo{}, &fakeGateway{}, ReconcilerConfig{PollInterval: time.Minute, GracePeriod: time.Hour}, log, m)
	})
	assert.Panics(t, func() {
		NewReconciler(&fakeMappingRepo{}, &fakeGateway{}, ReconcilerConfig{BatchSize: 1, GracePeriod: time.Hour}, log, m)
	})
	assert.Panics(t, func() {
		NewReconciler(&fakeMappingRepo{}, &fakeGateway{}, ReconcilerConfig{BatchSize: 1, PollInterval: time.Minute}, log, m)
	})
}
