package migration

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/reminder-engine/internal/model"
	"github.com/jwalitptl/reminder-engine/internal/service/scheduler"
	"github.com/jwalitptl/reminder-engine/pkg/errors"
	"github.com/jwalitptl/reminder-engine/pkg/logger"
)

type fakeState struct {
	complete map[string]bool
	isErr    error
	markErr  error
}

func (f *fakeState) IsComplete(_ context.Context, name string) (bool, error) {
	return f.complete[name], f.isErr
}

func (f *fakeState) MarkComplete(_ context.Context, name string) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.complete[name] = true
	return nil
}

type fakeGateway struct {
	pending     []*model.PendingNotification
	pendingErr  error
	cancelled   []string
	cancelErrOn map[string]error
}

func (f *fakeGateway) Schedule(_ context.Context, _ *model.NotificationRequest) (string, error) {
	return "", nil
}
func (f *fakeGateway) Cancel(_ context.Context, id string) error {
	if err := f.cancelErrOn[id]; err != nil {
		return err
	}
	f.cancelled = append(f.cancelled, id)
	return nil
}
func (f *fakeGateway) Presented(_ context.Context) ([]*model.PresentedNotification, error) {
	return nil, nil
}
func (f *fakeGateway) Pending(_ context.Context) ([]*model.PendingNotification, error) {
	return f.pending, f.pendingErr
}
func (f *fakeGateway) Dismiss(_ context.Context, _ string) error { return nil }

type fakeScheduler struct {
	syncs   int
	syncErr error
}

func (f *fakeScheduler) Sync(_ context.Context) ([]*scheduler.GroupResult, error) {
	f.syncs++
	return nil, f.syncErr
}

func pendingReminder(id string, recurring bool) *model.PendingNotification {
	return &model.PendingNotification{
		ID:        id,
		Category:  model.CategoryReminder,
		TriggerAt: time.Now().Add(time.Hour),
		Recurring: recurring,
	}
}

func newRunner(state *fakeState, gateway *fakeGateway, sched *fakeScheduler) *Runner {
	log := logger.NewLogger(&logger.Config{Level: logger.FatalLevel, Output: io.Discard})
	return NewRunner(state, gateway, sched, log)
}

func TestRunConvertsLegacyNotifications(t *testing.T) {
	state := &fakeState{complete: make(map[string]bool)}
	gateway := &fakeGateway{
		pending: []*model.PendingNotification{
			pendingReminder("legacy-1", true),
			pendingReminder("legacy-2", true),
			{ID: "cal-1", Category: "calendar", Recurring: true},
		},
	}
	sched := &fakeScheduler{}

	err := newRunner(state, gateway, sched).Run(context.Background())
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"legacy-1", "legacy-2"}, gateway.cancelled)
	assert.Equal(t, 1, sched.syncs)
	assert.True(t, state.complete[MigrationName])
}

func TestRunIsIdempotent(t *testing.T) {
	state := &fakeState{complete: map[string]bool{MigrationName: true}}
	gateway := &fakeGateway{pending: []*model.PendingNotification{pendingReminder("legacy-1", true)}}
	sched := &fakeScheduler{}

	err := newRunner(state, gateway, sched).Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, gateway.cancelled)
	assert.Zero(t, sched.syncs)
}

func TestRunToleratesCancelFailures(t *testing.T) {
	state := &fakeState{complete: make(map[string]bool)}
	gateway := &fakeGateway{
		pending: []*model.PendingNotification{
			pendingReminder("legacy-1", true),
			pendingReminder("legacy-2", true),
		},
		cancelErrOn: map[string]error{"legacy-1": fmt.Errorf("already fired")},
	}
	sched := &fakeScheduler{}

	err := newRunner(state, gateway, sched).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"legacy-2"}, gateway.cancelled)
	assert.True(t, state.complete[MigrationName])
}

func TestRunMarksCompleteDespiteSyncFailure(t *testing.T) {
	state := &fakeState{complete: make(map[string]bool)}
	gateway := &fakeGateway{pending: []*model.PendingNotification{pendingReminder("legacy-1", true)}}
	sched := &fakeScheduler{syncErr: fmt.Errorf("bridge down")}

	err := newRunner(state, gateway, sched).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, state.complete[MigrationName])
}

func TestRunRetriesWhenPendingListUnavailable(t *testing.T) {
	state := &fakeState{complete: make(map[string]bool)}
	gateway := &fakeGateway{pendingErr: fmt.Errorf("bridge down")}
	sched := &fakeScheduler{}

	err := newRunner(state, gateway, sched).Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrTransientIO, errors.CodeOf(err))

	// Flag stays unset so the next start retries from scratch.
	assert.False(t, state.complete[MigrationName])
	assert.Zero(t, sched.syncs)
}
