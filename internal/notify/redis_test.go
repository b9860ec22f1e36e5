package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/reminder-engine/internal/model"
	"github.com/jwalitptl/reminder-engine/pkg/circuitbreaker"
	"github.com/jwalitptl/reminder-engine/pkg/logger"
)

// fakeQueue plays the on-device agent: it records pushed commands and
// answers the blocking pop on the per-request reply key.
type fakeQueue struct {
	pushed     []command
	popErr     error
	shortReply bool
	answer     func(cmd command) reply
}

func (f *fakeQueue) RPush(_ context.Context, _ string, values ...interface{}) *redis.IntCmd {
	for _, v := range values {
		raw, ok := v.([]byte)
		if !ok {
			return redis.NewIntResult(0, fmt.Errorf("unexpected push value %T", v))
		}
		var cmd command
		if err := json.Unmarshal(raw, &cmd); err != nil {
			return redis.NewIntResult(0, err)
		}
		f.pushed = append(f.pushed, cmd)
	}
	return redis.NewIntResult(int64(len(values)), nil)
}

func (f *fakeQueue) BLPop(_ context.Context, _ time.Duration, keys ...string) *redis.StringSliceCmd {
	if f.popErr != nil {
		return redis.NewStringSliceResult(nil, f.popErr)
	}
	if f.shortReply {
		return redis.NewStringSliceResult([]string{keys[0]}, nil)
	}
	last := f.pushed[len(f.pushed)-1]
	raw, err := json.Marshal(f.answer(last))
	if err != nil {
		return redis.NewStringSliceResult(nil, err)
	}
	return redis.NewStringSliceResult([]string{keys[0], string(raw)}, nil)
}

func (f *fakeQueue) Close() error { return nil }

func newTestGateway(q queueClient) *RedisGateway {
	return &RedisGateway{
		client: q,
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:             "test-bridge",
			FailureThreshold: 5,
			Cooldown:         time.Second,
		}),
		logger:  logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard}),
		timeout: time.Second,
	}
}

func TestScheduleRoundTrip(t *testing.T) {
	q := &fakeQueue{answer: func(command) reply {
		return reply{OK: true, NotificationID: "n-1"}
	}}
	gw := newTestGateway(q)

	req := &model.NotificationRequest{
		Title:    "Vitamin D",
		Category: model.CategoryReminder,
	}
	id, err := gw.Schedule(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "n-1", id)

	require.Len(t, q.pushed, 1)
	cmd := q.pushed[0]
	assert.Equal(t, "schedule", cmd.Op)
	assert.True(t, strings.HasPrefix(cmd.ReplyTo, replyKeyPrefix))

	var sent model.NotificationRequest
	require.NoError(t, json.Unmarshal(cmd.Body, &sent))
	assert.Equal(t, "Vitamin D", sent.Title)
	assert.Equal(t, model.CategoryReminder, sent.Category)
}

func TestScheduleRequiresNotificationID(t *testing.T) {
	q := &fakeQueue{answer: func(command) reply {
		return reply{OK: true}
	}}
	gw := newTestGateway(q)

	_, err := gw.Schedule(context.Background(), &model.NotificationRequest{Title: "Iron"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without a notification id")
}

func TestBridgeRejectionSurfacesAgentError(t *testing.T) {
	q := &fakeQueue{answer: func(command) reply {
		return reply{OK: false, Error: "agent offline"}
	}}
	gw := newTestGateway(q)

	err := gw.Cancel(context.Background(), "n-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agent offline")
}

func TestMalformedReplyRejected(t *testing.T) {
	q := &fakeQueue{shortReply: true}
	gw := newTestGateway(q)

	err := gw.Dismiss(context.Background(), "n-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed")
}

func TestReplyTimeoutPropagates(t *testing.T) {
	q := &fakeQueue{popErr: redis.Nil}
	gw := newTestGateway(q)

	_, err := gw.Presented(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to receive presented reply")
}

func TestPresentedDecodesTrayListing(t *testing.T) {
	tray := []*model.PresentedNotification{
		{ID: "n-1", Category: model.CategoryReminder},
		{ID: "n-2", Category: model.CategoryGroupedReminder},
	}
	body, err := json.Marshal(tray)
	require.NoError(t, err)

	q := &fakeQueue{answer: func(cmd command) reply {
		return reply{OK: true, Body: body}
	}}
	gw := newTestGateway(q)

	presented, err := gw.Presented(context.Background())
	require.NoError(t, err)
	require.Len(t, presented, 2)
	assert.Equal(t, "n-1", presented[0].ID)
	assert.Equal(t, model.CategoryGroupedReminder, presented[1].Category)
}

func TestPendingDecodesRecurringFlag(t *testing.T) {
	body, err := json.Marshal([]*model.PendingNotification{
		{ID: "n-legacy", Category: model.CategoryReminder, Recurring: true},
	})
	require.NoError(t, err)

	q := &fakeQueue{answer: func(command) reply {
		return reply{OK: true, Body: body}
	}}
	gw := newTestGateway(q)

	pending, err := gw.Pending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.True(t, pending[0].Recurring)
}
