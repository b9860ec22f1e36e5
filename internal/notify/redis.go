package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwalitptl/reminder-engine/internal/model"
	"github.com/jwalitptl/reminder-engine/pkg/circuitbreaker"
	"github.com/jwalitptl/reminder-engine/pkg/logger"
)

const (
	requestQueue   = "notify:requests"
	replyKeyPrefix = "notify:reply:"
)

// queueClient is the slice of the redis API the bridge relies on.
type queueClient interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
	Close() error
}

// RedisGateway bridges notification calls to the on-device agent over a
// redis request/reply queue. Each call pushes a command onto the request
// list and blocks on a per-request reply key, so a schedule call returns
// only after the agent has confirmed the notification was accepted.
type RedisGateway struct {
	client  queueClient
	cb      *circuitbreaker.CircuitBreaker
	logger  *logger.Logger
	timeout time.Duration
}

type Config struct {
	URL          string
	MaxRetries   int
	RetryBackoff time.Duration
	PoolSize     int
	MinIdleConns int
	CallTimeout  time.Duration
}

type command struct {
	ID      string          `json:"id"`
	Op      string          `json:"op"`
	ReplyTo string          `json:"reply_to"`
	Body    json.RawMessage `json:"body,omitempty"`
}

type reply struct {
	OK             bool            `json:"ok"`
	Error          string          `json:"error,omitempty"`
	NotificationID string          `json:"notification_id,omitempty"`
	Body           json.RawMessage `json:"body,omitempty"`
}

func NewRedisGateway(config Config, log *logger.Logger) (*RedisGateway, error) {
	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.MaxRetries = config.MaxRetries
	opts.MinRetryBackoff = config.RetryBackoff
	opts.PoolSize = config.PoolSize
	opts.MinIdleConns = config.MinIdleConns

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	timeout := config.CallTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	cb := circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
		Name:             "notify-bridge",
		FailureThreshold: 5,
		Cooldown:         10 * time.Second,
	})

	return &RedisGateway{
		client:  client,
		cb:      cb,
		logger:  log,
		timeout: timeout,
	}, nil
}

func (g *RedisGateway) call(ctx context.Context, op string, body interface{}) (*reply, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s command: %w", op, err)
	}

	cmd := command{
		ID:      uuid.New().String(),
		Op:      op,
		ReplyTo: replyKeyPrefix + uuid.New().String(),
		Body:    raw,
	}
	payload, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal bridge command: %w", err)
	}

	var rep reply
	err = g.cb.Execute(func() error {
		if err := g.client.RPush(ctx, requestQueue, payload).Err(); err != nil {
			return fmt.Errorf("failed to push %s command: %w", op, err)
		}

		res, err := g.client.BLPop(ctx, g.timeout, cmd.ReplyTo).Result()
		if err != nil {
			return fmt.Errorf("failed to receive %s reply: %w", op, err)
		}
		// BLPop returns [key, value]
		if len(res) < 2 {
			return fmt.Errorf("malformed %s reply", op)
		}
		if err := json.Unmarshal([]byte(res[1]), &rep); err != nil {
			return fmt.Errorf("failed to decode %s reply: %w", op, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !rep.OK {
		return nil, fmt.Errorf("bridge rejected %s: %s", op, rep.Error)
	}
	return &rep, nil
}

func (g *RedisGateway) Schedule(ctx context.Context, req *model.NotificationRequest) (string, error) {
	rep, err := g.call(ctx, "schedule", req)
	if err != nil {
		return "", err
	}
	if rep.NotificationID == "" {
		return "", fmt.Errorf("bridge accepted schedule without a notification id")
	}
	return rep.NotificationID, nil
}

func (g *RedisGateway) Cancel(ctx context.Context, notificationID string) error {
	_, err := g.call(ctx, "cancel", map[string]string{"notification_id": notificationID})
	return err
}

func (g *RedisGateway) Presented(ctx context.Context) ([]*model.PresentedNotification, error) {
	rep, err := g.call(ctx, "presented", nil)
	if err != nil {
		return nil, err
	}

	var presented []*model.PresentedNotification
	if err := json.Unmarshal(rep.Body, &presented); err != nil {
		return nil, fmt.Errorf("failed to decode presented notifications: %w", err)
	}
	return presented, nil
}

func (g *RedisGateway) Pending(ctx context.Context) ([]*model.PendingNotification, error) {
	rep, err := g.call(ctx, "pending", nil)
	if err != nil {
		return nil, err
	}

	var pending []*model.PendingNotification
	if err := json.Unmarshal(rep.Body, &pending); err != nil {
		return nil, fmt.Errorf("failed to decode pending notifications: %w", err)
	}
	return pending, nil
}

func (g *RedisGateway) Dismiss(ctx context.Context, notificationID string) error {
	_, err := g.call(ctx, "dismiss", map[string]string{"notification_id": notificationID})
	return err
}

func (g *RedisGateway) Close() error {
	return g.client.Close()
}
