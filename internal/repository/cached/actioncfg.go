package cached

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/reminder-engine/internal/model"
	"github.com/jwalitptl/reminder-engine/internal/repository"
)

// ActionConfigRepository fronts action/schedule definition reads with a
// short TTL cache. Only configuration data is cached here; logged-status
// queries go to the action log directly and are never cached.
type ActionConfigRepository struct {
	inner repository.ActionConfigRepository
	cache *cache.Cache
}

func NewActionConfigRepository(inner repository.ActionConfigRepository, ttl, cleanup time.Duration) *ActionConfigRepository {
	return &ActionConfigRepository{
		inner: inner,
		cache: cache.New(ttl, cleanup),
	}
}

func (r *ActionConfigRepository) ListActiveSchedules(ctx context.Context) ([]*model.ReminderSchedule, error) {
	// Full listings always hit the store: the scheduler must see the
	// exact current configuration when it syncs.
	return r.inner.ListActiveSchedules(ctx)
}

func (r *ActionConfigRepository) GetAction(ctx context.Context, id uuid.UUID) (*model.Action, error) {
	key := "action:" + id.String()
	if v, ok := r.cache.Get(key); ok {
		return v.(*model.Action), nil
	}

	action, err := r.inner.GetAction(ctx, id)
	if err != nil {
		return nil, err
	}
	if action != nil {
		r.cache.Set(key, action, cache.DefaultExpiration)
	}
	return action, nil
}

func (r *ActionConfigRepository) GetSchedule(ctx context.Context, id uuid.UUID) (*model.ReminderSchedule, error) {
	key := "schedule:" + id.String()
	if v, ok := r.cache.Get(key); ok {
		return v.(*model.ReminderSchedule), nil
	}

	schedule, err := r.inner.GetSchedule(ctx, id)
	if err != nil {
		return nil, err
	}
	if schedule != nil {
		r.cache.Set(key, schedule, cache.DefaultExpiration)
	}
	return schedule, nil
}

// Flush drops all cached definitions, e.g. after a configuration change.
func (r *ActionConfigRepository) Flush() {
	r.cache.Flush()
}
