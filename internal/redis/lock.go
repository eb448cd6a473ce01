package redisclient

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/medcore/clinic-scheduling/internal/schedule"
)

var (
	ErrLockNotAcquired = errors.New("booking lock not acquired")
)

// resourceLocker guards booking critical sections with one Redis key per
// (kind, id) resource. Keys are acquired in sorted order so two requests
// locking overlapping resource sets cannot deadlock.
type resourceLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewResourceLocker creates a schedule.ResourceLocker backed by Redis
// SetNX keys.
func NewResourceLocker(client *redis.Client, ttl time.Duration) schedule.ResourceLocker {
	return &resourceLocker{client: client, ttl: ttl}
}

func (l *resourceLocker) WithResourceLock(ctx context.Context, resources []schedule.Resource, fn func(ctx context.Context) error) error {
	keys := make([]string, 0, len(resources))
	for _, res := range resources {
		keys = append(keys, fmt.Sprintf("lock:%s:%s", res.Kind, res.ID))
	}
	sort.Strings(keys)

	token := uuid.NewString()

	var held []string
	defer func() {
		for _, key := range held {
			_ = l.release(ctx, key, token)
		}
	}()

	for _, key := range keys {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if !ok {
			return ErrLockNotAcquired
		}
		held = append(held, key)
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *resourceLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock %s: %w", key, err)
	}
	return nil
}
