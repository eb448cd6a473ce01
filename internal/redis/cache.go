package redisclient

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/medcore/clinic-scheduling/internal/schedule"
)

// AvailabilityCache drops cached slot listings for a resource whenever
// one of its bookings changes. The cache is advisory only; failures are
// logged and never surfaced.
type AvailabilityCache struct {
	client *redis.Client
	log    zerolog.Logger
}

func NewAvailabilityCache(client *redis.Client, log zerolog.Logger) *AvailabilityCache {
	return &AvailabilityCache{client: client, log: log}
}

func (c *AvailabilityCache) Invalidate(ctx context.Context, resources []schedule.Resource) {
	if len(resources) == 0 {
		return
	}
	keys := make([]string, 0, len(resources))
	for _, res := range resources {
		keys = append(keys, fmt.Sprintf("availability:%s:%s", res.Kind, res.ID))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn().Err(err).Strs("keys", keys).Msg("availability cache invalidation failed")
	}
}
