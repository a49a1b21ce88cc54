package persistence

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	applicationCountKey = "applications:total"
	applicationCountTTL = 30 * time.Second
)

// ApplicationCountCache keeps the applications total count in Redis so the
// admin listing does not COUNT the table on every page. A miss or an
// unreachable Redis degrades to the database count.
type ApplicationCountCache struct {
	redis  *Redis
	logger *zap.Logger
}

// NewApplicationCountCache wraps the shared Redis client.
func NewApplicationCountCache(redis *Redis, logger *zap.Logger) *ApplicationCountCache {
	return &ApplicationCountCache{redis: redis, logger: logger}
}

// Get returns the cached total and whether it was present.
func (c *ApplicationCountCache) Get(ctx context.Context) (int64, bool) {
	if c == nil || c.redis == nil || c.redis.Client == nil {
		return 0, false
	}
	val, err := c.redis.Client.Get(ctx, applicationCountKey).Result()
	if err != nil {
		return 0, false
	}
	total, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false
	}
	return total, true
}

// Set stores the total with a short TTL.
func (c *ApplicationCountCache) Set(ctx context.Context, total int64) {
	if c == nil || c.redis == nil || c.redis.Client == nil {
		return
	}
	if err := c.redis.Client.Set(ctx, applicationCountKey, total, applicationCountTTL).Err(); err != nil {
		c.logger.Debug("count cache set failed", zap.Error(err))
	}
}

// Invalidate drops the cached total after a write changes it.
func (c *ApplicationCountCache) Invalidate(ctx context.Context) {
	if c == nil || c.redis == nil || c.redis.Client == nil {
		return
	}
	if err := c.redis.Client.Del(ctx, applicationCountKey).Err(); err != nil {
		c.logger.Debug("count cache invalidate failed", zap.Error(err))
	}
}
