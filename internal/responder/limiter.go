package responder

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"call-receptionist/pkg/logger"
	"call-receptionist/pkg/utils"
)

// RedisLimiter shares the per-tenant cap across every API instance.
type RedisLimiter struct {
	rdb   redis.Scripter
	limit int
	ttl   time.Duration
}

// NewRedisLimiter caps in-flight generations per tenant at limit. ttl bounds
// how long a slot leaked by a crashed instance is held.
func NewRedisLimiter(rdb redis.Scripter, limit int, ttl time.Duration) *RedisLimiter {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLimiter{rdb: rdb, limit: limit, ttl: ttl}
}

func (l *RedisLimiter) Acquire(ctx context.Context, tenantID string) (func(), bool, error) {
	key := utils.CapKey("responder", tenantID)
	ok, err := utils.AcquireConcurrencyCap(ctx, l.rdb, key, l.limit, l.ttl)
	if err != nil || !ok {
		return nil, ok, err
	}
	release := func() {
		// Release on a fresh context; the turn's may already be done.
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if err := utils.ReleaseConcurrencyCap(rctx, l.rdb, key); err != nil {
			logger.From(ctx).Warn("responder cap release failed", "tenant_id", tenantID, "err", err)
		}
	}
	return release, true, nil
}
