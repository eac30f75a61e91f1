package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Limiter implements a fixed-window counter over Redis: INCR the window
// key, set its expiry on first hit, reject past the threshold. When Redis
// is unreachable the limiter degrades open with a warning rather than
// failing the request.
type Limiter struct {
	client *redis.Client
	logger *zap.Logger
}

// NewLimiter builds a limiter over the shared Redis client.
func NewLimiter(client *redis.Client, logger *zap.Logger) *Limiter {
	return &Limiter{client: client, logger: logger}
}

// Allow reports whether another request is permitted for the key within the
// current window.
func (l *Limiter) Allow(ctx context.Context, key string, max int, window time.Duration) bool {
	if l == nil || l.client == nil || max <= 0 {
		return true
	}

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		l.logger.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
		return true
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, window).Err(); err != nil {
			l.logger.Warn("rate limiter expire failed", zap.String("key", key), zap.Error(err))
		}
	}
	return count <= int64(max)
}
