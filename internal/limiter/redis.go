package limiter

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type RedisLimiter struct {
	redis redis.UniversalClient
	cfg   Config
}

func NewRedisLimiter(client redis.UniversalClient, cfg Config) *RedisLimiter {
	cfg = cfg.withDefaults()
	if cfg.Prefix == "" {
		cfg.Prefix = "mcourse:att:"
	}
	return &RedisLimiter{redis: client, cfg: cfg}
}

func (l *RedisLimiter) key(k string) string {
	return l.cfg.Prefix + k
}

func (l *RedisLimiter) Check(ctx context.Context, key string) error {
	count, err := l.redis.Get(ctx, l.key(key)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if count >= int64(l.cfg.MaxAttempts) {
		return ErrLimited
	}
	return nil
}

func (l *RedisLimiter) Increment(ctx context.Context, key string) error {
	k := l.key(key)
	count, err := l.redis.Incr(ctx, k).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	// fixed window: only the first hit sets the ttl
	if count == 1 {
		if err := l.redis.Expire(ctx, k, l.cfg.Window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	if count >= int64(l.cfg.MaxAttempts) {
		return ErrLimited
	}
	return nil
}

func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	if err := l.redis.Del(ctx, l.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
