package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// windowScript increments the counter and attaches the window TTL in one
// atomic step. A key found without a TTL gets one, so a counter can never
// outlive its window.
var windowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// RedisLimiter is a fixed-window counter kept in Redis so every instance
// sees the same budget.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration, prefix string) *RedisLimiter {
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisLimiter{client: client, limit: limit, window: window, prefix: prefix}
}

// Allow fails open: on a Redis error it returns true along with the error.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)

	count, err := windowScript.Run(ctx, l.client, []string{redisKey}, l.window.Milliseconds()).Int64()
	if err != nil {
		return true, fmt.Errorf("redis window: %w", err)
	}

	return count <= int64(l.limit), nil
}

func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, fmt.Sprintf("%s:%s", l.prefix, key)).Err()
}
