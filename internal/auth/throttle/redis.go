package throttle

import (
	"context"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Fixed window: the first hit sets the expiry, later hits only count.
// Returns {allowed, count, pttl_ms}.
const trackScript = `
local limit = tonumber(ARGV[1])
local ttl = tonumber(ARGV[2])

local count = tonumber(redis.call("GET", KEYS[1]) or "0")
if count >= limit then
  return {0, count, redis.call("PTTL", KEYS[1])}
end

count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ttl)
end

return {1, count, redis.call("PTTL", KEYS[1])}
`

// RedisThrottler shares windows between every process pointed at the same
// Redis. Same contract as MemoryThrottler.
type RedisThrottler struct {
	client redis.UniversalClient
	script *redis.Script
	prefix string
	cfg    Config
}

func NewRedis(client redis.UniversalClient, prefix string, cfg Config) *RedisThrottler {
	if prefix == "" {
		prefix = "throttle"
	}
	return &RedisThrottler{
		client: client,
		script: redis.NewScript(trackScript),
		prefix: prefix,
		cfg:    cfg.withDefaults(),
	}
}

func (r *RedisThrottler) key(id string) string { return r.prefix + ":" + id }

func (r *RedisThrottler) IsAllowed(ctx context.Context, id string) (bool, error) {
	remaining, err := r.RemainingRequests(ctx, id)
	if err != nil {
		return false, err
	}
	return remaining > 0, nil
}

func (r *RedisThrottler) TrackRequest(ctx context.Context, id string) error {
	if err := checkIdentifier(id); err != nil {
		return err
	}

	res, err := r.script.Run(ctx, r.client, []string{r.key(id)},
		r.cfg.Limit,
		r.cfg.TTL.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return fmt.Errorf("throttle: redis track: %w", err)
	}
	if len(res) < 3 {
		return errors.New("throttle: invalid script response")
	}

	if res[0] == 1 {
		return nil
	}

	retry := time.Duration(res[2]) * time.Millisecond
	if retry < 0 {
		// key vanished between calls; a fresh window starts next time
		retry = 0
	}
	return &Error{Identifier: id, Limit: r.cfg.Limit, RetryAfter: retry}
}

func (r *RedisThrottler) RemainingRequests(ctx context.Context, id string) (int, error) {
	if err := checkIdentifier(id); err != nil {
		return 0, err
	}

	count, err := r.client.Get(ctx, r.key(id)).Int()
	switch {
	case errors.Is(err, redis.Nil):
		return r.cfg.Limit, nil
	case err != nil:
		return 0, fmt.Errorf("throttle: redis get: %w", err)
	}
	return max(r.cfg.Limit-count, 0), nil
}

func (r *RedisThrottler) Reset(ctx context.Context, id string) error {
	if err := checkIdentifier(id); err != nil {
		return err
	}
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("throttle: redis reset: %w", err)
	}
	return nil
}
