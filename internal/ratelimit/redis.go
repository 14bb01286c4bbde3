package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// takeScript is the atomic fixed-window check-and-increment. The read, the
// limit comparison and the increment happen inside one script execution, so
// two concurrent requests can never both claim the last admission slot. A
// denied call leaves the counter untouched. The key expires with the window,
// which is what makes the reset lazy: the first INCR after expiry recreates
// the counter at 1 and re-arms the TTL.
var takeScript = redis.NewScript(`
local limit = tonumber(ARGV[1])
local window_ms = tonumber(ARGV[2])

local count = tonumber(redis.call('GET', KEYS[1]) or '0')
if count >= limit then
    local ttl = redis.call('PTTL', KEYS[1])
    if ttl < 0 then
        ttl = window_ms
    end
    return {0, count, ttl}
end

count = redis.call('INCR', KEYS[1])
if count == 1 then
    redis.call('PEXPIRE', KEYS[1], window_ms)
end
local ttl = redis.call('PTTL', KEYS[1])
return {1, count, ttl}
`)

// RedisStore backs window counters with a shared Redis instance so every
// gateway replica enforces the same global quota.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

var _ Store = (*RedisStore)(nil)

func (s *RedisStore) Take(ctx context.Context, key string, limit int, window time.Duration) (Outcome, error) {
	res, err := takeScript.Run(ctx, s.client, []string{key}, limit, window.Milliseconds()).Slice()
	if err != nil {
		return Outcome{}, fmt.Errorf("rate limit script failed: %w", err)
	}
	if len(res) != 3 {
		return Outcome{}, fmt.Errorf("rate limit script returned %d values, expected 3", len(res))
	}

	allowed, ok1 := res[0].(int64)
	count, ok2 := res[1].(int64)
	ttlMillis, ok3 := res[2].(int64)
	if !ok1 || !ok2 || !ok3 {
		return Outcome{}, fmt.Errorf("rate limit script returned unexpected types: %v", res)
	}

	return Outcome{
		Allowed: allowed == 1,
		Count:   int(count),
		ResetAt: time.Now().Add(time.Duration(ttlMillis) * time.Millisecond),
	}, nil
}

// Usage scans the live counter keys and reports admissions per counter key,
// for the periodic usage snapshot task.
func (s *RedisStore) Usage(ctx context.Context) (map[string]int64, error) {
	usage := make(map[string]int64)

	iter := s.client.Scan(ctx, 0, counterKey("*"), 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		count, err := s.client.Get(ctx, key).Int64()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			return nil, fmt.Errorf("failed to read counter %s: %w", key, err)
		}
		usage[key] = count
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("counter scan failed: %w", err)
	}

	return usage, nil
}

// PartnerFromCounterKey strips the counter namespace, returning the partner
// identifier a counter key belongs to.
func PartnerFromCounterKey(key string) string {
	return strings.TrimPrefix(key, "ratelimit:")
}
