// Package ratelimit implements a token bucket limiter backed by a shared
// Redis store so limits hold across replicas
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable indicates the shared store could not answer; the
// limiter fails closed when this happens
var ErrUnavailable = errors.New("rate limit store unavailable")

// tokenBucketScript refills and spends in a single server-side script so
// concurrent requests cannot double-spend. The key holds the token count
// and the last refill timestamp; the TTL covers two full refills so idle
// buckets expire on their own.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refill_rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local requested = tonumber(ARGV[4])

local data = redis.call("HMGET", key, "tokens", "last")
local tokens = tonumber(data[1]) or capacity
local last = tonumber(data[2]) or now

local delta = math.max(0, now - last)
local new_tokens = math.min(capacity, tokens + delta * refill_rate)

local allowed = 0
if new_tokens >= requested then
  allowed = 1
  new_tokens = new_tokens - requested
end

redis.call("HMSET", key, "tokens", tostring(new_tokens), "last", tostring(now))
local ttl = math.ceil((capacity / math.max(refill_rate, 1e-9)) * 2)
redis.call("EXPIRE", key, ttl)
return {allowed, math.floor(new_tokens)}
`)

// Decision is the outcome of a single bucket check, with everything the
// transport layer needs for the rate limit headers
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter checks token buckets in Redis. A nil client disables the
// limiter entirely and every check is allowed.
type Limiter struct {
	client  redis.UniversalClient
	timeout time.Duration
}

// NewLimiter creates a limiter on the given client. Pass nil to disable.
func NewLimiter(client redis.UniversalClient, timeout time.Duration) *Limiter {
	return &Limiter{client: client, timeout: timeout}
}

// Enabled reports whether a store is configured
func (l *Limiter) Enabled() bool {
	return l.client != nil
}

// Allow spends one token from the bucket at key. When the store cannot
// answer the request is denied and the error wraps ErrUnavailable; a
// slow store must not stall traffic, so the call is bounded by the
// configured timeout.
func (l *Limiter) Allow(ctx context.Context, key string, capacity int, refillPerSec float64) (*Decision, error) {
	retryAfter := retryAfter(capacity, refillPerSec)

	if l.client == nil {
		return &Decision{Allowed: true, Limit: capacity, Remaining: capacity - 1, RetryAfter: retryAfter}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	now := float64(time.Now().UnixNano()) / float64(time.Second)
	res, err := tokenBucketScript.Run(ctx, l.client, []string{key}, capacity, refillPerSec, now, 1).Int64Slice()
	if err != nil {
		return &Decision{Allowed: false, Limit: capacity, RetryAfter: retryAfter},
			fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(res) != 2 {
		return &Decision{Allowed: false, Limit: capacity, RetryAfter: retryAfter},
			fmt.Errorf("%w: unexpected script result", ErrUnavailable)
	}

	return &Decision{
		Allowed:    res[0] == 1,
		Limit:      capacity,
		Remaining:  int(res[1]),
		RetryAfter: retryAfter,
	}, nil
}

// IPKey is the bucket key for the global per-client limit
func IPKey(ip string) string {
	return "rl:ip:" + ip
}

// RouteKey is the bucket key for a per-route, per-client limit
func RouteKey(path, ip string) string {
	return fmt.Sprintf("rl:route:%s:ip:%s", path, ip)
}

func retryAfter(capacity int, refillPerSec float64) time.Duration {
	if refillPerSec < 1 {
		refillPerSec = 1
	}
	seconds := int(float64(capacity) / refillPerSec)
	if seconds < 1 {
		seconds = 1
	}
	return time.Duration(seconds) * time.Second
}
