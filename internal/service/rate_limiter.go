package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// slidingWindowScript implements sliding window rate limiting in a single
// round trip. Returns {allowed, resetAt}. The member nonce is supplied by the
// caller: Redis reseeds the script's math.random identically on every
// execution, so same-second requests would collapse into one zset member if
// the script generated the nonce itself.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

local windowStart = now - window

redis.call('ZREMRANGEBYSCORE', key, '-inf', windowStart)

local count = redis.call('ZCARD', key)

if count >= limit then
    local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
    local resetAt = 0
    if #oldest >= 2 then
        resetAt = tonumber(oldest[2]) + window
    else
        resetAt = now + window
    end
    return {0, resetAt}
end

redis.call('ZADD', key, now, ARGV[4])
redis.call('EXPIRE', key, window + 10)

local resetAt = now + window
return {1, resetAt}
`)

// Limit is a request budget over a rolling window.
type Limit struct {
	Requests int
	Window   time.Duration
}

// PerMinute returns a Limit of n requests per rolling minute.
func PerMinute(n int) Limit {
	return Limit{Requests: n, Window: time.Minute}
}

// RateLimiter enforces per-key request budgets backed by Redis so limits
// hold across server instances.
type RateLimiter struct {
	client *redis.Client
}

func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow reports whether a request identified by route and subject fits in
// the limit, and when the window resets. Redis failures deny the request;
// the guarded endpoints are account-security-sensitive, so failing closed
// is the safer direction.
func (rl *RateLimiter) Allow(
	ctx context.Context,
	route, subject string,
	limit Limit,
) (allowed bool, resetAt time.Time) {
	now := time.Now().Unix()
	key := fmt.Sprintf("ratelimit:%s:%s", route, subject)

	nonce := make([]byte, 8)
	if _, err := rand.Read(nonce); err != nil {
		log.Warn().Err(err).Str("route", route).Msg("rate limit nonce generation failed, denying request")
		return false, time.Now().Add(limit.Window)
	}
	member := fmt.Sprintf("%d-%s", now, hex.EncodeToString(nonce))

	result, err := slidingWindowScript.Run(
		ctx,
		rl.client,
		[]string{key},
		now,
		int64(limit.Window.Seconds()),
		limit.Requests,
		member,
	).Int64Slice()

	if err != nil {
		log.Warn().
			Err(err).
			Str("route", route).
			Msg("rate limit check failed, denying request")
		return false, time.Now().Add(limit.Window)
	}

	if len(result) != 2 {
		log.Warn().Str("route", route).Msg("unexpected rate limit result, denying request")
		return false, time.Now().Add(limit.Window)
	}

	return result[0] == 1, time.Unix(result[1], 0)
}
