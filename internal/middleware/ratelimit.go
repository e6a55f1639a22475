package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"   // middleware signature and JSON replies
	"github.com/redis/go-redis/v9" // runs the bucket script atomically

	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/config"
)

// takeTokenLua removes one token from the bucket hash at KEYS[1], adding
// refill tokens for every whole period elapsed since the last refill.
//
// ARGV: now_ms, capacity, refill_tokens, period_ms, ttl_s.
// Reply: {allowed (0 or 1), tokens_left, wait_ms}.
const takeTokenLua = `
local now    = tonumber(ARGV[1])
local cap    = tonumber(ARGV[2])
local step   = tonumber(ARGV[3])
local period = tonumber(ARGV[4])

local b = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local tokens = tonumber(b[1]) or cap
local ts = tonumber(b[2]) or now

local n = math.floor((now - ts) / period)
if n > 0 then
  tokens = math.min(cap, tokens + n * step)
  ts = ts + n * period
end

local ok, wait = 0, 0
if tokens >= 1 then
  ok = 1
  tokens = tokens - 1
else
  wait = period - (now - ts)
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'ts', ts)
redis.call('EXPIRE', KEYS[1], tonumber(ARGV[5]))
return {ok, tokens, wait}
`

type verdict struct {
	allowed    bool
	remaining  int64
	retryAfter time.Duration
}

type bucket struct {
	cfg config.RateLimitConfig
	rdb *redis.Client
	now func() time.Time
}

func (b *bucket) args(now time.Time) []interface{} {
	return []interface{}{
		now.UnixMilli(),
		b.cfg.Capacity,
		b.cfg.RefillTokens,
		b.cfg.RefillInterval.Milliseconds(),
		int64(b.cfg.TTL / time.Second),
	}
}

func (b *bucket) take(ctx context.Context, key string) (verdict, error) {
	reply, err := b.rdb.Eval(ctx, takeTokenLua, []string{key}, b.args(b.now())...).Int64Slice()
	if err != nil {
		return verdict{}, err
	}
	if len(reply) != 3 {
		return verdict{}, fmt.Errorf("ratelimit: unexpected reply %v", reply)
	}
	return verdict{
		allowed:    reply[0] == 1,
		remaining:  reply[1],
		retryAfter: time.Duration(reply[2]) * time.Millisecond,
	}, nil
}

// NewTokenBucket limits requests per key built from cfg.KeyParts.  With
// the limiter disabled, a nil rdb or a failing Redis every request is let
// through; only the HTTP surface depends on Redis.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	b := &bucket{cfg: cfg, rdb: rdb, now: time.Now}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// One bucket per key; the script refills and takes a token in
			// a single round trip so concurrent requests cannot overspend.
			key := rateKey(cfg, c)
			v, err := b.take(c.Request().Context(), key)
			if err != nil {
				// Redis trouble must not take the booking API down with it.
				if cfg.Debug {
					c.Logger().Warnf("ratelimit: %s: %v", key, err)
				}
				return next(c)
			}
			writeLimitHeaders(c, cfg, key, v)
			// Out of tokens: tell the client how long to wait.
			if !v.allowed {
				secs := max(int(math.Ceil(v.retryAfter.Seconds())), 1)
				c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":      "too_many_requests",
					"retryAfter": secs,
				})
			}
			return next(c)
		}
	}
}

func writeLimitHeaders(c echo.Context, cfg config.RateLimitConfig, key string, v verdict) {
	h := c.Response().Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
	h.Set("X-RateLimit-Remaining", strconv.FormatInt(v.remaining, 10))
	if cfg.Debug {
		h.Set("X-RateLimit-Key", key)
	}
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// rateKey joins cfg.Prefix with the requested key parts, for example
// "rl:user:alice:route:POST /v1/schedules/:id/holds".
func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
	parts := cfg.KeyParts
	if len(parts) == 0 {
		parts = []string{"user", "route"}
	}
	key := []string{cfg.Prefix}
	for _, p := range parts {
		switch p {
		case "ip":
			ip := c.RealIP()
			if ip == "" {
				ip = "unknown"
			}
			key = append(key, "ip", ip)
		case "user":
			key = append(key, "user", principal(c))
		case "route":
			key = append(key, "route", c.Request().Method+" "+c.Path())
		}
	}
	return strings.Join(key, ":")
}
