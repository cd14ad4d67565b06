package middleware

import (
    "context"
    "fmt"
    "log/slog"
    "math"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/patient-records/internal/config"
)

// takeToken refills a bucket for the time elapsed since its last refill and
// then tries to take one token.  State lives in a hash so the script is the
// only writer.  Returns {allowed, tokens left, ms until the next refill}.
var takeToken = redis.NewScript(`
local key = KEYS[1]
local now, capacity, refill, interval, ttl =
    tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4]), tonumber(ARGV[5])

local tokens = tonumber(redis.call('HGET', key, 'tokens'))
local since = tonumber(redis.call('HGET', key, 'since'))
if not tokens or not since then
    tokens, since = capacity, now
end

local steps = math.floor(math.max(0, now - since) / interval)
if steps > 0 then
    tokens = math.min(capacity, tokens + steps * refill)
    since = since + steps * interval
end

local allowed, wait = 0, 0
if tokens > 0 then
    allowed, tokens = 1, tokens - 1
else
    wait = math.max(0, interval - (now - since))
end

redis.call('HSET', key, 'tokens', tokens, 'since', since)
redis.call('EXPIRE', key, ttl)
return {allowed, tokens, wait}
`)

// RateLimiter hands out per-client token buckets kept in Redis, one policy
// for reads and a stricter one for writes.  A nil limiter, a disabled config
// or a missing Redis client make every bucket a pass-through.  Redis errors
// fail open.
type RateLimiter struct {
    cfg    config.RateLimitConfig
    rdb    *redis.Client
    logger *slog.Logger
    now    func() time.Time
}

// NewRateLimiter builds a limiter.  rdb may be nil.
func NewRateLimiter(cfg config.RateLimitConfig, rdb *redis.Client, logger *slog.Logger) *RateLimiter {
    if logger == nil {
        logger = slog.Default()
    }
    return &RateLimiter{cfg: cfg, rdb: rdb, logger: logger, now: time.Now}
}

// Reads limits the listing and lookup routes.
func (l *RateLimiter) Reads() echo.MiddlewareFunc { return l.bucket("read", l.policy(true)) }

// Writes limits create, edit and delete.
func (l *RateLimiter) Writes() echo.MiddlewareFunc { return l.bucket("write", l.policy(false)) }

func (l *RateLimiter) policy(read bool) config.Bucket {
    if l == nil {
        return config.Bucket{}
    }
    if read {
        return l.cfg.Read
    }
    return l.cfg.Write
}

// decision is the outcome of one takeToken call.
type decision struct {
    allowed   bool
    remaining int64
    wait      time.Duration
}

func (l *RateLimiter) take(ctx context.Context, key string, b config.Bucket) (decision, error) {
    res, err := takeToken.Run(ctx, l.rdb, []string{key},
        l.now().UnixMilli(),
        b.Capacity,
        b.RefillTokens,
        b.RefillInterval.Milliseconds(),
        int64(l.cfg.TTL/time.Second),
    ).Int64Slice()
    if err != nil {
        return decision{}, err
    }
    if len(res) != 3 {
        return decision{}, fmt.Errorf("ratelimit: unexpected script reply %v", res)
    }
    return decision{allowed: res[0] == 1, remaining: res[1], wait: time.Duration(res[2]) * time.Millisecond}, nil
}

func (l *RateLimiter) bucket(scope string, b config.Bucket) echo.MiddlewareFunc {
    if l == nil || !l.cfg.Enabled || l.rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := rateKey(l.cfg, scope, c)
            d, err := l.take(c.Request().Context(), key, b)
            if err != nil {
                l.logger.Warn("ratelimit: redis unavailable, allowing request", "key", key, "error", err)
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(b.Capacity))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.remaining, 10))
            if l.cfg.Debug {
                h.Set("X-RateLimit-Key", key)
            }
            if d.allowed {
                return next(c)
            }

            secs := int(math.Ceil(d.wait.Seconds()))
            h.Set("Retry-After", strconv.Itoa(secs))
            l.logger.Info("ratelimit: blocked", "key", key, "retry_after", secs)
            return c.JSON(http.StatusTooManyRequests, echo.Map{
                "detail":      "rate limit exceeded",
                "retry_after": secs,
            })
        }
    }
}

// rateKey names the bucket for this request: prefix, scope, then the client
// ip and/or route template depending on the key strategy.
func rateKey(cfg config.RateLimitConfig, scope string, c echo.Context) string {
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    route := c.Request().Method + " " + c.Path()

    parts := []string{cfg.Prefix, scope}
    switch strings.ToLower(cfg.KeyStrategy) {
    case "ip":
        parts = append(parts, "ip", ip)
    case "route":
        parts = append(parts, "route", route)
    default: // "ip_route"
        parts = append(parts, "ip", ip, "route", route)
    }
    return strings.Join(parts, ":")
}
