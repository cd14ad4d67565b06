package config

import "time"

// Bucket is one token bucket policy: Capacity tokens per key, RefillTokens
// added back every RefillInterval.
type Bucket struct {
    Capacity       int
    RefillTokens   int
    RefillInterval time.Duration
}

// RateLimitConfig drives middleware.RateLimiter.  Reads and writes draw
// from separate buckets; every write rewrites the whole store file, so the
// write bucket is the tighter one.  Keys idle for TTL expire.
type RateLimitConfig struct {
    Enabled     bool
    Read        Bucket
    Write       Bucket
    TTL         time.Duration
    KeyStrategy string // ip, route or ip_route
    Prefix      string
    Debug       bool
}

func LoadRateLimitConfig() RateLimitConfig {
    cfg := RateLimitConfig{
        Enabled: envBool("RATE_LIMIT_ENABLED", false),
        Read: Bucket{
            Capacity:       envInt("RATE_LIMIT_CAPACITY", 60),
            RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
            RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
        },
        Write: Bucket{
            Capacity:       envInt("RATE_LIMIT_WRITE_CAPACITY", 10),
            RefillTokens:   envInt("RATE_LIMIT_WRITE_REFILL_TOKENS", 1),
            RefillInterval: envDur("RATE_LIMIT_WRITE_REFILL_INTERVAL", 6*time.Second),
        },
        TTL:         envDur("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy: envStr("RATE_LIMIT_KEY_STRATEGY", "ip_route"),
        Prefix:      envStr("RATE_LIMIT_PREFIX", "rl"),
        Debug:       envBool("RATE_LIMIT_DEBUG", false),
    }
    cfg.Read = cfg.Read.clamped()
    cfg.Write = cfg.Write.clamped()
    // A key must outlive several refills or buckets reset early.
    minTTL := 5 * max(cfg.Read.RefillInterval, cfg.Write.RefillInterval)
    if cfg.TTL < minTTL { cfg.TTL = minTTL }
    return cfg
}

func (b Bucket) clamped() Bucket {
    if b.Capacity < 1 { b.Capacity = 1 }
    if b.RefillTokens < 1 { b.RefillTokens = 1 }
    if b.RefillInterval <= 0 { b.RefillInterval = time.Second }
    return b
}
