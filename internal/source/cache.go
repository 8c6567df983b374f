package source

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MikeSquared-Agency/TariffIndex/internal/index"
	"github.com/MikeSquared-Agency/TariffIndex/internal/metrics"
)

// RedisClient is the subset of *redis.Client the cache uses.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Cached is a read-through Redis cache in front of another source. Redis
// failures are logged and the wrapped source is used directly.
type Cached struct {
	next      Source
	client    RedisClient
	ttl       time.Duration
	keyPrefix string
	logger    *slog.Logger
}

func NewCached(next Source, client RedisClient, ttl time.Duration, keyPrefix string, logger *slog.Logger) *Cached {
	return &Cached{next: next, client: client, ttl: ttl, keyPrefix: keyPrefix, logger: logger}
}

func (c *Cached) Name() string { return c.next.Name() }

func (c *Cached) key(f index.Factor) string { return c.keyPrefix + "factor:" + string(f) }

func (c *Cached) Fetch(ctx context.Context, factor index.Factor) (index.Table, error) {
	raw, err := c.client.Get(ctx, c.key(factor)).Bytes()
	switch {
	case err == nil:
		var t index.Table
		if jerr := json.Unmarshal(raw, &t); jerr == nil {
			metrics.ObserveFetch("redis", "hit")
			return t, nil
		}
		c.logger.Warn("discarding undecodable cache entry", "factor", factor)
	case errors.Is(err, redis.Nil):
		metrics.ObserveFetch("redis", "miss")
	default:
		metrics.ObserveFetch("redis", "error")
		c.logger.Warn("cache read failed", "factor", factor, "error", err)
	}

	t, err := c.next.Fetch(ctx, factor)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(t)
	if err != nil {
		c.logger.Warn("cache encode failed", "factor", factor, "error", err)
		return t, nil
	}
	if err := c.client.Set(ctx, c.key(factor), data, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", "factor", factor, "error", err)
	}
	return t, nil
}

// Invalidate drops cached tables for factors.
func (c *Cached) Invalidate(ctx context.Context, factors []index.Factor) error {
	if len(factors) == 0 {
		return nil
	}
	keys := make([]string, len(factors))
	for i, f := range factors {
		keys[i] = c.key(f)
	}
	return c.client.Del(ctx, keys...).Err()
}
