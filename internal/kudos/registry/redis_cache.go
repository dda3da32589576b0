package registry

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/khbroker/internal/domain"
)

// RedisCache decorates a domain.ModelRegistry with a shared Redis cache
// so that a multi-instance broker deployment memoises model_multiplier
// once across all processes instead of each process re-querying the
// registry and separately warming its own in-process stats.
// model_multiplier results are treated as indefinitely cacheable per
// §6, so entries are written with a long TTL rather than none, to bound
// memory if models rotate out of use.
type RedisCache struct {
	rdb      *redis.Client
	upstream domain.ModelRegistry
	ttl      time.Duration
	prefix   string
	logger   *slog.Logger
}

// NewRedisCache constructs a RedisCache in front of upstream.
func NewRedisCache(rdb *redis.Client, upstream domain.ModelRegistry, ttl time.Duration, logger *slog.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{rdb: rdb, upstream: upstream, ttl: ttl, prefix: "khbroker:model_multiplier:", logger: logger}
}

// ParameterCount implements domain.ModelRegistry.
func (c *RedisCache) ParameterCount(ctx context.Context, modelName string) (float64, error) {
	key := c.prefix + modelName
	if raw, err := c.rdb.Get(ctx, key).Result(); err == nil {
		if v, perr := strconv.ParseFloat(raw, 64); perr == nil {
			return v, nil
		}
	}
	v, err := c.upstream.ParameterCount(ctx, modelName)
	if err != nil {
		return 0, err
	}
	if serr := c.rdb.Set(ctx, key, strconv.FormatFloat(v, 'f', -1, 64), c.ttl).Err(); serr != nil {
		c.logger.Warn("model multiplier cache write failed, serving live value", slog.String("model", modelName), slog.Any("err", serr))
	}
	return v, nil
}
