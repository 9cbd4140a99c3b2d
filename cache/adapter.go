package cache

import (
	"context"
	"time"

	"github.com/wayfarergame/wayfarer/cache/local"
	cacheredis "github.com/wayfarergame/wayfarer/cache/redis"
	"github.com/wayfarergame/wayfarer/config"
)

// Cache is the KV surface the proxy uses for short-lived response caching.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
}

// New returns a Cache backed by Redis if RedisAddr is set, otherwise an
// in-process local cache. Single-instance deployments need no Redis; the
// local cache keeps the proxy self-contained.
func New(cfg config.CacheConfig) (Cache, error) {
	if cfg.RedisAddr != "" {
		return cacheredis.New(cacheredis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}
	return local.New(local.Config{GCInterval: cfg.LocalGCInterval})
}
