package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/deusflow/curator/internal/cache"
	"github.com/deusflow/curator/internal/config"
	"github.com/deusflow/curator/internal/storage"
)

// NewCacheStore opens the item cache backend named by cfg.CacheBackend.
// The returned func releases backend connections.
func NewCacheStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (cache.Store, func(), error) {
	switch cfg.CacheBackend {
	case "", "file":
		fc, err := storage.NewFileCache(cfg.CacheDir, cfg.CacheTTL)
		if err != nil {
			return nil, nil, err
		}
		log.Info("using file cache", "dir", cfg.CacheDir, "ttl", cfg.CacheTTL)
		return fc, func() {}, nil
	case "memory":
		log.Info("using in-memory cache", "ttl", cfg.CacheTTL)
		return cache.NewMemory(cfg.CacheTTL, time.Now), func() {}, nil
	case "redis":
		rc, err := storage.NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL)
		if err != nil {
			return nil, nil, err
		}
		log.Info("using redis cache", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
		return rc, func() {
			if err := rc.Close(); err != nil {
				log.Warn("failed to close redis cache", "error", err)
			}
		}, nil
	case "postgres":
		pc, err := storage.NewPostgresCache(ctx, cfg.DatabaseURL, cfg.CacheTTL)
		if err != nil {
			return nil, nil, err
		}
		log.Info("using postgres cache")
		return pc, pc.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
}
