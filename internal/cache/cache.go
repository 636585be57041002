// Package cache provides the key/value backend used to accelerate
// short-code lookups. The durable store stays authoritative: every
// implementation here holds derived snapshots only, and a failed or
// absent cache must never change an operation's result.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"shorturl-backend/internal/config"
	"shorturl-backend/pkg/resilient"
)

// ErrNotFound is returned by Get when the key is absent. Callers treat
// it (and any other Get error) as a cache miss.
var ErrNotFound = errors.New("cache: key not found")

// Cache is a minimal key/value store with per-entry TTL.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// New selects the cache backend from configuration. A disabled or
// unreachable backend yields the null cache, so callers always get a
// working Cache and never branch on availability.
func New(cfg *config.Cache, log *zap.Logger) Cache {
	if !cfg.Enabled {
		log.Info("cache is disabled, using null cache")
		return NewNull()
	}

	return resilient.New[Cache](log, "redis cache", func() (Cache, error) {
		rc, err := NewRedis(cfg, log)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		log.Info("connected to redis cache",
			zap.String("addr", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)),
			zap.String("prefix", cfg.Prefix),
		)
		return rc, nil
	}, NewNull())
}
