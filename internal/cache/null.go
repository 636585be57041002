package cache

import (
	"context"
	"time"
)

// NullCache is the no-op Cache used when no backend is configured or
// the configured one is unreachable. Every read misses and every write
// succeeds trivially, so callers degrade to uncached operation without
// ever seeing an error.
type NullCache struct{}

func NewNull() *NullCache {
	return &NullCache{}
}

func (*NullCache) Get(_ context.Context, _ string) (string, error) {
	return "", ErrNotFound
}

func (*NullCache) Set(_ context.Context, _ string, _ string, _ time.Duration) error {
	return nil
}

func (*NullCache) Delete(_ context.Context, _ string) error {
	return nil
}

func (*NullCache) Exists(_ context.Context, _ string) (bool, error) {
	return false, nil
}
