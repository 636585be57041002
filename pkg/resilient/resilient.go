// Package resilient selects between a real backend and a no-op
// stand-in at construction time. Callers hold only the shared
// interface type and never branch on backend availability: a missing
// cache or geo database degrades functionality, not availability.
package resilient

import "go.uber.org/zap"

// New runs construct and returns its result. If construction fails the
// error is logged as a warning and fallback is returned instead, so
// the caller always ends up with a usable value of T.
func New[T any](log *zap.Logger, name string, construct func() (T, error), fallback T) T {
	backend, err := construct()
	if err != nil {
		log.Warn("backend unavailable, falling back to no-op implementation",
			zap.String("backend", name),
			zap.Error(err),
		)
		return fallback
	}
	return backend
}
