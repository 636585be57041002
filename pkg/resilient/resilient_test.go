package resilient

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type backend interface {
	Name() string
}

type realBackend struct{}

func (realBackend) Name() string { return "real" }

type noopBackend struct{}

func (noopBackend) Name() string { return "noop" }

func TestNew(t *testing.T) {
	log := zap.NewNop()

	t.Run("returns_constructed_backend_on_success", func(t *testing.T) {
		got := New[backend](log, "test", func() (backend, error) {
			return realBackend{}, nil
		}, noopBackend{})

		assert.Equal(t, "real", got.Name())
	})

	t.Run("returns_fallback_on_construction_error", func(t *testing.T) {
		got := New[backend](log, "test", func() (backend, error) {
			return nil, errors.New("connection refused")
		}, noopBackend{})

		assert.Equal(t, "noop", got.Name())
	})
}
