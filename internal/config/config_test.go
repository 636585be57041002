package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		Shortener: Shortener{
			CodeLength:  6,
			CodeCharset: "0123456789abcdef",
		},
		Analytics: Analytics{
			Workers:    3,
			BufferSize: 1000,
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, validConfig().Validate())
	})

	t.Run("code_length_out_of_range", func(t *testing.T) {
		for _, length := range []int{0, 3, 17} {
			cfg := validConfig()
			cfg.Shortener.CodeLength = length
			assert.Error(t, cfg.Validate(), "length %d", length)
		}
	})

	t.Run("code_length_bounds_are_inclusive", func(t *testing.T) {
		for _, length := range []int{4, 16} {
			cfg := validConfig()
			cfg.Shortener.CodeLength = length
			assert.NoError(t, cfg.Validate(), "length %d", length)
		}
	})

	t.Run("empty_charset", func(t *testing.T) {
		cfg := validConfig()
		cfg.Shortener.CodeCharset = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("duplicate_charset_character", func(t *testing.T) {
		cfg := validConfig()
		cfg.Shortener.CodeCharset = "abcda"
		assert.Error(t, cfg.Validate())
	})

	t.Run("non_positive_workers", func(t *testing.T) {
		cfg := validConfig()
		cfg.Analytics.Workers = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("non_positive_buffer", func(t *testing.T) {
		cfg := validConfig()
		cfg.Analytics.BufferSize = 0
		assert.Error(t, cfg.Validate())
	})
}
