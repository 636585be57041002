package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a zap logger tuned for the given environment.
// "local" and "development" get a human-readable console encoder with
// debug level, everything else gets production JSON output.
func New(env string) *zap.Logger {
	var cfg zap.Config

	switch env {
	case "local", "development":
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	log, err := cfg.Build()
	if err != nil {
		// A logger we cannot build leaves nothing to log with.
		panic(err)
	}

	return log
}
