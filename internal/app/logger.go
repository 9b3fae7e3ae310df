package app

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	envDev  = "dev"
	envProd = "prod"
)

// NewLogger picks a console logger for local runs and JSON everywhere else.
// verbose forces debug level.
func NewLogger(env string, verbose bool) (*zap.Logger, error) {
	var cfg zap.Config
	switch env {
	case envProd:
		cfg = zap.NewProductionConfig()
	case envDev:
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
