// Package utils provides process-wide helpers shared by the manabu commands.
package utils

import "go.uber.org/zap"

// NewLogger returns a zap logger named "manabu". When debug is true, uses development config
// (human-readable, debug level); otherwise uses production config (JSON, info level).
// fields are attached to every entry.
func NewLogger(debug bool, fields ...zap.Field) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Named("manabu").With(fields...), nil
}

// OrNop returns logger, or a no-op logger when logger is nil.
func OrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
