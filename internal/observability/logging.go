// Package observability provides logging utilities.
package observability

import (
	"fmt"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/warsim/internal/config"
)

// NewLogger creates a structured logger from the given logging configuration.
// When cfg.File is set, entries are also written as JSON to a rotating file.
//
// Precondition: cfg.Level must be one of "debug", "info", "warn", "error".
// Precondition: cfg.Format must be "json" or "console".
// Postcondition: Returns a configured zap.Logger and the AtomicLevel controlling
// it, or a non-nil error.
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, zap.AtomicLevel, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, zap.AtomicLevel{}, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}

	var zapCfg zap.Config
	switch cfg.Format {
	case "json":
		zapCfg = zap.NewProductionConfig()
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
	default:
		return nil, zap.AtomicLevel{}, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	atom := zap.NewAtomicLevelAt(level)
	zapCfg.Level = atom
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var opts []zap.Option
	if cfg.File != "" {
		fileEnc := zap.NewProductionEncoderConfig()
		fileEnc.EncodeTime = zapcore.ISO8601TimeEncoder
		fileCore := zapcore.NewCore(
			zapcore.NewJSONEncoder(fileEnc),
			zapcore.AddSync(RotatingWriter(cfg)),
			atom,
		)
		opts = append(opts, zap.WrapCore(func(c zapcore.Core) zapcore.Core {
			return zapcore.NewTee(c, fileCore)
		}))
	}

	logger, err := zapCfg.Build(opts...)
	if err != nil {
		return nil, zap.AtomicLevel{}, fmt.Errorf("building logger: %w", err)
	}
	return logger, atom, nil
}

// RotatingWriter returns a size-rotated file writer for cfg.File.
//
// Precondition: cfg.File must be non-empty.
func RotatingWriter(cfg config.LoggingConfig) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    max(1, cfg.MaxSizeMB),
		MaxBackups: max(0, cfg.MaxBackups),
		MaxAge:     max(0, cfg.MaxAgeDays),
		Compress:   cfg.Compress,
	}
}

// SetLevel changes atom to level, leaving it untouched on a parse error.
//
// Postcondition: Returns nil and atom is at level, or a parse error.
func SetLevel(atom zap.AtomicLevel, level string) error {
	l, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("parsing log level %q: %w", level, err)
	}
	atom.SetLevel(l)
	return nil
}
