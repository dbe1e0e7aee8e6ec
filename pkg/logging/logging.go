// Package logging builds the root zap logger for the engine.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/tablechat-ai/tablechat/pkg/config"
)

// New constructs the root logger. Local environments get a human-readable
// console logger; everything else gets JSON, optionally rotated to a file.
func New(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", cfg.Logging.Level, err)
	}

	if cfg.Logging.File == "" {
		var logger *zap.Logger
		if cfg.Env == "local" {
			zcfg := zap.NewDevelopmentConfig()
			zcfg.Level = zap.NewAtomicLevelAt(level)
			logger, err = zcfg.Build()
		} else {
			zcfg := zap.NewProductionConfig()
			zcfg.Level = zap.NewAtomicLevelAt(level)
			logger, err = zcfg.Build()
		}
		if err != nil {
			return nil, fmt.Errorf("build logger: %w", err)
		}
		return logger, nil
	}

	// File output with rotation.
	sink := zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.Logging.File,
		MaxSize:    cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Compress:   true,
	})
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	core := zapcore.NewCore(encoder, sink, level)
	return zap.New(core), nil
}
