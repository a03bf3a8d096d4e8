// Package log builds the zap loggers handed to pools, executors and stores.
package log

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/on-the-ground/cellpool/config"
)

// New builds a logger writing to stderr at the configured level. The json
// format uses zap's production encoder; console uses the development one.
func New(cfg config.Log) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("couldn't parse log level: %w", err)
	}

	var encoder zapcore.Encoder
	switch cfg.Format {
	case config.FormatJSON:
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	case config.FormatConsole, "":
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level)
	return zap.New(core, zap.AddCaller()), nil
}

// NewTest returns a debug logger writing console lines to stdout.
func NewTest() *zap.Logger {
	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.Lock(os.Stdout),
		zap.DebugLevel,
	)
	return zap.New(consoleCore)
}

// Sync flushes logger, ignoring the errors stdout and stderr return on
// platforms where they cannot be synced.
func Sync(logger *zap.Logger) {
	if err := logger.Sync(); err != nil {
		logger.Debug("failed to sync logger", zap.Error(err))
	}
}
