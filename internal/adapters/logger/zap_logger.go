package logger

import (
	"strings"

	"dev.rubentxu.background-orchestrator/internal/core/ports"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controla el nivel y el formato del logger
type Options struct {
	Level       string
	Development bool
}

// ZapLogger implementa la interfaz Logger usando zap
type ZapLogger struct {
	logger *zap.SugaredLogger
}

var _ ports.Logger = (*ZapLogger)(nil)

// NewZapLogger crea una nueva instancia de ZapLogger
func NewZapLogger(opts Options) (*ZapLogger, error) {
	cfg := zap.NewProductionConfig()
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
	}

	if strings.TrimSpace(opts.Level) != "" {
		level, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid log level %q", opts.Level)
		}
		cfg.Level = zap.NewAtomicLevelAt(level)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build zap logger")
	}
	return &ZapLogger{logger: logger.Sugar()}, nil
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() *ZapLogger {
	return &ZapLogger{logger: zap.NewNop().Sugar()}
}

// FromZap wraps an existing zap logger.
func FromZap(l *zap.Logger) *ZapLogger {
	return &ZapLogger{logger: l.Sugar()}
}

// Debug implementa Logger.Debug
func (l *ZapLogger) Debug(msg string, args ...interface{}) {
	l.logger.Debugw(msg, args...)
}

// Info implementa Logger.Info
func (l *ZapLogger) Info(msg string, args ...interface{}) {
	l.logger.Infow(msg, args...)
}

// Warn implementa Logger.Warn
func (l *ZapLogger) Warn(msg string, args ...interface{}) {
	l.logger.Warnw(msg, args...)
}

// Error implementa Logger.Error
func (l *ZapLogger) Error(msg string, args ...interface{}) {
	l.logger.Errorw(msg, args...)
}

// Fatal implementa Logger.Fatal
func (l *ZapLogger) Fatal(msg string, args ...interface{}) {
	l.logger.Fatalw(msg, args...)
}

// With implementa Logger.With
func (l *ZapLogger) With(args ...interface{}) ports.Logger {
	return &ZapLogger{logger: l.logger.With(args...)}
}

// Sync implementa Logger.Sync
func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}
