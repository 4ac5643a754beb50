// =============================================================================
// Pedidos Manager - Logging
// =============================================================================
//
// Printf-style leveled logging backed by zap. Console output goes to stderr
// in a human-readable form; an optional log file receives the same entries
// as JSON lines.
//
// =============================================================================

package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the logging interface used across the application.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Sync() error
}

// Options configures New.
type Options struct {
	// Level is one of "debug", "info", "warn", "error". Unknown values
	// fall back to "info".
	Level string

	// Verbose forces the debug level.
	Verbose bool

	// File, when set, also writes JSON entries to this path.
	File string
}

// ZapLogger is the zap implementation of Logger.
type ZapLogger struct {
	logger *zap.SugaredLogger
}

// ParseLevel maps a configured level name onto a zap level.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// New builds a ZapLogger from the options.
func New(opts Options) (*ZapLogger, error) {
	level := ParseLevel(opts.Level)
	if opts.Verbose {
		level = zapcore.DebugLevel
	}
	enabler := zap.NewAtomicLevelAt(level)

	consoleConfig := zap.NewDevelopmentEncoderConfig()
	consoleConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	consoleConfig.TimeKey = ""
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleConfig), zapcore.Lock(os.Stderr), enabler),
	}

	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(f),
			enabler,
		))
	}

	return &ZapLogger{logger: zap.New(zapcore.NewTee(cores...)).Sugar()}, nil
}

// FromZap wraps an existing zap logger.
func FromZap(logger *zap.Logger) *ZapLogger {
	return &ZapLogger{logger: logger.Sugar()}
}

// Nop returns a logger that discards everything.
func Nop() *ZapLogger {
	return &ZapLogger{logger: zap.NewNop().Sugar()}
}

// With returns a logger that adds the key/value pair to every entry.
func (l *ZapLogger) With(key string, value interface{}) *ZapLogger {
	return &ZapLogger{logger: l.logger.With(key, value)}
}

func (l *ZapLogger) Debug(msg string, args ...interface{}) {
	l.logger.Debugf(msg, args...)
}

func (l *ZapLogger) Info(msg string, args ...interface{}) {
	l.logger.Infof(msg, args...)
}

func (l *ZapLogger) Warn(msg string, args ...interface{}) {
	l.logger.Warnf(msg, args...)
}

func (l *ZapLogger) Error(msg string, args ...interface{}) {
	l.logger.Errorf(msg, args...)
}

// Sync flushes buffered entries. Errors from syncing a terminal or pipe
// on stderr are ignored.
func (l *ZapLogger) Sync() error {
	err := l.logger.Sync()
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "inappropriate ioctl") || strings.Contains(msg, "invalid argument") {
		return nil
	}
	return err
}
