package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a leveled key/value logger shared by all components.
type Logger struct {
	sugar *zap.SugaredLogger
}

// New creates a console logger with provided level string.
func New(level string) *Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(levelFromString(level))
	cfg.DisableStacktrace = true
	zl, err := cfg.Build()
	if err != nil {
		zl = zap.NewNop()
	}
	return &Logger{sugar: zl.Sugar()}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar()}
}

// FromZap adapts an existing zap logger, e.g. an observer core in tests.
func FromZap(zl *zap.Logger) *Logger {
	return &Logger{sugar: zl.Sugar()}
}

// Debug logs msg with alternating key/value pairs.
func (l *Logger) Debug(msg string, keysAndValues ...any) {
	l.get().Debugw(msg, keysAndValues...)
}

// Info logs msg with alternating key/value pairs.
func (l *Logger) Info(msg string, keysAndValues ...any) {
	l.get().Infow(msg, keysAndValues...)
}

// Warn logs msg with alternating key/value pairs.
func (l *Logger) Warn(msg string, keysAndValues ...any) {
	l.get().Warnw(msg, keysAndValues...)
}

// Error logs msg with alternating key/value pairs.
func (l *Logger) Error(msg string, keysAndValues ...any) {
	l.get().Errorw(msg, keysAndValues...)
}

// With returns a child logger carrying the given key/value pairs.
func (l *Logger) With(keysAndValues ...any) *Logger {
	return &Logger{sugar: l.get().With(keysAndValues...)}
}

// Sync flushes buffered entries.
func (l *Logger) Sync() {
	_ = l.get().Sync()
}

func (l *Logger) get() *zap.SugaredLogger {
	if l == nil || l.sugar == nil {
		return zap.NewNop().Sugar()
	}
	return l.sugar
}

func levelFromString(value string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "error":
		return zapcore.ErrorLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "info":
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}
