// Package logging wraps zap for opt-in diagnostic output. Tool shells format
// their own display strings; everything here goes to stderr and is off unless
// VIBE_DEBUG is set.
package logging

import (
	"os"

	"go.uber.org/zap"
)

// Logger is a thin wrapper so callers don't depend on zap directly.
type Logger struct {
	sugar *zap.SugaredLogger
}

// New builds a development-style logger writing to stderr.
func New() *Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return Nop()
	}
	return &Logger{sugar: logger.Sugar()}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar()}
}

// FromEnv returns a real logger when VIBE_DEBUG is set, else a nop.
func FromEnv() *Logger {
	if os.Getenv("VIBE_DEBUG") != "" {
		return New()
	}
	return Nop()
}

func (l *Logger) Debugw(msg string, keysAndValues ...any) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l *Logger) Infow(msg string, keysAndValues ...any) {
	l.sugar.Infow(msg, keysAndValues...)
}

func (l *Logger) Warnw(msg string, keysAndValues ...any) {
	l.sugar.Warnw(msg, keysAndValues...)
}

func (l *Logger) Errorw(msg string, keysAndValues ...any) {
	l.sugar.Errorw(msg, keysAndValues...)
}

// With returns a child logger with bound fields.
func (l *Logger) With(keysAndValues ...any) *Logger {
	return &Logger{sugar: l.sugar.With(keysAndValues...)}
}

// Sync flushes buffered output.
func (l *Logger) Sync() {
	_ = l.sugar.Sync()
}
