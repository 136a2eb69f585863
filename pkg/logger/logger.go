package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// The process-wide logger. Starts as a no-op so packages that log during
// construction are safe before Init runs.
var (
	mu   sync.RWMutex
	root = zap.NewNop()
)

// Init replaces the process logger with a production zap logger at the given
// level. Unknown level strings fall back to info rather than failing startup.
func Init(level string) error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	built, err := cfg.Build()
	if err != nil {
		return err
	}

	mu.Lock()
	root = built
	mu.Unlock()
	return nil
}

// Sync flushes buffered entries. Call it on shutdown.
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	return root.Sync()
}

// WithModule returns a logger tagged with the subsystem name, the form every
// package in this codebase logs through.
func WithModule(module string) *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root.With(zap.String("module", module))
}
