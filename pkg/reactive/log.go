package reactive

import (
	"context"
	"log/slog"
	"sync/atomic"
)

var currentLogger atomic.Pointer[slog.Logger]

func init() {
	currentLogger.Store(slog.New(slog.DiscardHandler))
}

// SetLogger sets the logger used for the core's debug output.
// The default discards everything. A nil l restores the default.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	currentLogger.Store(l)
}

// logger returns the current core logger.
func logger() *slog.Logger {
	return currentLogger.Load()
}

// debugEnabled guards attribute construction on hot paths.
func debugEnabled() bool {
	return logger().Enabled(context.Background(), slog.LevelDebug)
}
