// Package tracelog is the library's logging seam. It wraps a single
// package-level slog.Logger that discards everything by default, so the
// library is silent unless the host process opts in via SetOutput.
package tracelog

import (
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
)

// logger holds the active *slog.Logger. Swapped atomically so worker
// goroutines inside the serializer can log without taking a lock.
var logger atomic.Pointer[slog.Logger]

func init() {
	logger.Store(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// SetOutput routes library logging to w at the given minimum level.
// Passing nil restores the default discard sink.
func SetOutput(w io.Writer, level slog.Level) {
	if w == nil {
		w = io.Discard
	}
	logger.Store(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// SetLogger installs a caller-owned slog.Logger, for hosts that already
// carry one. A nil l restores the discard sink.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger.Store(l)
}

// Printf logs one informational message.
func Printf(format string, args ...any) {
	logger.Load().Info(fmt.Sprintf(format, args...))
}

// Errorf logs one error message.
func Errorf(format string, args ...any) {
	logger.Load().Error(fmt.Sprintf(format, args...))
}
