// Package watcher implements start/stop objects that emit a stream
// of normalized updates by combining a push subscription with optional
// HTTP pulls. Every variant shares the same teardown contract —
// unsubscribe first, then close, swallowing every error along the way.
package watcher

import (
	"context"
	"log/slog"
)

// OnUpdate receives one normalized payload. OnError receives a
// transient or terminal error observed while watching. Both are called
// from the underlying transport's delivery goroutine and must not block
// indefinitely.
type OnUpdate func(payload any)
type OnError func(err error)

// Watcher is the shared two-method contract every variant implements.
// Stop must be safe to call at any time, any number of times, and must
// never raise. Start after Stop is not supported.
type Watcher interface {
	Start(ctx context.Context) error
	Stop()
}

func safeUpdate(logger *slog.Logger, onUpdate OnUpdate, payload any) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("watcher onUpdate sink panicked", slog.Any("recover", r))
		}
	}()
	if onUpdate != nil {
		onUpdate(payload)
	}
}

func safeError(logger *slog.Logger, onError OnError, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("watcher onError sink panicked", slog.Any("recover", r))
		}
	}()
	if onError != nil {
		onError(err)
	}
}
