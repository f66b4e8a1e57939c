package watcher

import (
	"context"
	"log/slog"
	"sync"

	"hlcli/internal/hlapi"
)

// PositionWatcher holds a direct push subscription to an address's
// all-dexes clearinghouse state and forwards every event unchanged.
type PositionWatcher struct {
	user      string
	transport hlapi.Transport
	onUpdate  OnUpdate
	onError   OnError
	logger    *slog.Logger

	mu  sync.Mutex
	sub hlapi.Subscription
	wg  sync.WaitGroup
}

// NewPositionWatcher builds a watcher for user's clearinghouse state
// over transport.
func NewPositionWatcher(user string, transport hlapi.Transport, onUpdate OnUpdate, onError OnError, logger *slog.Logger) *PositionWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &PositionWatcher{user: user, transport: transport, onUpdate: onUpdate, onError: onError, logger: logger}
}

func (w *PositionWatcher) Start(ctx context.Context) error {
	if err := w.transport.Connect(ctx); err != nil {
		return err
	}
	sub, events, err := w.transport.Subscribe(hlapi.FeedAllDexsClearinghouse, hlapi.SubParams{User: w.user})
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.sub = sub
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for ev := range events {
			safeUpdate(w.logger, w.onUpdate, ev.Payload)
		}
	}()
	return nil
}

// Stop unsubscribes then closes the transport, swallowing every error.
func (w *PositionWatcher) Stop() {
	w.mu.Lock()
	sub := w.sub
	w.sub = nil
	w.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	w.transport.Close()
	w.wg.Wait()
}
