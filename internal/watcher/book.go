package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"hlcli/internal/hlapi"
)

// BookWatcher holds a direct push subscription to one symbol's L2 order
// book and normalizes the upstream two-level array into
// {bids, asks, time}.
type BookWatcher struct {
	coin      string
	transport hlapi.Transport
	onUpdate  OnUpdate
	onError   OnError
	logger    *slog.Logger

	mu  sync.Mutex
	sub hlapi.Subscription
	wg  sync.WaitGroup
}

// NewBookWatcher builds a watcher for coin's L2 book over transport.
func NewBookWatcher(coin string, transport hlapi.Transport, onUpdate OnUpdate, onError OnError, logger *slog.Logger) *BookWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &BookWatcher{coin: coin, transport: transport, onUpdate: onUpdate, onError: onError, logger: logger}
}

func (w *BookWatcher) Start(ctx context.Context) error {
	if err := w.transport.Connect(ctx); err != nil {
		return err
	}
	sub, events, err := w.transport.Subscribe(hlapi.FeedL2Book, hlapi.SubParams{Coin: w.coin})
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
			normalized, err := normalizeBook(ev.Payload)
			if err != nil {
				safeError(w.logger, w.onError, err)
				continue
			}
			safeUpdate(w.logger, w.onUpdate, normalized)
		}
	}()
	return nil
}

func normalizeBook(payload any) (map[string]any, error) {
	raw, ok := payload.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected l2Book payload shape")
	}
	levels, ok := raw["levels"].([]any)
	if !ok || len(levels) != 2 {
		return nil, fmt.Errorf("l2Book payload missing two-level array")
	}
	return map[string]any{
		"bids": levels[0],
		"asks": levels[1],
		"time": raw["time"],
	}, nil
}

// Stop unsubscribes then closes the transport, swallowing every error.
// Safe to call at any time, any number of times.
func (w *BookWatcher) Stop() {
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
