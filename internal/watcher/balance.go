package watcher

import (
	"context"
	"log/slog"
	"sync"

	"hlcli/internal/hlapi"
)

// BalanceWatcher holds a push subscription to an address's
// clearinghouse state; on each event it also pulls spot clearinghouse
// state over HTTP and merges the two into one payload. If the spot pull
// fails, the previous spot snapshot is retained and the merged update
// is still delivered.
//
// The same mechanism backs both the balance and portfolio surfaces —
// they differ only in which fields the caller reads off the merged
// payload, not in how it is produced.
type BalanceWatcher struct {
	user      string
	transport hlapi.Transport
	info      hlapi.InfoClient
	onUpdate  OnUpdate
	onError   OnError
	logger    *slog.Logger

	mu       sync.Mutex
	sub      hlapi.Subscription
	lastSpot any
	wg       sync.WaitGroup
}

// NewBalanceWatcher builds a watcher merging user's perp clearinghouse
// push state with a spot clearinghouse pull on every event.
func NewBalanceWatcher(user string, transport hlapi.Transport, info hlapi.InfoClient, onUpdate OnUpdate, onError OnError, logger *slog.Logger) *BalanceWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &BalanceWatcher{user: user, transport: transport, info: info, onUpdate: onUpdate, onError: onError, logger: logger}
}

// NewPortfolioWatcher is the same merge mechanism under the name the
// portfolio surface uses.
func NewPortfolioWatcher(user string, transport hlapi.Transport, info hlapi.InfoClient, onUpdate OnUpdate, onError OnError, logger *slog.Logger) *BalanceWatcher {
	return NewBalanceWatcher(user, transport, info, onUpdate, onError, logger)
}

func (w *BalanceWatcher) Start(ctx context.Context) error {
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
			w.mergeAndDeliver(ctx, ev.Payload)
		}
	}()
	return nil
}

func (w *BalanceWatcher) mergeAndDeliver(ctx context.Context, perp any) {
	spot, err := w.info.SpotClearinghouseState(ctx, w.user)
	if err != nil {
		safeError(w.logger, w.onError, err)
		w.mu.Lock()
		spot = w.lastSpot
		w.mu.Unlock()
	} else {
		w.mu.Lock()
		w.lastSpot = spot
		w.mu.Unlock()
	}

	safeUpdate(w.logger, w.onUpdate, map[string]any{
		"perp": perp,
		"spot": spot,
	})
}

// Stop unsubscribes then closes the transport, swallowing every error.
func (w *BalanceWatcher) Stop() {
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
