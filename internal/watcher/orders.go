package watcher

import (
	"context"
	"log/slog"
	"sync"

	"hlcli/internal/hlapi"
)

// OrdersWatcher treats the order-updates push feed purely as a
// change-trigger: on start and on every push event it issues an HTTP
// pull of the full open-orders list and forwards that, never merging
// fields from the delta. A failed pull is surfaced via onError and does
// not tear down the subscription — the next push retries it.
type OrdersWatcher struct {
	user      string
	transport hlapi.Transport
	info      hlapi.InfoClient
	onUpdate  OnUpdate
	onError   OnError
	logger    *slog.Logger

	mu  sync.Mutex
	sub hlapi.Subscription
	wg  sync.WaitGroup
}

// NewOrdersWatcher builds a watcher for user's open orders, pulled via
// info whenever transport's order-updates feed fires.
func NewOrdersWatcher(user string, transport hlapi.Transport, info hlapi.InfoClient, onUpdate OnUpdate, onError OnError, logger *slog.Logger) *OrdersWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrdersWatcher{user: user, transport: transport, info: info, onUpdate: onUpdate, onError: onError, logger: logger}
}

func (w *OrdersWatcher) Start(ctx context.Context) error {
	if err := w.transport.Connect(ctx); err != nil {
		return err
	}
	sub, events, err := w.transport.Subscribe(hlapi.FeedOrderUpdates, hlapi.SubParams{User: w.user})
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.sub = sub
	w.mu.Unlock()

	// Initial snapshot, emitted before the first push arrives.
	w.pull(ctx)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for range events {
			w.pull(ctx)
		}
	}()
	return nil
}

func (w *OrdersWatcher) pull(ctx context.Context) {
	orders, err := w.info.OpenOrders(ctx, w.user)
	if err != nil {
		safeError(w.logger, w.onError, err)
		return
	}
	safeUpdate(w.logger, w.onUpdate, orders)
}

// Stop unsubscribes then closes the transport, swallowing every error.
func (w *OrdersWatcher) Stop() {
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
