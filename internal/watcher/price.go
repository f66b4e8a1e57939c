package watcher

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"hlcli/internal/domain"
	"hlcli/internal/hlapi"
	"hlcli/internal/ipc"
)

const pricePollInterval = 500 * time.Millisecond

// PriceWatcher tracks a single coin's mid price. It picks exactly one
// of two modes at Start and never switches: poll the daemon if one is
// running, otherwise open a direct push subscription.
type PriceWatcher struct {
	socketPath       string
	coin             string
	transportFactory func() hlapi.Transport
	onUpdate         OnUpdate
	onError          OnError
	logger           *slog.Logger

	mu        sync.Mutex
	cancel    context.CancelFunc
	client    *ipc.Client
	transport hlapi.Transport
	sub       hlapi.Subscription
	wg        sync.WaitGroup
}

// NewPriceWatcher builds a watcher for coin. transportFactory is called
// at most once, and only if the daemon is not reachable at Start time.
func NewPriceWatcher(socketPath, coin string, transportFactory func() hlapi.Transport, onUpdate OnUpdate, onError OnError, logger *slog.Logger) *PriceWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &PriceWatcher{
		socketPath:       socketPath,
		coin:             strings.ToUpper(coin),
		transportFactory: transportFactory,
		onUpdate:         onUpdate,
		onError:          onError,
		logger:           logger,
	}
}

// Start commits to poll or push mode based on whether the daemon
// answers right now, then runs that mode until Stop is called.
func (w *PriceWatcher) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()

	if ipc.ServerRunning(ctx, w.socketPath) {
		return w.startPoll(ctx)
	}
	return w.startPush(ctx)
}

func (w *PriceWatcher) startPoll(ctx context.Context) error {
	client, err := ipc.Dial(w.socketPath)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.client = client
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(pricePollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.pollOnce(ctx)
			}
		}
	}()
	return nil
}

func (w *PriceWatcher) pollOnce(ctx context.Context) {
	mids, ageMS, err := w.client.GetPrices(ctx, w.coin)
	if err != nil {
		safeError(w.logger, w.onError, err)
		return
	}
	if price, ok := mids[w.coin]; ok {
		w.logger.Debug("polled price", slog.String("coin", w.coin), slog.Int64("age_ms", ageMS))
		safeUpdate(w.logger, w.onUpdate, map[string]string{w.coin: price})
	}
}

func (w *PriceWatcher) startPush(ctx context.Context) error {
	transport := w.transportFactory()
	if err := transport.Connect(ctx); err != nil {
		return err
	}
	sub, events, err := transport.Subscribe(hlapi.FeedAllMids, hlapi.SubParams{})
	if err != nil {
		transport.Close()
		return err
	}

	w.mu.Lock()
	w.transport = transport
	w.sub = sub
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for ev := range events {
			mids, ok := ev.Payload.(domain.Mids)
			if !ok {
				continue
			}
			if price, ok := mids[w.coin]; ok {
				safeUpdate(w.logger, w.onUpdate, map[string]string{w.coin: price})
			}
		}
	}()
	return nil
}

// Stop unsubscribes (if in push mode) or disconnects (if in poll mode),
// then closes the transport. Safe to call at any time, any number of
// times, and never raises.
func (w *PriceWatcher) Stop() {
	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
	}
	client := w.client
	transport := w.transport
	sub := w.sub
	w.client = nil
	w.transport = nil
	w.sub = nil
	w.mu.Unlock()

	// Unsubscribe and close first: in push mode the delivery goroutine
	// only exits once the transport's event channel closes, so Wait
	// would deadlock if it ran before this.
	if sub != nil {
		sub.Unsubscribe()
	}
	if transport != nil {
		transport.Close()
	}
	if client != nil {
		client.Close()
	}

	w.wg.Wait()
}
