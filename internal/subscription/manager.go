// Package subscription implements the component that keeps the
// cache fresh: it owns the reconnecting push transport and the HTTP
// info client, fans inbound events into cache slots, and refreshes
// metadata on a timer.
package subscription

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"hlcli/internal/cache"
	"hlcli/internal/domain"
	"hlcli/internal/hlapi"
)

const perpMetaRefreshInterval = 60 * time.Second

// Manager owns the push transport and cache refresh lifecycle.
type Manager struct {
	transport hlapi.Transport
	info      hlapi.InfoClient
	cache     *cache.Cache
	logger    *slog.Logger

	mu   sync.Mutex
	subs []hlapi.Subscription

	stopTimer context.CancelFunc
	wg        sync.WaitGroup

	metrics EventMetrics
}

// EventMetrics receives event/error counters. Implemented by
// *daemon.Metrics; nil-safe so a Manager can be used without one.
type EventMetrics interface {
	RecordPushEvent()
	RecordMetaRefresh()
	RecordError()
	SetTransportConnected(bool)
}

// SetMetrics attaches an event-counter sink. Optional.
func (m *Manager) SetMetrics(metrics EventMetrics) {
	m.metrics = metrics
}

// New builds a Manager bound to a transport and info client. Neither is
// connected or subscribed until Start runs.
func New(transport hlapi.Transport, info hlapi.InfoClient, c *cache.Cache, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{transport: transport, info: info, cache: c, logger: logger}
}

// Start runs the five-step startup sequence: connect, subscribe to the
// two push feeds, perform the initial metadata fetch, and schedule the
// repeating refresh. It returns once the transport is ready and the
// initial metadata fetch has completed (failures there are logged, not
// fatal — push-driven slots are unaffected).
func (m *Manager) Start(ctx context.Context) error {
	if err := m.transport.Connect(ctx); err != nil {
		return err
	}

	if err := m.subscribeMids(ctx); err != nil {
		return err
	}
	if err := m.subscribeAssetCtxs(ctx); err != nil {
		return err
	}

	m.refreshPerpMeta(ctx)

	timerCtx, cancel := context.WithCancel(ctx)
	m.stopTimer = cancel
	m.wg.Add(1)
	go m.refreshLoop(timerCtx)

	return nil
}

func (m *Manager) subscribeMids(ctx context.Context) error {
	sub, events, err := m.transport.Subscribe(hlapi.FeedAllMids, hlapi.SubParams{})
	if err != nil {
		return err
	}
	m.addSub(sub)
	go m.forward(events, m.handleMids)
	return nil
}

func (m *Manager) subscribeAssetCtxs(ctx context.Context) error {
	sub, events, err := m.transport.Subscribe(hlapi.FeedAllDexsAssetCtxs, hlapi.SubParams{})
	if err != nil {
		return err
	}
	m.addSub(sub)
	go m.forward(events, m.handleAssetCtxs)
	return nil
}

func (m *Manager) addSub(sub hlapi.Subscription) {
	m.mu.Lock()
	m.subs = append(m.subs, sub)
	m.mu.Unlock()
}

// forward drains events onto handler, isolating any panic so a single
// malformed push never kills the subscription.
func (m *Manager) forward(events <-chan hlapi.Event, handle func(hlapi.Event)) {
	for ev := range events {
		m.safeHandle(ev, handle)
	}
}

func (m *Manager) safeHandle(ev hlapi.Event, handle func(hlapi.Event)) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("push event handler panicked", slog.Any("recover", r))
			if m.metrics != nil {
				m.metrics.RecordError()
			}
		}
	}()
	handle(ev)
	if m.metrics != nil {
		m.metrics.RecordPushEvent()
	}
}

func (m *Manager) handleMids(ev hlapi.Event) {
	mids, ok := ev.Payload.(domain.Mids)
	if !ok {
		m.logger.Warn("unexpected payload for allMids event")
		return
	}
	m.cache.Put(cache.Mids, map[string]string(mids))
}

func (m *Manager) handleAssetCtxs(ev hlapi.Event) {
	m.cache.Put(cache.AssetCtxs, ev.Payload)
}

func (m *Manager) refreshLoop(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(perpMetaRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.refreshPerpMeta(ctx)
		}
	}
}

func (m *Manager) refreshPerpMeta(ctx context.Context) {
	if m.metrics != nil {
		m.metrics.RecordMetaRefresh()
	}
	metas, err := m.info.AllPerpMetas(ctx)
	if err != nil {
		m.logger.Error("perp metadata refresh failed", slog.Any("error", err))
		if m.metrics != nil {
			m.metrics.RecordError()
		}
		return
	}
	m.cache.Put(cache.PerpMetas, metas)
}

// Connected reports whether the underlying push transport's socket is
// currently open.
func (m *Manager) Connected() bool {
	return m.transport.Connected()
}

// Stop cancels the refresh timer, unsubscribes every handle in reverse
// order swallowing errors, and closes the transport. It is idempotent
// and bounded: no unsubscribe error blocks progress.
func (m *Manager) Stop(ctx context.Context) error {
	if m.stopTimer != nil {
		m.stopTimer()
	}
	m.wg.Wait()

	m.mu.Lock()
	subs := make([]hlapi.Subscription, len(m.subs))
	copy(subs, m.subs)
	m.subs = nil
	m.mu.Unlock()

	for i := len(subs) - 1; i >= 0; i-- {
		if err := subs[i].Unsubscribe(); err != nil {
			m.logger.Warn("unsubscribe failed during stop", slog.Any("error", err))
		}
	}

	return m.transport.Close()
}
