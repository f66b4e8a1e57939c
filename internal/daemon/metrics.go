package daemon

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability for one daemon process,
// without an external dependency: atomic counters and gauges, read out
// as a point-in-time snapshot and surfaced through getStatus.
type Metrics struct {
	pushEventsProcessed atomic.Uint64
	metaRefreshCount    atomic.Uint64
	errorsTotal         atomic.Uint64

	activeIPCConnections atomic.Int32
	transportConnected   atomic.Int32 // 1 = open, 0 = closed
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	PushEventsProcessed  uint64
	MetaRefreshCount     uint64
	ErrorsTotal          uint64
	ActiveIPCConnections int32
	TransportConnected   bool
	Timestamp            time.Time
}

// RecordPushEvent records one push event whose handler returned without
// panicking. A payload the handler rejects as malformed and only logs is
// still counted here.
func (m *Metrics) RecordPushEvent() {
	m.pushEventsProcessed.Add(1)
}

// RecordMetaRefresh records one perp-metadata refresh attempt,
// successful or not — RecordError covers the failure case separately.
func (m *Metrics) RecordMetaRefresh() {
	m.metaRefreshCount.Add(1)
}

// RecordError records a handled error: a panicking push handler or a
// failed metadata refresh. A malformed push payload that the handler
// logs and returns from is not counted here.
func (m *Metrics) RecordError() {
	m.errorsTotal.Add(1)
}

// IncrementIPCConnections increments the active-connection gauge by 1.
func (m *Metrics) IncrementIPCConnections() {
	m.activeIPCConnections.Add(1)
}

// DecrementIPCConnections decrements the active-connection gauge by 1.
func (m *Metrics) DecrementIPCConnections() {
	m.activeIPCConnections.Add(-1)
}

// SetTransportConnected records the push transport's current state.
func (m *Metrics) SetTransportConnected(connected bool) {
	if connected {
		m.transportConnected.Store(1)
	} else {
		m.transportConnected.Store(0)
	}
}

// Snapshot returns the current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		PushEventsProcessed:  m.pushEventsProcessed.Load(),
		MetaRefreshCount:     m.metaRefreshCount.Load(),
		ErrorsTotal:          m.errorsTotal.Load(),
		ActiveIPCConnections: m.activeIPCConnections.Load(),
		TransportConnected:   m.transportConnected.Load() == 1,
		Timestamp:            time.Now(),
	}
}
