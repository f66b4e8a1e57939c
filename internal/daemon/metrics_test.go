package daemon

import "testing"

func TestMetrics_RecordPushEvent(t *testing.T) {
	m := &Metrics{}

	m.RecordPushEvent()
	m.RecordPushEvent()
	m.RecordPushEvent()

	snap := m.Snapshot()
	if snap.PushEventsProcessed != 3 {
		t.Errorf("expected 3 push events, got %d", snap.PushEventsProcessed)
	}
}

func TestMetrics_IPCConnectionGauge(t *testing.T) {
	m := &Metrics{}

	m.IncrementIPCConnections()
	m.IncrementIPCConnections()
	m.IncrementIPCConnections()

	if snap := m.Snapshot(); snap.ActiveIPCConnections != 3 {
		t.Errorf("expected 3 connections, got %d", snap.ActiveIPCConnections)
	}

	m.DecrementIPCConnections()
	if snap := m.Snapshot(); snap.ActiveIPCConnections != 2 {
		t.Errorf("expected 2 connections, got %d", snap.ActiveIPCConnections)
	}
}

func TestMetrics_TransportConnectedGauge(t *testing.T) {
	m := &Metrics{}

	if snap := m.Snapshot(); snap.TransportConnected {
		t.Error("expected transport disconnected initially")
	}

	m.SetTransportConnected(true)
	if snap := m.Snapshot(); !snap.TransportConnected {
		t.Error("expected transport connected")
	}

	m.SetTransportConnected(false)
	if snap := m.Snapshot(); snap.TransportConnected {
		t.Error("expected transport disconnected")
	}
}

func TestMetrics_ErrorsAndRefreshCounters(t *testing.T) {
	m := &Metrics{}

	m.RecordMetaRefresh()
	m.RecordMetaRefresh()
	m.RecordError()

	snap := m.Snapshot()
	if snap.MetaRefreshCount != 2 {
		t.Errorf("expected 2 refreshes, got %d", snap.MetaRefreshCount)
	}
	if snap.ErrorsTotal != 1 {
		t.Errorf("expected 1 error, got %d", snap.ErrorsTotal)
	}
}
