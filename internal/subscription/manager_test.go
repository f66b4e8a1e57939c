package subscription

import (
	"context"
	"errors"
	"testing"
	"time"

	"hlcli/internal/cache"
	"hlcli/internal/domain"
	"hlcli/internal/hlapi"
)

type fakeSub struct {
	unsubscribed *bool
	err          error
}

func (f fakeSub) Unsubscribe() error {
	*f.unsubscribed = true
	return f.err
}

type fakeTransport struct {
	connected    bool
	closed       bool
	subscribeErr error
	chans        map[string]chan hlapi.Event
	unsubFlags   []*bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{chans: make(map[string]chan hlapi.Event)}
}

func (f *fakeTransport) Connect(ctx context.Context) error {
	f.connected = true
	return nil
}

func (f *fakeTransport) Connected() bool { return f.connected && !f.closed }

func (f *fakeTransport) Subscribe(feed string, params hlapi.SubParams) (hlapi.Subscription, <-chan hlapi.Event, error) {
	if f.subscribeErr != nil {
		return nil, nil, f.subscribeErr
	}
	ch := make(chan hlapi.Event, 4)
	f.chans[feed] = ch
	flag := new(bool)
	f.unsubFlags = append(f.unsubFlags, flag)
	return fakeSub{unsubscribed: flag}, ch, nil
}

func (f *fakeTransport) Close() error {
	f.closed = true
	return nil
}

type fakeInfoClient struct {
	hlapi.InfoClient
	metaCalls int
	metaErr   error
}

func (f *fakeInfoClient) AllPerpMetas(ctx context.Context) (any, error) {
	f.metaCalls++
	if f.metaErr != nil {
		return nil, f.metaErr
	}
	return []string{"BTC", "ETH"}, nil
}

func TestStart_SubscribesAndFetchesInitialMeta(t *testing.T) {
	tr := newFakeTransport()
	info := &fakeInfoClient{}
	c := cache.New()
	m := New(tr, info, c, nil)

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer m.Stop(context.Background())

	if !tr.connected {
		t.Error("expected transport to be connected")
	}
	if info.metaCalls != 1 {
		t.Errorf("got %d initial meta fetches, want 1", info.metaCalls)
	}
	if _, _, present := c.Get(cache.PerpMetas); !present {
		t.Error("expected perp metadata to be cached after start")
	}
}

func TestHandleMids_PopulatesCache(t *testing.T) {
	tr := newFakeTransport()
	info := &fakeInfoClient{}
	c := cache.New()
	m := New(tr, info, c, nil)

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer m.Stop(context.Background())

	tr.chans[hlapi.FeedAllMids] <- hlapi.Event{Kind: hlapi.FeedAllMids, Payload: domain.Mids{"BTC": "60000"}}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if payload, _, present := c.Get(cache.Mids); present {
			if payload.(map[string]string)["BTC"] == "60000" {
				return
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("mids cache slot was never populated from push event")
}

func TestHandleMids_MalformedPayloadDoesNotCrash(t *testing.T) {
	tr := newFakeTransport()
	info := &fakeInfoClient{}
	c := cache.New()
	m := New(tr, info, c, nil)

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer m.Stop(context.Background())

	tr.chans[hlapi.FeedAllMids] <- hlapi.Event{Kind: hlapi.FeedAllMids, Payload: "not a map"}
	tr.chans[hlapi.FeedAllMids] <- hlapi.Event{Kind: hlapi.FeedAllMids, Payload: domain.Mids{"ETH": "3000"}}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if payload, _, present := c.Get(cache.Mids); present {
			if payload.(map[string]string)["ETH"] == "3000" {
				return
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("handler did not recover from malformed payload")
}

func TestRefreshPerpMeta_ErrorDoesNotClearCache(t *testing.T) {
	tr := newFakeTransport()
	info := &fakeInfoClient{}
	c := cache.New()
	m := New(tr, info, c, nil)

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer m.Stop(context.Background())

	info.metaErr = errors.New("upstream unavailable")
	m.refreshPerpMeta(context.Background())

	if _, _, present := c.Get(cache.PerpMetas); !present {
		t.Error("a failed refresh must not clear a previously populated slot")
	}
}

func TestStop_UnsubscribesInReverseOrderAndClosesTransport(t *testing.T) {
	tr := newFakeTransport()
	info := &fakeInfoClient{}
	c := cache.New()
	m := New(tr, info, c, nil)

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := m.Stop(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, flag := range tr.unsubFlags {
		if !*flag {
			t.Errorf("subscription %d was never unsubscribed", i)
		}
	}
	if !tr.closed {
		t.Error("expected transport to be closed after stop")
	}
}

func TestStop_IsIdempotent(t *testing.T) {
	tr := newFakeTransport()
	info := &fakeInfoClient{}
	c := cache.New()
	m := New(tr, info, c, nil)

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := m.Stop(context.Background()); err != nil {
		t.Fatalf("unexpected error on first stop: %v", err)
	}
	if err := m.Stop(context.Background()); err != nil {
		t.Fatalf("unexpected error on second stop: %v", err)
	}
}
