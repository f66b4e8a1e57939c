package watcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"hlcli/internal/hlapi"
)

type fakeSub struct {
	mu           sync.Mutex
	unsubscribed bool
}

func (f *fakeSub) Unsubscribe() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribed = true
	return nil
}

type fakeTransport struct {
	mu      sync.Mutex
	closed  bool
	chans   map[string]chan hlapi.Event
	subs    []*fakeSub
	connErr error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{chans: make(map[string]chan hlapi.Event)}
}

func (f *fakeTransport) Connect(ctx context.Context) error { return f.connErr }
func (f *fakeTransport) Connected() bool                   { return !f.closed }

func (f *fakeTransport) Subscribe(feed string, params hlapi.SubParams) (hlapi.Subscription, <-chan hlapi.Event, error) {
	ch := make(chan hlapi.Event, 8)
	f.mu.Lock()
	f.chans[feed] = ch
	sub := &fakeSub{}
	f.subs = append(f.subs, sub)
	f.mu.Unlock()
	return sub, ch, nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	for _, ch := range f.chans {
		close(ch)
	}
	return nil
}

type fakeInfo struct {
	hlapi.InfoClient
	mu            sync.Mutex
	openOrders    any
	openOrdersErr error
	openOrderSeq  int
	spotState     any
	spotErr       error
}

func (f *fakeInfo) OpenOrders(ctx context.Context, user string) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openOrderSeq++
	if f.openOrdersErr != nil {
		return nil, f.openOrdersErr
	}
	return f.openOrders, nil
}

func (f *fakeInfo) SpotClearinghouseState(ctx context.Context, user string) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.spotErr != nil {
		return nil, f.spotErr
	}
	return f.spotState, nil
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never became true")
}

func TestBookWatcher_NormalizesLevels(t *testing.T) {
	tr := newFakeTransport()
	var got map[string]any
	var mu sync.Mutex
	w := NewBookWatcher("BTC", tr, func(p any) {
		mu.Lock()
		got = p.(map[string]any)
		mu.Unlock()
	}, nil, nil)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer w.Stop()

	tr.chans[hlapi.FeedL2Book] <- hlapi.Event{Kind: hlapi.FeedL2Book, Payload: map[string]any{
		"levels": []any{[]any{"bid1"}, []any{"ask1"}},
		"time":   float64(123),
	}}

	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return got != nil
	})

	mu.Lock()
	defer mu.Unlock()
	if got["time"] != float64(123) {
		t.Errorf("got %+v", got)
	}
}

func TestBookWatcher_MalformedPayloadSurfacesError(t *testing.T) {
	tr := newFakeTransport()
	errCh := make(chan error, 1)
	w := NewBookWatcher("BTC", tr, nil, func(err error) { errCh <- err }, nil)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer w.Stop()

	tr.chans[hlapi.FeedL2Book] <- hlapi.Event{Kind: hlapi.FeedL2Book, Payload: "not a map"}

	select {
	case <-errCh:
	case <-time.After(time.Second):
		t.Fatal("expected onError to fire for malformed payload")
	}
}

func TestOrdersWatcher_PullsOnStartAndOnEveryEvent(t *testing.T) {
	tr := newFakeTransport()
	info := &fakeInfo{openOrders: []string{"order-1"}}
	updates := make(chan any, 4)
	w := NewOrdersWatcher("0xabc", tr, info, func(p any) { updates <- p }, nil, nil)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer w.Stop()

	select {
	case <-updates:
	case <-time.After(time.Second):
		t.Fatal("expected an initial snapshot before any push")
	}

	tr.chans[hlapi.FeedOrderUpdates] <- hlapi.Event{Kind: hlapi.FeedOrderUpdates}

	select {
	case <-updates:
	case <-time.After(time.Second):
		t.Fatal("expected a pull triggered by the push event")
	}
}

func TestOrdersWatcher_PullErrorDoesNotTearDownSubscription(t *testing.T) {
	tr := newFakeTransport()
	info := &fakeInfo{openOrdersErr: errors.New("upstream unavailable")}
	errCh := make(chan error, 4)
	w := NewOrdersWatcher("0xabc", tr, info, nil, func(err error) { errCh <- err }, nil)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer w.Stop()

	select {
	case <-errCh:
	case <-time.After(time.Second):
		t.Fatal("expected initial pull error to surface")
	}

	tr.chans[hlapi.FeedOrderUpdates] <- hlapi.Event{Kind: hlapi.FeedOrderUpdates}

	select {
	case <-errCh:
	case <-time.After(time.Second):
		t.Fatal("expected subscription to survive and retry on next push")
	}
}

func TestBalanceWatcher_MergesPerpAndSpot(t *testing.T) {
	tr := newFakeTransport()
	info := &fakeInfo{spotState: map[string]string{"usdc": "100"}}
	updates := make(chan map[string]any, 4)
	w := NewBalanceWatcher("0xabc", tr, info, func(p any) { updates <- p.(map[string]any) }, nil, nil)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer w.Stop()

	tr.chans[hlapi.FeedAllDexsClearinghouse] <- hlapi.Event{Kind: hlapi.FeedAllDexsClearinghouse, Payload: map[string]string{"marginUsed": "10"}}

	var got map[string]any
	select {
	case got = <-updates:
	case <-time.After(time.Second):
		t.Fatal("expected a merged update")
	}

	if got["spot"] == nil || got["perp"] == nil {
		t.Errorf("expected both perp and spot fields populated, got %+v", got)
	}
}

func TestBalanceWatcher_RetainsSpotSnapshotOnPullFailure(t *testing.T) {
	tr := newFakeTransport()
	info := &fakeInfo{spotState: map[string]string{"usdc": "100"}}
	updates := make(chan map[string]any, 4)
	w := NewBalanceWatcher("0xabc", tr, info, func(p any) { updates <- p.(map[string]any) }, nil, nil)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer w.Stop()

	tr.chans[hlapi.FeedAllDexsClearinghouse] <- hlapi.Event{Kind: hlapi.FeedAllDexsClearinghouse, Payload: "perp-1"}
	first := <-updates

	info.mu.Lock()
	info.spotErr = errors.New("spot pull failed")
	info.mu.Unlock()

	tr.chans[hlapi.FeedAllDexsClearinghouse] <- hlapi.Event{Kind: hlapi.FeedAllDexsClearinghouse, Payload: "perp-2"}
	second := <-updates

	if second["spot"] == nil {
		t.Error("expected previous spot snapshot to be retained on pull failure")
	}
	if first["spot"] == nil {
		t.Error("sanity: first update should have had a spot snapshot")
	}
}

func TestWatchers_StopIsIdempotentAndNeverRaises(t *testing.T) {
	tr := newFakeTransport()
	w := NewPositionWatcher("0xabc", tr, nil, nil, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	w.Stop()
	w.Stop()
	w.Stop()
}
