// Package hlapi names the upstream collaborators the core depends on:
// a reconnecting push transport and an HTTP info/exchange client. Their
// wire encoding is deliberately not specified here — callers depend
// only on these interfaces, identifying feeds by the semantic
// names in the table below rather than by request shape.
package hlapi

import "context"

// Feed names recognized by Subscribe. Each yields a stream of typed
// events decoded from whatever the concrete transport actually sends.
const (
	FeedAllMids               = "allMids"
	FeedAllDexsAssetCtxs      = "allDexsAssetCtxs"
	FeedL2Book                = "l2Book"
	FeedAllDexsClearinghouse  = "allDexsClearinghouseState"
	FeedOrderUpdates          = "orderUpdates"
	FeedActiveAssetData       = "activeAssetData"
)

// SubParams narrows a feed subscription to a coin and/or user address;
// unused fields are left zero.
type SubParams struct {
	Coin string
	User string
}

// Event is one message delivered on a subscription. Kind mirrors the
// feed name it was delivered for; Payload is feed-specific. WSTransport
// decodes allMids into domain.Mids and allDexsAssetCtxs into
// []domain.DexAssetContexts; every other feed (or a payload that does not
// fit those types) arrives as generic decoded JSON.
type Event struct {
	Kind    string
	Payload any
}

// Subscription is the opaque handle a caller holds from subscribe to
// unsubscribe. It is owned by whichever component created it and used
// only to unsubscribe.
type Subscription interface {
	Unsubscribe() error
}

// Transport is the reconnecting push connection. Implementations retry
// internally; callers never see a transient disconnect as an error from
// Subscribe, only as a change observable via Connected.
type Transport interface {
	// Connect opens the connection and blocks until ready (or ctx is done).
	Connect(ctx context.Context) error
	// Connected reports whether the underlying socket is currently open.
	Connected() bool
	// Subscribe opens a logical subscription; events are delivered on the
	// returned channel until Unsubscribe is called or the transport closes.
	Subscribe(feed string, params SubParams) (Subscription, <-chan Event, error)
	// Close tears down the connection. Idempotent.
	Close() error
}

// InfoClient is the stateless HTTP info API.
type InfoClient interface {
	AllMids(ctx context.Context) (any, error)
	Meta(ctx context.Context) (any, error)
	AllPerpMetas(ctx context.Context) (any, error)
	MetaAndAssetCtxs(ctx context.Context) (any, error)
	SpotMeta(ctx context.Context) (any, error)
	ClearinghouseState(ctx context.Context, user string) (any, error)
	SpotClearinghouseState(ctx context.Context, user string) (any, error)
	OpenOrders(ctx context.Context, user string) (any, error)
	L2Book(ctx context.Context, coin string) (any, error)
	Referral(ctx context.Context, user string) (any, error)
	UserRole(ctx context.Context, user string) (any, error)
	ExtraAgents(ctx context.Context, user string) (any, error)
	ActiveAssetData(ctx context.Context, user, coin string) (any, error)
}

// ExchangeClient is the authenticated trading API. It never consults the
// cache or daemon — writes always go straight through.
type ExchangeClient interface {
	Order(ctx context.Context, req OrderRequest) (any, error)
	Cancel(ctx context.Context, req CancelRequest) (any, error)
	UpdateLeverage(ctx context.Context, coin string, leverage int, isCross bool) (any, error)
	SetReferrer(ctx context.Context, code string) (any, error)
}

// OrderRequest is the boundary shape for a single order placement.
type OrderRequest struct {
	Coin       string
	IsBuy      bool
	LimitPx    string
	Sz         string
	ReduceOnly bool
	Tif        string // "Gtc", "Ioc", "Alo"
}

// CancelRequest identifies an order to cancel.
type CancelRequest struct {
	Coin string
	Oid  int64
}
