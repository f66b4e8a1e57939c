// Package fallback implements a try-daemon-then-try-upstream policy:
// for every cache-backed read, try the
// daemon exactly once and fall back to the upstream HTTP API exactly
// once if that attempt fails. It is not a retry loop.
package fallback

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"hlcli/internal/ipc"
)

// Orchestrator mediates reads between the daemon's IPC socket and the
// direct upstream info client. Writes never go through here.
type Orchestrator struct {
	socketPath string
	info       InfoClient
}

// InfoClient is the subset of hlapi.InfoClient the orchestrator calls
// directly when the daemon is unavailable.
type InfoClient interface {
	AllMids(ctx context.Context) (any, error)
	AllPerpMetas(ctx context.Context) (any, error)
	MetaAndAssetCtxs(ctx context.Context) (any, error)
}

// New builds an Orchestrator bound to the daemon's socket path and a
// direct upstream client to fall back to.
func New(socketPath string, info InfoClient) *Orchestrator {
	return &Orchestrator{socketPath: socketPath, info: info}
}

// dial attempts exactly one daemon connection, returning nil if nothing
// is listening or the dial fails — never an error the caller needs to
// branch on, since either outcome means "fall back". No request is sent
// here; the first round-trip is the caller's cache read.
func (o *Orchestrator) dial() *ipc.Client {
	client, err := ipc.TryConnect(o.socketPath)
	if err != nil || client == nil {
		return nil
	}
	return client
}

// GetPrices returns the mid-price map (optionally narrowed to one coin)
// via the daemon if reachable, otherwise falls back to exactly one
// direct allMids call.
func (o *Orchestrator) GetPrices(ctx context.Context, coin string) (map[string]string, error) {
	if client := o.dial(); client != nil {
		defer client.Close()
		mids, _, err := client.GetPrices(ctx, coin)
		if err == nil {
			return mids, nil
		}
	}

	raw, err := o.info.AllMids(ctx)
	if err != nil {
		return nil, err
	}
	mids, err := decodeMids(raw)
	if err != nil {
		return nil, err
	}
	if coin == "" {
		return mids, nil
	}
	symbol := strings.ToUpper(coin)
	price, ok := mids[symbol]
	if !ok {
		return nil, fmt.Errorf("Coin not found: %s", symbol)
	}
	return map[string]string{symbol: price}, nil
}

// GetAssetCtxs returns the cached per-dex asset contexts via the daemon
// if reachable, otherwise falls back to exactly one direct
// metaAndAssetCtxs call.
func (o *Orchestrator) GetAssetCtxs(ctx context.Context) (any, error) {
	if client := o.dial(); client != nil {
		defer client.Close()
		raw, err := client.GetAssetCtxs(ctx)
		if err == nil {
			return decodeAny(raw)
		}
	}
	return o.info.MetaAndAssetCtxs(ctx)
}

// GetPerpMeta returns the cached perpetual metadata via the daemon if
// reachable, otherwise falls back to exactly one direct AllPerpMetas call.
func (o *Orchestrator) GetPerpMeta(ctx context.Context) (any, error) {
	if client := o.dial(); client != nil {
		defer client.Close()
		raw, err := client.GetPerpMeta(ctx)
		if err == nil {
			return decodeAny(raw)
		}
	}
	return o.info.AllPerpMetas(ctx)
}

// GetCombined returns perp metadata together with asset contexts in one
// logical call, preserving the "at most one upstream HTTP call" bound
// by reusing MetaAndAssetCtxs for the fallback path.
func (o *Orchestrator) GetCombined(ctx context.Context) (any, error) {
	if client := o.dial(); client != nil {
		defer client.Close()
		metaRaw, metaErr := client.GetPerpMeta(ctx)
		ctxsRaw, ctxsErr := client.GetAssetCtxs(ctx)
		if metaErr == nil && ctxsErr == nil {
			meta, metaErr := decodeAny(metaRaw)
			ctxs, ctxsErr := decodeAny(ctxsRaw)
			if metaErr == nil && ctxsErr == nil {
				return []any{meta, ctxs}, nil
			}
		}
	}
	return o.info.MetaAndAssetCtxs(ctx)
}

func decodeAny(raw json.RawMessage) (any, error) {
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// decodeMids normalizes either a daemon's already-typed map or a raw
// upstream allMids response into map[string]string.
func decodeMids(raw any) (map[string]string, error) {
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var mids map[string]string
	if err := json.Unmarshal(b, &mids); err != nil {
		return nil, err
	}
	return mids, nil
}
