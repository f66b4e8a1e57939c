package hlapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"hlcli/internal/signing"
)

// HTTPExchangeClient is the authenticated trading API. Every request is
// signed via signing.Signer before it is sent; signature derivation
// itself is the out-of-scope boundary.
type HTTPExchangeClient struct {
	baseURL    string
	signer     signing.Signer
	httpClient *http.Client
}

// NewHTTPExchangeClient builds a client against baseURL (e.g. .../exchange).
func NewHTTPExchangeClient(baseURL string, signer signing.Signer) *HTTPExchangeClient {
	return &HTTPExchangeClient{
		baseURL: baseURL,
		signer:  signer,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *HTTPExchangeClient) send(ctx context.Context, action map[string]any) (any, error) {
	payload, err := json.Marshal(action)
	if err != nil {
		return nil, err
	}

	signature, err := c.signer.Sign(payload)
	if err != nil {
		return nil, err
	}

	envelope := map[string]any{
		"action":    action,
		"signature": signature,
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("exchange request %v: status %d: %s", action["type"], resp.StatusCode, string(data))
	}

	var result any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("exchange request %v: decode response: %w", action["type"], err)
	}
	return result, nil
}

func (c *HTTPExchangeClient) Order(ctx context.Context, req OrderRequest) (any, error) {
	return c.send(ctx, map[string]any{
		"type":       "order",
		"coin":       req.Coin,
		"isBuy":      req.IsBuy,
		"limitPx":    req.LimitPx,
		"sz":         req.Sz,
		"reduceOnly": req.ReduceOnly,
		"tif":        req.Tif,
	})
}

func (c *HTTPExchangeClient) Cancel(ctx context.Context, req CancelRequest) (any, error) {
	return c.send(ctx, map[string]any{
		"type": "cancel",
		"coin": req.Coin,
		"oid":  req.Oid,
	})
}

func (c *HTTPExchangeClient) UpdateLeverage(ctx context.Context, coin string, leverage int, isCross bool) (any, error) {
	return c.send(ctx, map[string]any{
		"type":     "updateLeverage",
		"coin":     coin,
		"leverage": leverage,
		"isCross":  isCross,
	})
}

func (c *HTTPExchangeClient) SetReferrer(ctx context.Context, code string) (any, error) {
	return c.send(ctx, map[string]any{
		"type": "setReferrer",
		"code": code,
	})
}
