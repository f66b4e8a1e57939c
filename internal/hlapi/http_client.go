package hlapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPInfoClient is the stateless HTTP info API: a single unsigned POST
// helper reused by every operation.
type HTTPInfoClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPInfoClient builds a client against baseURL (e.g. .../info).
func NewHTTPInfoClient(baseURL string) *HTTPInfoClient {
	return &HTTPInfoClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *HTTPInfoClient) post(ctx context.Context, body map[string]any) (any, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
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
		return nil, fmt.Errorf("info request %v: status %d: %s", body["type"], resp.StatusCode, string(data))
	}

	var result any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("info request %v: decode response: %w", body["type"], err)
	}
	return result, nil
}

func (c *HTTPInfoClient) AllMids(ctx context.Context) (any, error) {
	return c.post(ctx, map[string]any{"type": "allMids"})
}

func (c *HTTPInfoClient) Meta(ctx context.Context) (any, error) {
	return c.post(ctx, map[string]any{"type": "meta"})
}

func (c *HTTPInfoClient) AllPerpMetas(ctx context.Context) (any, error) {
	return c.post(ctx, map[string]any{"type": "allPerpMetas"})
}

func (c *HTTPInfoClient) MetaAndAssetCtxs(ctx context.Context) (any, error) {
	return c.post(ctx, map[string]any{"type": "metaAndAssetCtxs"})
}

func (c *HTTPInfoClient) SpotMeta(ctx context.Context) (any, error) {
	return c.post(ctx, map[string]any{"type": "spotMeta"})
}

func (c *HTTPInfoClient) ClearinghouseState(ctx context.Context, user string) (any, error) {
	return c.post(ctx, map[string]any{"type": "clearinghouseState", "user": user})
}

func (c *HTTPInfoClient) SpotClearinghouseState(ctx context.Context, user string) (any, error) {
	return c.post(ctx, map[string]any{"type": "spotClearinghouseState", "user": user})
}

func (c *HTTPInfoClient) OpenOrders(ctx context.Context, user string) (any, error) {
	return c.post(ctx, map[string]any{"type": "openOrders", "user": user})
}

func (c *HTTPInfoClient) L2Book(ctx context.Context, coin string) (any, error) {
	return c.post(ctx, map[string]any{"type": "l2Book", "coin": coin})
}

func (c *HTTPInfoClient) Referral(ctx context.Context, user string) (any, error) {
	return c.post(ctx, map[string]any{"type": "referral", "user": user})
}

func (c *HTTPInfoClient) UserRole(ctx context.Context, user string) (any, error) {
	return c.post(ctx, map[string]any{"type": "userRole", "user": user})
}

func (c *HTTPInfoClient) ExtraAgents(ctx context.Context, user string) (any, error) {
	return c.post(ctx, map[string]any{"type": "extraAgents", "user": user})
}

func (c *HTTPInfoClient) ActiveAssetData(ctx context.Context, user, coin string) (any, error) {
	return c.post(ctx, map[string]any{"type": "activeAssetData", "user": user, "coin": coin})
}
