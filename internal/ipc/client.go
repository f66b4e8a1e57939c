package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"hlcli/internal/errs"
)

// RequestTimeout is how long a call blocks waiting for a response before
// it gives up and reports itself as timed out.
const RequestTimeout = 5 * time.Second

type pendingCall struct {
	resp chan Response
	err  chan error
}

// Client is a connection to the daemon's local socket that
// multiplexes concurrent requests over a single stream by client-chosen
// id, and fails every outstanding call the moment the connection drops.
type Client struct {
	conn   net.Conn
	writer *bufio.Writer

	mu      sync.Mutex
	nextID  uint64
	pending map[string]*pendingCall
	closed  bool
}

// Dial connects to the daemon's socket and starts the background reader
// that demultiplexes responses to their waiting callers.
func Dial(socketPath string) (*Client, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, err
	}
	c := &Client{
		conn:    conn,
		writer:  bufio.NewWriter(conn),
		pending: make(map[string]*pendingCall),
	}
	go c.readLoop()
	return c, nil
}

// ServerRunning is a quick, side-effect-free predicate: can the
// daemon's socket even be dialed and is it answering status queries.
func ServerRunning(ctx context.Context, socketPath string) bool {
	c, err := Dial(socketPath)
	if err != nil {
		return false
	}
	defer c.Close()
	_, _, err = c.call(ctx, "getStatus", nil)
	return err == nil
}

// TryConnect attempts to dial the daemon's socket, returning nil, nil if
// nothing is listening rather than treating that as an error.
func TryConnect(socketPath string) (*Client, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		if isConnRefusedOrMissing(err) {
			return nil, nil
		}
		return nil, err
	}
	c := &Client{
		conn:    conn,
		writer:  bufio.NewWriter(conn),
		pending: make(map[string]*pendingCall),
	}
	go c.readLoop()
	return c, nil
}

func isConnRefusedOrMissing(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such file")
}

func (c *Client) readLoop() {
	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		var resp Response
		if err := json.Unmarshal(line, &resp); err != nil {
			continue
		}
		c.deliver(resp)
	}
	c.failAllPending(errs.ErrConnectionClosed)
}

func (c *Client) deliver(resp Response) {
	c.mu.Lock()
	call, ok := c.pending[resp.ID]
	if ok {
		delete(c.pending, resp.ID)
	}
	c.mu.Unlock()
	if ok {
		call.resp <- resp
	}
}

func (c *Client) failAllPending(err error) {
	c.mu.Lock()
	c.closed = true
	calls := make([]*pendingCall, 0, len(c.pending))
	for id, call := range c.pending {
		calls = append(calls, call)
		delete(c.pending, id)
	}
	c.mu.Unlock()
	for _, call := range calls {
		call.err <- err
	}
}

func (c *Client) call(ctx context.Context, method string, params any) (json.RawMessage, *int64, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, nil, errs.ErrConnectionClosed
	}
	c.nextID++
	id := strconv.FormatUint(c.nextID, 10)
	call := &pendingCall{resp: make(chan Response, 1), err: make(chan error, 1)}
	c.pending[id] = call
	c.mu.Unlock()

	req := Request{ID: id, Method: method}
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return nil, nil, err
		}
		req.Params = b
	}

	if err := c.write(req); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, nil, err
	}

	timer := time.NewTimer(RequestTimeout)
	defer timer.Stop()

	select {
	case resp := <-call.resp:
		if resp.Error != "" {
			return nil, nil, errors.New(resp.Error)
		}
		return resp.Result, resp.CachedAt, nil
	case err := <-call.err:
		return nil, nil, err
	case <-timer.C:
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, nil, errs.ErrRequestTimeout
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, nil, ctx.Err()
	}
}

func (c *Client) write(req Request) error {
	b, err := json.Marshal(req)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.writer.Write(b); err != nil {
		return err
	}
	if err := c.writer.WriteByte('\n'); err != nil {
		return err
	}
	return c.writer.Flush()
}

// Close drops the connection, which causes the read loop to fail every
// call still waiting on a response.
func (c *Client) Close() error {
	return c.conn.Close()
}

// GetPrices fetches the full mid-price map, or just one coin's price
// when coin is non-empty. The returned age is the milliseconds elapsed
// since the daemon cached the payload, taken from the response's
// cached_at field.
func (c *Client) GetPrices(ctx context.Context, coin string) (map[string]string, int64, error) {
	var params any
	if coin != "" {
		params = map[string]string{"coin": coin}
	}
	raw, cachedAt, err := c.call(ctx, "getPrices", params)
	if err != nil {
		return nil, 0, err
	}
	var out map[string]string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, 0, err
	}
	return out, ageMS(cachedAt), nil
}

// GetAssetCtxs fetches the cached per-dex asset contexts.
func (c *Client) GetAssetCtxs(ctx context.Context) (json.RawMessage, error) {
	raw, _, err := c.call(ctx, "getAssetCtxs", nil)
	return raw, err
}

// GetPerpMeta fetches the cached perpetual metadata.
func (c *Client) GetPerpMeta(ctx context.Context) (json.RawMessage, error) {
	raw, _, err := c.call(ctx, "getPerpMeta", nil)
	return raw, err
}

// GetStatus fetches the daemon's current health snapshot.
func (c *Client) GetStatus(ctx context.Context) (json.RawMessage, error) {
	raw, _, err := c.call(ctx, "getStatus", nil)
	return raw, err
}

// Shutdown asks the daemon to begin its graceful teardown and waits for
// acknowledgement.
func (c *Client) Shutdown(ctx context.Context) error {
	_, _, err := c.call(ctx, "shutdown", nil)
	return err
}

// ageMS converts a cached_at unix-millis timestamp into an elapsed
// duration in milliseconds, or 0 if the response carried none.
func ageMS(cachedAtMS *int64) int64 {
	if cachedAtMS == nil {
		return 0
	}
	age := time.Now().UnixMilli() - *cachedAtMS
	if age < 0 {
		return 0
	}
	return age
}
