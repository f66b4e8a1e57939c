package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"hlcli/internal/cache"
	"hlcli/internal/errs"
)

// StatusProvider supplies the subscription manager's connectivity for
// getStatus. The daemon's start time and network selection are passed
// to New instead.
type StatusProvider interface {
	Connected() bool
}

// Server accepts local-socket connections, frames
// newline-delimited JSON requests, and dispatches to cache reads and
// control operations. Handlers acquire no locks beyond those inside the
// cache itself.
type Server struct {
	cache     *cache.Cache
	status    StatusProvider
	startedAt time.Time
	testnet   bool
	logger    *slog.Logger

	listener net.Listener

	connsMu sync.Mutex
	conns   map[net.Conn]struct{}
	closed  bool

	onShutdown   func()
	shutdownOnce sync.Once
	wg           sync.WaitGroup

	metrics         ConnMetrics
	metricsSnapshot func() any
}

// ConnMetrics receives connection-count gauge updates. Implemented by
// *daemon.Metrics; nil-safe so a Server can be used without one.
type ConnMetrics interface {
	IncrementIPCConnections()
	DecrementIPCConnections()
}

// SetMetrics attaches a connection-gauge sink. Optional.
func (s *Server) SetMetrics(m ConnMetrics) {
	s.metrics = m
}

// SetMetricsSnapshot attaches a callback that produces a point-in-time
// metrics snapshot, included in getStatus responses under "metrics".
// Optional; getStatus omits the field entirely without one.
func (s *Server) SetMetricsSnapshot(fn func() any) {
	s.metricsSnapshot = fn
}

// New builds a Server bound to the cache and status provider. onShutdown
// is invoked exactly once, after the shutdown response has been written,
// so the daemon lifecycle can begin its own teardown.
func New(c *cache.Cache, status StatusProvider, testnet bool, startedAt time.Time, logger *slog.Logger, onShutdown func()) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cache:      c,
		status:     status,
		startedAt:  startedAt,
		testnet:    testnet,
		logger:     logger,
		conns:      make(map[net.Conn]struct{}),
		onShutdown: onShutdown,
	}
}

// Serve binds to socketPath (unlinking any stale file first) and accepts
// connections until ctx is done or Close closes the listener.
func (s *Server) Serve(ctx context.Context, socketPath string) error {
	_ = os.Remove(socketPath)

	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return err
	}
	s.listener = ln

	go func() {
		<-ctx.Done()
		s.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			s.wg.Wait()
			return nil
		}

		s.connsMu.Lock()
		if s.closed {
			s.connsMu.Unlock()
			conn.Close()
			continue
		}
		s.conns[conn] = struct{}{}
		s.connsMu.Unlock()

		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

// Close stops accepting connections and closes every open connection. It
// is the mechanism behind both ctx cancellation and a delivered shutdown
// request.
func (s *Server) Close() {
	s.connsMu.Lock()
	if s.closed {
		s.connsMu.Unlock()
		return
	}
	s.closed = true
	conns := make([]net.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.connsMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	for _, c := range conns {
		c.Close()
	}
}

func (s *Server) forgetConn(conn net.Conn) {
	s.connsMu.Lock()
	delete(s.conns, conn)
	s.connsMu.Unlock()
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer s.forgetConn(conn)
	defer conn.Close()

	if s.metrics != nil {
		s.metrics.IncrementIPCConnections()
		defer s.metrics.DecrementIPCConnections()
	}

	connID := uuid.NewString()
	logger := s.logger.With(slog.String("conn", connID))

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	writer := bufio.NewWriter(conn)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var req Request
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			// Malformed line: no id to answer on, drop silently.
			logger.Debug("dropped malformed IPC line", slog.Any("error", err))
			continue
		}

		resp := s.dispatch(&req)

		b, err := json.Marshal(resp)
		if err != nil {
			continue
		}
		writer.Write(b)
		writer.WriteByte('\n')
		if err := writer.Flush(); err != nil {
			return
		}

		if req.Method == "shutdown" {
			if s.onShutdown != nil {
				go s.shutdownOnce.Do(s.onShutdown)
			}
			return
		}
	}
}

func (s *Server) dispatch(req *Request) Response {
	switch req.Method {
	case "getPrices":
		return s.handleGetPrices(req)
	case "getAssetCtxs":
		return s.handleGetAssetCtxs(req)
	case "getPerpMeta":
		return s.handleGetPerpMeta(req)
	case "getStatus":
		return s.handleGetStatus(req)
	case "shutdown":
		return ok(req.ID, map[string]bool{"ok": true})
	default:
		return errResponse(req.ID, errs.UnknownMethod(req.Method).Error())
	}
}

type getPricesParams struct {
	Coin string `json:"coin,omitempty"`
}

func (s *Server) handleGetPrices(req *Request) Response {
	payload, updatedAt, present := s.cache.Get(cache.Mids)
	if !present {
		return errResponse(req.ID, errs.ErrNoData.Error())
	}
	mids := payload.(map[string]string)

	var params getPricesParams
	if len(req.Params) > 0 {
		json.Unmarshal(req.Params, &params)
	}

	if params.Coin == "" {
		return okCached(req.ID, mids, updatedAt.UnixMilli())
	}

	symbol := strings.ToUpper(params.Coin)
	price, found := mids[symbol]
	if !found {
		return errResponse(req.ID, errs.CoinNotFound(symbol).Error())
	}
	return okCached(req.ID, map[string]string{symbol: price}, updatedAt.UnixMilli())
}

func (s *Server) handleGetAssetCtxs(req *Request) Response {
	payload, updatedAt, present := s.cache.Get(cache.AssetCtxs)
	if !present {
		return errResponse(req.ID, errs.ErrNoData.Error())
	}
	return okCached(req.ID, payload, updatedAt.UnixMilli())
}

func (s *Server) handleGetPerpMeta(req *Request) Response {
	payload, updatedAt, present := s.cache.Get(cache.PerpMetas)
	if !present {
		return errResponse(req.ID, errs.ErrNoData.Error())
	}
	return okCached(req.ID, payload, updatedAt.UnixMilli())
}

type cacheSlotStatus struct {
	HasMids      bool `json:"hasMids"`
	HasAssetCtxs bool `json:"hasAssetCtxs"`
	HasPerpMetas bool `json:"hasPerpMetas"`
}

type statusResult struct {
	Running   bool            `json:"running"`
	Testnet   bool            `json:"testnet"`
	Connected bool            `json:"connected"`
	StartedAt int64           `json:"startedAt"`
	Uptime    int64           `json:"uptime"`
	Cache     cacheSlotStatus `json:"cache"`
	Metrics   any             `json:"metrics,omitempty"`
}

func (s *Server) handleGetStatus(req *Request) Response {
	slots := s.cache.Status()
	result := statusResult{
		Running:   true,
		Testnet:   s.testnet,
		Connected: s.status.Connected(),
		StartedAt: s.startedAt.UnixMilli(),
		Uptime:    time.Since(s.startedAt).Milliseconds(),
		Cache: cacheSlotStatus{
			HasMids:      slots[cache.Mids].Present,
			HasAssetCtxs: slots[cache.AssetCtxs].Present,
			HasPerpMetas: slots[cache.PerpMetas].Present,
		},
	}
	if s.metricsSnapshot != nil {
		result.Metrics = s.metricsSnapshot()
	}
	return ok(req.ID, result)
}
