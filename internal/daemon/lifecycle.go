// Package daemon implements the daemon process's own lifecycle —
// the PID/socket/log/options files under the per-user config directory,
// stale-PID detection, foreground and detached start, and the
// shutdown-then-terminate-then-kill stop sequence.
package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"hlcli/internal/cache"
	"hlcli/internal/errs"
	"hlcli/internal/hlapi"
	"hlcli/internal/ipc"
	"hlcli/internal/paths"
	"hlcli/internal/subscription"
)

// serverOptions is the startup-time echo written to server.json.
type serverOptions struct {
	Testnet bool `json:"testnet"`
}

// Lifecycle owns the daemon-side process: the running subscription
// manager and IPC server, and the files that describe them to other
// processes.
type Lifecycle struct {
	Testnet bool
	Logger  *slog.Logger

	cache   *cache.Cache
	manager *subscription.Manager
	server  *ipc.Server
	Metrics *Metrics
}

// New builds a Lifecycle. Nothing is started yet.
func New(testnet bool, logger *slog.Logger) *Lifecycle {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lifecycle{Testnet: testnet, Logger: logger, cache: cache.New(), Metrics: &Metrics{}}
}

// readPID reads and parses server.pid. It returns ok=false if the file
// is absent or unparsable.
func readPID() (pid int, ok bool) {
	pidPath, err := paths.PidPath()
	if err != nil {
		return 0, false
	}
	b, err := os.ReadFile(pidPath)
	if err != nil {
		return 0, false
	}
	n, err := strconv.Atoi(string(b))
	if err != nil {
		return 0, false
	}
	return n, true
}

// pidAlive reports whether pid refers to a live process, using the
// signal-0 liveness probe: sending signal 0 performs permission and
// existence checks without actually delivering a signal.
func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return unix.Kill(pid, 0) == nil
}

// checkStalePID removes server.pid if it names a process that is no
// longer alive, and returns an error if it names one that is.
func checkStalePID() error {
	pid, ok := readPID()
	if !ok {
		return nil
	}
	if pidAlive(pid) {
		return errs.ErrAlreadyRunning
	}
	if pidPath, err := paths.PidPath(); err == nil {
		os.Remove(pidPath)
	}
	return nil
}

func writePID() error {
	pidPath, err := paths.PidPath()
	if err != nil {
		return err
	}
	return os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0o600)
}

func writeOptions(opts serverOptions) error {
	b, err := json.MarshalIndent(opts, "", "  ")
	if err != nil {
		return err
	}
	optsPath, err := paths.ServerOptionsPath()
	if err != nil {
		return err
	}
	return os.WriteFile(optsPath, b, 0o600)
}

// RunForeground executes the foreground start sequence, then blocks
// serving the IPC socket until ctx is cancelled or a shutdown request
// arrives over the control connection. Once serving ends the manager is
// stopped and the socket and PID files are removed; server.json and
// server.log are left in place.
func (l *Lifecycle) RunForeground(ctx context.Context, transport hlapi.Transport, info hlapi.InfoClient) error {
	if _, err := paths.EnsureDir(); err != nil {
		return fmt.Errorf("ensure config dir: %w", err)
	}
	if err := checkStalePID(); err != nil {
		return err
	}
	if err := writePID(); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer func() {
		if pidPath, err := paths.PidPath(); err == nil {
			os.Remove(pidPath)
		}
	}()

	if err := writeOptions(serverOptions{Testnet: l.Testnet}); err != nil {
		return fmt.Errorf("write server options: %w", err)
	}

	l.manager = subscription.New(transport, info, l.cache, l.Logger)
	l.manager.SetMetrics(l.Metrics)
	if err := l.manager.Start(ctx); err != nil {
		return fmt.Errorf("start subscription manager: %w", err)
	}
	l.Metrics.SetTransportConnected(l.manager.Connected())

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-serveCtx.Done():
		}
	}()

	socketPath, err := paths.SocketPath()
	if err != nil {
		return fmt.Errorf("resolve socket path: %w", err)
	}

	startedAt := time.Now()
	l.server = ipc.New(l.cache, l.manager, l.Testnet, startedAt, l.Logger, cancel)
	l.server.SetMetrics(l.Metrics)
	l.server.SetMetricsSnapshot(func() any {
		l.Metrics.SetTransportConnected(l.manager.Connected())
		return l.Metrics.Snapshot()
	})

	serveErr := l.server.Serve(serveCtx, socketPath)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if stopErr := l.manager.Stop(stopCtx); stopErr != nil {
		l.Logger.Warn("subscription manager stop reported an error", slog.Any("error", stopErr))
	}
	os.Remove(socketPath)

	return serveErr
}

// SpawnDetached launches binaryPath as a detached background process
// carrying the given CLI args (expected to include the target-network
// flag), then polls for the socket to appear. It returns once the
// daemon is observed ready or the timeout elapses — the parent never
// exits before that.
func SpawnDetached(binaryPath string, args []string, timeout time.Duration) error {
	cmd := exec.Command(binaryPath, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawn daemon: %w", err)
	}

	socketPath, err := paths.SocketPath()
	if err != nil {
		return fmt.Errorf("resolve socket path: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(socketPath); err == nil {
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("daemon socket did not appear within %s", timeout)
}

// Stop runs the daemon stop sequence: shutdown over the control connection with a grace period,
// falling back to SIGTERM and finally SIGKILL against the PID file.
func Stop(ctx context.Context) error {
	socketPath, err := paths.SocketPath()
	if err != nil {
		return err
	}

	client, err := ipc.TryConnect(socketPath)
	if err != nil {
		return err
	}
	if client != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, ipc.RequestTimeout)
		shutdownErr := client.Shutdown(shutdownCtx)
		cancel()
		client.Close()
		if shutdownErr == nil {
			return waitForPidGone(3 * time.Second)
		}
	}

	pid, ok := readPID()
	if !ok {
		return nil
	}
	if !pidAlive(pid) {
		if pidPath, err := paths.PidPath(); err == nil {
			os.Remove(pidPath)
		}
		return nil
	}

	unix.Kill(pid, syscall.SIGTERM)
	if waitForPidGone(2*time.Second) == nil {
		return nil
	}

	unix.Kill(pid, syscall.SIGKILL)
	return waitForPidGone(2 * time.Second)
}

func waitForPidGone(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		pid, ok := readPID()
		if !ok || !pidAlive(pid) {
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("daemon did not stop within %s", timeout)
}
