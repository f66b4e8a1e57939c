package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"hlcli/internal/daemon"
	"hlcli/internal/ipc"
	"hlcli/internal/paths"
)

func runServer(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("server: expected start, stop, or status")
	}

	switch args[0] {
	case "start":
		return runServerStart(args[1:])
	case "stop":
		return daemon.Stop(ctx)
	case "status":
		return runServerStatus(ctx)
	default:
		return fmt.Errorf("server: unknown subcommand %q", args[0])
	}
}

func runServerStart(args []string) error {
	fs := flag.NewFlagSet("server start", flag.ContinueOnError)
	testnet := fs.Bool("testnet", false, "target the testnet deployment instead of mainnet")
	if err := fs.Parse(args); err != nil {
		return err
	}

	daemonPath, err := daemonBinaryPath()
	if err != nil {
		return err
	}

	var spawnArgs []string
	if *testnet {
		spawnArgs = append(spawnArgs, "-testnet")
	}

	if err := daemon.SpawnDetached(daemonPath, spawnArgs, 5*time.Second); err != nil {
		return err
	}
	fmt.Println("daemon started")
	return nil
}

// daemonBinaryPath resolves hld as a sibling of the running hl binary.
func daemonBinaryPath() (string, error) {
	self, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(self), "hld"), nil
}

func runServerStatus(ctx context.Context) error {
	socketPath, err := paths.SocketPath()
	if err != nil {
		return err
	}

	client, err := ipc.TryConnect(socketPath)
	if err != nil {
		return err
	}
	if client == nil {
		fmt.Println("daemon not running")
		return nil
	}
	defer client.Close()

	raw, err := client.GetStatus(ctx)
	if err != nil {
		return err
	}

	var status struct {
		Running   bool  `json:"running"`
		Testnet   bool  `json:"testnet"`
		Connected bool  `json:"connected"`
		StartedAt int64 `json:"startedAt"`
		Uptime    int64 `json:"uptime"`
		Cache     struct {
			HasMids      bool `json:"hasMids"`
			HasAssetCtxs bool `json:"hasAssetCtxs"`
			HasPerpMetas bool `json:"hasPerpMetas"`
		} `json:"cache"`
		Metrics *struct {
			PushEventsProcessed  uint64 `json:"PushEventsProcessed"`
			MetaRefreshCount     uint64 `json:"MetaRefreshCount"`
			ErrorsTotal          uint64 `json:"ErrorsTotal"`
			ActiveIPCConnections int32  `json:"ActiveIPCConnections"`
		} `json:"metrics"`
	}
	if err := json.Unmarshal(raw, &status); err != nil {
		return err
	}

	network := "mainnet"
	if status.Testnet {
		network = "testnet"
	}

	startedAt := time.UnixMilli(status.StartedAt)
	uptime := humanize.RelTime(startedAt, time.Now(), "", "")

	if isatty.IsTerminal(os.Stdout.Fd()) {
		fmt.Printf("running: %v  network: %s  connected: %v  uptime: %s\n", status.Running, network, status.Connected, uptime)
		fmt.Printf("cache: mids=%v assetCtxs=%v perpMetas=%v\n", status.Cache.HasMids, status.Cache.HasAssetCtxs, status.Cache.HasPerpMetas)
		if status.Metrics != nil {
			fmt.Printf("metrics: pushEvents=%d metaRefreshes=%d errors=%d ipcConns=%d\n",
				status.Metrics.PushEventsProcessed, status.Metrics.MetaRefreshCount, status.Metrics.ErrorsTotal, status.Metrics.ActiveIPCConnections)
		}
	} else {
		fmt.Println(string(raw))
	}
	return nil
}
