// Command hld is the daemon binary: it runs the foreground start
// sequence directly. The CLI's "server start" launches this binary
// detached; running it directly is also supported for debugging.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"hlcli/internal/daemon"
	"hlcli/internal/hlapi"
	"hlcli/internal/logging"
	"hlcli/internal/netconfig"
	"hlcli/internal/paths"
)

func main() {
	testnet := flag.Bool("testnet", false, "target the testnet deployment instead of mainnet")
	debug := flag.Bool("debug", false, "enable debug-level logging")
	netConfigPath := flag.String("net-config", "", "optional YAML file overriding endpoint defaults")
	flag.Parse()

	_ = godotenv.Load()

	logPath, err := paths.LogPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.NewDaemonLogger(logPath, *debug)

	if err := run(*testnet, *netConfigPath, logger); err != nil {
		logger.Error("daemon exited with error", slog.Any("error", err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(testnet bool, netConfigPath string, logger *slog.Logger) error {
	endpoints, err := loadEndpoints(testnet, netConfigPath)
	if err != nil {
		return err
	}

	transport := hlapi.NewWSTransport(endpoints.WSURL, logger)
	info := hlapi.NewHTTPInfoClient(endpoints.InfoURL)

	lifecycle := daemon.New(testnet, logger)
	return lifecycle.RunForeground(context.Background(), transport, info)
}

func loadEndpoints(testnet bool, netConfigPath string) (netconfig.Endpoints, error) {
	cfg, err := netconfig.Load(netConfigPath)
	if err != nil {
		return netconfig.Endpoints{}, fmt.Errorf("load network config: %w", err)
	}
	return cfg.For(testnet), nil
}
