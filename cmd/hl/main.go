// Command hl is the CLI surface over the daemon core: server
// lifecycle control and user-config management. Trade, account, and
// asset subcommands build on the same fallback orchestrator and
// watcher primitives but live outside this binary's scope.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx := context.Background()
	var err error

	switch os.Args[1] {
	case "server":
		err = runServer(ctx, os.Args[2:])
	case "config":
		err = runConfig(os.Args[2:])
	case "help", "-h", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  hl server start [--testnet]
  hl server stop
  hl server status
  hl config set slippage <N>
  hl config get slippage
  hl config list`)
}
