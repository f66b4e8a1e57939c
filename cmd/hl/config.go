package main

import (
	"fmt"
	"strconv"

	"hlcli/internal/userconfig"
)

func runConfig(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("config: expected set, get, or list")
	}

	switch args[0] {
	case "set":
		return runConfigSet(args[1:])
	case "get":
		return runConfigGet(args[1:])
	case "list":
		return runConfigList()
	default:
		return fmt.Errorf("config: unknown subcommand %q", args[0])
	}
}

func runConfigSet(args []string) error {
	if len(args) != 2 || args[0] != "slippage" {
		return fmt.Errorf("config set: usage is \"config set slippage <N>\"")
	}
	percent, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("config set: invalid slippage %q: %w", args[1], err)
	}
	if err := userconfig.SetSlippage(percent); err != nil {
		return err
	}
	fmt.Printf("slippage set to %v\n", percent)
	return nil
}

func runConfigGet(args []string) error {
	if len(args) != 1 || args[0] != "slippage" {
		return fmt.Errorf("config get: usage is \"config get slippage\"")
	}
	cfg := userconfig.Load()
	fmt.Println(cfg.Slippage)
	return nil
}

func runConfigList() error {
	cfg := userconfig.Load()
	fmt.Printf("slippage: %v\n", cfg.Slippage)
	return nil
}
