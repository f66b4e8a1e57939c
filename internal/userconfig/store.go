// Package userconfig implements the single user-configuration record
// (currently just slippage) that ordering flows read on every invocation.
// Load is total: a missing file, an empty file, and malformed JSON all
// collapse to the defaults rather than raising.
package userconfig

import (
	"encoding/json"
	"os"

	"hlcli/internal/paths"
)

// Config is the user-configurable record persisted at user-config.json.
type Config struct {
	Slippage float64 `json:"slippage"`
}

// Defaults returns a fresh copy of the default configuration.
func Defaults() Config {
	return Config{Slippage: 1.0}
}

// Load reads the config file, overlaying recognized keys onto the
// defaults. Any I/O or parse error — missing file, empty file, bad
// JSON — yields the defaults rather than an error.
func Load() Config {
	cfg := Defaults()

	path, err := paths.UserConfigPath()
	if err != nil {
		return cfg
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}

	var overlay map[string]json.RawMessage
	if err := json.Unmarshal(data, &overlay); err != nil {
		return Defaults()
	}

	if raw, ok := overlay["slippage"]; ok {
		var slippage float64
		if err := json.Unmarshal(raw, &slippage); err == nil {
			cfg.Slippage = slippage
		}
	}

	return cfg
}

// Save shallow-merges update onto the currently-loaded record and writes
// it as pretty-printed JSON. The write truncates then writes in place;
// a crash mid-write loses the update but never corrupts the file beyond
// what the next Load already tolerates.
func Save(update Config) error {
	if _, err := paths.EnsureDir(); err != nil {
		return err
	}

	current := Load()
	merged := current
	merged.Slippage = update.Slippage

	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return err
	}

	path, err := paths.UserConfigPath()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// SetSlippage updates just the slippage field, leaving everything else
// (there is currently nothing else) as-is.
func SetSlippage(percent float64) error {
	return Save(Config{Slippage: percent})
}
