// Package netconfig holds the upstream endpoint table (mainnet vs.
// testnet base URLs) that internal/hlapi's transport and HTTP clients
// dial. Keeping it out of hlapi means the core never hardcodes an
// endpoint: a YAML-backed config with environment-variable overrides.
package netconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Endpoints is one network's set of base URLs.
type Endpoints struct {
	WSURL       string `yaml:"ws_url"`
	InfoURL     string `yaml:"info_url"`
	ExchangeURL string `yaml:"exchange_url"`
}

// Config is the full mainnet/testnet endpoint table.
type Config struct {
	Mainnet Endpoints `yaml:"mainnet"`
	Testnet Endpoints `yaml:"testnet"`
}

// defaultYAML is the built-in endpoint table, overridable by file or env.
const defaultYAML = `
mainnet:
  ws_url: wss://api.hyperliquid.xyz/ws
  info_url: https://api.hyperliquid.xyz/info
  exchange_url: https://api.hyperliquid.xyz/exchange
testnet:
  ws_url: wss://api.hyperliquid-testnet.xyz/ws
  info_url: https://api.hyperliquid-testnet.xyz/info
  exchange_url: https://api.hyperliquid-testnet.xyz/exchange
`

// Load reads the endpoint table from path if it exists, else falls back
// to the built-in defaults; either way, recognized environment variables
// win last. A missing or unreadable file is not an error — it behaves
// exactly like "no override file given." A file that is read but is not
// valid YAML is returned as an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(defaultYAML), cfg); err != nil {
		return nil, fmt.Errorf("parse built-in endpoint defaults: %w", err)
	}

	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	overrideWithEnv(cfg)
	return cfg, nil
}

// For selects the endpoint set for testnet or mainnet.
func (c *Config) For(testnet bool) Endpoints {
	if testnet {
		return c.Testnet
	}
	return c.Mainnet
}

func overrideWithEnv(cfg *Config) {
	if v := os.Getenv("HL_MAINNET_WS_URL"); v != "" {
		cfg.Mainnet.WSURL = v
	}
	if v := os.Getenv("HL_MAINNET_INFO_URL"); v != "" {
		cfg.Mainnet.InfoURL = v
	}
	if v := os.Getenv("HL_MAINNET_EXCHANGE_URL"); v != "" {
		cfg.Mainnet.ExchangeURL = v
	}
	if v := os.Getenv("HL_TESTNET_WS_URL"); v != "" {
		cfg.Testnet.WSURL = v
	}
	if v := os.Getenv("HL_TESTNET_INFO_URL"); v != "" {
		cfg.Testnet.InfoURL = v
	}
	if v := os.Getenv("HL_TESTNET_EXCHANGE_URL"); v != "" {
		cfg.Testnet.ExchangeURL = v
	}
}
