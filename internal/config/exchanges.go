// Package config loads the two configuration layers the pipeline uses: a
// shared static YAML document describing exchange endpoints (this file)
// and the per-service env-var settings in settings.go.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ExchangeEndpoints describes one exchange's reachable endpoints and the
// symbols the pipeline subscribes to on it.
type ExchangeEndpoints struct {
	Name         string   `yaml:"name"`
	Enabled      bool     `yaml:"enabled"`
	WebSocketURL string   `yaml:"websocket_url"`
	RESTURL      string   `yaml:"rest_url"`
	Symbols      []string `yaml:"symbols"`
}

// ExchangesConfig is the top-level document in configs/exchanges.yaml.
type ExchangesConfig struct {
	Exchanges []ExchangeEndpoints `yaml:"exchanges"`
}

// LoadExchangesConfig reads and parses the exchange endpoint document.
func LoadExchangesConfig(path string) (*ExchangesConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read exchanges config %s: %w", path, err)
	}

	var cfg ExchangesConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal exchanges config: %w", err)
	}
	return &cfg, nil
}

// ByName returns the endpoints for a named exchange, if configured.
func (c *ExchangesConfig) ByName(name string) (ExchangeEndpoints, bool) {
	for _, e := range c.Exchanges {
		if e.Name == name {
			return e, true
		}
	}
	return ExchangeEndpoints{}, false
}
