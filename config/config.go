package config

import (
	"encoding/json"
	"os"
)

// Page identifies the active TUI page
type Page int

const (
	PageMarket Page = iota
	PageDomains
	PageWallet
	PageSettings
)

// Config represents the application configuration
type Config struct {
	RPCURLs   []RPCUrl    `json:"rpc_urls"`
	Contracts []Contracts `json:"contracts"`
	Relay     Relay       `json:"relay"`
	Logger    bool        `json:"logger"`
}

// RPCUrl represents an RPC endpoint for one chain
type RPCUrl struct {
	Name    string `json:"name"`
	ChainID int64  `json:"chain_id"`
	URL     string `json:"url"`
	Active  bool   `json:"active"`
}

// Contracts holds the marketplace deployment addresses on one chain
type Contracts struct {
	ChainID     int64  `json:"chain_id"`
	Marketplace string `json:"marketplace"`
	NFT         string `json:"nft"`
}

// Relay holds the remote wallet relay settings. URL points at the remote
// signing endpoint; leaving it empty disables the relay connector.
type Relay struct {
	ProjectID string `json:"project_id,omitempty"`
	URL       string `json:"url,omitempty"`
}

// Load reads the config from the specified path
func Load(path string) Config {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}
	}

	return cfg
}

// Save writes the config to the specified path
func Save(path string, cfg Config) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return
	}
	_ = os.WriteFile(path, data, 0644)
}

// DefaultConfig returns a new configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		RPCURLs: []RPCUrl{
			{
				Name:    "Polygon Mainnet",
				ChainID: 137,
				URL:     "https://polygon-rpc.com",
				Active:  true,
			},
			{
				Name:    "Polygon Amoy",
				ChainID: 80002,
				URL:     "https://rpc-amoy.polygon.technology",
			},
			{
				Name:    "Localhost",
				ChainID: 31337,
				URL:     "http://127.0.0.1:8545",
			},
		},
		Contracts: []Contracts{},
		Logger:    false,
	}
}

// LoadOrCreate loads config from path, or creates a default one if not found
func LoadOrCreate(path string) Config {
	// Try to read existing config
	data, err := os.ReadFile(path)
	if err != nil {
		// File doesn't exist, create default
		cfg := DefaultConfig()
		Save(path, cfg)
		return cfg
	}

	// Parse existing config
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		// Invalid config, return default
		return DefaultConfig()
	}

	return cfg
}

// ActiveRPC returns the active endpoint, falling back to the first entry.
func (c Config) ActiveRPC() (RPCUrl, bool) {
	for _, r := range c.RPCURLs {
		if r.Active {
			return r, true
		}
	}
	if len(c.RPCURLs) > 0 {
		return c.RPCURLs[0], true
	}
	return RPCUrl{}, false
}

// ContractsFor returns the deployment addresses for a chain.
func (c Config) ContractsFor(chainID int64) (Contracts, bool) {
	for _, entry := range c.Contracts {
		if entry.ChainID == chainID {
			return entry, true
		}
	}
	return Contracts{}, false
}
