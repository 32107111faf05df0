package types

import (
	"strconv"
	"time"
)

// Config contains global configuration for the checkout library.
type Config struct {
	AppName string `mapstructure:"app_name" json:"appName" validate:"required"`

	// Receiver of the protocol fee leg.
	TreasuryAddress string `mapstructure:"treasury_address" json:"treasuryAddress" validate:"required,eth_addr"`

	// Fee in basis points. 200 = 2.00%.
	FeeBps int64 `mapstructure:"fee_bps" json:"feeBps" validate:"gte=0,lte=10000"`

	DefaultChainID ChainID `mapstructure:"default_chain_id" json:"defaultChainId" validate:"required"`
	DefaultToken   string  `mapstructure:"default_token" json:"defaultToken" validate:"required"`

	// Where payment links point, e.g. https://pay.example.com/ + "pay.html".
	BaseURL string `mapstructure:"base_url" json:"baseUrl" validate:"required,url"`
	PayPath string `mapstructure:"pay_path" json:"payPath"`

	// JSON-RPC endpoint per chain id (decimal string keys).
	RPCURLs map[string]string `mapstructure:"rpc_urls" json:"rpcUrls,omitempty"`

	StorePath     string `mapstructure:"store_path" json:"storePath,omitempty"`
	LogLevel      string `mapstructure:"log_level" json:"logLevel,omitempty" validate:"omitempty,oneof=debug info warn error"`
	EnableMetrics bool   `mapstructure:"enable_metrics" json:"enableMetrics,omitempty"`

	// Upper bound on each confirmation wait. Zero leaves it to the provider.
	ConfirmationTimeout time.Duration `mapstructure:"confirmation_timeout" json:"confirmationTimeout,omitempty" validate:"gte=0"`

	// How often the active chain is re-read after an approved switch before
	// the attempt fails with CHAIN_MISMATCH.
	ChainSwitchRetries int           `mapstructure:"chain_switch_retries" json:"chainSwitchRetries" validate:"gte=0,lte=20"`
	ChainSwitchBackoff time.Duration `mapstructure:"chain_switch_backoff" json:"chainSwitchBackoff,omitempty" validate:"gte=0"`

	// Default lifetime of generated links. Zero means links never expire.
	LinkTTL time.Duration `mapstructure:"link_ttl" json:"linkTtl,omitempty" validate:"gte=0"`

	// Store a pending receipt when a link is generated.
	PersistLinks bool `mapstructure:"persist_links" json:"persistLinks"`
}

const (
	DefaultAppName  = "Olynt"
	DefaultTreasury = "0x1a605eea1105f99df7badb733c82a8c24c2eb172"
	DefaultFeeBps   = 200
)

// DefaultRPCURLs are public endpoints; replace them with your own provider URLs.
var DefaultRPCURLs = map[string]string{
	"1":     "https://cloudflare-eth.com",
	"56":    "https://bsc-dataseed.binance.org",
	"8453":  "https://mainnet.base.org",
	"10":    "https://mainnet.optimism.io",
	"42161": "https://arb1.arbitrum.io/rpc",
	"137":   "https://polygon-rpc.com",
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	rpc := make(map[string]string, len(DefaultRPCURLs))
	for k, v := range DefaultRPCURLs {
		rpc[k] = v
	}
	return &Config{
		AppName:            DefaultAppName,
		TreasuryAddress:    DefaultTreasury,
		FeeBps:             DefaultFeeBps,
		DefaultChainID:     56,
		DefaultToken:       "USDT",
		BaseURL:            "http://localhost:8080/",
		PayPath:            "pay.html",
		RPCURLs:            rpc,
		LogLevel:           "info",
		ChainSwitchRetries: 3,
		ChainSwitchBackoff: 500 * time.Millisecond,
		PersistLinks:       true,
	}
}

// RPCURL returns the configured endpoint for chain, if any.
func (c *Config) RPCURL(chain ChainID) (string, bool) {
	if c == nil {
		return "", false
	}
	u, ok := c.RPCURLs[strconv.FormatInt(int64(chain), 10)]
	return u, ok && u != ""
}
