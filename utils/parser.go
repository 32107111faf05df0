package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"github.com/vitwit/paylink/types"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// ValidateStruct validates v using its `validate` struct tags.
func ValidateStruct(v interface{}) error {
	return validate.Struct(v)
}

// LoadConfig reads a yaml/json/toml config file on top of types.DefaultConfig.
// PAYLINK_* environment variables override file values. An empty path loads
// defaults plus environment only.
func LoadConfig(path string) (*types.Config, error) {
	cfg := types.DefaultConfig()

	v := viper.New()
	v.SetEnvPrefix("PAYLINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, cfg)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, &types.CheckoutError{
				Code:    types.ErrConfigError,
				Message: fmt.Sprintf("failed to read config %s", path),
				Err:     err,
			}
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, &types.CheckoutError{
			Code:    types.ErrConfigError,
			Message: "failed to parse config",
			Err:     err,
		}
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ValidateConfig checks struct tags plus cross-field rules.
func ValidateConfig(cfg *types.Config) error {
	if err := validate.Struct(cfg); err != nil {
		return &types.CheckoutError{
			Code:    types.ErrConfigError,
			Message: fmt.Sprintf("validation failed: %v", err),
		}
	}
	return nil
}

// AutomaticEnv only applies to keys viper already knows about.
func setDefaults(v *viper.Viper, cfg *types.Config) {
	v.SetDefault("app_name", cfg.AppName)
	v.SetDefault("treasury_address", cfg.TreasuryAddress)
	v.SetDefault("fee_bps", cfg.FeeBps)
	v.SetDefault("default_chain_id", int64(cfg.DefaultChainID))
	v.SetDefault("default_token", cfg.DefaultToken)
	v.SetDefault("base_url", cfg.BaseURL)
	v.SetDefault("pay_path", cfg.PayPath)
	v.SetDefault("rpc_urls", cfg.RPCURLs)
	v.SetDefault("store_path", cfg.StorePath)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("enable_metrics", cfg.EnableMetrics)
	v.SetDefault("confirmation_timeout", cfg.ConfirmationTimeout)
	v.SetDefault("chain_switch_retries", cfg.ChainSwitchRetries)
	v.SetDefault("chain_switch_backoff", cfg.ChainSwitchBackoff)
	v.SetDefault("link_ttl", cfg.LinkTTL)
	v.SetDefault("persist_links", cfg.PersistLinks)
}

// ParseFlexibleTime parses timestamps found in payment links.
func ParseFlexibleTime(timeStr string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05Z",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, timeStr); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse time: %s", timeStr)
}

// FormatTime is the link encoding for timestamps.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
