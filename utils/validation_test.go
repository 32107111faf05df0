package utils

import (
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitwit/paylink/types"
)

func TestValidateAmount(t *testing.T) {
	for _, bad := range []string{"", "  ", "abc", "0", "-1", "0.000"} {
		_, err := ValidateAmount(bad)
		assert.Error(t, err, "amount %q", bad)
	}

	got, err := ValidateAmount(" 10.50 ")
	require.NoError(t, err)
	assert.Equal(t, "10.5", got.String())
}

func TestParseAmountWithDecimals(t *testing.T) {
	units, err := ParseAmountWithDecimals(decimal.RequireFromString("100.00"), 6)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100_000_000), units)

	units, err = ParseAmountWithDecimals(decimal.RequireFromString("100.00"), 18)
	require.NoError(t, err)
	want, _ := new(big.Int).SetString("100000000000000000000", 10)
	assert.Equal(t, want, units)

	// more precision than the token has is rejected, never rounded
	_, err = ParseAmountWithDecimals(decimal.RequireFromString("1.0000001"), 6)
	assert.Error(t, err)

	_, err = ParseAmountWithDecimals(decimal.RequireFromString("-1"), 6)
	assert.Error(t, err)
}

func TestTruncateAmountWithDecimals(t *testing.T) {
	units, sent := TruncateAmountWithDecimals(decimal.RequireFromString("0.0246913578"), 6)
	assert.Equal(t, big.NewInt(24691), units)
	assert.Equal(t, "0.024691", sent.String())

	units, sent = TruncateAmountWithDecimals(decimal.RequireFromString("0.0000009"), 6)
	assert.Equal(t, 0, units.Sign())
	assert.True(t, sent.IsZero())

	units, _ = TruncateAmountWithDecimals(decimal.RequireFromString("-5"), 6)
	assert.Equal(t, 0, units.Sign())
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "100.00", FormatMoney("100"))
	assert.Equal(t, "1.50", FormatMoney("1.5"))
	assert.Equal(t, "0.123456", FormatMoney("0.123456"))
	assert.Equal(t, "—", FormatMoney("nope"))

	assert.Equal(t, "1.5", FormatAmountFromBigInt(big.NewInt(1_500_000), 6))
	assert.Equal(t, "0x1a60…b172", ShortenAddress(types.DefaultTreasury))
	assert.Equal(t, "0x12", ShortenAddress("0x12"))
}

func TestAddressAndHashValidation(t *testing.T) {
	assert.True(t, ValidateAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"))
	assert.False(t, ValidateAddress("0x0000000000000000000000000000000000000000"))
	assert.False(t, ValidateAddress("0xMERCHANT"))
	assert.False(t, ValidateAddress("833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"))

	assert.Equal(t, "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		NormalizeAddress("0x833589fcd6edb6e08f4c7c32d4f71b54bda02913"))

	assert.NoError(t, ValidateTransactionHash("0xabcd"+strings.Repeat("0", 60)))
	assert.Error(t, ValidateTransactionHash("0x1234"))
	assert.Error(t, ValidateTransactionHash(strings.Repeat("a", 66)))
}

func TestParseFlexibleTime(t *testing.T) {
	got, err := ParseFlexibleTime("2026-01-02T03:04:05Z")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)))

	got, err = ParseFlexibleTime(FormatTime(time.Date(2026, 1, 2, 3, 4, 5, 123, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, 123, got.Nanosecond())

	_, err = ParseFlexibleTime("tomorrow")
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, int64(types.DefaultFeeBps), cfg.FeeBps)
	assert.Equal(t, types.ChainID(56), cfg.DefaultChainID)
	assert.Equal(t, "USDT", cfg.DefaultToken)

	path := filepath.Join(t.TempDir(), "paylink.yaml")
	body := `
app_name: Corner Shop
fee_bps: 150
default_chain_id: 8453
default_token: USDC
base_url: https://pay.example.com/
confirmation_timeout: 2m
rpc_urls:
  "56": https://bsc.example.com
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "Corner Shop", cfg.AppName)
	assert.Equal(t, int64(150), cfg.FeeBps)
	assert.Equal(t, types.ChainID(8453), cfg.DefaultChainID)
	assert.Equal(t, "USDC", cfg.DefaultToken)
	assert.Equal(t, 2*time.Minute, cfg.ConfirmationTimeout)
	url, ok := cfg.RPCURL(56)
	assert.True(t, ok)
	assert.Equal(t, "https://bsc.example.com", url)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fee_bps: 20000\n"), 0o600))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.True(t, types.HasCode(err, types.ErrConfigError))

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, types.HasCode(err, types.ErrConfigError))
}

func TestNewReceiptID(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewReceiptID()
		assert.True(t, IsReceiptID(id), id)
		seen[id] = true
	}
	assert.Greater(t, len(seen), 95)
	assert.False(t, IsReceiptID("OLY-abcd-1234"))
}
