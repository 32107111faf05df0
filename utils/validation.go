package utils

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var hexPattern = regexp.MustCompile("^[0-9a-fA-F]+$")

// ValidateAmount checks that amount is a positive decimal in human units.
func ValidateAmount(amount string) (*decimal.Decimal, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, fmt.Errorf("amount cannot be empty")
	}

	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount format: %w", err)
	}

	if !dec.IsPositive() {
		return nil, fmt.Errorf("amount must be greater than zero")
	}

	return &dec, nil
}

// ValidateTransactionHash validates an EVM transaction hash (0x + 64 hex).
func ValidateTransactionHash(hash string) error {
	if hash == "" {
		return fmt.Errorf("transaction hash cannot be empty")
	}
	if !strings.HasPrefix(hash, "0x") {
		return fmt.Errorf("transaction hash must start with 0x")
	}
	if len(hash) != 66 {
		return fmt.Errorf("transaction hash must be 66 characters long")
	}
	if !hexPattern.MatchString(hash[2:]) {
		return fmt.Errorf("transaction hash must be valid hex")
	}
	return nil
}

// ValidateAddressForNetwork validates a recipient address. All supported
// networks are EVM chains, so this is a 0x-prefixed 20-byte hex check.
func ValidateAddressForNetwork(address string) error {
	if address == "" {
		return fmt.Errorf("address cannot be empty")
	}
	if !strings.HasPrefix(address, "0x") {
		return fmt.Errorf("address must start with 0x")
	}
	if len(address) != 42 {
		return fmt.Errorf("address must be 42 characters long")
	}
	if !hexPattern.MatchString(address[2:]) {
		return fmt.Errorf("address must be valid hex")
	}
	return nil
}

// ValidateDeadline ensures a deadline is in the future relative to now.
func ValidateDeadline(deadline, now time.Time) error {
	if !now.Before(deadline) {
		return fmt.Errorf("deadline must be in the future")
	}
	return nil
}

// ParseAmountWithDecimals converts a human amount to integer token units.
// The conversion is exact: an amount with more fractional digits than the
// token supports is rejected rather than rounded.
func ParseAmountWithDecimals(amount decimal.Decimal, decimals uint8) (*big.Int, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("amount cannot be negative")
	}

	units := amount.Shift(int32(decimals))
	whole := units.Truncate(0)
	if !units.Equal(whole) {
		return nil, fmt.Errorf("amount %s has more than %d decimal places", amount.String(), decimals)
	}

	return whole.BigInt(), nil
}

// TruncateAmountWithDecimals converts a human amount to integer token units,
// dropping any fraction below one unit. It returns the units together with the
// human amount they represent, so callers record what is actually sent.
func TruncateAmountWithDecimals(amount decimal.Decimal, decimals uint8) (*big.Int, decimal.Decimal) {
	if !amount.IsPositive() {
		return new(big.Int), decimal.Zero
	}

	whole := amount.Shift(int32(decimals)).Truncate(0)
	return whole.BigInt(), whole.Shift(-int32(decimals))
}

// FormatAmountFromBigInt formats integer token units as a decimal string.
func FormatAmountFromBigInt(amount *big.Int, decimals uint8) string {
	dec := decimal.NewFromBigInt(amount, -int32(decimals))
	return dec.String()
}

// FormatMoney renders a human amount with two to six fraction digits.
func FormatMoney(amount string) string {
	dec, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return "—"
	}

	s := dec.StringFixed(6)
	s = strings.TrimRight(s, "0")
	if i := strings.IndexByte(s, '.'); i >= 0 && len(s)-i-1 < 2 {
		s += strings.Repeat("0", 2-(len(s)-i-1))
	}
	return s
}

// ShortenAddress renders 0x1234…abcd for display.
func ShortenAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}
