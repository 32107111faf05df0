// Package fee computes the protocol fee split for a payment.
package fee

import (
	"github.com/shopspring/decimal"
	"github.com/vitwit/paylink/types"
)

const bpsDenominator = 4 // 10^4 basis points

// Split is a principal with its fee and total, in human units.
type Split struct {
	Amount decimal.Decimal
	Fee    decimal.Decimal
	Total  decimal.Decimal
	Bps    int64
}

// Quote renders the split for display and storage.
func (s Split) Quote() types.Quote {
	return types.Quote{
		Amount: s.Amount.String(),
		Fee:    s.Fee.String(),
		Total:  s.Total.String(),
		FeeBps: s.Bps,
	}
}

// Compute returns fee = amount*bps/10000 and total = amount+fee. A non-positive
// amount yields an all-zero split; callers validate the amount separately
// before settling against it.
func Compute(amount decimal.Decimal, bps int64) Split {
	if !amount.IsPositive() {
		return Split{Amount: decimal.Zero, Fee: decimal.Zero, Total: decimal.Zero, Bps: bps}
	}

	fee := amount.Mul(decimal.NewFromInt(bps)).Shift(-bpsDenominator)
	return Split{
		Amount: amount,
		Fee:    fee,
		Total:  amount.Add(fee),
		Bps:    bps,
	}
}
