package fee

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestComputeScenario(t *testing.T) {
	s := Compute(decimal.RequireFromString("100.00"), 200)

	assert.True(t, s.Fee.Equal(decimal.RequireFromString("2.00")), "fee %s", s.Fee)
	assert.True(t, s.Total.Equal(decimal.RequireFromString("102.00")), "total %s", s.Total)

	q := s.Quote()
	assert.Equal(t, "100", q.Amount)
	assert.Equal(t, "2", q.Fee)
	assert.Equal(t, "102", q.Total)
	assert.Equal(t, int64(200), q.FeeBps)
}

func TestComputeIsExact(t *testing.T) {
	for _, a := range []string{"0.01", "0.1", "1", "10.50", "33.333333", "123456789.123456789", "0.000001"} {
		amount := decimal.RequireFromString(a)
		s := Compute(amount, 200)

		want := amount.Mul(decimal.NewFromInt(200)).Div(decimal.NewFromInt(10000))
		assert.True(t, s.Fee.Equal(want), "fee(%s) = %s, want %s", a, s.Fee, want)
		assert.True(t, s.Total.Equal(amount.Add(s.Fee)), "total(%s)", a)
	}

	// 0.1 * 2% is exact in decimal, unlike binary floats
	assert.Equal(t, "0.002", Compute(decimal.RequireFromString("0.1"), 200).Fee.String())
}

func TestComputeDegenerate(t *testing.T) {
	for _, a := range []string{"0", "-5", "-0.000001"} {
		s := Compute(decimal.RequireFromString(a), 200)
		assert.True(t, s.Fee.IsZero(), "fee(%q)", a)
		assert.True(t, s.Total.IsZero(), "total(%q)", a)
	}
}

func TestComputeZeroRate(t *testing.T) {
	s := Compute(decimal.RequireFromString("50"), 0)
	assert.True(t, s.Fee.IsZero())
	assert.True(t, s.Total.Equal(decimal.NewFromInt(50)))
}
