package link

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitwit/paylink/types"
)

const merchant = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"

var baseDefaults = Defaults{ChainID: 8453, Token: "USDC"}

func TestRoundTripFullDescriptor(t *testing.T) {
	exp := time.Date(2026, 11, 1, 12, 30, 0, 500, time.UTC)
	d := types.Descriptor{
		Merchant:  merchant,
		ChainID:   56,
		Token:     "USDT",
		Amount:    "10.50",
		Memo:      "table 4 & tip = yes",
		ExpiresAt: &exp,
		ReceiptID: "OLY-AB12-CD34",
	}

	got, err := Decode(Encode(d), Defaults{})
	require.NoError(t, err)

	assert.Equal(t, d.Merchant, got.Merchant)
	assert.Equal(t, d.ChainID, got.ChainID)
	assert.Equal(t, d.Token, got.Token)
	assert.Equal(t, d.Amount, got.Amount)
	assert.Equal(t, d.Memo, got.Memo)
	assert.Equal(t, d.ReceiptID, got.ReceiptID)
	require.NotNil(t, got.ExpiresAt)
	assert.True(t, exp.Equal(*got.ExpiresAt))
	assert.Empty(t, got.Malformed)
}

func TestRoundTripKeepsAbsentFieldsAbsent(t *testing.T) {
	d := types.Descriptor{Merchant: merchant, ChainID: 137, Token: "USDC"}

	q := Encode(d)
	v, err := url.ParseQuery(q)
	require.NoError(t, err)
	for _, k := range []string{KeyAmount, KeyMemo, KeyExpiresAt, KeyReceiptID} {
		assert.NotContains(t, v, k)
	}

	got, err := Decode(q, Defaults{})
	require.NoError(t, err)
	assert.Equal(t, d, got)
	assert.True(t, got.IsStatic())
}

func TestEncodeIsDeterministic(t *testing.T) {
	d := types.Descriptor{Merchant: merchant, ChainID: 8453, Token: "USDC", Amount: "1", Memo: "m"}
	assert.Equal(t, Encode(d), Encode(d))
	assert.Equal(t, "amount=1&chainId=8453&memo=m&merchant="+merchant+"&token=USDC", Encode(d))
}

func TestEncodeZeroAmountIsStatic(t *testing.T) {
	d := types.Descriptor{Merchant: merchant, ChainID: 8453, Token: "USDC", Amount: "0.00"}
	assert.NotContains(t, Encode(d), KeyAmount)
}

func TestDecodeFallbacks(t *testing.T) {
	got, err := Decode("merchant="+merchant+"&chainId=banana&amount=5", baseDefaults)
	require.NoError(t, err)
	assert.Equal(t, types.ChainID(8453), got.ChainID)
	assert.Equal(t, "USDC", got.Token)
	assert.Empty(t, got.Malformed)

	got, err = Decode("?merchant="+merchant+"&chainId=0x38&token=USDT", baseDefaults)
	require.NoError(t, err)
	assert.Equal(t, types.ChainID(56), got.ChainID)
	assert.Equal(t, "USDT", got.Token)
}

func TestDecodeMalformedFields(t *testing.T) {
	got, err := Decode("merchant="+merchant+"&amount=ten&expiresAt=tomorrow", baseDefaults)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{KeyAmount, KeyExpiresAt}, got.Malformed)
	assert.False(t, got.IsStatic(), "a garbage amount must not turn into static mode")
	assert.Nil(t, got.ExpiresAt)

	got, err = Decode("merchant="+merchant+"&amount=0", baseDefaults)
	require.NoError(t, err)
	assert.True(t, got.IsStatic())
	assert.Empty(t, got.Malformed)
}

func TestDecodeURLMergesFragment(t *testing.T) {
	raw := "https://pay.example.com/pay.html?amount=7&chainId=10#/pay?amount=99&token=USDT&merchant=" + merchant
	got, err := DecodeURL(raw, baseDefaults)
	require.NoError(t, err)

	assert.Equal(t, "7", got.Amount, "normal query wins on collision")
	assert.Equal(t, types.ChainID(10), got.ChainID)
	assert.Equal(t, "USDT", got.Token)
	assert.Equal(t, merchant, got.Merchant)

	got, err = DecodeURL("https://pay.example.com/#merchant="+merchant+"&amount=3", baseDefaults)
	require.NoError(t, err)
	assert.Equal(t, "3", got.Amount)

	_, err = DecodeURL("http://[::1", baseDefaults)
	assert.True(t, types.HasCode(err, types.ErrInvalidDescriptor))
}

func TestHasPaymentData(t *testing.T) {
	v, err := Parse("https://pay.example.com/pay.html?rid=OLY-AAAA-BBBB")
	require.NoError(t, err)
	assert.False(t, HasPaymentData(v))

	v, err = Parse("https://pay.example.com/pay.html#?merchant=" + merchant)
	require.NoError(t, err)
	assert.True(t, HasPaymentData(v))

	for _, q := range []string{"rid=OLY-AAAA-BBBB&chainId=56", "rid=OLY-AAAA-BBBB&token=USDT"} {
		v, err = Parse("https://pay.example.com/pay.html?" + q)
		require.NoError(t, err)
		assert.True(t, HasPaymentData(v), q)
	}
}

func TestDecodeFallsBackToConfigDefaults(t *testing.T) {
	cfg := types.DefaultConfig()
	defaults := Defaults{ChainID: cfg.DefaultChainID, Token: cfg.DefaultToken}

	for _, q := range []string{
		"merchant=" + merchant + "&amount=5",
		"merchant=" + merchant + "&amount=5&chainId=banana&token=",
	} {
		got, err := Decode(q, defaults)
		require.NoError(t, err)
		assert.Equal(t, types.ChainID(56), got.ChainID, q)
		assert.Equal(t, "USDT", got.Token, q)
		assert.Equal(t, "5", got.Amount, q)
	}
}

func TestBuildURL(t *testing.T) {
	d := types.Descriptor{Merchant: merchant, ChainID: 8453, Token: "USDC", Amount: "100.00"}

	got, err := BuildURL("https://pay.example.com/shop/", "pay.html", d)
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example.com/shop/pay.html?"+Encode(d), got)

	back, err := DecodeURL(got, Defaults{})
	require.NoError(t, err)
	assert.Equal(t, d, back)
}
