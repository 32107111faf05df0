// Package link encodes payment descriptors into URL query strings and decodes
// them back. The query string is the wire format between the merchant device
// that generates a link and the payer device that opens it.
package link

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/vitwit/paylink/types"
	"github.com/vitwit/paylink/utils"
)

// Query keys.
const (
	KeyMerchant  = "merchant"
	KeyChainID   = "chainId"
	KeyToken     = "token"
	KeyAmount    = "amount"
	KeyMemo      = "memo"
	KeyExpiresAt = "expiresAt"
	KeyReceiptID = "rid"
)

// Defaults fill in chainId and token when a link omits them or carries an
// unparseable chain id. Zero values disable the fallback.
type Defaults struct {
	ChainID types.ChainID
	Token   string
}

// Encode writes d as a query string. Keys are emitted in sorted order so the
// same descriptor always produces the same link.
func Encode(d types.Descriptor) string {
	return Values(d).Encode()
}

// Values is Encode before serialization.
func Values(d types.Descriptor) url.Values {
	v := url.Values{}
	if d.Merchant != "" {
		v.Set(KeyMerchant, d.Merchant)
	}
	if d.ChainID != 0 {
		v.Set(KeyChainID, d.ChainID.String())
	}
	if d.Token != "" {
		v.Set(KeyToken, d.Token)
	}
	if !d.IsStatic() {
		v.Set(KeyAmount, strings.TrimSpace(d.Amount))
	}
	if d.Memo != "" {
		v.Set(KeyMemo, d.Memo)
	}
	if d.ExpiresAt != nil {
		v.Set(KeyExpiresAt, utils.FormatTime(*d.ExpiresAt))
	}
	if d.ReceiptID != "" {
		v.Set(KeyReceiptID, d.ReceiptID)
	}
	return v
}

// Decode parses a raw query string (with or without a leading '?').
func Decode(query string, defaults Defaults) (types.Descriptor, error) {
	v, err := url.ParseQuery(strings.TrimPrefix(query, "?"))
	if err != nil {
		return types.Descriptor{}, &types.CheckoutError{
			Code:    types.ErrInvalidDescriptor,
			Message: "malformed query string",
			Err:     err,
		}
	}
	return DecodeValues(v, defaults), nil
}

// DecodeURL reads the descriptor from both the normal query and a query
// embedded in the fragment ("#/pay?merchant=..."). Normal query values win.
func DecodeURL(raw string, defaults Defaults) (types.Descriptor, error) {
	v, err := Parse(raw)
	if err != nil {
		return types.Descriptor{}, err
	}
	return DecodeValues(v, defaults), nil
}

// Parse returns the merged query and fragment parameters of raw.
func Parse(raw string) (url.Values, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, &types.CheckoutError{
			Code:    types.ErrInvalidDescriptor,
			Message: "malformed payment link",
			Err:     err,
		}
	}

	merged := u.Query()
	frag, err := url.ParseQuery(fragmentQuery(u))
	if err != nil {
		// an unparseable fragment is routing state, not payment data
		return merged, nil
	}
	for k, vals := range frag {
		if _, ok := merged[k]; !ok {
			merged[k] = vals
		}
	}
	return merged, nil
}

func fragmentQuery(u *url.URL) string {
	frag := u.EscapedFragment()
	if i := strings.IndexByte(frag, '?'); i >= 0 {
		return frag[i+1:]
	}
	if strings.Contains(frag, "=") {
		return frag
	}
	return ""
}

// DecodeValues builds a descriptor from already parsed parameters. Fields that
// are present but fail to parse are listed in Descriptor.Malformed, except
// chainId which falls back to the default.
func DecodeValues(v url.Values, defaults Defaults) types.Descriptor {
	d := types.Descriptor{
		Merchant:  strings.TrimSpace(v.Get(KeyMerchant)),
		Token:     strings.TrimSpace(v.Get(KeyToken)),
		Memo:      v.Get(KeyMemo),
		ReceiptID: strings.TrimSpace(v.Get(KeyReceiptID)),
	}

	if id, ok := parseChainID(v.Get(KeyChainID)); ok {
		d.ChainID = id
	} else {
		d.ChainID = defaults.ChainID
	}
	if d.Token == "" {
		d.Token = defaults.Token
	}

	if raw := strings.TrimSpace(v.Get(KeyAmount)); raw != "" {
		d.Amount = raw
		if _, err := utils.ValidateAmount(raw); err != nil && !d.IsStatic() {
			d.Malformed = append(d.Malformed, KeyAmount)
		}
		if d.IsStatic() {
			d.Amount = ""
		}
	}

	if raw := strings.TrimSpace(v.Get(KeyExpiresAt)); raw != "" {
		if t, err := utils.ParseFlexibleTime(raw); err == nil {
			d.ExpiresAt = &t
		} else {
			d.Malformed = append(d.Malformed, KeyExpiresAt)
		}
	}

	return d
}

func parseChainID(raw string) (types.ChainID, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}

	var (
		n   int64
		err error
	)
	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		n, err = strconv.ParseInt(raw[2:], 16, 64)
	} else {
		n, err = strconv.ParseInt(raw, 10, 64)
	}
	if err != nil || n <= 0 {
		return 0, false
	}
	return types.ChainID(n), true
}

// HasPaymentData reports whether params carry descriptor fields beyond a bare
// receipt id.
func HasPaymentData(v url.Values) bool {
	for _, k := range []string{KeyMerchant, KeyAmount, KeyToken, KeyChainID} {
		if v.Get(k) != "" {
			return true
		}
	}
	return false
}

// BuildURL joins base and path and attaches the encoded descriptor.
func BuildURL(base, path string, d types.Descriptor) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", base, err)
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("invalid pay path %q: %w", path, err)
	}

	u := b.ResolveReference(ref)
	u.RawQuery = Encode(d)
	u.Fragment = ""
	return u.String(), nil
}
