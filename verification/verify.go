// Package verification decides whether a payment descriptor can be paid.
// It never talks to a wallet.
package verification

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vitwit/paylink/registry"
	"github.com/vitwit/paylink/types"
	"github.com/vitwit/paylink/utils"
)

// Result is the outcome of a successful validation.
type Result struct {
	// Principal to settle: the descriptor amount, or the payer's in static mode.
	Amount decimal.Decimal
	Static bool
}

// VerificationService validates descriptors against a registry.
type VerificationService struct {
	registry *registry.Registry
}

// NewVerificationService creates a new verification service
func NewVerificationService(reg *registry.Registry) *VerificationService {
	if reg == nil {
		reg = registry.Default()
	}
	return &VerificationService{registry: reg}
}

// Verify runs the payability checks that need no wallet and no token lookup:
// well-formed fields, a well-formed merchant, a positive amount and an unexpired
// link. payerAmount is only consulted in static mode.
func (s *VerificationService) Verify(d types.Descriptor, payerAmount string, now time.Time) (*Result, error) {
	if err := checkFields(d); err != nil {
		return nil, err
	}

	res := &Result{Static: d.IsStatic()}
	raw := d.Amount
	if res.Static {
		raw = payerAmount
	}
	amount, err := utils.ValidateAmount(raw)
	if err != nil {
		msg := "invalid amount"
		if res.Static {
			msg = "enter an amount to pay"
		}
		return nil, &types.CheckoutError{
			Code:    types.ErrInvalidDescriptor,
			Message: msg,
			Data:    map[string]any{"field": "amount"},
			Err:     err,
		}
	}
	res.Amount = *amount

	if d.Expired(now) {
		return nil, &types.CheckoutError{
			Code:    types.ErrExpired,
			Message: fmt.Sprintf("payment link expired at %s", d.ExpiresAt.UTC().Format(time.RFC3339)),
			Data:    map[string]any{"expiresAt": d.ExpiresAt},
		}
	}

	return res, nil
}

// VerifyLink is the merchant-side check before a link is issued: fields,
// amount unless static, expiry in the future and a chain/token pair that resolves.
func (s *VerificationService) VerifyLink(d types.Descriptor, now time.Time) error {
	if err := checkFields(d); err != nil {
		return err
	}
	if !d.IsStatic() {
		if _, err := utils.ValidateAmount(d.Amount); err != nil {
			return types.NewError(types.ErrInvalidDescriptor, "invalid amount", err)
		}
	}
	if d.ExpiresAt != nil {
		if err := utils.ValidateDeadline(*d.ExpiresAt, now); err != nil {
			return types.NewError(types.ErrInvalidDescriptor, "expiry must be in the future", err)
		}
	}
	_, err := s.registry.ResolveToken(d.ChainID, d.Token)
	return err
}

func checkFields(d types.Descriptor) error {
	if len(d.Malformed) > 0 {
		return &types.CheckoutError{
			Code:    types.ErrInvalidDescriptor,
			Message: fmt.Sprintf("malformed link fields: %s", strings.Join(d.Malformed, ", ")),
			Data:    map[string]any{"fields": d.Malformed},
		}
	}
	if !utils.ValidateAddress(d.Merchant) {
		return &types.CheckoutError{
			Code:    types.ErrInvalidDescriptor,
			Message: "invalid merchant address",
			Data:    map[string]any{"field": "merchant"},
		}
	}
	if d.ChainID <= 0 {
		return types.Errorf(types.ErrInvalidDescriptor, "missing chain id")
	}
	if strings.TrimSpace(d.Token) == "" {
		return types.Errorf(types.ErrInvalidDescriptor, "missing token")
	}
	return nil
}
