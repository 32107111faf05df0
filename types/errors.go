package types

import (
	"errors"
	"fmt"
)

// CheckoutError is the single error type surfaced by link handling and settlement.
// Callers branch on Code rather than on the message.
type CheckoutError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`

	// State is the settlement state the error surfaced in, when known.
	State string `json:"state,omitempty"`

	// MerchantTxHash is set when the merchant leg was confirmed before the failure.
	MerchantTxHash string `json:"merchantTxHash,omitempty"`

	Err error `json:"-"`
}

func (e *CheckoutError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CheckoutError) Unwrap() error {
	return e.Err
}

// Is matches any CheckoutError carrying the same code.
func (e *CheckoutError) Is(target error) bool {
	t, ok := target.(*CheckoutError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Common error codes
const (
	ErrInvalidDescriptor      = "INVALID_DESCRIPTOR"
	ErrExpired                = "EXPIRED"
	ErrTokenUnavailable       = "TOKEN_UNAVAILABLE"
	ErrNoProvider             = "NO_PROVIDER"
	ErrWalletUnavailable      = "WALLET_UNAVAILABLE"
	ErrNotConnected           = "NOT_CONNECTED"
	ErrChainSwitchRejected    = "CHAIN_SWITCH_REJECTED"
	ErrUnsupportedChain       = "UNSUPPORTED_CHAIN"
	ErrChainMismatch          = "CHAIN_MISMATCH"
	ErrMerchantTransferFailed = "MERCHANT_TRANSFER_FAILED"
	ErrFeeTransferFailed      = "FEE_TRANSFER_FAILED"
	ErrUserCancelled          = "USER_CANCELLED"
	ErrSessionBusy            = "SESSION_BUSY"
	ErrConfigError            = "CONFIG_ERROR"
	ErrNotFound               = "NOT_FOUND"
	ErrReceiptNotSaved        = "RECEIPT_NOT_SAVED"
)

// NewError builds a CheckoutError wrapping err (which may be nil).
func NewError(code, message string, err error) *CheckoutError {
	return &CheckoutError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Errorf builds a CheckoutError with a formatted message and no cause.
func Errorf(code, format string, args ...interface{}) *CheckoutError {
	return &CheckoutError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Code returns the code of the first CheckoutError in err's chain, or "".
func Code(err error) string {
	var ce *CheckoutError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code string) bool {
	return Code(err) == code
}
