package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ChainID is an EVM chain identifier (EIP-155).
type ChainID int64

func (c ChainID) String() string {
	return strconv.FormatInt(int64(c), 10)
}

// Hex returns the 0x-prefixed form used by wallet_switchEthereumChain.
func (c ChainID) Hex() string {
	return "0x" + strconv.FormatInt(int64(c), 16)
}

// Descriptor is the payment request carried by a payment link.
// A descriptor is created once on the merchant side and never mutated;
// settlement produces a Receipt instead.
type Descriptor struct {
	// Recipient of the merchant leg.
	Merchant string `json:"merchant"`

	ChainID ChainID `json:"chainId"`

	// Token symbol, e.g. "USDC".
	Token string `json:"token"`

	// Human-unit decimal string ("10.50"). Empty means static mode:
	// the payer enters the amount at pay time.
	Amount string `json:"amount,omitempty"`

	// Advisory only, never settled on-chain.
	Memo string `json:"memo,omitempty"`

	ExpiresAt *time.Time `json:"expiresAt,omitempty"`

	// Correlates to a receipt stored when the link was generated.
	ReceiptID string `json:"rid,omitempty"`

	// Malformed lists link fields that were present but failed to parse.
	// A descriptor with malformed fields is never payable.
	Malformed []string `json:"-"`
}

// IsStatic reports whether the payer supplies the amount. An empty or zero
// amount both mean static mode.
func (d Descriptor) IsStatic() bool {
	a := strings.Trim(strings.TrimSpace(d.Amount), "0.")
	return a == ""
}

// Expired reports whether the descriptor's expiry has passed at now.
func (d Descriptor) Expired(now time.Time) bool {
	return d.ExpiresAt != nil && !now.Before(*d.ExpiresAt)
}

// ReceiptStatus is the lifecycle state of a stored receipt.
type ReceiptStatus string

const (
	ReceiptPending ReceiptStatus = "pending"
	ReceiptPaid    ReceiptStatus = "paid"
	ReceiptExpired ReceiptStatus = "expired"
)

// SettlementType identifies one leg of a settlement.
type SettlementType string

const (
	SettlementMerchant SettlementType = "merchant"
	SettlementFee      SettlementType = "fee"
)

// Settlement records one confirmed token transfer.
type Settlement struct {
	Type      SettlementType `json:"type"`
	TxHash    string         `json:"tx"`
	Recipient string         `json:"to"`
	// Human-unit amount actually transferred.
	Amount string `json:"amount"`
	// Explorer link for TxHash, when the chain has one.
	ExplorerURL string `json:"explorerUrl,omitempty"`
}

// Receipt is the device-local record of a descriptor's settlement outcome.
type Receipt struct {
	ID          string        `json:"id"`
	Descriptor  Descriptor    `json:"descriptor"`
	Status      ReceiptStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	PaidAt      *time.Time    `json:"paidAt,omitempty"`
	Payer       string        `json:"payer,omitempty"`
	Settlements []Settlement  `json:"payments,omitempty"`
}

// NewReceipt creates a pending receipt for d.
func NewReceipt(id string, d Descriptor, now time.Time) *Receipt {
	d.ReceiptID = id
	return &Receipt{
		ID:         id,
		Descriptor: d,
		Status:     ReceiptPending,
		CreatedAt:  now,
	}
}

// MarkPaid records a completed settlement. A paid receipt never changes status again.
func (r *Receipt) MarkPaid(payer string, at time.Time, settlements []Settlement) error {
	if r.Status == ReceiptPaid {
		return fmt.Errorf("receipt %s is already paid", r.ID)
	}
	r.Status = ReceiptPaid
	r.PaidAt = &at
	r.Payer = payer
	r.Settlements = append([]Settlement(nil), settlements...)
	return nil
}

// MarkExpired moves a pending receipt to expired. Other statuses are left alone
// and false is returned.
func (r *Receipt) MarkExpired() bool {
	if r.Status != ReceiptPending {
		return false
	}
	r.Status = ReceiptExpired
	return true
}

// Settlement returns the leg of the given type, if recorded.
func (r *Receipt) Settlement(t SettlementType) (Settlement, bool) {
	for _, s := range r.Settlements {
		if s.Type == t {
			return s, true
		}
	}
	return Settlement{}, false
}

// Quote is the fee split for a principal amount.
type Quote struct {
	Amount string `json:"amount"`
	Fee    string `json:"fee"`
	Total  string `json:"total"`
	FeeBps int64  `json:"feeBps"`
}

// RecentPayment is a POS-side note of a payment observed by the merchant.
type RecentPayment struct {
	TxHash    string    `json:"tx"`
	Amount    string    `json:"amount"`
	ChainID   ChainID   `json:"chainId"`
	Token     string    `json:"token"`
	Timestamp time.Time `json:"ts"`
}
