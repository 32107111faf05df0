// Package store persists receipts and POS recent payments on the local device.
package store

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/vitwit/paylink/types"
)

// SchemaVersion is written into every stored receipt envelope.
const SchemaVersion = 2

// ReceiptStore is keyed receipt persistence. Writers are not coordinated:
// the last Put for an id wins.
type ReceiptStore interface {
	Get(id string) (*types.Receipt, error)
	Put(r *types.Receipt) error
	List() ([]*types.Receipt, error)
	Close() error
}

// RecentStore keeps the merchant-side list of observed payments.
type RecentStore interface {
	AppendRecent(p types.RecentPayment) error
	ListRecent(limit int) ([]types.RecentPayment, error)
}

// Store is everything the checkout facade persists.
type Store interface {
	ReceiptStore
	RecentStore
}

type envelope struct {
	Version int             `json:"version"`
	Receipt json.RawMessage `json:"receipt"`
}

func encodeReceipt(r *types.Receipt) ([]byte, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal receipt %s: %w", r.ID, err)
	}
	return json.Marshal(envelope{Version: SchemaVersion, Receipt: body})
}

// decodeReceipt reads a versioned envelope, or a bare receipt object written
// before versioning (treated as version 1).
func decodeReceipt(data []byte) (*types.Receipt, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}

	body := data
	switch {
	case env.Version == 0 && env.Receipt == nil:
		// version 1: the receipt itself
	case env.Version <= SchemaVersion:
		body = env.Receipt
	default:
		return nil, fmt.Errorf("receipt schema version %d is newer than supported %d", env.Version, SchemaVersion)
	}

	var r types.Receipt
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}
	if r.Status == "" {
		r.Status = types.ReceiptPending
	}
	return &r, nil
}

func notFound(id string) error {
	return &types.CheckoutError{
		Code:    types.ErrNotFound,
		Message: fmt.Sprintf("receipt %s not found", id),
	}
}

func validID(r *types.Receipt) error {
	if r == nil || r.ID == "" {
		return fmt.Errorf("receipt id cannot be empty")
	}
	return nil
}

// newest first
func sortReceipts(rs []*types.Receipt) {
	sort.SliceStable(rs, func(i, j int) bool {
		return rs[i].CreatedAt.After(rs[j].CreatedAt)
	})
}

func sortRecent(ps []types.RecentPayment) {
	sort.SliceStable(ps, func(i, j int) bool {
		return ps[i].Timestamp.After(ps[j].Timestamp)
	})
}

func clip(ps []types.RecentPayment, limit int) []types.RecentPayment {
	if limit > 0 && len(ps) > limit {
		return ps[:limit]
	}
	return ps
}
