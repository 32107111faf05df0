package store

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitwit/paylink/types"
	bolt "go.etcd.io/bbolt"
)

func newBolt(t *testing.T) *BoltStore {
	t.Helper()
	s, err := NewBoltStore(filepath.Join(t.TempDir(), "data", "paylink.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"bolt":   newBolt(t),
		"memory": NewMemoryStore(),
	}
}

func sampleReceipt(id string, created time.Time) *types.Receipt {
	exp := created.Add(time.Hour)
	return types.NewReceipt(id, types.Descriptor{
		Merchant:  "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
		ChainID:   8453,
		Token:     "USDC",
		Amount:    "100.00",
		ExpiresAt: &exp,
	}, created)
}

func TestReceiptLifecycle(t *testing.T) {
	now := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get("OLY-NONE-0000")
			assert.True(t, types.HasCode(err, types.ErrNotFound))

			r := sampleReceipt("OLY-AAAA-0001", now)
			require.NoError(t, s.Put(r))

			got, err := s.Get(r.ID)
			require.NoError(t, err)
			assert.Equal(t, types.ReceiptPending, got.Status)
			assert.Equal(t, r.ID, got.Descriptor.ReceiptID)
			assert.True(t, now.Equal(got.CreatedAt))

			// mutating the returned copy does not touch the store
			got.Status = types.ReceiptExpired
			again, err := s.Get(r.ID)
			require.NoError(t, err)
			assert.Equal(t, types.ReceiptPending, again.Status)

			paidAt := now.Add(time.Minute)
			require.NoError(t, again.MarkPaid("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", paidAt, []types.Settlement{
				{Type: types.SettlementMerchant, TxHash: "0x01", Recipient: r.Descriptor.Merchant, Amount: "100"},
				{Type: types.SettlementFee, TxHash: "0x02", Recipient: types.DefaultTreasury, Amount: "2"},
			}))
			require.NoError(t, s.Put(again))

			paid, err := s.Get(r.ID)
			require.NoError(t, err)
			assert.Equal(t, types.ReceiptPaid, paid.Status)
			require.Len(t, paid.Settlements, 2)
			fee, ok := paid.Settlement(types.SettlementFee)
			require.True(t, ok)
			assert.Equal(t, "0x02", fee.TxHash)

			require.NoError(t, s.Put(sampleReceipt("OLY-AAAA-0002", now.Add(time.Hour))))
			all, err := s.List()
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, "OLY-AAAA-0002", all[0].ID, "newest first")

			assert.Error(t, s.Put(&types.Receipt{}))
		})
	}
}

func TestRecentPayments(t *testing.T) {
	base := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < MaxRecent+5; i++ {
				require.NoError(t, s.AppendRecent(types.RecentPayment{
					TxHash:    fmt.Sprintf("0x%064x", i),
					Amount:    "1",
					ChainID:   8453,
					Token:     "USDC",
					Timestamp: base.Add(time.Duration(i) * time.Second),
				}))
			}

			all, err := s.ListRecent(0)
			require.NoError(t, err)
			require.Len(t, all, MaxRecent)
			assert.Equal(t, fmt.Sprintf("0x%064x", MaxRecent+4), all[0].TxHash)

			top, err := s.ListRecent(3)
			require.NoError(t, err)
			assert.Len(t, top, 3)
		})
	}
}

func TestBoltReadsLegacyReceipts(t *testing.T) {
	s := newBolt(t)

	legacy := `{"id":"OLY-OLD0-0001","descriptor":{"merchant":"0x70997970C51812dc3A010C7d01b50e0d17dc79C8","chainId":137,"token":"USDT","amount":"5"},"createdAt":"2025-01-01T00:00:00Z"}`
	require.NoError(t, s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(receiptsBucket)).Put([]byte("OLY-OLD0-0001"), []byte(legacy))
	}))

	r, err := s.Get("OLY-OLD0-0001")
	require.NoError(t, err)
	assert.Equal(t, types.ChainID(137), r.Descriptor.ChainID)
	assert.Equal(t, types.ReceiptPending, r.Status)

	// rewriting upgrades the record to the current envelope
	require.NoError(t, s.Put(r))
	require.NoError(t, s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(receiptsBucket)).Get([]byte("OLY-OLD0-0001"))
		assert.Contains(t, string(raw), `"version":2`)
		return nil
	}))
}

func TestDecodeRejectsFutureVersion(t *testing.T) {
	_, err := decodeReceipt([]byte(`{"version":9,"receipt":{"id":"x"}}`))
	assert.Error(t, err)
}

func TestBoltPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paylink.db")

	s, err := NewBoltStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(sampleReceipt("OLY-KEEP-0001", time.Now().UTC())))
	require.NoError(t, s.Close())

	s, err = NewBoltStore(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Get("OLY-KEEP-0001")
	assert.NoError(t, err)
}
