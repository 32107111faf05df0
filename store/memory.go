package store

import (
	"sync"

	"github.com/vitwit/paylink/types"
)

// MemoryStore keeps receipts in process memory. Records are stored in their
// encoded form so callers never share mutable receipts with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	receipts map[string][]byte
	recent   map[string]types.RecentPayment
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		receipts: make(map[string][]byte),
		recent:   make(map[string]types.RecentPayment),
	}
}

func (m *MemoryStore) Get(id string) (*types.Receipt, error) {
	m.mu.RLock()
	data, ok := m.receipts[id]
	m.mu.RUnlock()
	if !ok {
		return nil, notFound(id)
	}
	return decodeReceipt(data)
}

func (m *MemoryStore) Put(r *types.Receipt) error {
	if err := validID(r); err != nil {
		return err
	}
	data, err := encodeReceipt(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.receipts[r.ID] = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) List() ([]*types.Receipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*types.Receipt, 0, len(m.receipts))
	for _, data := range m.receipts {
		r, err := decodeReceipt(data)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	sortReceipts(out)
	return out, nil
}

func (m *MemoryStore) AppendRecent(p types.RecentPayment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.recent[p.TxHash] = p
	if len(m.recent) > MaxRecent {
		all := m.sortedRecent()
		for _, old := range all[MaxRecent:] {
			delete(m.recent, old.TxHash)
		}
	}
	return nil
}

func (m *MemoryStore) ListRecent(limit int) ([]types.RecentPayment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return clip(m.sortedRecent(), limit), nil
}

func (m *MemoryStore) sortedRecent() []types.RecentPayment {
	out := make([]types.RecentPayment, 0, len(m.recent))
	for _, p := range m.recent {
		out = append(out, p)
	}
	sortRecent(out)
	return out
}

func (m *MemoryStore) Close() error { return nil }
