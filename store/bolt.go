package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vitwit/paylink/types"
	bolt "go.etcd.io/bbolt"
)

const (
	receiptsBucket = "receipts"
	recentBucket   = "recent"
)

// MaxRecent bounds the POS recent payments list.
const MaxRecent = 50

// BoltStore is a ReceiptStore backed by a single bbolt file.
type BoltStore struct {
	db *bolt.DB
}

var _ Store = (*BoltStore)(nil)

// NewBoltStore opens (or creates) the database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	if path == "" {
		return nil, errors.New("bolt store path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		if errors.Is(err, bolt.ErrTimeout) {
			return nil, errors.New("cannot obtain store lock, it may be in use by another process")
		}
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{receiptsBucket, recentBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Get(id string) (*types.Receipt, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(receiptsBucket)).Get([]byte(id))
		if v == nil {
			return notFound(id)
		}
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decodeReceipt(data)
}

func (s *BoltStore) Put(r *types.Receipt) error {
	if err := validID(r); err != nil {
		return err
	}
	data, err := encodeReceipt(r)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(receiptsBucket)).Put([]byte(r.ID), data)
	})
}

func (s *BoltStore) List() ([]*types.Receipt, error) {
	var out []*types.Receipt
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(receiptsBucket)).ForEach(func(k, v []byte) error {
			r, err := decodeReceipt(v)
			if err != nil {
				return fmt.Errorf("receipt %s: %w", k, err)
			}
			out = append(out, r)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortReceipts(out)
	return out, nil
}

// AppendRecent stores p keyed by tx hash; re-recording the same hash replaces it.
// The oldest entries beyond MaxRecent are dropped.
func (s *BoltStore) AppendRecent(p types.RecentPayment) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(recentBucket))
		if err := b.Put([]byte(p.TxHash), data); err != nil {
			return err
		}

		all, err := readRecent(b)
		if err != nil {
			return err
		}
		for _, old := range all[min(len(all), MaxRecent):] {
			if err := b.Delete([]byte(old.TxHash)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) ListRecent(limit int) ([]types.RecentPayment, error) {
	var out []types.RecentPayment
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		out, err = readRecent(tx.Bucket([]byte(recentBucket)))
		return err
	})
	if err != nil {
		return nil, err
	}
	return clip(out, limit), nil
}

func readRecent(b *bolt.Bucket) ([]types.RecentPayment, error) {
	var out []types.RecentPayment
	err := b.ForEach(func(k, v []byte) error {
		var p types.RecentPayment
		if err := json.Unmarshal(v, &p); err != nil {
			return fmt.Errorf("recent payment %s: %w", k, err)
		}
		out = append(out, p)
		return nil
	})
	sortRecent(out)
	return out, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
