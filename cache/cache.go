// Package cache remembers token decimals read from contracts so repeated
// payments on the same token skip the contract call.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/ethereum/go-ethereum/common"
	"github.com/vitwit/paylink/types"
)

// DecimalsCache is consulted after registry-pinned decimals and before a live query.
type DecimalsCache interface {
	Get(chain types.ChainID, token common.Address) (uint8, bool)
	Set(chain types.ChainID, token common.Address, decimals uint8) error
}

// DefaultTTL is how long a cached precision is trusted.
const DefaultTTL = 24 * time.Hour

type BigCache struct {
	Cache *bigcache.BigCache
}

var _ DecimalsCache = (*BigCache)(nil)

func NewBigCache(ttl time.Duration) (*BigCache, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	cfg := bigcache.DefaultConfig(ttl)
	cfg.Shards = 16
	cfg.MaxEntriesInWindow = 1024
	cfg.Verbose = false

	c, err := bigcache.New(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("init decimals cache: %w", err)
	}
	return &BigCache{Cache: c}, nil
}

func key(chain types.ChainID, token common.Address) string {
	return chain.String() + ":" + strings.ToLower(token.Hex())
}

func (b *BigCache) Get(chain types.ChainID, token common.Address) (uint8, bool) {
	v, err := b.Cache.Get(key(chain, token))
	if err != nil || len(v) != 1 {
		return 0, false
	}
	return v[0], true
}

func (b *BigCache) Set(chain types.ChainID, token common.Address, decimals uint8) error {
	return b.Cache.Set(key(chain, token), []byte{decimals})
}

func (b *BigCache) Close() error {
	return b.Cache.Close()
}

// Nop never remembers anything.
type Nop struct{}

func (Nop) Get(types.ChainID, common.Address) (uint8, bool) { return 0, false }
func (Nop) Set(types.ChainID, common.Address, uint8) error  { return nil }
