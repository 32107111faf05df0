package cache

import (
	"testing"

	"github.com/allegro/bigcache/v3"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBigCacheDecimals(t *testing.T) {
	c, err := NewBigCache(0)
	require.NoError(t, err)
	defer c.Close()

	token := common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")

	_, ok := c.Get(8453, token)
	assert.False(t, ok)
	_, err = c.Cache.Get(key(8453, token))
	assert.ErrorIs(t, err, bigcache.ErrEntryNotFound)

	require.NoError(t, c.Set(8453, token, 6))
	d, ok := c.Get(8453, token)
	require.True(t, ok)
	assert.Equal(t, uint8(6), d)

	// same address on another chain is a different entry
	_, ok = c.Get(1, token)
	assert.False(t, ok)
}

func TestNop(t *testing.T) {
	var c DecimalsCache = Nop{}
	require.NoError(t, c.Set(1, common.Address{}, 6))
	_, ok := c.Get(1, common.Address{})
	assert.False(t, ok)
}
