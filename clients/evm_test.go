package clients

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	paytypes "github.com/vitwit/paylink/types"
	"github.com/vitwit/paylink/wallet"
)

// anvil's first dev account
const (
	testPrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddress    = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

var (
	token     = common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	recipient = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
)

type fakeBackend struct {
	mu        sync.Mutex
	chainID   int64
	decimals  []byte
	callErr   error
	sendErr   error
	sent      []*types.Transaction
	receipts  []*types.Receipt // returned in order, nil means not yet mined
	lookups   int
	closed    bool
}

func (f *fakeBackend) ChainID(context.Context) (*big.Int, error) { return big.NewInt(f.chainID), nil }

func (f *fakeBackend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if f.callErr != nil {
		return nil, f.callErr
	}
	return f.decimals, nil
}

func (f *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 65_000, nil
}

func (f *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return uint64(len(f.sent)), nil
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeBackend) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.lookups
	f.lookups++
	if i >= len(f.receipts) || f.receipts[i] == nil {
		return nil, ethereum.NotFound
	}
	return f.receipts[i], nil
}

func (f *fakeBackend) Close() { f.closed = true }

func newTestProvider(t *testing.T, backends map[string]*fakeBackend) *EVMProvider {
	t.Helper()
	p, err := NewEVMProvider(map[paytypes.ChainID]string{
		8453: "base",
		56:   "bsc",
	}, 8453, "0x"+testPrivateKey,
		WithPollInterval(time.Millisecond),
		WithDialer(func(_ context.Context, url string) (Backend, error) {
			b, ok := backends[url]
			if !ok {
				return nil, errors.New("unreachable")
			}
			return b, nil
		}))
	require.NoError(t, err)
	return p
}

func TestNewEVMProvider(t *testing.T) {
	_, err := NewEVMProvider(map[paytypes.ChainID]string{1: "x"}, 1, "")
	assert.Error(t, err)

	_, err = NewEVMProvider(map[paytypes.ChainID]string{1: "x"}, 1, "not-hex")
	assert.Error(t, err)

	_, err = NewEVMProvider(map[paytypes.ChainID]string{1: "x"}, 10, testPrivateKey)
	assert.Error(t, err, "active chain needs an endpoint")

	p, err := NewEVMProvider(map[paytypes.ChainID]string{1: "x"}, 1, testPrivateKey)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testAddress), p.Address())

	accounts, err := p.RequestAccounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []common.Address{common.HexToAddress(testAddress)}, accounts)
}

func TestPackTransfer(t *testing.T) {
	data, err := PackTransfer(recipient, big.NewInt(100_000_000))
	require.NoError(t, err)
	require.Len(t, data, 4+32+32)

	assert.Equal(t, "a9059cbb", hex.EncodeToString(data[:4]))
	assert.Equal(t, recipient.Bytes(), data[4+12:4+32])
	assert.Equal(t, big.NewInt(100_000_000), new(big.Int).SetBytes(data[36:]))

	_, err = PackTransfer(recipient, big.NewInt(0))
	assert.Error(t, err)
}

func TestDecimalsRoundTrip(t *testing.T) {
	data, err := PackDecimals()
	require.NoError(t, err)
	assert.Equal(t, "313ce567", hex.EncodeToString(data))

	d, err := UnpackDecimals(common.LeftPadBytes([]byte{18}, 32))
	require.NoError(t, err)
	assert.Equal(t, uint8(18), d)

	_, err = UnpackDecimals(nil)
	assert.Error(t, err)
}

func TestSwitchChain(t *testing.T) {
	p := newTestProvider(t, nil)
	ctx := context.Background()

	require.NoError(t, p.SwitchChain(ctx, 56))
	chain, err := p.ChainID(ctx)
	require.NoError(t, err)
	assert.Equal(t, paytypes.ChainID(56), chain)

	err = p.SwitchChain(ctx, 137)
	assert.ErrorIs(t, err, wallet.ErrUnrecognizedChain)
}

func TestProviderDecimals(t *testing.T) {
	base := &fakeBackend{chainID: 8453, decimals: common.LeftPadBytes([]byte{6}, 32)}
	p := newTestProvider(t, map[string]*fakeBackend{"base": base})

	d, err := p.Decimals(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, uint8(6), d)

	base.callErr = errors.New("execution reverted")
	_, err = p.Decimals(context.Background(), token)
	assert.ErrorIs(t, err, wallet.ErrReverted)
}

func TestProviderRejectsWrongEndpoint(t *testing.T) {
	p := newTestProvider(t, map[string]*fakeBackend{"base": {chainID: 1}})

	_, err := p.Decimals(context.Background(), token)
	assert.ErrorContains(t, err, "serves chain 1")
}

func TestProviderTransfer(t *testing.T) {
	base := &fakeBackend{chainID: 8453}
	p := newTestProvider(t, map[string]*fakeBackend{"base": base})

	hash, err := p.Transfer(context.Background(), token, recipient, big.NewInt(2_000_000))
	require.NoError(t, err)
	require.Len(t, base.sent, 1)

	tx := base.sent[0]
	assert.Equal(t, hash, tx.Hash())
	assert.Equal(t, token, *tx.To())
	assert.Equal(t, 0, tx.Value().Sign())
	assert.Equal(t, uint64(65_000), tx.Gas())
	assert.Equal(t, "a9059cbb", hex.EncodeToString(tx.Data()[:4]))

	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(8453)), tx)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testAddress), sender)
	assert.Equal(t, big.NewInt(8453), tx.ChainId())

	base.sendErr = errors.New("insufficient funds for gas * price + value")
	_, err = p.Transfer(context.Background(), token, recipient, big.NewInt(1))
	assert.ErrorIs(t, err, wallet.ErrInsufficientFunds)
}

func TestWaitMined(t *testing.T) {
	base := &fakeBackend{chainID: 8453, receipts: []*types.Receipt{
		nil,
		nil,
		{Status: types.ReceiptStatusSuccessful},
	}}
	p := newTestProvider(t, map[string]*fakeBackend{"base": base})

	require.NoError(t, p.WaitMined(context.Background(), common.Hash{1}))
	assert.Equal(t, 3, base.lookups)

	base.receipts = []*types.Receipt{{Status: types.ReceiptStatusFailed}}
	base.lookups = 0
	assert.ErrorIs(t, p.WaitMined(context.Background(), common.Hash{2}), wallet.ErrReverted)

	base.receipts = nil
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.WaitMined(ctx, common.Hash{3}), context.DeadlineExceeded)

	p.Close()
	assert.True(t, base.closed)
}

func TestRPCURLsFromConfig(t *testing.T) {
	cfg := paytypes.DefaultConfig()
	cfg.RPCURLs["bogus"] = "http://x"
	cfg.RPCURLs["10"] = ""

	urls := RPCURLsFromConfig(cfg)
	assert.Equal(t, "https://mainnet.base.org", urls[8453])
	assert.NotContains(t, urls, paytypes.ChainID(10))
	assert.Len(t, urls, 5)
}
