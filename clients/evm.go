package clients

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/vitwit/paylink/logger"
	paytypes "github.com/vitwit/paylink/types"
	"github.com/vitwit/paylink/utils"
	"github.com/vitwit/paylink/wallet"
)

// DefaultPollInterval is how often WaitMined asks for a receipt.
const DefaultPollInterval = 2 * time.Second

// EVMProvider is a wallet.Provider backed by JSON-RPC endpoints and a local
// private key. It plays the part of a browser wallet for headless checkouts:
// "switching chain" selects the configured endpoint for that chain.
type EVMProvider struct {
	mu      sync.Mutex
	rpcURLs map[paytypes.ChainID]string
	clients map[paytypes.ChainID]Backend
	active  paytypes.ChainID

	signer *ecdsa.PrivateKey
	from   common.Address

	dial         Dialer
	pollInterval time.Duration
	logger       logger.Logger
}

var _ wallet.Provider = (*EVMProvider)(nil)

// EVMOption configures an EVMProvider.
type EVMOption func(*EVMProvider)

func WithDialer(d Dialer) EVMOption {
	return func(p *EVMProvider) { p.dial = d }
}

func WithPollInterval(d time.Duration) EVMOption {
	return func(p *EVMProvider) { p.pollInterval = d }
}

func WithLogger(l logger.Logger) EVMOption {
	return func(p *EVMProvider) { p.logger = l }
}

// NewEVMProvider creates a provider starting on chain active. rpcURLs maps
// chain ids to endpoints; connections are opened on first use.
func NewEVMProvider(rpcURLs map[paytypes.ChainID]string, active paytypes.ChainID, signerPrivHex string, opts ...EVMOption) (*EVMProvider, error) {
	if signerPrivHex == "" {
		return nil, errors.New("signer private key is required")
	}
	key, err := utils.PrivateKeyFromHex(signerPrivHex)
	if err != nil {
		return nil, fmt.Errorf("invalid signer key: %w", err)
	}
	if _, ok := rpcURLs[active]; !ok {
		return nil, fmt.Errorf("no rpc url configured for chain %d", active)
	}

	urls := make(map[paytypes.ChainID]string, len(rpcURLs))
	for id, u := range rpcURLs {
		urls[id] = u
	}

	p := &EVMProvider{
		rpcURLs:      urls,
		clients:      make(map[paytypes.ChainID]Backend),
		active:       active,
		signer:       key,
		from:         utils.AddressFromPrivateKey(key),
		dial:         dialEthclient,
		pollInterval: DefaultPollInterval,
		logger:       logger.NoopLogger{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// RPCURLsFromConfig converts the config's string-keyed endpoint map.
func RPCURLsFromConfig(cfg *paytypes.Config) map[paytypes.ChainID]string {
	out := make(map[paytypes.ChainID]string, len(cfg.RPCURLs))
	for k := range cfg.RPCURLs {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		if u, ok := cfg.RPCURL(paytypes.ChainID(id)); ok {
			out[paytypes.ChainID(id)] = u
		}
	}
	return out
}

func dialEthclient(ctx context.Context, rpcURL string) (Backend, error) {
	c, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Address is the signer account.
func (p *EVMProvider) Address() common.Address {
	return p.from
}

func (p *EVMProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	return []common.Address{p.from}, nil
}

func (p *EVMProvider) ChainID(ctx context.Context) (paytypes.ChainID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active, nil
}

func (p *EVMProvider) SwitchChain(ctx context.Context, chain paytypes.ChainID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.rpcURLs[chain]; !ok {
		return fmt.Errorf("chain %d: %w", chain, wallet.ErrUnrecognizedChain)
	}
	p.active = chain
	return nil
}

// backend returns the client for the active chain, dialing on first use and
// checking that the endpoint serves the chain it is configured for.
func (p *EVMProvider) backend(ctx context.Context) (Backend, paytypes.ChainID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	chain := p.active
	if c, ok := p.clients[chain]; ok {
		return c, chain, nil
	}

	c, err := p.dial(ctx, p.rpcURLs[chain])
	if err != nil {
		return nil, chain, fmt.Errorf("ethereum rpc dial: %w", err)
	}
	remote, err := c.ChainID(ctx)
	if err != nil {
		c.Close()
		return nil, chain, fmt.Errorf("read rpc chain id: %w", err)
	}
	if remote.Int64() != int64(chain) {
		c.Close()
		return nil, chain, fmt.Errorf("rpc endpoint for chain %d serves chain %s", chain, remote)
	}

	p.clients[chain] = c
	return c, chain, nil
}

func (p *EVMProvider) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	eth, _, err := p.backend(ctx)
	if err != nil {
		return 0, err
	}
	data, err := PackDecimals()
	if err != nil {
		return 0, err
	}
	out, err := eth.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return 0, classify("call decimals", err)
	}
	return UnpackDecimals(out)
}

func (p *EVMProvider) Transfer(ctx context.Context, token, to common.Address, amount *big.Int) (common.Hash, error) {
	eth, chain, err := p.backend(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	callData, err := PackTransfer(to, amount)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack call data failed: %w", err)
	}

	gasLimit, err := eth.EstimateGas(ctx, ethereum.CallMsg{From: p.from, To: &token, Data: callData})
	if err != nil {
		return common.Hash{}, classify("estimate gas failed", err)
	}

	gasPrice, err := eth.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, classify("suggest gas price failed", err)
	}

	nonce, err := eth.PendingNonceAt(ctx, p.from)
	if err != nil {
		return common.Hash{}, classify("pending nonce failed", err)
	}

	tx := types.NewTransaction(nonce, token, big.NewInt(0), gasLimit, gasPrice, callData)

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(big.NewInt(int64(chain))), p.signer)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign tx failed: %w", err)
	}

	if err := eth.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, classify("send tx failed", err)
	}

	p.logger.Info("token transfer submitted", map[string]any{
		"chain":  chain.String(),
		"token":  token.Hex(),
		"to":     to.Hex(),
		"amount": amount.String(),
		"txHash": signed.Hash().Hex(),
	})
	return signed.Hash(), nil
}

// WaitMined polls for the receipt until it appears or ctx ends.
func (p *EVMProvider) WaitMined(ctx context.Context, hash common.Hash) error {
	eth, _, err := p.backend(ctx)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := eth.TransactionReceipt(ctx, hash)
		switch {
		case err == nil && receipt.Status == types.ReceiptStatusFailed:
			return fmt.Errorf("tx %s: %w", hash.Hex(), wallet.ErrReverted)
		case err == nil:
			return nil
		case !errors.Is(err, ethereum.NotFound):
			p.logger.Warn("receipt lookup failed", map[string]any{"txHash": hash.Hex(), "error": err.Error()})
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close closes all open RPC connections.
func (p *EVMProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, c := range p.clients {
		c.Close()
		delete(p.clients, id)
	}
}
