// Package wallettest provides a scriptable in-memory wallet provider.
package wallettest

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/vitwit/paylink/types"
	"github.com/vitwit/paylink/wallet"
)

// Payer is the account the fake wallet reports by default.
var Payer = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

// Transfer is one submitted token transfer.
type Transfer struct {
	Token  common.Address
	To     common.Address
	Amount *big.Int
	Hash   common.Hash
}

// Provider implements wallet.Provider. Zero value is a connected wallet on
// chain 0 holding Payer; set fields before use.
type Provider struct {
	mu sync.Mutex

	Accounts    []common.Address
	AccountsErr error
	Chain       types.ChainID

	SwitchErr error
	// Chains the wallet knows; nil means all.
	Known map[types.ChainID]bool
	// ChainID reads that still report the old chain after a switch.
	StaleReads int

	// Live decimals by token; tokens not listed report 6.
	TokenDecimals map[common.Address]uint8
	DecimalsErr   error

	// Errors keyed by 1-based transfer number.
	TransferErrs map[int]error
	ConfirmErrs  map[int]error

	Transfers []Transfer
	Calls     []string

	staleChain types.ChainID
	staleLeft  int
	confirms   int
}

var _ wallet.Provider = (*Provider)(nil)

func (p *Provider) record(call string) {
	p.Calls = append(p.Calls, call)
}

func (p *Provider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("eth_requestAccounts")

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.AccountsErr != nil {
		return nil, p.AccountsErr
	}
	if p.Accounts == nil {
		return []common.Address{Payer}, nil
	}
	return p.Accounts, nil
}

func (p *Provider) ChainID(ctx context.Context) (types.ChainID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("eth_chainId")

	if p.staleLeft > 0 {
		p.staleLeft--
		return p.staleChain, nil
	}
	return p.Chain, nil
}

func (p *Provider) SwitchChain(ctx context.Context, chain types.ChainID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("wallet_switchEthereumChain " + chain.Hex())

	if p.SwitchErr != nil {
		return p.SwitchErr
	}
	if p.Known != nil && !p.Known[chain] {
		return wallet.ErrUnrecognizedChain
	}
	p.staleChain = p.Chain
	p.staleLeft = p.StaleReads
	p.Chain = chain
	return nil
}

func (p *Provider) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("decimals " + token.Hex())

	if p.DecimalsErr != nil {
		return 0, p.DecimalsErr
	}
	if d, ok := p.TokenDecimals[token]; ok {
		return d, nil
	}
	return 6, nil
}

func (p *Provider) Transfer(ctx context.Context, token, to common.Address, amount *big.Int) (common.Hash, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("transfer " + to.Hex())

	n := len(p.Transfers) + 1
	if err := p.TransferErrs[n]; err != nil {
		return common.Hash{}, err
	}
	if err := ctx.Err(); err != nil {
		return common.Hash{}, err
	}

	hash := crypto.Keccak256Hash([]byte(fmt.Sprintf("%d:%s:%s:%s", n, token.Hex(), to.Hex(), amount)))
	p.Transfers = append(p.Transfers, Transfer{
		Token:  token,
		To:     to,
		Amount: new(big.Int).Set(amount),
		Hash:   hash,
	})
	return hash, nil
}

func (p *Provider) WaitMined(ctx context.Context, hash common.Hash) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("wait " + hash.Hex())

	p.confirms++
	if err := p.ConfirmErrs[p.confirms]; err != nil {
		return err
	}
	return ctx.Err()
}

// WalletCalls is the number of calls made so far.
func (p *Provider) WalletCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}
