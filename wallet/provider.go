// Package wallet wraps an external wallet provider in a session that one
// settlement attempt owns at a time.
package wallet

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vitwit/paylink/types"
)

// Provider is the wallet contract the checkout consumes. Each call blocks until
// the wallet (and, for prompts, the user) responds.
type Provider interface {
	// RequestAccounts asks the wallet for account access.
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	// ChainID returns the wallet's active network.
	ChainID(ctx context.Context) (types.ChainID, error)
	// SwitchChain asks the wallet to change the active network.
	SwitchChain(ctx context.Context, chain types.ChainID) error
	// Decimals reads the ERC-20 decimals() of token on the active network.
	Decimals(ctx context.Context, token common.Address) (uint8, error)
	// Transfer submits ERC-20 transfer(to, amount) and returns once the wallet
	// hands back a transaction hash.
	Transfer(ctx context.Context, token, to common.Address, amount *big.Int) (common.Hash, error)
	// WaitMined blocks until hash is included. A reverted transaction is an error.
	WaitMined(ctx context.Context, hash common.Hash) error
}

// Provider errors with a fixed meaning, modelled on EIP-1193 codes 4001 and 4902.
var (
	ErrUserRejected      = errors.New("user rejected the request")
	ErrUnrecognizedChain = errors.New("unrecognized chain")
	ErrReverted          = errors.New("transaction reverted")
	ErrInsufficientFunds = errors.New("insufficient funds")
)
