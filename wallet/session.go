package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vitwit/paylink/types"
)

// Account is the connected address and its active network.
type Account struct {
	Address common.Address
	ChainID types.ChainID
}

// Session is process-local wallet state. It is never persisted.
type Session struct {
	provider Provider

	// held by the settlement attempt that owns the session
	owner sync.Mutex

	mu        sync.RWMutex
	connected bool
	account   Account
}

// NewSession wraps p. A nil provider is allowed; Connect then fails with NO_PROVIDER.
func NewSession(p Provider) *Session {
	return &Session{provider: p}
}

// Acquire takes exclusive ownership for one settlement attempt.
func (s *Session) Acquire() error {
	if !s.owner.TryLock() {
		return &types.CheckoutError{
			Code:    types.ErrSessionBusy,
			Message: "a payment is already in progress on this wallet session",
		}
	}
	return nil
}

// Release ends ownership taken by Acquire.
func (s *Session) Release() {
	s.owner.Unlock()
}

func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Account returns the connected account, if any.
func (s *Session) Account() (Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.account, s.connected
}

// Connect requests account access, then reads the active chain.
func (s *Session) Connect(ctx context.Context) (Account, error) {
	if s.provider == nil {
		return Account{}, &types.CheckoutError{
			Code:    types.ErrNoProvider,
			Message: types.NoWalletHint,
		}
	}

	accounts, err := s.provider.RequestAccounts(ctx)
	if err != nil {
		if cancelled(ctx, err) {
			return Account{}, types.NewError(types.ErrUserCancelled, "wallet connection was rejected", err)
		}
		return Account{}, types.NewError(types.ErrWalletUnavailable, "wallet connection failed", err)
	}
	if len(accounts) == 0 {
		return Account{}, types.Errorf(types.ErrUserCancelled, "no wallet account was authorized")
	}

	chain, err := s.provider.ChainID(ctx)
	if err != nil {
		if cancelled(ctx, err) {
			return Account{}, types.NewError(types.ErrUserCancelled, "reading the wallet network was cancelled", err)
		}
		return Account{}, types.NewError(types.ErrWalletUnavailable, "failed to read wallet network", err)
	}

	acct := Account{Address: accounts[0], ChainID: chain}
	s.mu.Lock()
	s.connected = true
	s.account = acct
	s.mu.Unlock()
	return acct, nil
}

// SwitchChain asks the wallet to move to target. It does not re-read the
// active chain; use RefreshChain for that.
func (s *Session) SwitchChain(ctx context.Context, target types.ChainID) error {
	if err := s.ready(); err != nil {
		return err
	}

	err := s.provider.SwitchChain(ctx, target)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrUnrecognizedChain):
		return &types.CheckoutError{
			Code:    types.ErrUnsupportedChain,
			Message: fmt.Sprintf("wallet does not have chain %d configured", target),
			Data:    map[string]any{"chainId": target.Hex()},
			Err:     err,
		}
	default:
		return &types.CheckoutError{
			Code:    types.ErrChainSwitchRejected,
			Message: fmt.Sprintf("switch to chain %d was not approved", target),
			Err:     err,
		}
	}
}

// RefreshChain re-reads the wallet's active chain.
func (s *Session) RefreshChain(ctx context.Context) (types.ChainID, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	chain, err := s.provider.ChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("read wallet chain: %w", err)
	}
	s.mu.Lock()
	s.account.ChainID = chain
	s.mu.Unlock()
	return chain, nil
}

// Decimals reads token precision from the contract.
func (s *Session) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	return s.provider.Decimals(ctx, token)
}

// Transfer submits a token transfer and returns its hash without waiting for inclusion.
func (s *Session) Transfer(ctx context.Context, token, to common.Address, amount *big.Int) (common.Hash, error) {
	if err := s.ready(); err != nil {
		return common.Hash{}, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return common.Hash{}, fmt.Errorf("transfer amount must be positive")
	}
	return s.provider.Transfer(ctx, token, to, amount)
}

// Confirm waits for hash to be mined.
func (s *Session) Confirm(ctx context.Context, hash common.Hash) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.provider.WaitMined(ctx, hash)
}

func (s *Session) ready() error {
	if s.provider == nil {
		return &types.CheckoutError{Code: types.ErrNoProvider, Message: types.NoWalletHint}
	}
	if !s.Connected() {
		return types.Errorf(types.ErrNotConnected, "wallet is not connected")
	}
	return nil
}

// IsCancelled reports whether err is a user rejection or a cancelled context.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrUserRejected) || errors.Is(err, context.Canceled)
}

func cancelled(ctx context.Context, err error) bool {
	return IsCancelled(err) || errors.Is(ctx.Err(), context.Canceled)
}
