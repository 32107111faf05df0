// Package settlement drives a wallet session through the two-transfer payment
// of a descriptor and reconciles the outcome into a stored receipt.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vitwit/paylink/cache"
	"github.com/vitwit/paylink/fee"
	"github.com/vitwit/paylink/logger"
	"github.com/vitwit/paylink/metrics"
	"github.com/vitwit/paylink/registry"
	"github.com/vitwit/paylink/store"
	"github.com/vitwit/paylink/types"
	"github.com/vitwit/paylink/utils"
	"github.com/vitwit/paylink/verification"
	"github.com/vitwit/paylink/wallet"
)

// Settler interface defines the contract for payment settlement
type Settler interface {
	Settle(ctx context.Context, session *wallet.Session, req Request) (*Result, error)
}

// Request is one settlement attempt.
type Request struct {
	Descriptor types.Descriptor
	// Consulted only when the descriptor has no fixed amount.
	PayerAmount string
	// Set when retrying after FEE_TRANSFER_FAILED so the merchant leg is not re-sent.
	Resume *Resume
}

// Resume carries the confirmed merchant leg of an earlier attempt.
type Resume struct {
	MerchantTxHash string
}

// Result is the engine state at the end of an attempt. It is returned together
// with the error on failure so partial progress stays visible.
type Result struct {
	State          State
	Payer          common.Address
	Quote          types.Quote
	Decimals       uint8
	MerchantUnits  *big.Int
	FeeUnits       *big.Int
	MerchantTxHash string
	FeeTxHash      string
	Receipt        *types.Receipt
}

// Config holds the protocol parameters of the engine.
type Config struct {
	Treasury common.Address
	FeeBps   int64
	// Zero leaves confirmation waits to the provider and the caller's context.
	ConfirmationTimeout time.Duration
	ChainSwitchRetries  int
	ChainSwitchBackoff  time.Duration
}

// ConfigFrom extracts engine settings from the library config.
func ConfigFrom(c *types.Config) Config {
	return Config{
		Treasury:            common.HexToAddress(c.TreasuryAddress),
		FeeBps:              c.FeeBps,
		ConfirmationTimeout: c.ConfirmationTimeout,
		ChainSwitchRetries:  c.ChainSwitchRetries,
		ChainSwitchBackoff:  c.ChainSwitchBackoff,
	}
}

// SettlementService is the settlement state machine.
type SettlementService struct {
	cfg      Config
	registry *registry.Registry
	verifier *verification.VerificationService
	store    store.ReceiptStore

	decimals cache.DecimalsCache
	logger   logger.Logger
	metrics  metrics.Recorder
	observer Observer
	now      func() time.Time
	newID    func() string
}

var _ Settler = (*SettlementService)(nil)

// Option configures a SettlementService.
type Option func(*SettlementService)

func WithLogger(l logger.Logger) Option {
	return func(s *SettlementService) { s.logger = l }
}

func WithMetrics(r metrics.Recorder) Option {
	return func(s *SettlementService) { s.metrics = r }
}

func WithObserver(o Observer) Option {
	return func(s *SettlementService) { s.observer = o }
}

func WithClock(now func() time.Time) Option {
	return func(s *SettlementService) { s.now = now }
}

func WithDecimalsCache(c cache.DecimalsCache) Option {
	return func(s *SettlementService) { s.decimals = c }
}

func WithReceiptIDs(newID func() string) Option {
	return func(s *SettlementService) { s.newID = newID }
}

// NewSettlementService creates a new settlement service
func NewSettlementService(cfg Config, reg *registry.Registry, st store.ReceiptStore, opts ...Option) *SettlementService {
	if reg == nil {
		reg = registry.Default()
	}
	s := &SettlementService{
		cfg:      cfg,
		registry: reg,
		verifier: verification.NewVerificationService(reg),
		store:    st,
		decimals: cache.Nop{},
		logger:   logger.NoopLogger{},
		metrics:  metrics.NoopRecorder{},
		now:      time.Now,
		newID:    utils.NewReceiptID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// attempt is the mutable state of one Settle call.
type attempt struct {
	s       *SettlementService
	ctx     context.Context
	session *wallet.Session
	req     Request
	res     *Result
	chain   registry.ChainInfo
	labels  map[string]string
	legs    int
}

// Settle runs one attempt to completion. No wallet call happens before the
// descriptor validates and its token resolves. Every failure is terminal and is
// returned as a *types.CheckoutError alongside the partial Result.
func (s *SettlementService) Settle(ctx context.Context, session *wallet.Session, req Request) (*Result, error) {
	if session == nil {
		session = wallet.NewSession(nil)
	}
	if err := session.Acquire(); err != nil {
		return &Result{State: StateFailed}, err
	}
	defer session.Release()

	d := req.Descriptor
	a := &attempt{
		s:       s,
		ctx:     ctx,
		session: session,
		req:     req,
		res:     &Result{},
		labels:  map[string]string{metrics.LabelChain: d.ChainID.String(), metrics.LabelToken: d.Token},
		legs:    2,
	}
	started := s.now()
	s.metrics.IncCounter("settlement_started", a.labels)

	res, err := a.run()
	if err != nil {
		s.metrics.IncCounter("settlement_failed", a.labels)
		return res, err
	}
	s.metrics.IncCounter("settlement_paid", a.labels)
	s.metrics.ObserveLatency("settlement", s.now().Sub(started), a.labels)
	return res, nil
}

func (a *attempt) run() (*Result, error) {
	s, d := a.s, a.req.Descriptor

	// Validating
	if err := a.enter(StateValidating, ""); err != nil {
		return a.fail(err)
	}
	v, err := s.verifier.Verify(d, a.req.PayerAmount, s.now())
	if err != nil {
		return a.fail(err)
	}

	// ResolvingToken
	if err := a.enter(StateResolvingToken, ""); err != nil {
		return a.fail(err)
	}
	dep, err := s.registry.ResolveToken(d.ChainID, d.Token)
	if err != nil {
		return a.fail(err)
	}
	a.chain, _ = s.registry.Chain(d.ChainID)

	split := fee.Compute(v.Amount, s.cfg.FeeBps)
	a.res.Quote = split.Quote()

	// Connecting
	acct, connected := a.session.Account()
	if !connected {
		if err := a.enter(StateConnecting, ""); err != nil {
			return a.fail(err)
		}
		if acct, err = a.session.Connect(a.ctx); err != nil {
			return a.fail(err)
		}
	}
	a.res.Payer = acct.Address

	// SwitchingChain
	if acct.ChainID != d.ChainID {
		if err := a.enter(StateSwitchingChain, ""); err != nil {
			return a.fail(err)
		}
		if err := a.switchChain(d.ChainID); err != nil {
			return a.fail(err)
		}
	}

	// AwaitingDecimals
	if err := a.enter(StateAwaitingDecimals, ""); err != nil {
		return a.fail(err)
	}
	decimals, err := a.resolveDecimals(dep)
	if err != nil {
		return a.fail(err)
	}
	a.res.Decimals = decimals

	merchantUnits, err := utils.ParseAmountWithDecimals(split.Amount, decimals)
	if err != nil {
		return a.fail(&types.CheckoutError{
			Code:    types.ErrInvalidDescriptor,
			Message: fmt.Sprintf("amount %s is more precise than %s supports (%d decimals)", split.Amount, dep.Symbol, decimals),
			Err:     err,
		})
	}
	if merchantUnits.Sign() <= 0 {
		return a.fail(types.Errorf(types.ErrInvalidDescriptor, "amount is below one token unit"))
	}
	feeUnits, feeSent := utils.TruncateAmountWithDecimals(split.Fee, decimals)
	a.res.MerchantUnits, a.res.FeeUnits = merchantUnits, feeUnits
	if feeUnits.Sign() == 0 {
		a.legs = 1
	}

	merchant := common.HexToAddress(d.Merchant)
	settlements := make([]types.Settlement, 0, 2)

	// Merchant leg
	merchantHash, err := a.merchantLeg(dep.Address, merchant, merchantUnits)
	if err != nil {
		return a.fail(err)
	}
	a.res.MerchantTxHash = merchantHash.Hex()
	settlements = append(settlements, types.Settlement{
		Type:        types.SettlementMerchant,
		TxHash:      a.res.MerchantTxHash,
		Recipient:   merchant.Hex(),
		Amount:      split.Amount.String(),
		ExplorerURL: a.chain.TxURL(a.res.MerchantTxHash),
	})

	// Fee leg
	if feeUnits.Sign() > 0 {
		feeHash, err := a.feeLeg(dep.Address, feeUnits)
		if err != nil {
			return a.fail(err)
		}
		a.res.FeeTxHash = feeHash.Hex()
		settlements = append(settlements, types.Settlement{
			Type:        types.SettlementFee,
			TxHash:      a.res.FeeTxHash,
			Recipient:   s.cfg.Treasury.Hex(),
			Amount:      feeSent.String(),
			ExplorerURL: a.chain.TxURL(a.res.FeeTxHash),
		})
	} else {
		s.logger.Info("fee below one token unit, skipping fee transfer", map[string]any{
			"fee":      split.Fee.String(),
			"decimals": decimals,
		})
	}

	// Reconciled
	receipt, err := a.reconcile(settlements)
	if err != nil {
		return a.fail(err)
	}
	a.res.Receipt = receipt
	a.res.State = StateReconciled
	a.emit(Event{State: StateReconciled, Message: progressMessage(StateReconciled, a.chain.Name, a.legs)})
	s.logger.Info("payment settled", map[string]any{
		"receipt":  receipt.ID,
		"chain":    d.ChainID.String(),
		"merchant": a.res.MerchantTxHash,
		"fee":      a.res.FeeTxHash,
	})
	return a.res, nil
}

// enter records a transition. Until the merchant leg starts, a cancelled
// context ends the attempt as USER_CANCELLED.
func (a *attempt) enter(state State, txHash string) error {
	a.res.State = state
	a.s.logger.Debug("settlement transition", map[string]any{
		"state": string(state),
		"chain": a.req.Descriptor.ChainID.String(),
	})
	a.emit(Event{State: state, Message: progressMessage(state, a.chain.Name, a.legs), TxHash: txHash})

	if beforeMerchantLeg(state) {
		if err := a.ctx.Err(); err != nil {
			return types.NewError(types.ErrUserCancelled, "payment was cancelled", err)
		}
	}
	return nil
}

func beforeMerchantLeg(state State) bool {
	switch state {
	case StateValidating, StateResolvingToken, StateConnecting, StateSwitchingChain, StateAwaitingDecimals:
		return true
	}
	return false
}

func (a *attempt) emit(e Event) {
	if a.s.observer == nil {
		return
	}
	e.At = a.s.now()
	a.s.observer(e)
}

func (a *attempt) fail(err error) (*Result, error) {
	failed := a.res.State
	var ce *types.CheckoutError
	if !errors.As(err, &ce) {
		code := types.ErrMerchantTransferFailed
		if a.res.MerchantTxHash != "" {
			code = types.ErrFeeTransferFailed
		}
		ce = &types.CheckoutError{
			Code:           code,
			Message:        "settlement failed",
			MerchantTxHash: a.res.MerchantTxHash,
			Err:            err,
		}
		err = ce
	}
	if ce.State == "" {
		ce.State = string(failed)
	}

	a.res.State = StateFailed
	a.s.logger.Error("settlement failed", map[string]any{
		"state":          string(failed),
		"code":           types.Code(err),
		"error":          err.Error(),
		"merchantTxHash": a.res.MerchantTxHash,
	})
	a.emit(Event{State: StateFailed, Message: types.StatusMessage(err), Err: err})
	return a.res, err
}

// switchChain asks for target and re-reads the active chain until it matches.
func (a *attempt) switchChain(target types.ChainID) error {
	if err := a.session.SwitchChain(a.ctx, target); err != nil {
		return err
	}

	var last types.ChainID
	for i := 0; i <= a.s.cfg.ChainSwitchRetries; i++ {
		if i > 0 {
			select {
			case <-a.ctx.Done():
				return types.NewError(types.ErrUserCancelled, "payment was cancelled", a.ctx.Err())
			case <-time.After(a.s.cfg.ChainSwitchBackoff):
			}
		}

		chain, err := a.session.RefreshChain(a.ctx)
		if err != nil {
			return types.NewError(types.ErrChainMismatch, "could not read the wallet network after switching", err)
		}
		if chain == target {
			return nil
		}
		last = chain
	}

	return &types.CheckoutError{
		Code:    types.ErrChainMismatch,
		Message: fmt.Sprintf("wallet reports chain %d after switching to %d", last, target),
		Data:    map[string]any{"expected": int64(target), "actual": int64(last)},
	}
}

// resolveDecimals prefers the registry's pinned value, then the cache, then
// the token contract.
func (a *attempt) resolveDecimals(dep registry.TokenDeployment) (uint8, error) {
	if d, ok := dep.ForcedDecimals(); ok {
		return d, nil
	}
	if d, ok := a.s.decimals.Get(dep.ChainID, dep.Address); ok {
		return d, nil
	}

	d, err := a.session.Decimals(a.ctx, dep.Address)
	if err != nil {
		if wallet.IsCancelled(err) {
			return 0, types.NewError(types.ErrUserCancelled, "payment was cancelled", err)
		}
		return 0, &types.CheckoutError{
			Code:    types.ErrTokenUnavailable,
			Message: fmt.Sprintf("could not read %s decimals on %s", dep.Symbol, a.chain.Name),
			Err:     err,
		}
	}
	if err := a.s.decimals.Set(dep.ChainID, dep.Address, d); err != nil {
		a.s.logger.Warn("failed to cache token decimals", map[string]any{"error": err.Error()})
	}
	return d, nil
}

func (a *attempt) merchantLeg(token, merchant common.Address, units *big.Int) (common.Hash, error) {
	if a.req.Resume != nil && a.req.Resume.MerchantTxHash != "" {
		if err := utils.ValidateTransactionHash(a.req.Resume.MerchantTxHash); err != nil {
			return common.Hash{}, types.NewError(types.ErrInvalidDescriptor, "invalid resume transaction hash", err)
		}
		hash := common.HexToHash(a.req.Resume.MerchantTxHash)
		a.s.logger.Info("resuming with earlier merchant transfer", map[string]any{
			"txHash": hash.Hex(),
		})
		// the earlier transfer must still confirm before the fee leg starts
		if err := a.enter(StateAwaitingMerchantConfirmation, hash.Hex()); err != nil {
			return common.Hash{}, err
		}
		if err := a.confirm(hash); err != nil {
			return common.Hash{}, legError(types.ErrMerchantTransferFailed, "resumed merchant transfer did not confirm", hash.Hex(), "", err)
		}
		return hash, nil
	}

	if err := a.enter(StateSendingMerchantTransfer, ""); err != nil {
		return common.Hash{}, err
	}
	started := a.s.now()
	hash, err := a.session.Transfer(a.ctx, token, merchant, units)
	if err != nil {
		return common.Hash{}, legError(types.ErrMerchantTransferFailed, "merchant transfer was not submitted", "", "", err)
	}

	if err := a.enter(StateAwaitingMerchantConfirmation, hash.Hex()); err != nil {
		return common.Hash{}, err
	}
	if err := a.confirm(hash); err != nil {
		return common.Hash{}, legError(types.ErrMerchantTransferFailed, "merchant transfer did not confirm", hash.Hex(), "", err)
	}
	a.s.metrics.ObserveLatency("merchant_leg", a.s.now().Sub(started), a.labels)
	return hash, nil
}

func (a *attempt) feeLeg(token common.Address, units *big.Int) (common.Hash, error) {
	merchantTx := a.res.MerchantTxHash

	if err := a.enter(StateSendingFeeTransfer, ""); err != nil {
		return common.Hash{}, err
	}
	started := a.s.now()
	hash, err := a.session.Transfer(a.ctx, token, a.s.cfg.Treasury, units)
	if err != nil {
		return common.Hash{}, legError(types.ErrFeeTransferFailed, "fee transfer was not submitted", "", merchantTx, err)
	}

	if err := a.enter(StateAwaitingFeeConfirmation, hash.Hex()); err != nil {
		return common.Hash{}, err
	}
	if err := a.confirm(hash); err != nil {
		return common.Hash{}, legError(types.ErrFeeTransferFailed, "fee transfer did not confirm", hash.Hex(), merchantTx, err)
	}
	a.s.metrics.ObserveLatency("fee_leg", a.s.now().Sub(started), a.labels)
	return hash, nil
}

func (a *attempt) confirm(hash common.Hash) error {
	ctx := a.ctx
	if t := a.s.cfg.ConfirmationTimeout; t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}
	return a.session.Confirm(ctx, hash)
}

func legError(code, msg, txHash, merchantTx string, err error) error {
	ce := &types.CheckoutError{
		Code:           code,
		Message:        msg,
		MerchantTxHash: merchantTx,
		Err:            err,
	}
	data := map[string]any{"cancelled": wallet.IsCancelled(err)}
	if txHash != "" {
		data["txHash"] = txHash
	}
	ce.Data = data
	return ce
}

// reconcile is the only place a receipt becomes paid.
func (a *attempt) reconcile(settlements []types.Settlement) (*types.Receipt, error) {
	s, d := a.s, a.req.Descriptor
	now := s.now()

	var receipt *types.Receipt
	if d.ReceiptID != "" && s.store != nil {
		existing, err := s.store.Get(d.ReceiptID)
		switch {
		case err == nil && existing.Status != types.ReceiptPaid:
			receipt = existing
		case err == nil:
			// reusable links (static POS codes) are paid many times
			receipt = types.NewReceipt(s.newID(), existing.Descriptor, now)
		case types.HasCode(err, types.ErrNotFound):
			receipt = types.NewReceipt(d.ReceiptID, d, now)
		default:
			s.logger.Warn("failed to load receipt, writing a new one", map[string]any{
				"receipt": d.ReceiptID,
				"error":   err.Error(),
			})
			receipt = types.NewReceipt(s.newID(), d, now)
		}
	} else {
		id := d.ReceiptID
		if id == "" {
			id = s.newID()
		}
		receipt = types.NewReceipt(id, d, now)
	}

	if err := receipt.MarkPaid(a.res.Payer.Hex(), now, settlements); err != nil {
		return nil, err
	}
	if s.store != nil {
		if err := s.store.Put(receipt); err != nil {
			return nil, &types.CheckoutError{
				Code:           types.ErrReceiptNotSaved,
				Message:        "payment confirmed on-chain but the receipt could not be saved",
				MerchantTxHash: a.res.MerchantTxHash,
				Data:           map[string]any{"feeTxHash": a.res.FeeTxHash, "receipt": receipt.ID},
				Err:            err,
			}
		}
	}
	return receipt, nil
}
