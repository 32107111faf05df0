// Package paylink is a serverless crypto point-of-sale checkout: merchants
// generate payment links for a stablecoin amount on an EVM chain, payers settle
// them with two token transfers (merchant amount plus protocol fee) from their
// wallet, and the outcome is reconciled into a device-local receipt.
package paylink

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vitwit/paylink/cache"
	"github.com/vitwit/paylink/fee"
	"github.com/vitwit/paylink/link"
	"github.com/vitwit/paylink/logger"
	"github.com/vitwit/paylink/metrics"
	"github.com/vitwit/paylink/qr"
	"github.com/vitwit/paylink/registry"
	"github.com/vitwit/paylink/settlement"
	"github.com/vitwit/paylink/store"
	"github.com/vitwit/paylink/types"
	"github.com/vitwit/paylink/utils"
	"github.com/vitwit/paylink/verification"
	"github.com/vitwit/paylink/wallet"
)

// Checkout is the main struct that provides all checkout functionality.
type Checkout struct {
	config   *types.Config
	registry *registry.Registry
	verifier *verification.VerificationService
	engine   *settlement.SettlementService
	store    store.Store

	renderer qr.Renderer
	decimals cache.DecimalsCache
	observer settlement.Observer
	logger   logger.Logger
	metrics  metrics.Recorder
	timeout  time.Duration
	now      func() time.Time
}

// New creates a checkout over st. A nil config means types.DefaultConfig and a
// nil store keeps receipts in memory.
func New(cfg *types.Config, st store.Store, opts ...Option) (*Checkout, error) {
	if cfg == nil {
		cfg = types.DefaultConfig()
	}
	if err := utils.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if st == nil {
		st = store.NewMemoryStore()
	}

	c := &Checkout{
		config:   cfg,
		registry: registry.Default(),
		store:    st,
		renderer: qr.NewPNGRenderer(),
		decimals: cache.Nop{},
		logger:   logger.NoopLogger{},
		metrics:  metrics.NoopRecorder{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	if _, err := c.registry.ResolveToken(cfg.DefaultChainID, cfg.DefaultToken); err != nil {
		return nil, &types.CheckoutError{
			Code:    types.ErrConfigError,
			Message: fmt.Sprintf("default token %s is not available on chain %s", cfg.DefaultToken, cfg.DefaultChainID),
			Err:     err,
		}
	}

	c.verifier = verification.NewVerificationService(c.registry)
	c.engine = settlement.NewSettlementService(settlement.ConfigFrom(cfg), c.registry, st,
		settlement.WithLogger(c.logger),
		settlement.WithMetrics(c.metrics),
		settlement.WithObserver(c.observer),
		settlement.WithClock(c.now),
		settlement.WithDecimalsCache(c.decimals),
	)
	return c, nil
}

// Config returns the active configuration.
func (c *Checkout) Config() *types.Config {
	return c.config
}

// Registry returns the chain and token tables in use.
func (c *Checkout) Registry() *registry.Registry {
	return c.registry
}

// Defaults are the link fallbacks derived from config.
func (c *Checkout) Defaults() link.Defaults {
	return link.Defaults{ChainID: c.config.DefaultChainID, Token: c.config.DefaultToken}
}

// LinkRequest is the merchant input for a new payment link.
type LinkRequest struct {
	Merchant string `json:"merchant" validate:"required,eth_addr"`
	// Zero selects the configured default chain.
	ChainID types.ChainID `json:"chainId" validate:"gte=0"`
	// Empty selects the configured default token.
	Token  string `json:"token" validate:"omitempty,alphanum,max=16"`
	Amount string `json:"amount,omitempty" validate:"omitempty,numeric"`
	Memo   string `json:"memo,omitempty" validate:"max=140"`
	// ExpiresAt wins over TTL. With neither, the configured link TTL applies.
	ExpiresAt *time.Time    `json:"expiresAt,omitempty"`
	TTL       time.Duration `json:"ttl,omitempty" validate:"gte=0"`
}

// Link is a generated payment link.
type Link struct {
	Descriptor types.Descriptor `json:"descriptor"`
	URL        string           `json:"url"`
	// Pending receipt stored for the link, when links are persisted.
	Receipt *types.Receipt `json:"receipt,omitempty"`
}

// CreateLink issues a fixed-amount payment link.
func (c *Checkout) CreateLink(req LinkRequest) (*Link, error) {
	if strings.TrimSpace(req.Amount) == "" {
		return nil, types.Errorf(types.ErrInvalidDescriptor, "enter an amount, or create a static link")
	}
	return c.createLink(req, false)
}

// StaticLink issues a link without an amount; the payer enters it at pay time.
// Any amount in req is ignored.
func (c *Checkout) StaticLink(req LinkRequest) (*Link, error) {
	req.Amount = ""
	return c.createLink(req, true)
}

func (c *Checkout) createLink(req LinkRequest, static bool) (*Link, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, types.NewError(types.ErrInvalidDescriptor, "invalid link request", err)
	}

	now := c.now()
	d := types.Descriptor{
		Merchant: utils.NormalizeAddress(req.Merchant),
		ChainID:  req.ChainID,
		Token:    strings.ToUpper(strings.TrimSpace(req.Token)),
		Amount:   strings.TrimSpace(req.Amount),
		Memo:     strings.TrimSpace(req.Memo),
	}
	if d.ChainID == 0 {
		d.ChainID = c.config.DefaultChainID
	}
	if d.Token == "" {
		d.Token = strings.ToUpper(c.config.DefaultToken)
	}
	if !static && d.IsStatic() {
		return nil, types.Errorf(types.ErrInvalidDescriptor, "amount must be greater than zero")
	}

	switch {
	case req.ExpiresAt != nil:
		at := req.ExpiresAt.UTC()
		d.ExpiresAt = &at
	case req.TTL > 0:
		at := now.Add(req.TTL).UTC()
		d.ExpiresAt = &at
	case c.config.LinkTTL > 0:
		at := now.Add(c.config.LinkTTL).UTC()
		d.ExpiresAt = &at
	}

	if err := c.verifier.VerifyLink(d, now); err != nil {
		return nil, err
	}

	out := &Link{}
	if c.config.PersistLinks {
		r := types.NewReceipt(utils.NewReceiptID(), d, now)
		if err := c.store.Put(r); err != nil {
			return nil, types.NewError(types.ErrReceiptNotSaved, "could not save the link receipt", err)
		}
		d = r.Descriptor
		out.Receipt = r
	}

	u, err := link.BuildURL(c.config.BaseURL, c.config.PayPath, d)
	if err != nil {
		return nil, types.NewError(types.ErrConfigError, "cannot build payment link", err)
	}
	out.Descriptor = d
	out.URL = u

	c.metrics.IncCounter("links_created", map[string]string{
		metrics.LabelChain: d.ChainID.String(),
		metrics.LabelToken: d.Token,
	})
	c.logger.Info("payment link created", map[string]any{
		"chain":  d.ChainID.String(),
		"token":  d.Token,
		"amount": d.Amount,
		"rid":    d.ReceiptID,
	})
	return out, nil
}

// ResolveLink decodes a payment link. A link that carries only a receipt id is
// resolved from the stored receipt's descriptor.
func (c *Checkout) ResolveLink(raw string) (types.Descriptor, error) {
	v, err := link.Parse(raw)
	if err != nil {
		return types.Descriptor{}, err
	}

	rid := strings.ToUpper(strings.TrimSpace(v.Get(link.KeyReceiptID)))
	if !link.HasPaymentData(v) && rid != "" {
		if !utils.IsReceiptID(rid) {
			return types.Descriptor{}, types.Errorf(types.ErrInvalidDescriptor, "malformed receipt id %q", rid)
		}
		r, err := c.store.Get(rid)
		if err != nil {
			return types.Descriptor{}, err
		}
		d := r.Descriptor
		d.ReceiptID = r.ID
		return d, nil
	}
	return link.DecodeValues(v, c.Defaults()), nil
}

// Quote returns the fee split for d. payerAmount is used only for static links.
func (c *Checkout) Quote(d types.Descriptor, payerAmount string) (types.Quote, error) {
	res, err := c.verifier.Verify(d, payerAmount, c.now())
	if err != nil {
		return types.Quote{}, err
	}
	return fee.Compute(res.Amount, c.config.FeeBps).Quote(), nil
}

// Preview is what a pay page shows before the payer connects a wallet.
type Preview struct {
	Descriptor types.Descriptor `json:"descriptor"`
	Quote      types.Quote      `json:"quote"`
	Merchant   string           `json:"merchant"`
	Chain      string           `json:"chain"`
	Amount     string           `json:"amount"`
	Fee        string           `json:"fee"`
	Total      string           `json:"total"`
	Payable    bool             `json:"payable"`
	// Status explains why the link cannot be paid.
	Status string `json:"status,omitempty"`
}

// Preview summarises d for display. It never fails; problems are reported in
// Status with Payable false.
func (c *Checkout) Preview(d types.Descriptor, payerAmount string) Preview {
	p := Preview{
		Descriptor: d,
		Merchant:   utils.ShortenAddress(d.Merchant),
		Chain:      d.ChainID.String(),
	}
	if info, ok := c.registry.Chain(d.ChainID); ok {
		p.Chain = info.Name
	}

	q, err := c.Quote(d, payerAmount)
	if err == nil {
		_, err = c.registry.ResolveToken(d.ChainID, d.Token)
	}
	if err != nil {
		p.Status = types.StatusMessage(err)
		return p
	}

	p.Quote = q
	p.Amount = utils.FormatMoney(q.Amount) + " " + d.Token
	p.Fee = utils.FormatMoney(q.Fee) + " " + d.Token
	p.Total = utils.FormatMoney(q.Total) + " " + d.Token
	p.Payable = true
	return p
}

// Pay settles a descriptor through session. The configured timeout, if any,
// bounds the whole attempt.
func (c *Checkout) Pay(ctx context.Context, session *wallet.Session, req settlement.Request) (*settlement.Result, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.engine.Settle(ctx, session, req)
}

// QR renders the payment link for d as a PNG.
func (c *Checkout) QR(d types.Descriptor) ([]byte, error) {
	u, err := link.BuildURL(c.config.BaseURL, c.config.PayPath, d)
	if err != nil {
		return nil, types.NewError(types.ErrConfigError, "cannot build payment link", err)
	}
	return c.renderer.Render(u, qr.DefaultSize, qr.DefaultSize)
}

// ExplorerURL links hash on chain's block explorer, or returns "" when the
// chain has none.
func (c *Checkout) ExplorerURL(chain types.ChainID, hash string) string {
	info, ok := c.registry.Chain(chain)
	if !ok {
		return ""
	}
	return info.TxURL(hash)
}

// Receipt loads a stored receipt.
func (c *Checkout) Receipt(id string) (*types.Receipt, error) {
	return c.store.Get(id)
}

// Receipts lists stored receipts, newest first.
func (c *Checkout) Receipts() ([]*types.Receipt, error) {
	return c.store.List()
}

// SweepExpired marks pending receipts whose link expired by now as expired
// and returns how many changed. Paid receipts are never touched.
func (c *Checkout) SweepExpired(now time.Time) (int, error) {
	receipts, err := c.store.List()
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, r := range receipts {
		if !r.Descriptor.Expired(now) || !r.MarkExpired() {
			continue
		}
		if err := c.store.Put(r); err != nil {
			return swept, types.NewError(types.ErrReceiptNotSaved, fmt.Sprintf("could not expire receipt %s", r.ID), err)
		}
		swept++
	}
	if swept > 0 {
		c.logger.Info("expired receipts swept", map[string]any{"count": swept})
	}
	return swept, nil
}

// RecordPayment notes a payment the merchant observed at the counter. A zero
// timestamp means now.
func (c *Checkout) RecordPayment(p types.RecentPayment) error {
	if err := utils.ValidateTransactionHash(p.TxHash); err != nil {
		return types.NewError(types.ErrInvalidDescriptor, "invalid transaction hash", err)
	}
	if _, err := utils.ValidateAmount(p.Amount); err != nil {
		return types.NewError(types.ErrInvalidDescriptor, "invalid amount", err)
	}
	if p.ChainID == 0 {
		p.ChainID = c.config.DefaultChainID
	}
	if p.Token == "" {
		p.Token = c.config.DefaultToken
	}
	p.Token = strings.ToUpper(p.Token)
	if _, err := c.registry.ResolveToken(p.ChainID, p.Token); err != nil {
		return err
	}
	if p.Timestamp.IsZero() {
		p.Timestamp = c.now()
	}
	return c.store.AppendRecent(p)
}

// RecentPayments lists recorded payments, newest first. limit <= 0 means all.
func (c *Checkout) RecentPayments(limit int) ([]types.RecentPayment, error) {
	return c.store.ListRecent(limit)
}

// SupportedItem is a chain and the tokens payable on it.
type SupportedItem struct {
	ChainID types.ChainID `json:"chainId"`
	Name    string        `json:"name"`
	Tokens  []string      `json:"tokens"`
}

// Supported lists every chain with at least one token.
func (c *Checkout) Supported() []SupportedItem {
	var out []SupportedItem
	for _, ch := range c.registry.Chains() {
		tokens := c.registry.Tokens(ch.ID)
		if len(tokens) == 0 {
			continue
		}
		out = append(out, SupportedItem{ChainID: ch.ID, Name: ch.Name, Tokens: tokens})
	}
	return out
}

// Close releases the store.
func (c *Checkout) Close() error {
	return c.store.Close()
}

// Version information
const (
	Version       = "0.1.0"
	SchemaVersion = store.SchemaVersion
)

// GetVersion returns version information
func GetVersion() map[string]interface{} {
	return map[string]interface{}{
		"library_version":  Version,
		"receipt_schema":   SchemaVersion,
		"fee_bps":          types.DefaultFeeBps,
		"supported_tokens": []string{"USDC", "USDT"},
	}
}
