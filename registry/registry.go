// Package registry holds the static chain and token tables used to resolve a
// payment descriptor into on-chain contract metadata.
package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vitwit/paylink/types"
)

// ChainInfo describes one supported EVM network.
type ChainInfo struct {
	ID   types.ChainID `json:"chainId"`
	Name string        `json:"name"`
	// Explorer transaction URL prefix; the hash is appended.
	ExplorerTx string `json:"explorerTx,omitempty"`
}

// TxURL renders the explorer link for hash, or "" when the chain has no explorer.
func (c ChainInfo) TxURL(hash string) string {
	if c.ExplorerTx == "" || hash == "" {
		return ""
	}
	return c.ExplorerTx + hash
}

// TokenDeployment is a token contract on one chain.
type TokenDeployment struct {
	Symbol   string         `json:"symbol"`
	ChainID  types.ChainID  `json:"chainId"`
	Address  common.Address `json:"address"`
	Decimals *uint8         `json:"decimals,omitempty"`
}

// ForcedDecimals returns the registry precision, if one is pinned for this chain.
func (t TokenDeployment) ForcedDecimals() (uint8, bool) {
	if t.Decimals == nil {
		return 0, false
	}
	return *t.Decimals, true
}

// TokenInfo is a fungible token keyed by symbol with per-chain deployments.
type TokenInfo struct {
	Symbol   string
	PerChain map[types.ChainID]TokenDeployment
}

// Registry is an immutable chain + token table. It is safe for concurrent use.
type Registry struct {
	chains map[types.ChainID]ChainInfo
	tokens map[string]TokenInfo
}

// New builds a registry. Token symbols are matched case-insensitively.
func New(chains []ChainInfo, tokens []TokenInfo) (*Registry, error) {
	r := &Registry{
		chains: make(map[types.ChainID]ChainInfo, len(chains)),
		tokens: make(map[string]TokenInfo, len(tokens)),
	}

	for _, c := range chains {
		if _, dup := r.chains[c.ID]; dup {
			return nil, fmt.Errorf("duplicate chain %d", c.ID)
		}
		r.chains[c.ID] = c
	}

	for _, t := range tokens {
		key := strings.ToUpper(strings.TrimSpace(t.Symbol))
		if key == "" {
			return nil, fmt.Errorf("token symbol cannot be empty")
		}
		if _, dup := r.tokens[key]; dup {
			return nil, fmt.Errorf("duplicate token %s", key)
		}
		per := make(map[types.ChainID]TokenDeployment, len(t.PerChain))
		for id, dep := range t.PerChain {
			if _, ok := r.chains[id]; !ok {
				return nil, fmt.Errorf("token %s references unknown chain %d", key, id)
			}
			if dep.Address == (common.Address{}) {
				return nil, fmt.Errorf("token %s on chain %d has no contract address", key, id)
			}
			dep.Symbol = key
			dep.ChainID = id
			per[id] = dep
		}
		r.tokens[key] = TokenInfo{Symbol: key, PerChain: per}
	}

	return r, nil
}

// Chain resolves a chain id.
func (r *Registry) Chain(id types.ChainID) (ChainInfo, bool) {
	c, ok := r.chains[id]
	return c, ok
}

// Chains lists all chains ordered by id.
func (r *Registry) Chains() []ChainInfo {
	out := make([]ChainInfo, 0, len(r.chains))
	for _, c := range r.chains {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Tokens lists the token symbols deployed on chain.
func (r *Registry) Tokens(chain types.ChainID) []string {
	var out []string
	for sym, t := range r.tokens {
		if _, ok := t.PerChain[chain]; ok {
			out = append(out, sym)
		}
	}
	sort.Strings(out)
	return out
}

// ResolveToken joins chain and symbol. An unknown symbol, an unknown chain and a
// symbol with no deployment on the chain all yield the same TOKEN_UNAVAILABLE error.
func (r *Registry) ResolveToken(chain types.ChainID, symbol string) (TokenDeployment, error) {
	key := strings.ToUpper(strings.TrimSpace(symbol))
	if t, ok := r.tokens[key]; ok {
		if dep, ok := t.PerChain[chain]; ok {
			return dep, nil
		}
	}

	name := chain.String()
	if c, ok := r.chains[chain]; ok {
		name = c.Name
	}
	return TokenDeployment{}, &types.CheckoutError{
		Code:    types.ErrTokenUnavailable,
		Message: fmt.Sprintf("%s is not available on %s", symbol, name),
		Data:    map[string]any{"chainId": int64(chain), "token": symbol},
	}
}
