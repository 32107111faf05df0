package registry

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/vitwit/paylink/types"
)

const (
	Ethereum types.ChainID = 1
	Optimism types.ChainID = 10
	BSC      types.ChainID = 56
	Polygon  types.ChainID = 137
	Base     types.ChainID = 8453
	Arbitrum types.ChainID = 42161
)

// DefaultChains is the supported network table.
var DefaultChains = []ChainInfo{
	{ID: Ethereum, Name: "Ethereum", ExplorerTx: "https://etherscan.io/tx/"},
	{ID: Base, Name: "Base", ExplorerTx: "https://basescan.org/tx/"},
	{ID: Optimism, Name: "Optimism", ExplorerTx: "https://optimistic.etherscan.io/tx/"},
	{ID: Arbitrum, Name: "Arbitrum", ExplorerTx: "https://arbiscan.io/tx/"},
	{ID: Polygon, Name: "Polygon", ExplorerTx: "https://polygonscan.com/tx/"},
	{ID: BSC, Name: "BNB Smart Chain", ExplorerTx: "https://bscscan.com/tx/"},
}

// Binance-Peg USDC/USDT on BSC use 18 decimals, unlike every other deployment.
// The pinned value is authoritative over whatever the contract reports.
var bscDecimals = uint8(18)

func deployment(addr string) TokenDeployment {
	return TokenDeployment{Address: common.HexToAddress(addr)}
}

func pinned(addr string, decimals *uint8) TokenDeployment {
	d := deployment(addr)
	d.Decimals = decimals
	return d
}

// DefaultTokens is the supported stablecoin table.
var DefaultTokens = []TokenInfo{
	{
		Symbol: "USDC",
		PerChain: map[types.ChainID]TokenDeployment{
			Ethereum: deployment("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
			Base:     deployment("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"),
			Optimism: deployment("0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85"),
			Arbitrum: deployment("0xaf88d065e77c8cC2239327C5EDb3A432268e5831"),
			Polygon:  deployment("0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359"),
			BSC:      pinned("0x8ac76a51cc950d9822d68b83fe1ad97b32cd580d", &bscDecimals),
		},
	},
	{
		Symbol: "USDT",
		PerChain: map[types.ChainID]TokenDeployment{
			Ethereum: deployment("0xdAC17F958D2ee523a2206206994597C13D831ec7"),
			Base:     deployment("0xfde4C96c8593536E31F229EA8f37b2ADa2699bb2"),
			Optimism: deployment("0x94b008aa00579c1307b0ef2c499ad98a8ce58e58"),
			Arbitrum: deployment("0xfd086bc7cd5c481dcc9c85ebe478a1c0b69fcbb9"),
			Polygon:  deployment("0xc2132D05D31c914a87C6611C10748AEb04B58e8F"),
			BSC:      pinned("0x55d398326f99059ff775485246999027b3197955", &bscDecimals),
		},
	},
}

// Default returns the built-in registry.
func Default() *Registry {
	r, err := New(DefaultChains, DefaultTokens)
	if err != nil {
		panic(err)
	}
	return r
}
