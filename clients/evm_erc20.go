package clients

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Only the two ERC-20 methods the checkout calls.
const erc20ABI = `[
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
	{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}
]`

var parsedERC20 abi.ABI

func init() {
	var err error
	parsedERC20, err = abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		panic(fmt.Sprintf("parse erc20 abi: %v", err))
	}
}

// PackTransfer builds calldata for transfer(to, amount).
func PackTransfer(to common.Address, amount *big.Int) ([]byte, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("transfer amount must be positive")
	}
	return parsedERC20.Pack("transfer", to, amount)
}

// PackDecimals builds calldata for decimals().
func PackDecimals() ([]byte, error) {
	return parsedERC20.Pack("decimals")
}

// UnpackDecimals decodes the decimals() return value.
func UnpackDecimals(out []byte) (uint8, error) {
	if len(out) == 0 {
		return 0, fmt.Errorf("empty decimals() response, is this a token contract?")
	}
	vals, err := parsedERC20.Unpack("decimals", out)
	if err != nil {
		return 0, fmt.Errorf("unpack decimals: %w", err)
	}
	d, ok := vals[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("unexpected decimals type %T", vals[0])
	}
	return d, nil
}
