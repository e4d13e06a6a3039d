// Package chain moves savings tokens to the destination wallet.
package chain

import (
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/shopspring/decimal"
)

// ERC20ABI is the subset of the ERC-20 interface used by the service.
const ERC20ABI = `[
	{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]}
]`

// ErrInvalidAmount indicates an amount that cannot be moved on chain.
var ErrInvalidAmount = errors.New("amount must be positive")

// ParseERC20 returns the parsed ERC20ABI.
func ParseERC20() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(ERC20ABI))
}

// ToUnits converts a token amount into base units, dropping digits beyond decimals.
func ToUnits(amount decimal.Decimal, decimals int32) (*big.Int, error) {
	units := amount.Shift(decimals).Truncate(0)
	if !units.IsPositive() {
		return nil, ErrInvalidAmount
	}

	return units.BigInt(), nil
}

// FromUnits converts base units into a token amount.
func FromUnits(units *big.Int, decimals int32) decimal.Decimal {
	if units == nil {
		return decimal.Zero
	}

	return decimal.NewFromBigInt(units, -decimals)
}
