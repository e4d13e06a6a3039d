package venueservice

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"

	"github.com/go-petr/roundup-savings/internal/chain"
	"github.com/go-petr/roundup-savings/internal/domain"
)

// aavePoolABI is the supply entry point of the Aave v3 pool.
const aavePoolABI = `[
	{"type":"function","name":"supply","stateMutability":"nonpayable","inputs":[{"name":"asset","type":"address"},{"name":"amount","type":"uint256"},{"name":"onBehalfOf","type":"address"},{"name":"referralCode","type":"uint16"}],"outputs":[]}
]`

// morphoVaultABI is the deposit entry point of the Morpho vault.
const morphoVaultABI = `[
	{"type":"function","name":"deposit","stateMutability":"nonpayable","inputs":[{"name":"token","type":"address"},{"name":"amount","type":"uint256"},{"name":"onBehalfOf","type":"address"}],"outputs":[]}
]`

// zeroValue is the native value of every built transaction.
const zeroValue = "0x0"

// Builder encodes approve plus supply or deposit call data for the savings token.
type Builder struct {
	token    common.Address
	decimals int32
	erc20    abi.ABI
	aave     abi.ABI
	morpho   abi.ABI
}

// NewBuilder parses the contract ABIs for the given token.
func NewBuilder(token string, decimals int32) (*Builder, error) {
	erc20, err := chain.ParseERC20()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}

	aave, err := abi.JSON(strings.NewReader(aavePoolABI))
	if err != nil {
		return nil, fmt.Errorf("parse aave pool abi: %w", err)
	}

	morpho, err := abi.JSON(strings.NewReader(morphoVaultABI))
	if err != nil {
		return nil, fmt.Errorf("parse morpho vault abi: %w", err)
	}

	return &Builder{
		token:    common.HexToAddress(token),
		decimals: decimals,
		erc20:    erc20,
		aave:     aave,
		morpho:   morpho,
	}, nil
}

// AaveSupply returns [approve, supply] for the Aave pool.
func (b *Builder) AaveSupply(pool string, amount decimal.Decimal, onBehalfOf string) ([]domain.UnsignedTx, error) {
	poolAddr, owner, units, err := b.args(pool, amount, onBehalfOf)
	if err != nil {
		return nil, err
	}

	supply, err := b.aave.Pack("supply", b.token, units, owner, uint16(0))
	if err != nil {
		return nil, fmt.Errorf("pack supply: %w", err)
	}

	return b.withApproval(poolAddr, units, supply)
}

// MorphoDeposit returns [approve, deposit] for the Morpho vault.
func (b *Builder) MorphoDeposit(vault string, amount decimal.Decimal, onBehalfOf string) ([]domain.UnsignedTx, error) {
	vaultAddr, owner, units, err := b.args(vault, amount, onBehalfOf)
	if err != nil {
		return nil, err
	}

	deposit, err := b.morpho.Pack("deposit", b.token, units, owner)
	if err != nil {
		return nil, fmt.Errorf("pack deposit: %w", err)
	}

	return b.withApproval(vaultAddr, units, deposit)
}

func (b *Builder) args(spender string, amount decimal.Decimal, onBehalfOf string) (common.Address, common.Address, *big.Int, error) {
	if !common.IsHexAddress(spender) {
		return common.Address{}, common.Address{}, nil, fmt.Errorf("%w: venue address %q", domain.ErrInvalidInput, spender)
	}

	if !common.IsHexAddress(onBehalfOf) {
		return common.Address{}, common.Address{}, nil, fmt.Errorf("%w: onBehalfOf %q", domain.ErrInvalidInput, onBehalfOf)
	}

	units, err := chain.ToUnits(amount, b.decimals)
	if err != nil {
		return common.Address{}, common.Address{}, nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	return common.HexToAddress(spender), common.HexToAddress(onBehalfOf), units, nil
}

func (b *Builder) withApproval(spender common.Address, units *big.Int, call []byte) ([]domain.UnsignedTx, error) {
	approve, err := b.erc20.Pack("approve", spender, units)
	if err != nil {
		return nil, fmt.Errorf("pack approve: %w", err)
	}

	return []domain.UnsignedTx{
		{To: b.token.Hex(), Data: hexutil.Encode(approve), Value: zeroValue},
		{To: spender.Hex(), Data: hexutil.Encode(call), Value: zeroValue},
	}, nil
}
