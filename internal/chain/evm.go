package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/roundup-savings/internal/domain"
)

var (
	// ErrInvalidAddress indicates a malformed hex address in the configuration.
	ErrInvalidAddress = errors.New("invalid address")
	// ErrReverted indicates that the transfer was mined but reverted.
	ErrReverted = errors.New("transaction reverted")
)

// EVMConfig holds the parameters of an ERC-20 transfer collaborator.
type EVMConfig struct {
	RPCURL      string
	ChainID     int64
	PrivateKey  string
	Token       string
	Destination string
	Decimals    int32
}

// EVM transfers an ERC-20 token from the admin wallet over JSON-RPC.
type EVM struct {
	client   *ethclient.Client
	token    *bind.BoundContract
	key      *ecdsa.PrivateKey
	chainID  *big.Int
	from     common.Address
	to       common.Address
	decimals int32

	// mu serializes transfers so that nonces are taken in order.
	mu sync.Mutex
}

// NewEVM dials the RPC endpoint and binds the token contract.
func NewEVM(ctx context.Context, cfg EVMConfig) (*EVM, error) {
	if !common.IsHexAddress(cfg.Token) {
		return nil, fmt.Errorf("%w: token %q", ErrInvalidAddress, cfg.Token)
	}

	if !common.IsHexAddress(cfg.Destination) {
		return nil, fmt.Errorf("%w: destination %q", ErrInvalidAddress, cfg.Destination)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	parsed, err := ParseERC20()
	if err != nil {
		return nil, fmt.Errorf("parse token abi: %w", err)
	}

	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}

	tokenAddr := common.HexToAddress(cfg.Token)

	return &EVM{
		client:   client,
		token:    bind.NewBoundContract(tokenAddr, parsed, client, client, client),
		key:      key,
		chainID:  big.NewInt(cfg.ChainID),
		from:     crypto.PubkeyToAddress(key.PublicKey),
		to:       common.HexToAddress(cfg.Destination),
		decimals: cfg.Decimals,
	}, nil
}

// Transfer sends amount to the destination and waits for the receipt.
func (e *EVM) Transfer(ctx context.Context, amount decimal.Decimal) (domain.TransferResult, error) {
	l := zerolog.Ctx(ctx)

	result := domain.TransferResult{Amount: amount}

	units, err := ToUnits(amount, e.decimals)
	if err != nil {
		return result, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	balance, err := e.balanceOf(ctx, e.from)
	if err != nil {
		return result, err
	}

	if balance.Cmp(units) < 0 {
		l.Warn().
			Str("balance", FromUnits(balance, e.decimals).String()).
			Str("amount", amount.String()).
			Msg("insufficient token balance")

		return result, domain.ErrInsufficientBalance
	}

	opts, err := bind.NewKeyedTransactorWithChainID(e.key, e.chainID)
	if err != nil {
		return result, fmt.Errorf("build transactor: %w", err)
	}

	opts.Context = ctx

	tx, err := e.token.Transact(opts, "transfer", e.to, units)
	if err != nil {
		return result, fmt.Errorf("send transfer: %w", err)
	}

	result.Hash = tx.Hash().Hex()

	l.Info().Str("hash", result.Hash).Str("amount", amount.String()).Msg("transfer sent")

	receipt, err := bind.WaitMined(ctx, e.client, tx)
	if err != nil {
		return result, fmt.Errorf("wait for receipt: %w", err)
	}

	result.BlockNumber = receipt.BlockNumber.Uint64()

	if receipt.Status != types.ReceiptStatusSuccessful {
		return result, ErrReverted
	}

	result.Success = true

	l.Info().Str("hash", result.Hash).Uint64("block", result.BlockNumber).Msg("transfer confirmed")

	return result, nil
}

// Balances returns the token balances of the admin and destination wallets.
func (e *EVM) Balances(ctx context.Context) (domain.Balances, error) {
	admin, err := e.balanceOf(ctx, e.from)
	if err != nil {
		return domain.Balances{}, err
	}

	destination, err := e.balanceOf(ctx, e.to)
	if err != nil {
		return domain.Balances{}, err
	}

	return domain.Balances{
		Admin:       FromUnits(admin, e.decimals),
		Destination: FromUnits(destination, e.decimals),
	}, nil
}

func (e *EVM) balanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	var out []interface{}

	if err := e.token.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", account); err != nil {
		return nil, fmt.Errorf("balanceOf %s: %w", account.Hex(), err)
	}

	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// Close closes the RPC connection.
func (e *EVM) Close() {
	e.client.Close()
}
