package chain

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/go-petr/roundup-savings/internal/domain"
	"github.com/go-petr/roundup-savings/pkg/randompkg"
)

func TestToUnits(t *testing.T) {
	testCases := []struct {
		name     string
		amount   string
		decimals int32
		want     string
		wantErr  error
	}{
		{name: "Whole", amount: "3", decimals: 6, want: "3000000"},
		{name: "Cents", amount: "2.75", decimals: 6, want: "2750000"},
		{name: "Truncated", amount: "0.1234567", decimals: 6, want: "123456"},
		{name: "Ether", amount: "1.5", decimals: 18, want: "1500000000000000000"},
		{name: "Zero", amount: "0", decimals: 6, wantErr: ErrInvalidAmount},
		{name: "BelowOneUnit", amount: "0.0000001", decimals: 6, wantErr: ErrInvalidAmount},
		{name: "Negative", amount: "-1", decimals: 6, wantErr: ErrInvalidAmount},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			got, err := ToUnits(decimal.RequireFromString(tc.amount), tc.decimals)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.want, got.String())
		})
	}
}

func TestFromUnits(t *testing.T) {
	require.True(t, FromUnits(big.NewInt(2_750_000), 6).Equal(decimal.RequireFromString("2.75")))
	require.True(t, FromUnits(nil, 6).IsZero())
}

func TestParseERC20(t *testing.T) {
	parsed, err := ParseERC20()
	require.NoError(t, err)

	to := common.HexToAddress(randompkg.Address())

	data, err := parsed.Pack("transfer", to, big.NewInt(3_000_000))
	require.NoError(t, err)
	require.Equal(t, []byte{0xa9, 0x05, 0x9c, 0xbb}, data[:4])
	require.Len(t, data, 4+32+32)

	data, err = parsed.Pack("balanceOf", to)
	require.NoError(t, err)
	require.Equal(t, []byte{0x70, 0xa0, 0x82, 0x31}, data[:4])
}

func TestSimulatorTransfer(t *testing.T) {
	s := NewSimulator(decimal.NewFromInt(10))
	ctx := context.Background()

	res, err := s.Transfer(ctx, decimal.RequireFromString("2.75"))
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Len(t, res.Hash, 66)
	require.Equal(t, uint64(2), res.BlockNumber)

	second, err := s.Transfer(ctx, decimal.NewFromInt(3))
	require.NoError(t, err)
	require.NotEqual(t, res.Hash, second.Hash)
	require.Greater(t, second.BlockNumber, res.BlockNumber)

	balances, err := s.Balances(ctx)
	require.NoError(t, err)
	require.True(t, balances.Admin.Equal(decimal.RequireFromString("4.25")))
	require.True(t, balances.Destination.Equal(decimal.RequireFromString("5.75")))

	_, err = s.Transfer(ctx, decimal.NewFromInt(5))
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)

	_, err = s.Transfer(ctx, decimal.Zero)
	require.ErrorIs(t, err, ErrInvalidAmount)

	balances, err = s.Balances(ctx)
	require.NoError(t, err)
	require.True(t, balances.Admin.Equal(decimal.RequireFromString("4.25")))
}

func TestSimulatorConcurrentTransfers(t *testing.T) {
	s := NewSimulator(decimal.NewFromInt(50))
	ctx := context.Background()

	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()
			_, _ = s.Transfer(ctx, decimal.NewFromInt(1))
		}()
	}

	wg.Wait()

	balances, err := s.Balances(ctx)
	require.NoError(t, err)
	require.True(t, balances.Admin.IsZero())
	require.True(t, balances.Destination.Equal(decimal.NewFromInt(50)))
}

func TestNewEVMValidation(t *testing.T) {
	ctx := context.Background()

	_, err := NewEVM(ctx, EVMConfig{Token: "nope", Destination: randompkg.Address()})
	require.ErrorIs(t, err, ErrInvalidAddress)

	_, err = NewEVM(ctx, EVMConfig{Token: randompkg.Address(), Destination: "0x12"})
	require.ErrorIs(t, err, ErrInvalidAddress)

	_, err = NewEVM(ctx, EVMConfig{Token: randompkg.Address(), Destination: randompkg.Address(), PrivateKey: "zz"})
	require.Error(t, err)
}
