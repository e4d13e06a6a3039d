package transferqueue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/go-petr/roundup-savings/internal/domain"
)

func TestNotifyQueueFull(t *testing.T) {
	t.Parallel()

	q := New(2, 1)
	ctx := context.Background()

	require.NoError(t, q.Notify(ctx, domain.SavingsEvent{ExpenseID: 1}))
	require.NoError(t, q.Notify(ctx, domain.SavingsEvent{ExpenseID: 2}))
	require.ErrorIs(t, q.Notify(ctx, domain.SavingsEvent{ExpenseID: 3}), ErrQueueFull)
	require.Equal(t, 2, q.Len())
}

func TestRun(t *testing.T) {
	t.Parallel()

	q := New(16, 3)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu   sync.Mutex
		seen = make(map[int64]decimal.Decimal)
	)

	done := make(chan error)

	go func() {
		done <- q.Run(ctx, func(_ context.Context, event domain.SavingsEvent) error {
			mu.Lock()
			defer mu.Unlock()

			seen[event.ExpenseID] = event.OnrampAmount

			if event.ExpenseID%2 == 0 {
				return errors.New("transfer failed")
			}

			return nil
		})
	}()

	for i := int64(1); i <= 10; i++ {
		require.NoError(t, q.Notify(ctx, domain.SavingsEvent{ExpenseID: i, OnrampAmount: decimal.NewFromInt(i)}))
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(seen) == 10
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	for i := int64(1); i <= 10; i++ {
		require.True(t, seen[i].Equal(decimal.NewFromInt(i)))
	}
}

func TestNotifyDoesNotWaitForWorkers(t *testing.T) {
	t.Parallel()

	q := New(1, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	release := make(chan struct{})
	started := make(chan struct{}, 2)

	go func() {
		_ = q.Run(ctx, func(context.Context, domain.SavingsEvent) error {
			started <- struct{}{}
			<-release

			return nil
		})
	}()

	require.NoError(t, q.Notify(ctx, domain.SavingsEvent{ExpenseID: 1}))
	<-started

	require.NoError(t, q.Notify(ctx, domain.SavingsEvent{ExpenseID: 2}))
	require.ErrorIs(t, q.Notify(ctx, domain.SavingsEvent{ExpenseID: 3}), ErrQueueFull)

	close(release)
}
