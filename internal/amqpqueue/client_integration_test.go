//go:build integration

package amqpqueue

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/go-petr/roundup-savings/internal/domain"
	"github.com/go-petr/roundup-savings/pkg/randompkg"
)

func TestPublishWhileConsuming(t *testing.T) {
	url := os.Getenv("AMQP_URL")
	if url == "" {
		t.Skip("AMQP_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	queueName := "savings.test." + randompkg.String(8)

	client, err := Dial(ctx, url, "savings.test", queueName)
	require.NoError(t, err)

	defer client.Close()

	require.NotSame(t, client.publishCh, client.consumeCh)

	handled := make(chan domain.SavingsEvent, 3)

	done := make(chan error, 1)

	go func() {
		done <- client.Run(ctx, func(_ context.Context, event domain.SavingsEvent) error {
			handled <- event
			return nil
		})
	}()

	for i := int64(1); i <= 3; i++ {
		err := client.Notify(ctx, domain.SavingsEvent{
			ExpenseID:     i,
			ExpenseAmount: decimal.NewFromInt(7),
			OnrampAmount:  decimal.NewFromInt(3),
			CreatedAt:     time.Now().UTC(),
		})
		require.NoError(t, err)
	}

	for i := int64(1); i <= 3; i++ {
		select {
		case event := <-handled:
			require.Equal(t, i, event.ExpenseID)
		case <-ctx.Done():
			t.Fatal("savings event was not delivered")
		}
	}

	cancel()
	require.NoError(t, <-done)
}
