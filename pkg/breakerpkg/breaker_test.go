package breakerpkg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func failing(context.Context) error { return errBoom }

func succeeding(context.Context) error { return nil }

func TestBreakerOpensAfterMaxFailures(t *testing.T) {
	b := New("test", Config{MaxFailures: 3, ResetTimeout: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.ErrorIs(t, b.Execute(ctx, failing), errBoom)
	}

	require.Equal(t, Open, b.State())

	calls := 0
	err := b.Execute(ctx, func(context.Context) error {
		calls++
		return nil
	})

	require.ErrorIs(t, err, ErrOpen)
	require.Zero(t, calls)
}

func TestBreakerSuccessResetsFailures(t *testing.T) {
	b := New("test", Config{MaxFailures: 2, ResetTimeout: time.Minute})
	ctx := context.Background()

	require.Error(t, b.Execute(ctx, failing))
	require.NoError(t, b.Execute(ctx, succeeding))
	require.Error(t, b.Execute(ctx, failing))

	require.Equal(t, Closed, b.State())
}

func TestBreakerProbe(t *testing.T) {
	now := time.Now()

	b := New("test", Config{MaxFailures: 1, ResetTimeout: time.Second})
	b.now = func() time.Time { return now }
	ctx := context.Background()

	require.Error(t, b.Execute(ctx, failing))
	require.Equal(t, Open, b.State())

	// Failed probe reopens the breaker.
	now = now.Add(2 * time.Second)
	require.ErrorIs(t, b.Execute(ctx, failing), errBoom)
	require.Equal(t, Open, b.State())
	require.ErrorIs(t, b.Execute(ctx, succeeding), ErrOpen)

	// Successful probe closes it.
	now = now.Add(2 * time.Second)
	require.NoError(t, b.Execute(ctx, succeeding))
	require.Equal(t, Closed, b.State())
}

func TestBreakerSingleProbe(t *testing.T) {
	now := time.Now()

	b := New("test", Config{MaxFailures: 1, ResetTimeout: time.Second})
	b.now = func() time.Time { return now }
	ctx := context.Background()

	require.Error(t, b.Execute(ctx, failing))

	now = now.Add(2 * time.Second)

	release := make(chan struct{})
	done := make(chan error)

	go func() {
		done <- b.Execute(ctx, func(context.Context) error {
			<-release
			return nil
		})
	}()

	require.Eventually(t, func() bool { return b.State() == HalfOpen }, time.Second, time.Millisecond)
	require.ErrorIs(t, b.Execute(ctx, succeeding), ErrOpen)

	close(release)
	require.NoError(t, <-done)
	require.Equal(t, Closed, b.State())
}
