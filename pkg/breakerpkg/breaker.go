// Package breakerpkg guards calls to unreliable collaborators with a circuit breaker.
package breakerpkg

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrOpen is returned while the breaker rejects calls.
var ErrOpen = errors.New("circuit breaker is open")

// State of the breaker.
type State int

// Breaker states.
const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	}

	return "unknown"
}

// Config holds the breaker tunables.
type Config struct {
	MaxFailures  int           // consecutive failures before opening
	ResetTimeout time.Duration // how long to stay open before a probe call
}

// Breaker is a consecutive-failure circuit breaker.
type Breaker struct {
	name string
	cfg  Config
	now  func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

// New returns a closed breaker.
func New(name string, cfg Config) *Breaker {
	if cfg.MaxFailures < 1 {
		cfg.MaxFailures = 1
	}

	return &Breaker{
		name:  name,
		cfg:   cfg,
		now:   time.Now,
		state: Closed,
	}
}

// Execute runs op unless the breaker is open.
//
// Once ResetTimeout has passed since opening, a single call is let through
// as a probe; its outcome closes or reopens the breaker.
func (b *Breaker) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	l := zerolog.Ctx(ctx)

	if !b.allow() {
		l.Warn().Str("breaker", b.name).Msg("breaker fast fail")
		return ErrOpen
	}

	err := op(ctx)

	b.record(ctx, err)

	return err
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		if b.now().Sub(b.openedAt) < b.cfg.ResetTimeout {
			return false
		}

		b.state = HalfOpen
		b.probing = true

		return true
	case HalfOpen:
		if b.probing {
			return false
		}

		b.probing = true

		return true
	}

	return true
}

func (b *Breaker) record(ctx context.Context, err error) {
	l := zerolog.Ctx(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		if b.state != Closed {
			l.Info().Str("breaker", b.name).Str("from", b.state.String()).Msg("breaker closed")
		}

		b.state = Closed
		b.failures = 0
		b.probing = false

		return
	}

	b.failures++

	if b.state == HalfOpen || b.failures >= b.cfg.MaxFailures {
		if b.state != Open {
			l.Error().Str("breaker", b.name).Int("failures", b.failures).Msg("breaker opened")
		}

		b.state = Open
		b.openedAt = b.now()
		b.probing = false
	}
}

// State returns the current breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.state
}
