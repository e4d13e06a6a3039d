// Package transferqueue hands savings events to a pool of in-process transfer workers.
package transferqueue

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/go-petr/roundup-savings/internal/domain"
)

// ErrQueueFull indicates that the event was not accepted because every slot is taken.
var ErrQueueFull = errors.New("transfer queue is full")

// Handler processes one savings event.
type Handler func(ctx context.Context, event domain.SavingsEvent) error

// Queue is a bounded in-memory queue of savings events.
type Queue struct {
	events  chan domain.SavingsEvent
	workers int
}

// New returns a queue holding up to size pending events, drained by the given number of workers.
func New(size, workers int) *Queue {
	if size < 1 {
		size = 1
	}

	if workers < 1 {
		workers = 1
	}

	return &Queue{
		events:  make(chan domain.SavingsEvent, size),
		workers: workers,
	}
}

// Notify enqueues the event without waiting for a free slot.
func (q *Queue) Notify(ctx context.Context, event domain.SavingsEvent) error {
	select {
	case q.events <- event:
		zerolog.Ctx(ctx).Debug().Int64("expense_id", event.ExpenseID).Msg("savings event queued")
		return nil
	default:
		return ErrQueueFull
	}
}

// Len returns the number of pending events.
func (q *Queue) Len() int {
	return len(q.events)
}

// Run drains the queue until ctx is done.
func (q *Queue) Run(ctx context.Context, handle Handler) error {
	l := zerolog.Ctx(ctx)

	g, ctx := errgroup.WithContext(ctx)

	for i := 0; i < q.workers; i++ {
		worker := i

		g.Go(func() error {
			wl := l.With().Int("worker", worker).Logger()
			wctx := wl.WithContext(ctx)

			for {
				select {
				case <-ctx.Done():
					return nil
				case event := <-q.events:
					if err := handle(wctx, event); err != nil {
						wl.Error().Err(err).Int64("expense_id", event.ExpenseID).Msg("savings event handling failed")
					}
				}
			}
		})
	}

	err := g.Wait()

	if n := q.Len(); n > 0 {
		l.Warn().Int("pending", n).Msg("transfer queue stopped with pending events")
	}

	return err
}
