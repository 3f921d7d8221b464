package eventbus

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Send once the bus has been closed. Producers treat
// it as the signal to stop, not as a failure.
var ErrClosed = errors.New("eventbus: closed")

// Bus is a multi-producer, single-consumer queue.
//
// Contract:
//   - Send blocks while the buffer is full; nothing is ever dropped.
//   - Exactly one goroutine reads from Receive.
//   - Close is idempotent. After Close, Send returns ErrClosed instead of
//     panicking, and the receive channel is never closed (the consumer has
//     already stopped by then).
type Bus[T any] struct {
	ch chan T

	closeOnce sync.Once
	done      chan struct{}
}

// New returns a bus with the given buffer capacity (minimum 1).
func New[T any](buffer int) *Bus[T] {
	if buffer <= 0 {
		buffer = 1
	}
	return &Bus[T]{
		ch:   make(chan T, buffer),
		done: make(chan struct{}),
	}
}

// Send enqueues v. It returns ErrClosed if the bus is closed (or gets closed
// while waiting for buffer space) and ctx.Err() if ctx is canceled first.
func (b *Bus[T]) Send(ctx context.Context, v T) error {
	if ctx == nil {
		ctx = context.Background()
	}
	// Checked first so a closed bus never accepts a value, even when the
	// buffer has room.
	select {
	case <-b.done:
		return ErrClosed
	default:
	}
	select {
	case <-b.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	case b.ch <- v:
		return nil
	}
}

// Receive returns the consumer side of the bus.
func (b *Bus[T]) Receive() <-chan T { return b.ch }

// Close marks the bus closed. Pending values are left unread.
func (b *Bus[T]) Close() {
	b.closeOnce.Do(func() { close(b.done) })
}

// Sender is the producer-only view of a Bus handed to notifiers.
type Sender[T any] interface {
	Send(ctx context.Context, v T) error
}
