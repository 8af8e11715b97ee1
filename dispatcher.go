package gows

import (
	"context"
	"errors"
	"sync"
)

// ErrQueueClosed is returned by Queue.Next and Queue.Run once the queue is closed and drained.
var ErrQueueClosed = errors.New("gows: message queue is closed")

// Dispatcher is the application's inbound message sink.
//
// Implementations must accept concurrent calls to Dispatch.
type Dispatcher[M any] interface {
	Dispatch(msg M)
}

// DispatcherFunc adapts a function to a Dispatcher.
type DispatcherFunc[M any] func(msg M)

// Dispatch calls f(msg).
func (f DispatcherFunc[M]) Dispatch(msg M) { f(msg) }

// Chan adapts a channel to a Dispatcher. Dispatch blocks while the channel is full.
type Chan[M any] chan M

// Dispatch sends msg on the channel.
func (c Chan[M]) Dispatch(msg M) { c <- msg }

// --------------------------------------------------------------------------------
// Queue

// Queue is an unbounded FIFO mailbox feeding a single application loop.
//
// Dispatch never blocks, so transports are never held up by a slow consumer.
// It is safe for concurrent use.
type Queue[M any] struct {
	mu     sync.Mutex
	items  []M
	closed bool
	ready  chan struct{} // Signalled when items arrive or the queue closes; capacity 1.
}

var _ Dispatcher[struct{}] = (*Queue[struct{}])(nil)

// NewQueue creates an empty queue.
func NewQueue[M any]() *Queue[M] {
	return &Queue[M]{ready: make(chan struct{}, 1)}
}

// Dispatch appends msg to the queue. Messages dispatched after Close are dropped.
func (q *Queue[M]) Dispatch(msg M) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()

		return
	}

	q.items = append(q.items, msg)
	q.mu.Unlock()

	q.signal()
}

// Next removes and returns the oldest message, waiting until one is available.
//
// It returns ctx.Err() if the context ends first, and ErrQueueClosed once the
// queue is closed and empty.
func (q *Queue[M]) Next(ctx context.Context) (M, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			msg := q.items[0]

			var zero M
			q.items[0] = zero
			q.items = q.items[1:]

			if len(q.items) > 0 {
				q.signal()
			}

			q.mu.Unlock()

			return msg, nil
		}

		closed := q.closed
		q.mu.Unlock()

		if closed {
			var zero M

			return zero, ErrQueueClosed
		}

		select {
		case <-ctx.Done():
			var zero M

			return zero, ctx.Err()
		case <-q.ready:
		}
	}
}

// Run passes every message to fn in order until the context ends or the queue
// is closed and drained.
func (q *Queue[M]) Run(ctx context.Context, fn func(M)) error {
	for {
		msg, err := q.Next(ctx)
		if err != nil {
			if errors.Is(err, ErrQueueClosed) {
				return nil
			}

			return err
		}

		fn(msg)
	}
}

// Drain removes and returns every queued message without waiting.
func (q *Queue[M]) Drain() []M {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.items
	q.items = nil

	return items
}

// Len reports the number of queued messages.
func (q *Queue[M]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

// Close stops accepting messages. Already queued messages can still be read.
func (q *Queue[M]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.signal()
}

func (q *Queue[M]) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
