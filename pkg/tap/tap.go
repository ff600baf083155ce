// Package tap hands values from many sending goroutines to a single host
// goroutine and waits for the host to acknowledge each one.
package tap

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrClosed is returned by Send once the tap has been closed, either
// explicitly or because Serve returned.
var ErrClosed = errors.New("tap closed")

type request[T any] struct {
	v    T
	done chan error // buffered; written exactly once by Serve
}

// Tap is a synchronous hand-off point. Each Send blocks until the value has
// been handled by Serve. Values from one sender are handled in the order
// they were sent; values from different senders may interleave.
type Tap[T any] struct {
	reqs   chan request[T]
	closed chan struct{}
	once   sync.Once
	cause  error // set once, before closed is closed
}

// New returns a Tap whose queue holds up to buffer pending values.
// A zero buffer makes every Send rendezvous with Serve.
func New[T any](buffer int) *Tap[T] {
	if buffer < 0 {
		buffer = 0
	}
	return &Tap[T]{
		reqs:   make(chan request[T], buffer),
		closed: make(chan struct{}),
	}
}

// Send delivers v to the host and waits for the handler's result.
func (t *Tap[T]) Send(ctx context.Context, v T) error {
	select {
	case <-t.closed:
		return t.closedErr()
	default:
	}

	r := request[T]{v: v, done: make(chan error, 1)}
	select {
	case t.reqs <- r:
	case <-t.closed:
		return t.closedErr()
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-r.done:
		return err
	case <-t.closed:
		// Serve may have acknowledged r just before shutting down.
		select {
		case err := <-r.done:
			return err
		default:
			return t.closedErr()
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Serve handles values until the tap is closed, ctx is done, or handle
// returns an error. A handler error is reported to the sender that
// triggered it and returned from Serve; the tap is closed on return so
// later senders fail fast instead of blocking.
func (t *Tap[T]) Serve(ctx context.Context, handle func(T) error) (err error) {
	defer func() { t.shutdown(err) }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.closed:
			return nil
		case r := <-t.reqs:
			herr := handle(r.v)
			r.done <- herr
			if herr != nil {
				return herr
			}
		}
	}
}

// Close stops the tap. It is safe to call more than once.
func (t *Tap[T]) Close() {
	t.shutdown(nil)
}

func (t *Tap[T]) shutdown(cause error) {
	t.once.Do(func() {
		t.cause = cause
		close(t.closed)
	})
}

func (t *Tap[T]) closedErr() error {
	if t.cause != nil {
		return fmt.Errorf("%w: %w", ErrClosed, t.cause)
	}
	return ErrClosed
}
