// Package scan runs fixed-count iterative loops that thread a carry value
// through a body function, one loop per execution lane.
package scan

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// ErrInvalidLanes is returned when a lane count below one is requested.
var ErrInvalidLanes = errors.New("lane count must be at least 1")

// Body computes one loop step. It receives the carry from the previous
// step and the current input, and returns the next carry plus the step's
// output.
type Body[C, X, Y any] func(ctx context.Context, carry C, x X) (C, Y, error)

// Step pairs a 1-based iteration number with a per-step input value.
type Step[T any] struct {
	Iter  int
	Value T
}

// Iteration returns x unchanged; use it as the index function when the
// loop input is the iteration number itself.
func Iteration(x int) int { return x }

// First returns the iteration number of a Step.
func First[T any](s Step[T]) int { return s.Iter }

// Arange returns the iteration numbers 1..n.
func Arange(n int) []int {
	if n <= 0 {
		return nil
	}
	xs := make([]int, n)
	for i := range xs {
		xs[i] = i + 1
	}
	return xs
}

// Zip numbers values from 1 and returns them as steps.
func Zip[T any](values []T) []Step[T] {
	steps := make([]Step[T], len(values))
	for i, v := range values {
		steps[i] = Step[T]{Iter: i + 1, Value: v}
	}
	return steps
}

// Run applies body to every element of xs in order, threading the carry.
// It stops at the first error or when ctx is done, returning the carry
// reached so far and the outputs of the completed steps.
func Run[C, X, Y any](ctx context.Context, body Body[C, X, Y], init C, xs []X) (C, []Y, error) {
	carry := init
	ys := make([]Y, 0, len(xs))
	for i, x := range xs {
		if err := ctx.Err(); err != nil {
			return carry, ys, fmt.Errorf("step %d: %w", i, err)
		}
		next, y, err := body(ctx, carry, x)
		if err != nil {
			return carry, ys, fmt.Errorf("step %d: %w", i, err)
		}
		carry = next
		ys = append(ys, y)
	}
	return carry, ys, nil
}

// Lanes calls fn once per lane, concurrently. A positive parallelism caps
// the number of lanes running at once; zero means unlimited. The first
// error cancels the context passed to the remaining lanes.
func Lanes(ctx context.Context, n, parallelism int, fn func(ctx context.Context, lane int) error) error {
	if n < 1 {
		return ErrInvalidLanes
	}
	g, gctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for lane := range n {
		g.Go(func() error {
			if err := fn(gctx, lane); err != nil {
				return fmt.Errorf("lane %d: %w", lane, err)
			}
			return nil
		})
	}
	return g.Wait()
}
