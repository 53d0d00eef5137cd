// Package await races participant replies against a fixed deadline.
package await

import (
	"context"
	"time"
)

// Reply is one participant's answer, keyed by seat.
type Reply[T any] struct {
	Seat  int
	Value T
}

// Result is the outcome of a Collect call. Every expected seat lands in
// exactly one of Got or Missing.
type Result[T any] struct {
	Got     map[int]T
	Missing []int
}

// Collect reads replies from ch until every seat in expect has answered,
// the timeout elapses, or ctx is done. The first reply per seat wins;
// replies from seats outside expect and repeats are dropped.
func Collect[T any](ctx context.Context, ch <-chan Reply[T], expect []int, timeout time.Duration) Result[T] {
	return CollectIf(ctx, ch, expect, timeout, nil)
}

// CollectIf is Collect with a filter: replies for which keep returns false
// are dropped as if never sent. A nil keep accepts everything.
func CollectIf[T any](ctx context.Context, ch <-chan Reply[T], expect []int, timeout time.Duration, keep func(T) bool) Result[T] {
	pending := make(map[int]struct{}, len(expect))
	for _, seat := range expect {
		pending[seat] = struct{}{}
	}
	res := Result[T]{Got: make(map[int]T, len(expect))}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for len(pending) > 0 {
		select {
		case r := <-ch:
			if _, ok := pending[r.Seat]; !ok {
				continue
			}
			if keep != nil && !keep(r.Value) {
				continue
			}
			delete(pending, r.Seat)
			res.Got[r.Seat] = r.Value
		case <-timer.C:
			res.Missing = missing(expect, pending)
			return res
		case <-ctx.Done():
			res.Missing = missing(expect, pending)
			return res
		}
	}
	return res
}

// Drain discards any buffered replies left over from a finished window.
func Drain[T any](ch <-chan Reply[T]) int {
	n := 0
	for {
		select {
		case <-ch:
			n++
		default:
			return n
		}
	}
}

func missing(expect []int, pending map[int]struct{}) []int {
	out := make([]int, 0, len(pending))
	for _, seat := range expect {
		if _, ok := pending[seat]; ok {
			out = append(out, seat)
		}
	}
	return out
}
