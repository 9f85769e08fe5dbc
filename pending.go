package pureshell

import (
	"context"
	"fmt"
	"sync"
)

// ============================================================================
// Pending Results
// ============================================================================

// Pending is a result that is either already settled or still being
// computed. Pure functions that suspend return a *Pending; so do binding
// slots declared with a *Pending result.
//
// A Pending settles exactly once. The first Await drives it to completion
// (or to that caller's context error) and every later Await observes the
// same outcome. Other callers that Await while it is being driven wait on
// their own context.
//
// Example:
//
//	ponder := func(ctx context.Context, s State, topic string) *Pending {
//	    return Async(func() (any, error) {
//	        return s.Think(topic), nil
//	    })
//	}
type Pending struct {
	mu      sync.Mutex
	started bool
	wait    func(ctx context.Context) (any, error)
	done    chan struct{}
	value   any
	err     error
}

type outcome struct {
	value any
	err   error
}

// Resolved returns a Pending already settled with value and err.
func Resolved(value any, err error) *Pending {
	done := make(chan struct{})
	close(done)
	return &Pending{started: true, done: done, value: value, err: err}
}

// Async starts fn on its own goroutine and returns a Pending for its result.
func Async(fn func() (any, error)) *Pending {
	ch := make(chan outcome, 1)
	go func() {
		v, err := fn()
		ch <- outcome{value: v, err: err}
	}()
	return Lazy(func(ctx context.Context) (any, error) {
		select {
		case o := <-ch:
			return o.value, o.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
}

// Lazy returns a Pending that runs fn on the first Await, in the awaiting
// goroutine and with the awaiting context.
func Lazy(fn func(ctx context.Context) (any, error)) *Pending {
	return &Pending{wait: fn, done: make(chan struct{})}
}

// Await blocks until p settles or ctx is done, and returns ctx.Err() in the
// latter case. The caller that drives p settles it with whatever its wait
// returns, so a context that ends during the first Await settles p with
// ctx.Err(). A nil Pending awaits to (nil, nil).
func (p *Pending) Await(ctx context.Context) (any, error) {
	if p == nil {
		return nil, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	p.mu.Lock()
	drive := !p.started
	p.started = true
	wait := p.wait
	p.mu.Unlock()

	if drive {
		var (
			v   any
			err error
		)
		if err = ctx.Err(); err == nil {
			v, err = wait(ctx)
		}
		p.mu.Lock()
		p.value, p.err, p.wait = v, err, nil
		p.mu.Unlock()
		close(p.done)
		return v, err
	}

	select {
	case <-p.done:
		return p.value, p.err
	default:
	}
	select {
	case <-p.done:
		return p.value, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Settled reports whether p has an outcome. It never blocks.
func (p *Pending) Settled() bool {
	if p == nil {
		return true
	}
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// then returns a Pending that applies next to p's outcome once p settles.
// next runs in the goroutine that awaits the returned Pending.
func (p *Pending) then(next func(any, error) (any, error)) *Pending {
	return Lazy(func(ctx context.Context) (any, error) {
		v, err := p.Await(ctx)
		if cerr := ctx.Err(); cerr != nil && err == nil {
			err = cerr
		}
		return next(v, err)
	})
}

// AwaitAs awaits p and asserts its value to T. A nil value yields T's zero value.
func AwaitAs[T any](ctx context.Context, p *Pending) (T, error) {
	var zero T
	v, err := p.Await(ctx)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: pending value is %T, not %T", ErrBadCall, v, zero)
	}
	return t, nil
}
