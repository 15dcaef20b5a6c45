// internal/engine/exec.go
//
// Concurrency plumbing shared by the candidate rounds, tournament
// comparisons, child delegations, and review fan-outs. Every fan-out joins
// before returning; there is no detached work.

package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yourusername/texweave/internal/ports"
)

// Limiter bounds how many port calls may be in flight at once across the
// whole run. A nil Limiter imposes no bound.
type Limiter struct {
	slots chan struct{}
}

// NewLimiter creates a limiter with the given capacity. Non-positive
// capacities return nil (unlimited).
func NewLimiter(capacity int) *Limiter {
	if capacity <= 0 {
		return nil
	}
	return &Limiter{slots: make(chan struct{}, capacity)}
}

// Acquire blocks until a slot is free or the context is cancelled.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l == nil {
		return ctx.Err()
	}
	select {
	case l.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot taken by Acquire.
func (l *Limiter) Release() {
	if l == nil {
		return
	}
	<-l.slots
}

// RetryPolicy bounds transient-failure retries with exponential backoff.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p RetryPolicy) wait(attempt int) time.Duration {
	if p.Backoff <= 0 {
		return 0
	}
	return p.Backoff << attempt
}

// Executor runs the engine's fan-outs. In sequential mode every fan-out
// degrades to strictly ordered execution without changing outcomes.
type Executor struct {
	limiter    *Limiter
	sequential bool
}

// NewExecutor builds an executor. limiter may be nil for unbounded runs.
func NewExecutor(limiter *Limiter, sequential bool) *Executor {
	return &Executor{limiter: limiter, sequential: sequential}
}

// Each runs fn for every index in [0, n) and joins. Tasks write their
// results into caller-owned slots keyed by index, so completion order never
// leaks into outcomes.
func (x *Executor) Each(ctx context.Context, n int, fn func(ctx context.Context, i int)) {
	if n <= 0 {
		return
	}
	if x.sequential {
		for i := 0; i < n; i++ {
			fn(ctx, i)
		}
		return
	}
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			fn(ctx, i)
		}(i)
	}
	wg.Wait()
}

// Call issues one port call under the retry policy. Each attempt holds a
// limiter slot only for the duration of the call itself; backoff sleeps do
// not occupy a slot. Cancellation abandons any pending retry immediately,
// and non-transient errors are returned without retrying.
func (x *Executor) Call(ctx context.Context, policy RetryPolicy, op string, fn func(ctx context.Context) error) error {
	var lastErr error
	attempts := policy.attempts()
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(policy.wait(attempt - 1))
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		if err := x.limiter.Acquire(ctx); err != nil {
			return err
		}
		err := fn(ctx)
		x.limiter.Release()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !ports.IsTransient(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("engine: %s failed after %d attempts: %w", op, attempts, lastErr)
}
