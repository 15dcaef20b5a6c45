package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yourusername/texweave/internal/ports"
)

func TestLimiterBoundsConcurrency(t *testing.T) {
	limiter := NewLimiter(2)
	exec := NewExecutor(limiter, false)
	var active, peak atomic.Int64
	exec.Each(context.Background(), 8, func(ctx context.Context, i int) {
		_ = exec.Call(ctx, RetryPolicy{MaxAttempts: 1}, "probe", func(context.Context) error {
			now := active.Add(1)
			for {
				p := peak.Load()
				if now <= p || peak.CompareAndSwap(p, now) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			active.Add(-1)
			return nil
		})
	})
	if peak.Load() > 2 {
		t.Fatalf("limiter breached: peak %d", peak.Load())
	}
}

func TestSequentialExecutorRunsInOrder(t *testing.T) {
	exec := NewExecutor(nil, true)
	var order []int
	exec.Each(context.Background(), 5, func(_ context.Context, i int) {
		order = append(order, i)
	})
	for i, got := range order {
		if got != i {
			t.Fatalf("out of order at %d: %v", i, order)
		}
	}
}

func TestCallRetriesTransientOnly(t *testing.T) {
	exec := NewExecutor(nil, true)
	var calls int
	err := exec.Call(context.Background(), RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond}, "op", func(context.Context) error {
		calls++
		if calls < 3 {
			return ports.Transient("op", fmt.Errorf("flaky"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success after retries: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}

	calls = 0
	permanent := fmt.Errorf("bad request")
	err = exec.Call(context.Background(), RetryPolicy{MaxAttempts: 3}, "op", func(context.Context) error {
		calls++
		return permanent
	})
	if err != permanent {
		t.Fatalf("expected permanent error unchanged, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("permanent errors must not retry, got %d attempts", calls)
	}
}

func TestCallGivesUpAfterBudget(t *testing.T) {
	exec := NewExecutor(nil, true)
	var calls int
	err := exec.Call(context.Background(), RetryPolicy{MaxAttempts: 2, Backoff: time.Millisecond}, "op", func(context.Context) error {
		calls++
		return ports.Transient("op", fmt.Errorf("still flaky"))
	})
	if err == nil {
		t.Fatal("expected exhaustion error")
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
}

func TestCallAbandonsRetryOnCancellation(t *testing.T) {
	exec := NewExecutor(nil, true)
	ctx, cancel := context.WithCancel(context.Background())
	start := time.Now()
	err := exec.Call(ctx, RetryPolicy{MaxAttempts: 5, Backoff: time.Minute}, "op", func(context.Context) error {
		cancel()
		return ports.Transient("op", fmt.Errorf("flaky"))
	})
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("cancellation must preempt backoff")
	}
}
