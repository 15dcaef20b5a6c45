package tui

import (
	"context"
	"sync"
)

// PauseGate lets the TUI suspend the run between fan-out phases. Workers
// call Wait before each phase; it returns immediately while the gate is
// open and blocks while paused. Cancellation always wins over pause.
type PauseGate struct {
	mu     sync.Mutex
	open   chan struct{}
	paused bool
}

// NewPauseGate returns an open gate.
func NewPauseGate() *PauseGate {
	open := make(chan struct{})
	close(open)
	return &PauseGate{open: open}
}

// Wait blocks until the gate is open or ctx is cancelled.
func (g *PauseGate) Wait(ctx context.Context) error {
	g.mu.Lock()
	open := g.open
	g.mu.Unlock()
	select {
	case <-open:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Toggle flips the gate between paused and running and reports the new
// paused state.
func (g *PauseGate) Toggle() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.paused {
		close(g.open)
		g.paused = false
	} else {
		g.open = make(chan struct{})
		g.paused = true
	}
	return g.paused
}

// Paused reports whether the gate is currently holding workers back.
func (g *PauseGate) Paused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused
}
