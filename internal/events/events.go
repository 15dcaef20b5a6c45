// internal/events/events.go
//
// Progress events emitted while the delegation tree runs. Delivery is
// best-effort and one-way: a slow or absent sink must never block or fail
// the engine.

package events

import (
	"strings"
	"time"
)

// Type enumerates the progress notifications the engine emits.
type Type string

const (
	TypeUnitCreated       Type = "unit.created"
	TypeUnitStarted       Type = "unit.started"
	TypeCandidateSelected Type = "unit.candidate-selected"
	TypeChildSpawned      Type = "unit.child-spawned"
	TypeUnitReviewing     Type = "unit.reviewing"
	TypeUnitFinalized     Type = "unit.finalized"
	TypeUnitFailed        Type = "unit.failed"
	TypeRunFinished       Type = "run.finished"
)

// Event captures a single notification about one unit of the tree.
type Event struct {
	UnitID  string
	Level   string
	Ordinal int
	Type    Type
	Payload string
	Time    time.Time
}

// Normalize applies defaults and canonical formatting.
func (e *Event) Normalize() {
	if e == nil {
		return
	}
	e.UnitID = strings.TrimSpace(e.UnitID)
	e.Level = strings.TrimSpace(e.Level)
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
}

// Sink consumes events.
type Sink interface {
	HandleEvent(Event)
}

// SinkFunc adapts a function into a Sink.
type SinkFunc func(Event)

// HandleEvent executes f(e).
func (f SinkFunc) HandleEvent(e Event) {
	if f == nil {
		return
	}
	f(e)
}
