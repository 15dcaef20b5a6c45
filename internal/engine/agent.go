// internal/engine/agent.go
//
// The delegating agent. One Engine drives the whole tree: for each unit it
// requests competing candidates, selects a winner by tournament, optionally
// refines, then either delegates child units (levels 0-2) or routes the
// block through review (level 3), and finally merges child results in
// ordinal order. The same code runs at every level; behavior differences
// live in the per-level Plan table.

package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/yourusername/texweave/internal/document"
	"github.com/yourusername/texweave/internal/events"
	"github.com/yourusername/texweave/internal/ports"
)

// Logger records engine diagnostics. It matches logging.Logger's signature.
type Logger interface {
	Printf(format string, args ...any)
}

// ChildTask describes one child unit derived from a winning candidate.
type ChildTask struct {
	Title       string
	Task        string
	SiblingHint string
}

// Splitter partitions a unit's provisional content into ordered child tasks.
type Splitter func(content string) []ChildTask

// Plan configures one delegation level.
type Plan struct {
	// Producers is how many candidates compete per round.
	Producers int
	// MaxIterations bounds the refinement loop. Refinement is purely
	// iteration-budget bounded; there is no quality threshold.
	MaxIterations int
	// Review routes the unit through the review panel instead of
	// delegating children. Set only on the leaf level.
	Review bool
	// Split derives child tasks from the winning candidate. Required on
	// non-leaf levels.
	Split Splitter
}

// Plans maps every delegation level to its Plan.
type Plans [document.NumLevels]Plan

// ErrCancelled reports that a unit observed cancellation and gave up
// without finalizing.
var ErrCancelled = errors.New("cancelled")

// ChildFailureError aggregates the failures of a unit's children.
type ChildFailureError struct {
	Unit    string
	Reasons []string
}

func (e *ChildFailureError) Error() string {
	return fmt.Sprintf("engine: %d child unit(s) of %s failed: %s", len(e.Reasons), e.Unit, strings.Join(e.Reasons, "; "))
}

// Option customizes the engine instance.
type Option func(*Engine)

// WithRouter attaches a progress event router. Events are informational
// only; they never affect control flow.
func WithRouter(router *events.Router) Option {
	return func(e *Engine) { e.router = router }
}

// WithLogger attaches a diagnostic logger.
func WithLogger(logger Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithGate installs a pause gate called between fan-out phases. The gate
// blocks while the run is paused and returns the context error on
// cancellation.
func WithGate(gate func(ctx context.Context) error) Option {
	return func(e *Engine) { e.gate = gate }
}

// WithSeedBase fixes the base of the per-producer seed sequence
// (deterministic runs in tests).
func WithSeedBase(base int64) Option {
	return func(e *Engine) { e.seedBase = base }
}

// Engine is the recursive delegation-and-selection core.
type Engine struct {
	gen        ports.Generator
	plans      Plans
	exec       *Executor
	policy     RetryPolicy
	tournament *Tournament
	panel      *ReviewPanel
	router     *events.Router
	logger     Logger
	gate       func(ctx context.Context) error
	seedBase   int64
	seedSeq    atomic.Int64
}

// New wires an engine to its ports. reviewers sizes the leaf review panel.
func New(gen ports.Generator, judge ports.Judge, plans Plans, reviewers int, exec *Executor, policy RetryPolicy, opts ...Option) (*Engine, error) {
	if gen == nil {
		return nil, fmt.Errorf("engine: generator port is required")
	}
	if judge == nil {
		return nil, fmt.Errorf("engine: judge port is required")
	}
	for level := document.LevelDocument; level <= document.LevelBlock; level++ {
		plan := plans[level]
		if plan.Producers < 1 {
			return nil, fmt.Errorf("engine: %s plan needs at least one producer", level)
		}
		if plan.MaxIterations < 1 {
			return nil, fmt.Errorf("engine: %s plan needs at least one iteration", level)
		}
		if level.IsLeaf() != plan.Review {
			return nil, fmt.Errorf("engine: %s plan review flag must match leaf level", level)
		}
		if !plan.Review && plan.Split == nil {
			return nil, fmt.Errorf("engine: %s plan needs a splitter", level)
		}
	}
	e := &Engine{
		gen:      gen,
		plans:    plans,
		exec:     exec,
		policy:   policy,
		seedBase: time.Now().UnixNano(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	e.tournament = NewTournament(judge, exec, policy, e.logger)
	e.panel = NewReviewPanel(judge, reviewers, exec, policy, e.logger)
	return e, nil
}

// Run drives one unit to a terminal state. On success the unit is
// Finalized with immutable content; on any failure it is Failed with the
// aggregated reason and an error is returned. Ancestors holds the current
// content of each enclosing unit, root first.
func (e *Engine) Run(ctx context.Context, unit *document.Unit, ancestors []string) error {
	if err := e.await(ctx); err != nil {
		return e.failUnit(unit, "cancelled", ErrCancelled)
	}
	unit.Status = document.StatusInProgress
	e.publish(unit, events.TypeUnitStarted, "")

	plan := e.plans[unit.Level]
	content, reserved, err := e.refine(ctx, unit, ancestors, plan)
	if err != nil {
		return err
	}

	if plan.Review {
		unit.Reservations = reserved
		payload := ""
		if reserved {
			payload = "reviewed with reservations"
		}
		unit.Finalize(content)
		e.publish(unit, events.TypeUnitFinalized, payload)
		return nil
	}
	return e.delegate(ctx, unit, ancestors, plan, content)
}

// refine runs the candidate/tournament/revision loop (steps 1-3, plus the
// leaf review of step 5). It returns the unit's provisional content and,
// for leaves, whether the review budget was exhausted while still rejected.
func (e *Engine) refine(ctx context.Context, unit *document.Unit, ancestors []string, plan Plan) (content string, reserved bool, err error) {
	feedback := ""
	for iteration := 0; iteration < plan.MaxIterations; iteration++ {
		if err := e.await(ctx); err != nil {
			return "", false, e.failUnit(unit, "cancelled", ErrCancelled)
		}
		candidates, err := e.candidateRound(ctx, unit, ancestors, content, feedback, plan.Producers)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return "", false, e.failUnit(unit, "cancelled", ErrCancelled)
			}
			return "", false, e.failUnit(unit, "all candidate producers failed", err)
		}
		result, err := e.tournament.Select(ctx, candidates, e.request(unit, ancestors, content, feedback))
		if err != nil {
			return "", false, e.failUnit(unit, "cancelled", ErrCancelled)
		}
		winner := result.Winner.Text
		e.publish(unit, events.TypeCandidateSelected,
			fmt.Sprintf("producer %d won among %d candidates", result.Winner.Producer, len(candidates)))

		if plan.Review {
			content = winner
			unit.Status = document.StatusReviewing
			e.publish(unit, events.TypeUnitReviewing, "")
			outcome, err := e.panel.Review(ctx, content, e.request(unit, ancestors, content, feedback))
			if err != nil {
				return "", false, e.failUnit(unit, "cancelled", ErrCancelled)
			}
			unit.Revisions = iteration + 1
			if outcome.Accepted {
				return content, false, nil
			}
			feedback = outcome.Feedback
			unit.Status = document.StatusInProgress
			continue
		}

		unchanged := iteration > 0 && winner == content
		content = winner
		unit.Revisions = iteration + 1
		if unchanged {
			break
		}
	}
	if plan.Review {
		// Budget exhausted with the content still rejected: finalize
		// best-effort and flag the reservations.
		return content, true, nil
	}
	return content, false, nil
}

// delegate implements steps 4 and 6: partition the provisional content,
// run one child agent per part concurrently, join, and merge in ordinal
// order. Any child failure propagates upward; partial documents are not an
// output of this engine.
func (e *Engine) delegate(ctx context.Context, unit *document.Unit, ancestors []string, plan Plan, content string) error {
	tasks := plan.Split(content)
	if len(tasks) == 0 {
		// Nothing to delegate; the provisional content stands on its own.
		unit.Finalize(content)
		e.publish(unit, events.TypeUnitFinalized, "")
		return nil
	}

	unit.Status = document.StatusAwaitingChildren
	for i, task := range tasks {
		child, err := unit.NewChild(i, task.Title, task.Task)
		if err != nil {
			return e.failUnit(unit, err.Error(), err)
		}
		child.SiblingHint = task.SiblingHint
		e.publish(child, events.TypeUnitCreated, "")
		e.publish(unit, events.TypeChildSpawned, fmt.Sprintf("child %d: %s", i, task.Title))
	}

	childAncestors := append(append([]string{}, ancestors...), content)
	childErrs := make([]error, len(unit.Children))
	e.exec.Each(ctx, len(unit.Children), func(ctx context.Context, i int) {
		childErrs[i] = e.Run(ctx, unit.Children[i], childAncestors)
	})

	if err := ctx.Err(); err != nil {
		return e.failUnit(unit, "cancelled", ErrCancelled)
	}
	failure := &ChildFailureError{Unit: unit.ID}
	for _, child := range unit.FailedChildren() {
		failure.Reasons = append(failure.Reasons, fmt.Sprintf("%s %d: %s", child.Level, child.Ordinal, child.FailReason))
	}
	if len(failure.Reasons) > 0 {
		return e.failUnit(unit, failure.Error(), failure)
	}

	merged, err := unit.MergeChildren()
	if err != nil {
		return e.failUnit(unit, err.Error(), err)
	}
	unit.Finalize(merged)
	e.publish(unit, events.TypeUnitFinalized, "")
	return nil
}

// candidateRound fans out to the unit's producers. A producer whose calls
// exhaust retries is dropped; the round fails only when nobody survives.
func (e *Engine) candidateRound(ctx context.Context, unit *document.Unit, ancestors []string, provisional, feedback string, producers int) ([]Candidate, error) {
	results := make([]*Candidate, producers)
	e.exec.Each(ctx, producers, func(ctx context.Context, i int) {
		req := e.request(unit, ancestors, provisional, feedback)
		req.Seed = e.nextSeed()
		attempts := 0
		var text string
		err := e.exec.Call(ctx, e.policy, "candidate generation", func(ctx context.Context) error {
			attempts++
			out, err := e.gen.Generate(ctx, req)
			if err != nil {
				return err
			}
			if strings.TrimSpace(out) == "" {
				return ports.Transient("generation", ports.ErrEmptyResponse)
			}
			text = out
			return nil
		})
		if err != nil {
			if e.logger != nil {
				e.logger.Printf("engine: producer %d dropped for unit %s: %v", i, unit.ID, err)
			}
			return
		}
		results[i] = &Candidate{Producer: i, Text: text, Attempt: attempts}
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	survivors := make([]Candidate, 0, producers)
	for _, c := range results {
		if c != nil {
			survivors = append(survivors, *c)
		}
	}
	if len(survivors) == 0 {
		return nil, ports.ErrCandidatesExhausted
	}
	return survivors, nil
}

func (e *Engine) request(unit *document.Unit, ancestors []string, provisional, feedback string) ports.GenerateRequest {
	return ports.GenerateRequest{
		Level:       unit.Level,
		Ordinal:     unit.Ordinal,
		Title:       unit.Title,
		Task:        unit.Task,
		Ancestors:   ancestors,
		SiblingHint: unit.SiblingHint,
		Provisional: provisional,
		Feedback:    feedback,
	}
}

func (e *Engine) failUnit(unit *document.Unit, reason string, err error) error {
	unit.Fail(reason)
	e.publish(unit, events.TypeUnitFailed, reason)
	if e.logger != nil {
		e.logger.Printf("engine: unit %s (%s %d) failed: %s", unit.ID, unit.Level, unit.Ordinal, reason)
	}
	return err
}

// await applies the pause gate, if any. Cancellation wins over pause.
func (e *Engine) await(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.gate == nil {
		return nil
	}
	return e.gate(ctx)
}

func (e *Engine) publish(unit *document.Unit, eventType events.Type, payload string) {
	if e.router == nil {
		return
	}
	e.router.Publish(events.Event{
		UnitID:  unit.ID,
		Level:   unit.Level.String(),
		Ordinal: unit.Ordinal,
		Type:    eventType,
		Payload: payload,
	})
}

func (e *Engine) nextSeed() int64 {
	return e.seedBase + e.seedSeq.Add(1)
}
