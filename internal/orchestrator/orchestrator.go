// internal/orchestrator/orchestrator.go
//
// The orchestrator owns one whole run: it loads the root context, builds
// the level-0 unit, hands it to the delegating engine, and persists the
// finished document. It also owns the process-wide concurrency budget and
// the progress event router.

package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yourusername/texweave/internal/config"
	"github.com/yourusername/texweave/internal/document"
	"github.com/yourusername/texweave/internal/engine"
	"github.com/yourusername/texweave/internal/events"
	"github.com/yourusername/texweave/internal/llm"
	"github.com/yourusername/texweave/internal/ports"
)

// Logger records orchestration diagnostics. It matches logging.Logger's
// signature.
type Logger interface {
	Printf(format string, args ...any)
}

// RunError is the single aggregated failure a run surfaces: the underlying
// cause plus the unit path from the root to the deepest failure.
type RunError struct {
	Path []string
	Err  error
}

func (e *RunError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("run failed: %v", e.Err)
	}
	return fmt.Sprintf("run failed: %v (failure path: %s)", e.Err, strings.Join(e.Path, " -> "))
}

func (e *RunError) Unwrap() error { return e.Err }

// Option customizes the orchestrator.
type Option func(*Orchestrator)

// WithLogger attaches a diagnostic logger.
func WithLogger(logger Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithGate installs a pause gate threaded through to the engine.
func WithGate(gate func(ctx context.Context) error) Option {
	return func(o *Orchestrator) { o.gate = gate }
}

// WithSplitters overrides the LaTeX structure splitters (tests use simpler
// content shapes).
func WithSplitters(sections, subsections, blocks engine.Splitter) Option {
	return func(o *Orchestrator) {
		o.splitSections = sections
		o.splitSubsections = subsections
		o.splitBlocks = blocks
	}
}

// Orchestrator drives a document run end to end.
type Orchestrator struct {
	cfg    *config.Config
	store  ports.Store
	gen    ports.Generator
	judge  ports.Judge
	router *events.Router
	logger Logger
	gate   func(ctx context.Context) error

	splitSections    engine.Splitter
	splitSubsections engine.Splitter
	splitBlocks      engine.Splitter

	root *document.Unit
}

// New wires an orchestrator to its collaborators. router may be nil when no
// observer is attached.
func New(cfg *config.Config, store ports.Store, gen ports.Generator, judge ports.Judge, router *events.Router, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:              cfg,
		store:            store,
		gen:              gen,
		judge:            judge,
		router:           router,
		splitSections:    llm.SplitSections,
		splitSubsections: llm.SplitSubsections,
		splitBlocks:      llm.SplitBlocks,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// Root returns the run's root unit, for post-run inspection.
func (o *Orchestrator) Root() *document.Unit { return o.root }

// Produce runs the whole delegation tree and returns the finished document
// text. On failure it returns a RunError naming the path from the root to
// the deepest failed unit; no partial document is written.
func (o *Orchestrator) Produce(ctx context.Context) (string, error) {
	rootCtx, err := o.store.Load(ctx)
	if err != nil {
		return "", &RunError{Err: fmt.Errorf("orchestrator: load root context: %w", err)}
	}

	root := document.New(document.LevelDocument, 0, "", rootCtx.Instruction)
	o.root = root
	o.publish(root, events.TypeUnitCreated, "")

	eng, err := o.buildEngine()
	if err != nil {
		return "", &RunError{Err: err}
	}

	start := time.Now()
	if o.logger != nil {
		o.logger.Printf("orchestrator: run started (model %s, sequential=%v)",
			o.cfg.Settings.Model.Name, o.cfg.Settings.Run.Sequential)
	}
	runErr := eng.Run(ctx, root, []string{rootCtx.Document})
	if runErr != nil {
		o.publish(root, events.TypeRunFinished, "failed")
		return "", &RunError{Path: root.FailurePath(), Err: runErr}
	}

	if err := o.store.Save(ctx, root.Content); err != nil {
		o.publish(root, events.TypeRunFinished, "failed")
		return "", &RunError{Err: fmt.Errorf("orchestrator: save document: %w", err)}
	}
	if o.logger != nil {
		o.logger.Printf("orchestrator: run finished in %s", time.Since(start).Round(time.Second))
	}
	o.publish(root, events.TypeRunFinished, "finalized")
	return root.Content, nil
}

func (o *Orchestrator) buildEngine() (*engine.Engine, error) {
	settings := o.cfg.Settings
	var limiter *engine.Limiter
	if !settings.Run.Sequential {
		limiter = engine.NewLimiter(settings.Run.MaxParallel)
	}
	exec := engine.NewExecutor(limiter, settings.Run.Sequential)
	policy := engine.RetryPolicy{
		MaxAttempts: settings.Retry.MaxAttempts,
		Backoff:     time.Duration(settings.Retry.BackoffSeconds * float64(time.Second)),
	}

	var plans engine.Plans
	splitters := [...]engine.Splitter{o.splitSections, o.splitSubsections, o.splitBlocks}
	for level := document.LevelDocument; level <= document.LevelBlock; level++ {
		lc := o.cfg.Level(level)
		plan := engine.Plan{Producers: lc.Candidates, MaxIterations: lc.MaxIterations}
		if level.IsLeaf() {
			plan.Review = true
		} else {
			plan.Split = splitters[level]
		}
		plans[level] = plan
	}

	opts := []engine.Option{}
	if o.router != nil {
		opts = append(opts, engine.WithRouter(o.router))
	}
	if o.logger != nil {
		opts = append(opts, engine.WithLogger(o.logger))
	}
	if o.gate != nil {
		opts = append(opts, engine.WithGate(o.gate))
	}
	return engine.New(o.gen, o.judge, plans, settings.Review.Reviewers, exec, policy, opts...)
}

func (o *Orchestrator) publish(unit *document.Unit, eventType events.Type, payload string) {
	if o.router == nil {
		return
	}
	o.router.Publish(events.Event{
		UnitID:  unit.ID,
		Level:   unit.Level.String(),
		Ordinal: unit.Ordinal,
		Type:    eventType,
		Payload: payload,
	})
}
