// internal/ports/ports.go
//
// External capability boundaries the engine depends on but does not
// implement: text generation, judging, and persistence. Adapters live in
// internal/llm and internal/storage.

package ports

import (
	"context"
	"errors"
	"fmt"

	"github.com/yourusername/texweave/internal/document"
)

// GenerateRequest carries everything a producer needs to draft one candidate
// for a unit: its place in the tree, the surrounding content, and any
// feedback accumulated from earlier revisions or reviews.
type GenerateRequest struct {
	Level   document.Level
	Ordinal int
	Title   string
	Task    string

	// Ancestors holds the current content of each enclosing unit from the
	// root downward (document draft first).
	Ancestors []string

	// SiblingHint sketches the boundaries of neighbouring units so the
	// producer does not wander into their territory.
	SiblingHint string

	// Provisional is the unit's current provisional content when a
	// refinement round re-runs generation. Empty on the first attempt.
	Provisional string

	// Feedback concatenates reviewer rejections and refinement notes from
	// earlier iterations. Empty on the first attempt.
	Feedback string

	// Seed diversifies otherwise identical requests across producers.
	Seed int64
}

// Generator produces one candidate text per call.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// Winner is the outcome of one pairwise comparison.
type Winner int

const (
	WinnerTie Winner = iota
	WinnerA
	WinnerB
)

// Verdict is a single reviewer's decision on a finalized content block.
type Verdict struct {
	Accepted bool
	Reason   string
}

// Judge compares competing candidates and scores finished content.
type Judge interface {
	// Compare declares which of two candidate texts better satisfies the
	// task, or a tie.
	Compare(ctx context.Context, a, b string, req GenerateRequest) (Winner, error)

	// Score reviews one finished content block and returns a verdict.
	Score(ctx context.Context, content string, req GenerateRequest) (Verdict, error)
}

// RootContext is the material the whole run starts from.
type RootContext struct {
	Document    string
	Instruction string
}

// Store loads the root context and persists the finished document.
type Store interface {
	Load(ctx context.Context) (RootContext, error)
	Save(ctx context.Context, finalDocument string) error
}

// TransientError marks a port failure worth retrying: timeouts, rate limits,
// and malformed or empty responses. Anything else is treated as permanent by
// the caller's retry loop.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient %s failure: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as retryable.
func Transient(op string, err error) error {
	return &TransientError{Op: op, Err: err}
}

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// ErrCandidatesExhausted is returned when every producer in a candidate
// round failed after retries.
var ErrCandidatesExhausted = errors.New("all candidate producers failed")

// ErrEmptyResponse reports a port call that returned no usable text.
var ErrEmptyResponse = errors.New("empty response")
