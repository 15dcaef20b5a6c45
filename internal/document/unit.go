// internal/document/unit.go
//
// The delegation tree. Every node is a Unit: the whole document at level 0,
// sections below it, subsections below those, and leaf content blocks at the
// bottom. Units are created by their parent when delegation begins and are
// owned exclusively by the agent driving them.

package document

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Level identifies the depth of a unit in the delegation tree.
type Level int

const (
	LevelDocument Level = iota
	LevelSection
	LevelSubsection
	LevelBlock
)

// NumLevels is the number of delegating levels (review sits below them).
const NumLevels = 4

// String returns the human-readable level name used in logs and events.
func (l Level) String() string {
	switch l {
	case LevelDocument:
		return "document"
	case LevelSection:
		return "section"
	case LevelSubsection:
		return "subsection"
	case LevelBlock:
		return "block"
	default:
		return fmt.Sprintf("level-%d", int(l))
	}
}

// Child returns the level delegated to below l. Blocks have no child level;
// they route to review instead.
func (l Level) Child() (Level, bool) {
	if l >= LevelBlock {
		return 0, false
	}
	return l + 1, true
}

// IsLeaf reports whether units at this level carry content blocks that go
// straight to review rather than spawning children.
func (l Level) IsLeaf() bool { return l == LevelBlock }

// Status tracks a unit through its lifecycle.
type Status string

const (
	StatusPending          Status = "pending"
	StatusInProgress       Status = "in-progress"
	StatusAwaitingChildren Status = "awaiting-children"
	StatusReviewing        Status = "reviewing"
	StatusFinalized        Status = "finalized"
	StatusFailed           Status = "failed"
)

// Done reports whether the status is terminal.
func (s Status) Done() bool { return s == StatusFinalized || s == StatusFailed }

// Unit is one node of the delegation tree.
type Unit struct {
	ID      string
	Level   Level
	Ordinal int

	// Title names the structural element this unit produces (section or
	// subsection heading, or a short block descriptor). Empty for the root.
	Title string

	// Task is the writing instruction handed down by the parent.
	Task string

	// SiblingHint sketches the neighbouring units' territory so producers
	// stay inside this unit's boundaries.
	SiblingHint string

	// Content holds the unit's current finalized text. Immutable once the
	// status reaches StatusFinalized.
	Content string

	Status    Status
	Revisions int

	// Reservations is set when a leaf block exhausted its revision budget
	// while still rejected by review and was finalized best-effort.
	Reservations bool

	// FailReason carries the aggregated failure description for failed units.
	FailReason string

	Children []*Unit
}

// New creates a pending unit. The ordinal fixes its position among siblings;
// output ordering always follows ordinals regardless of completion order.
func New(level Level, ordinal int, title, task string) *Unit {
	return &Unit{
		ID:      uuid.NewString(),
		Level:   level,
		Ordinal: ordinal,
		Title:   title,
		Task:    task,
		Status:  StatusPending,
	}
}

// NewChild creates a pending unit one level below u.
func (u *Unit) NewChild(ordinal int, title, task string) (*Unit, error) {
	childLevel, ok := u.Level.Child()
	if !ok {
		return nil, fmt.Errorf("document: %s unit cannot spawn children", u.Level)
	}
	child := New(childLevel, ordinal, title, task)
	u.Children = append(u.Children, child)
	return child, nil
}

// ValidateOrdinals checks that the children's ordinals form a permutation of
// 0..len-1, the invariant the merge step depends on.
func (u *Unit) ValidateOrdinals() error {
	seen := make(map[int]bool, len(u.Children))
	for _, child := range u.Children {
		if child.Ordinal < 0 || child.Ordinal >= len(u.Children) {
			return fmt.Errorf("document: ordinal %d out of range for %d children", child.Ordinal, len(u.Children))
		}
		if seen[child.Ordinal] {
			return fmt.Errorf("document: duplicate ordinal %d", child.Ordinal)
		}
		seen[child.Ordinal] = true
	}
	return nil
}

// MergeChildren concatenates finalized child content in ordinal order. It is
// an error to merge while any child is not yet terminal or has failed.
func (u *Unit) MergeChildren() (string, error) {
	if err := u.ValidateOrdinals(); err != nil {
		return "", err
	}
	ordered := make([]*Unit, len(u.Children))
	copy(ordered, u.Children)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Ordinal < ordered[j].Ordinal })
	parts := make([]string, 0, len(ordered))
	for _, child := range ordered {
		switch child.Status {
		case StatusFinalized:
			parts = append(parts, strings.TrimRight(child.Content, "\n"))
		case StatusFailed:
			return "", fmt.Errorf("document: child %s (ordinal %d) failed: %s", child.ID, child.Ordinal, child.FailReason)
		default:
			return "", fmt.Errorf("document: child %s (ordinal %d) not terminal: %s", child.ID, child.Ordinal, child.Status)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

// Finalize freezes the unit's content.
func (u *Unit) Finalize(content string) {
	u.Content = content
	u.Status = StatusFinalized
}

// Fail marks the unit failed with the given reason.
func (u *Unit) Fail(reason string) {
	u.FailReason = reason
	u.Status = StatusFailed
}

// FailedChildren returns the failed children in ordinal order.
func (u *Unit) FailedChildren() []*Unit {
	failed := make([]*Unit, 0)
	for _, child := range u.Children {
		if child.Status == StatusFailed {
			failed = append(failed, child)
		}
	}
	sort.Slice(failed, func(i, j int) bool { return failed[i].Ordinal < failed[j].Ordinal })
	return failed
}

// FailurePath walks from u to the deepest failed descendant and returns the
// unit identifiers along the way. It returns nil when u has not failed.
func (u *Unit) FailurePath() []string {
	if u.Status != StatusFailed {
		return nil
	}
	path := []string{u.describe()}
	for _, child := range u.FailedChildren() {
		if sub := child.FailurePath(); sub != nil {
			return append(path, sub...)
		}
	}
	return path
}

// Walk visits u and every descendant depth-first in ordinal order.
func (u *Unit) Walk(visit func(*Unit)) {
	visit(u)
	ordered := make([]*Unit, len(u.Children))
	copy(ordered, u.Children)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Ordinal < ordered[j].Ordinal })
	for _, child := range ordered {
		child.Walk(visit)
	}
}

func (u *Unit) describe() string {
	if u.Title != "" {
		return fmt.Sprintf("%s %d (%s) %s", u.Level, u.Ordinal, u.Title, u.ID)
	}
	return fmt.Sprintf("%s %d %s", u.Level, u.Ordinal, u.ID)
}
