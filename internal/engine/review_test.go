package engine

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/yourusername/texweave/internal/ports"
)

// scriptedPanelJudge hands each reviewer the next verdict from the script.
// A nil entry makes that reviewer fail after retries.
func scriptedPanelJudge(script []*ports.Verdict) ports.Judge {
	var next atomic.Int64
	return &stubJudge{score: func(context.Context, string, ports.GenerateRequest) (ports.Verdict, error) {
		i := int(next.Add(1)) - 1
		if i >= len(script) || script[i] == nil {
			return ports.Verdict{}, ports.Transient("review", fmt.Errorf("timeout"))
		}
		return *script[i], nil
	}}
}

func TestMajorityAcceptWins(t *testing.T) {
	judge := scriptedPanelJudge([]*ports.Verdict{
		{Accepted: true},
		{Accepted: true},
		{Accepted: false, Reason: "shaky lemma"},
	})
	panel := NewReviewPanel(judge, 3, NewExecutor(nil, true), RetryPolicy{MaxAttempts: 1}, nil)
	outcome, err := panel.Review(context.Background(), "content", ports.GenerateRequest{})
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if !outcome.Accepted {
		t.Fatalf("expected accept with 2/3, got %+v", outcome)
	}
}

func TestMajorityRejectConcatenatesReasons(t *testing.T) {
	judge := scriptedPanelJudge([]*ports.Verdict{
		{Accepted: true},
		{Accepted: false, Reason: "missing proof"},
		{Accepted: false, Reason: "wrong sign"},
	})
	panel := NewReviewPanel(judge, 3, NewExecutor(nil, true), RetryPolicy{MaxAttempts: 1}, nil)
	outcome, err := panel.Review(context.Background(), "content", ports.GenerateRequest{})
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if outcome.Accepted {
		t.Fatal("expected reject with 1/3 accepts")
	}
	if !strings.Contains(outcome.Feedback, "missing proof") || !strings.Contains(outcome.Feedback, "wrong sign") {
		t.Fatalf("feedback should carry both reasons: %q", outcome.Feedback)
	}
}

func TestFailedReviewersLeaveDenominator(t *testing.T) {
	// One reviewer fails after retries; the 1 accept vs 1 reject that
	// survive is not a strict majority, so the outcome is reject.
	judge := scriptedPanelJudge([]*ports.Verdict{
		{Accepted: true},
		nil,
		{Accepted: false, Reason: "incomplete"},
	})
	panel := NewReviewPanel(judge, 3, NewExecutor(nil, true), RetryPolicy{MaxAttempts: 1}, nil)
	outcome, err := panel.Review(context.Background(), "content", ports.GenerateRequest{})
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if outcome.Surviving != 2 {
		t.Fatalf("expected 2 surviving verdicts, got %d", outcome.Surviving)
	}
	if outcome.Accepted {
		t.Fatal("1 accept of 2 surviving is not a strict majority")
	}
}

func TestAllReviewersFailedYieldsSyntheticReject(t *testing.T) {
	judge := scriptedPanelJudge([]*ports.Verdict{nil, nil, nil})
	panel := NewReviewPanel(judge, 3, NewExecutor(nil, true), RetryPolicy{MaxAttempts: 1}, nil)
	outcome, err := panel.Review(context.Background(), "content", ports.GenerateRequest{})
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if outcome.Accepted {
		t.Fatal("expected fail-safe reject")
	}
	if outcome.Feedback != ReviewUnavailableReason {
		t.Fatalf("expected synthetic reason, got %q", outcome.Feedback)
	}
}
