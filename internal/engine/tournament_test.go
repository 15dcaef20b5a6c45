package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yourusername/texweave/internal/ports"
)

type stubJudge struct {
	compare func(ctx context.Context, a, b string, req ports.GenerateRequest) (ports.Winner, error)
	score   func(ctx context.Context, content string, req ports.GenerateRequest) (ports.Verdict, error)
}

func (s *stubJudge) Compare(ctx context.Context, a, b string, req ports.GenerateRequest) (ports.Winner, error) {
	if s.compare == nil {
		return ports.WinnerTie, nil
	}
	return s.compare(ctx, a, b, req)
}

func (s *stubJudge) Score(ctx context.Context, content string, req ports.GenerateRequest) (ports.Verdict, error) {
	if s.score == nil {
		return ports.Verdict{Accepted: true}, nil
	}
	return s.score(ctx, content, req)
}

func makeCandidates(n int) []Candidate {
	candidates := make([]Candidate, n)
	for i := range candidates {
		candidates[i] = Candidate{Producer: i, Text: fmt.Sprintf("candidate-%d", i), Attempt: 1}
	}
	return candidates
}

func parallelExec() *Executor { return NewExecutor(nil, false) }

func quickRetry() RetryPolicy { return RetryPolicy{MaxAttempts: 2, Backoff: time.Millisecond} }

func TestSingleCandidateWinsWithoutComparisons(t *testing.T) {
	var calls atomic.Int64
	judge := &stubJudge{compare: func(context.Context, string, string, ports.GenerateRequest) (ports.Winner, error) {
		calls.Add(1)
		return ports.WinnerA, nil
	}}
	tournament := NewTournament(judge, parallelExec(), quickRetry(), nil)
	result, err := tournament.Select(context.Background(), makeCandidates(1), ports.GenerateRequest{})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if result.Winner.Producer != 0 {
		t.Fatalf("unexpected winner: %d", result.Winner.Producer)
	}
	if calls.Load() != 0 {
		t.Fatalf("expected no comparisons, got %d", calls.Load())
	}
}

func TestRoundRobinComparesEachPairOnce(t *testing.T) {
	for _, m := range []int{2, 3, 4, 5} {
		var calls atomic.Int64
		judge := &stubJudge{compare: func(context.Context, string, string, ports.GenerateRequest) (ports.Winner, error) {
			calls.Add(1)
			return ports.WinnerA, nil
		}}
		tournament := NewTournament(judge, parallelExec(), quickRetry(), nil)
		result, err := tournament.Select(context.Background(), makeCandidates(m), ports.GenerateRequest{})
		if err != nil {
			t.Fatalf("select m=%d: %v", m, err)
		}
		want := int64(m * (m - 1) / 2)
		if calls.Load() != want {
			t.Fatalf("m=%d: expected %d comparisons, got %d", m, want, calls.Load())
		}
		if len(result.Trail) != int(want) {
			t.Fatalf("m=%d: trail length %d, want %d", m, len(result.Trail), want)
		}
	}
}

func TestAllTiesDeterministicUnderInterleaving(t *testing.T) {
	// A judge that always ties must always elect the lowest producer ID,
	// whatever order the comparisons complete in.
	for run := 0; run < 50; run++ {
		judge := &stubJudge{compare: func(_ context.Context, a, b string, _ ports.GenerateRequest) (ports.Winner, error) {
			// Vary completion order across runs without sharing state
			// between concurrent comparisons.
			delay := (int(a[len(a)-1]) + int(b[len(b)-1])*run) % 4
			time.Sleep(time.Duration(delay) * time.Millisecond)
			return ports.WinnerTie, nil
		}}
		tournament := NewTournament(judge, parallelExec(), quickRetry(), nil)
		result, err := tournament.Select(context.Background(), makeCandidates(4), ports.GenerateRequest{})
		if err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
		if result.Winner.Producer != 0 {
			t.Fatalf("run %d: expected producer 0, got %d", run, result.Winner.Producer)
		}
		// Tally is identical across runs: lower ID takes every tie point.
		tally := map[int]int{}
		for _, cmp := range result.Trail {
			if cmp.Failed {
				t.Fatalf("run %d: unexpected failed comparison", run)
			}
			lower := cmp.A
			if cmp.B < lower {
				lower = cmp.B
			}
			tally[lower]++
		}
		if tally[0] != 3 || tally[1] != 2 || tally[2] != 1 {
			t.Fatalf("run %d: unexpected tally %v", run, tally)
		}
	}
}

func TestPointsBeatTiebreaks(t *testing.T) {
	// Producer 2 beats everyone; clear point winner despite highest ID.
	judge := &stubJudge{compare: func(_ context.Context, a, b string, _ ports.GenerateRequest) (ports.Winner, error) {
		if a == "candidate-2" {
			return ports.WinnerA, nil
		}
		if b == "candidate-2" {
			return ports.WinnerB, nil
		}
		return ports.WinnerTie, nil
	}}
	tournament := NewTournament(judge, parallelExec(), quickRetry(), nil)
	result, err := tournament.Select(context.Background(), makeCandidates(3), ports.GenerateRequest{})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if result.Winner.Producer != 2 {
		t.Fatalf("expected producer 2, got %d", result.Winner.Producer)
	}
}

func TestHeadToHeadBreaksPointTies(t *testing.T) {
	// 0 beats 1, 1 beats 2, 2 beats 0: everyone has one point, and the
	// head-to-head record is also circular, so the lowest ID wins.
	judge := &stubJudge{compare: func(_ context.Context, a, b string, _ ports.GenerateRequest) (ports.Winner, error) {
		wins := map[string]string{
			"candidate-0": "candidate-1",
			"candidate-1": "candidate-2",
			"candidate-2": "candidate-0",
		}
		if wins[a] == b {
			return ports.WinnerA, nil
		}
		return ports.WinnerB, nil
	}}
	tournament := NewTournament(judge, parallelExec(), quickRetry(), nil)
	result, err := tournament.Select(context.Background(), makeCandidates(3), ports.GenerateRequest{})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if result.Winner.Producer != 0 {
		t.Fatalf("expected producer 0 on circular tie, got %d", result.Winner.Producer)
	}
}

func TestJudgeFailureScoresPairAsTie(t *testing.T) {
	// The 0-1 pair always fails; the round still completes and neither
	// candidate collects that point.
	judge := &stubJudge{compare: func(_ context.Context, a, b string, _ ports.GenerateRequest) (ports.Winner, error) {
		if (a == "candidate-0" && b == "candidate-1") || (a == "candidate-1" && b == "candidate-0") {
			return 0, ports.Transient("judge", fmt.Errorf("rate limited"))
		}
		if a == "candidate-0" {
			return ports.WinnerA, nil
		}
		return ports.WinnerB, nil
	}}
	tournament := NewTournament(judge, parallelExec(), quickRetry(), nil)
	result, err := tournament.Select(context.Background(), makeCandidates(3), ports.GenerateRequest{})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	var failed int
	for _, cmp := range result.Trail {
		if cmp.Failed {
			failed++
		}
	}
	if failed != 1 {
		t.Fatalf("expected exactly one failed pair, got %d", failed)
	}
	// 0 beat 2 and 2 beat 1, so 0 and 2 tie on points; 0 wins the
	// head-to-head.
	if result.Winner.Producer != 0 {
		t.Fatalf("expected producer 0, got %d", result.Winner.Producer)
	}
}
