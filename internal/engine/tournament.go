// internal/engine/tournament.go
//
// Round-robin candidate selection. Every unordered pair of candidates is
// compared exactly once; the winner is decided by points with a
// deterministic tiebreak so the same inputs always pick the same candidate
// no matter how the comparisons interleave.

package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/yourusername/texweave/internal/ports"
)

// Candidate is one competing proposal for a unit's content.
type Candidate struct {
	// Producer identifies the producer slot that generated this text.
	// Producer IDs are unique within a round.
	Producer int
	Text     string
	// Attempt records how many generation attempts the producer needed.
	Attempt int
}

// Comparison records one pairwise judgement for the audit trail.
type Comparison struct {
	A, B   int // producer IDs
	Winner ports.Winner
	// Failed marks a pair whose judge calls exhausted retries; the pair is
	// scored as a no-point tie.
	Failed bool
}

// TournamentResult carries the winning candidate and the comparison trail.
type TournamentResult struct {
	Winner Candidate
	Trail  []Comparison
}

// Tournament reduces a candidate set to a single winner via the judge port.
type Tournament struct {
	judge  ports.Judge
	exec   *Executor
	policy RetryPolicy
	logger Logger
}

// NewTournament wires a selector to its judge.
func NewTournament(judge ports.Judge, exec *Executor, policy RetryPolicy, logger Logger) *Tournament {
	return &Tournament{judge: judge, exec: exec, policy: policy, logger: logger}
}

// Select picks the winning candidate. A single candidate wins trivially with
// no judge calls. Judge failures on a pair, after retries, score that pair
// as a tie with no points rather than aborting the round.
func (t *Tournament) Select(ctx context.Context, candidates []Candidate, req ports.GenerateRequest) (TournamentResult, error) {
	if len(candidates) == 0 {
		return TournamentResult{}, fmt.Errorf("engine: tournament needs at least one candidate")
	}
	if len(candidates) == 1 {
		return TournamentResult{Winner: candidates[0]}, nil
	}
	if err := ctx.Err(); err != nil {
		return TournamentResult{}, err
	}

	type pair struct{ i, j int }
	pairs := make([]pair, 0, len(candidates)*(len(candidates)-1)/2)
	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			pairs = append(pairs, pair{i, j})
		}
	}

	// Each pair writes into its own slot; completion order is irrelevant.
	trail := make([]Comparison, len(pairs))
	t.exec.Each(ctx, len(pairs), func(ctx context.Context, k int) {
		a, b := candidates[pairs[k].i], candidates[pairs[k].j]
		cmp := Comparison{A: a.Producer, B: b.Producer}
		err := t.exec.Call(ctx, t.policy, "judge comparison", func(ctx context.Context) error {
			winner, err := t.judge.Compare(ctx, a.Text, b.Text, req)
			if err != nil {
				return err
			}
			cmp.Winner = winner
			return nil
		})
		if err != nil {
			cmp.Failed = true
			if t.logger != nil {
				t.logger.Printf("engine: comparison %d vs %d abandoned: %v", a.Producer, b.Producer, err)
			}
		}
		trail[k] = cmp
	})
	if err := ctx.Err(); err != nil {
		return TournamentResult{}, err
	}

	winner := scoreRoundRobin(candidates, trail)
	return TournamentResult{Winner: winner, Trail: trail}, nil
}

// scoreRoundRobin tallies points and applies the three-level tiebreak:
// highest tally, then head-to-head record among the tied candidates, then
// lowest producer ID.
func scoreRoundRobin(candidates []Candidate, trail []Comparison) Candidate {
	points := make(map[int]int, len(candidates))
	beat := make(map[int]map[int]bool)
	for _, c := range candidates {
		points[c.Producer] = 0
	}
	award := func(winner, loser int) {
		points[winner]++
		if beat[winner] == nil {
			beat[winner] = make(map[int]bool)
		}
		beat[winner][loser] = true
	}
	for _, cmp := range trail {
		if cmp.Failed {
			continue
		}
		switch cmp.Winner {
		case ports.WinnerA:
			award(cmp.A, cmp.B)
		case ports.WinnerB:
			award(cmp.B, cmp.A)
		default:
			// Declared tie: the lower producer ID takes the point.
			if cmp.A < cmp.B {
				award(cmp.A, cmp.B)
			} else {
				award(cmp.B, cmp.A)
			}
		}
	}

	best := topByPoints(candidates, points)
	if len(best) == 1 {
		return best[0]
	}
	// Head-to-head: count wins restricted to the tied subset.
	tied := make(map[int]bool, len(best))
	for _, c := range best {
		tied[c.Producer] = true
	}
	h2h := make(map[int]int, len(best))
	for winner, losers := range beat {
		if !tied[winner] {
			continue
		}
		for loser := range losers {
			if tied[loser] {
				h2h[winner]++
			}
		}
	}
	best = topByPoints(best, h2h)
	// Final deterministic tiebreak: lowest producer ID.
	sort.Slice(best, func(i, j int) bool { return best[i].Producer < best[j].Producer })
	return best[0]
}

func topByPoints(candidates []Candidate, points map[int]int) []Candidate {
	bestScore := -1
	var best []Candidate
	for _, c := range candidates {
		score := points[c.Producer]
		switch {
		case score > bestScore:
			bestScore = score
			best = []Candidate{c}
		case score == bestScore:
			best = append(best, c)
		}
	}
	return best
}
