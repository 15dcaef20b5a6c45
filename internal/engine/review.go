// internal/engine/review.go
//
// Leaf content review. A panel of independent reviewers scores the block in
// parallel; the outcome is decided by strict majority, failing safe toward
// rejection when reviewers are unavailable.

package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/yourusername/texweave/internal/ports"
)

// ReviewUnavailableReason is the synthetic rejection used when every
// reviewer failed after retries.
const ReviewUnavailableReason = "review unavailable: all reviewers failed"

// ReviewOutcome aggregates the panel's verdicts into one decision.
type ReviewOutcome struct {
	Accepted bool
	// Feedback concatenates the rejection reasons, used as refinement
	// context for the next revision.
	Feedback string
	// Surviving counts the verdicts that made it past retries.
	Surviving int
	Accepts   int
}

// ReviewPanel dispatches independent review requests and aggregates them.
type ReviewPanel struct {
	judge     ports.Judge
	reviewers int
	exec      *Executor
	policy    RetryPolicy
	logger    Logger
}

// NewReviewPanel builds a panel of the given size.
func NewReviewPanel(judge ports.Judge, reviewers int, exec *Executor, policy RetryPolicy, logger Logger) *ReviewPanel {
	if reviewers < 1 {
		reviewers = 1
	}
	return &ReviewPanel{judge: judge, reviewers: reviewers, exec: exec, policy: policy, logger: logger}
}

// Review gathers verdicts in parallel and decides by majority. A reviewer
// whose calls exhaust retries is excluded from the denominator rather than
// counted as a rejection; if nobody survives the outcome is a rejection
// with a synthetic reason so the content goes back for revision instead of
// slipping through unreviewed.
func (p *ReviewPanel) Review(ctx context.Context, content string, req ports.GenerateRequest) (ReviewOutcome, error) {
	verdicts := make([]*ports.Verdict, p.reviewers)
	p.exec.Each(ctx, p.reviewers, func(ctx context.Context, i int) {
		var verdict ports.Verdict
		err := p.exec.Call(ctx, p.policy, "review verdict", func(ctx context.Context) error {
			v, err := p.judge.Score(ctx, content, req)
			if err != nil {
				return err
			}
			verdict = v
			return nil
		})
		if err != nil {
			if p.logger != nil {
				p.logger.Printf("engine: reviewer %d dropped: %v", i, err)
			}
			return
		}
		verdicts[i] = &verdict
	})
	if err := ctx.Err(); err != nil {
		return ReviewOutcome{}, err
	}

	outcome := ReviewOutcome{}
	var reasons []string
	for i, v := range verdicts {
		if v == nil {
			continue
		}
		outcome.Surviving++
		if v.Accepted {
			outcome.Accepts++
			continue
		}
		reason := strings.TrimSpace(v.Reason)
		if reason == "" {
			reason = "rejected without stated reason"
		}
		reasons = append(reasons, fmt.Sprintf("Reviewer %d: %s", i+1, reason))
	}
	if outcome.Surviving == 0 {
		outcome.Feedback = ReviewUnavailableReason
		return outcome, nil
	}
	outcome.Accepted = outcome.Accepts*2 > outcome.Surviving
	if !outcome.Accepted {
		outcome.Feedback = strings.Join(reasons, "\n")
	}
	return outcome, nil
}
