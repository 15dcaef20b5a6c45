// internal/llm/gemini.go
//
// Gemini-backed adapter for the generation and judge ports. The adapter owns
// everything language-model specific: prompt assembly, the two-phase
// reasoning-then-draft call pattern, output cleaning, and LaTeX label
// allocation. The engine above it only ever sees text in, text out.

package llm

import (
	"context"
	"fmt"
	"strings"

	genai "google.golang.org/genai"

	"github.com/yourusername/texweave/internal/labels"
	"github.com/yourusername/texweave/internal/ports"
)

// Logger records adapter diagnostics. It matches logging.Logger's signature.
type Logger interface {
	Printf(format string, args ...any)
}

// Gemini implements ports.Generator and ports.Judge against the Gemini API.
type Gemini struct {
	cli    *genai.Client
	model  string
	labels *labels.Manager
	logger Logger
}

// NewGemini dials the Gemini API. The label manager may be nil when label
// bookkeeping is not wanted (tests, plain-text documents).
func NewGemini(ctx context.Context, apiKey, model string, mgr *labels.Manager, logger Logger) (*Gemini, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: create gemini client: %w", err)
	}
	return &Gemini{cli: cli, model: model, labels: mgr, logger: logger}, nil
}

// Generate drafts one candidate. It runs two model calls: a scratch-paper
// reasoning pass, then a drafting pass that converts the reasoning into the
// final text, mirroring how a careful author works.
func (g *Gemini) Generate(ctx context.Context, req ports.GenerateRequest) (string, error) {
	system := systemPrompt(req.Level)
	reasoning, err := g.call(ctx, system, reasoningPrompt(req))
	if err != nil {
		return "", err
	}
	draft, err := g.call(ctx, system, draftPrompt(req, reasoning, g.freshLabel()))
	if err != nil {
		return "", err
	}
	draft = Clean(draft)
	if strings.TrimSpace(draft) == "" {
		return "", ports.Transient("generation", ports.ErrEmptyResponse)
	}
	if g.labels != nil {
		g.labels.Absorb(draft)
	}
	return draft, nil
}

// Compare judges two candidates for the same task and declares A, B, or a
// tie. The verdict is read from the final line of the response.
func (g *Gemini) Compare(ctx context.Context, a, b string, req ports.GenerateRequest) (ports.Winner, error) {
	out, err := g.call(ctx, judgeSystemPrompt, comparePrompt(req, a, b))
	if err != nil {
		return ports.WinnerTie, err
	}
	switch verdictLine(out) {
	case "A":
		return ports.WinnerA, nil
	case "B":
		return ports.WinnerB, nil
	case "TIE":
		return ports.WinnerTie, nil
	default:
		return ports.WinnerTie, ports.Transient("judge comparison", fmt.Errorf("unparseable verdict %q", verdictLine(out)))
	}
}

// Score reviews one finished content block. The response walks the block
// claim by claim and must end in ACCEPT or REJECT; everything before the
// verdict line becomes the rejection reason.
func (g *Gemini) Score(ctx context.Context, content string, req ports.GenerateRequest) (ports.Verdict, error) {
	out, err := g.call(ctx, reviewSystemPrompt, reviewPrompt(req, content))
	if err != nil {
		return ports.Verdict{}, err
	}
	line := verdictLine(out)
	switch {
	case strings.Contains(line, "ACCEPT"):
		return ports.Verdict{Accepted: true}, nil
	case strings.Contains(line, "REJECT"):
		return ports.Verdict{Accepted: false, Reason: strings.TrimSpace(out)}, nil
	default:
		return ports.Verdict{}, ports.Transient("review", fmt.Errorf("verdict line missing ACCEPT/REJECT"))
	}
}

func (g *Gemini) call(ctx context.Context, system, prompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{}
	if system != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}}, cfg)
	if err != nil {
		if retryable(err) {
			return "", ports.Transient("gemini", err)
		}
		return "", fmt.Errorf("llm: gemini call: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ports.Transient("gemini", ports.ErrEmptyResponse)
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

func (g *Gemini) freshLabel() string {
	if g.labels == nil {
		return ""
	}
	return g.labels.Fresh()
}

// retryable classifies API failures worth retrying: overload, rate limits,
// and flaky transport.
func retryable(err error) bool {
	msg := err.Error()
	for _, marker := range []string{"503", "UNAVAILABLE", "429", "RESOURCE_EXHAUSTED", "500", "INTERNAL", "deadline exceeded", "connection reset"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// verdictLine returns the last non-blank line, upper-cased and trimmed.
func verdictLine(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line != "" {
			return strings.ToUpper(strings.Trim(line, " .*`"))
		}
	}
	return ""
}
