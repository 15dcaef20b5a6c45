// internal/llm/prompts.go
//
// Prompt assembly for every level of the delegation tree. Each producer is
// framed as a collaborator responsible for one structural unit of a
// mathematics paper; judges and reviewers get their own framings.

package llm

import (
	"fmt"
	"strings"

	"github.com/yourusername/texweave/internal/document"
	"github.com/yourusername/texweave/internal/ports"
)

const baseRules = "Notes:\n" +
	"- Use LaTeX when writing math, but never write out an entire document, just the requested unit.\n" +
	"- Use $...$ instead of \\(...\\).\n" +
	"- Use LaTeX environments like theorem, lemma, proof, definition, corollary, example, align, gather.\n" +
	"- Always include a proof for any theorem, proposition, or lemma.\n" +
	"- Never use numerical tools such as code (Python), WolframAlpha, OEIS, etc."

func systemPrompt(level document.Level) string {
	var role string
	switch level {
	case document.LevelDocument:
		role = "You are the document-level writer. You are collaborating with other writers on a mathematics paper, " +
			"and you are responsible for the overall document: its section structure and the narrative that ties " +
			"the sections together. Declare each section with \\section{...}."
	case document.LevelSection:
		role = "You are a section writer. You are collaborating with other writers on a mathematics paper, and you " +
			"are responsible for one section: its subsection structure and connective prose. Declare each " +
			"subsection with \\subsection{...}."
	case document.LevelSubsection:
		role = "You are a subsection writer. You are collaborating with other writers on a mathematics paper, and " +
			"you are responsible for one subsection: the sequence of mathematical environment blocks it needs " +
			"and the prose between them."
	default:
		role = "You are a content writer. You are collaborating with other writers on a mathematics paper, and you " +
			"are responsible for writing the actual mathematics: definitions, lemmas, theorems, proofs, " +
			"corollaries, examples."
	}
	return role + "\n\n" + baseRules
}

const judgeSystemPrompt = "You are the selection judge for a collaborative mathematics paper. Two writers produced " +
	"competing drafts of the same unit. Compare them for correctness, rigor, clarity, and fit with the " +
	"surrounding document. Reason briefly, then end with a single line containing exactly A, B, or TIE."

const reviewSystemPrompt = "You are the reasoning reviewer for a collaborative mathematics paper. Check the given " +
	"mathematics sentence by sentence: verify every claim has a proof, every calculation is right, and the " +
	"notation is consistent with the document. List any confirmed errors, then end with a single line " +
	"containing exactly ACCEPT or REJECT."

// reasoningPrompt asks for scratch-paper reasoning before drafting.
func reasoningPrompt(req ports.GenerateRequest) string {
	var b strings.Builder
	writeContext(&b, req)
	b.WriteString("TASK:\n\n")
	fmt.Fprintf(&b, "This is your scratch paper. Reason step by step about how to produce the requested %s. ", req.Level)
	b.WriteString("Be rigorous: think about how to show every step when proving or asserting anything. " +
		"Do not write the final text yet.")
	return b.String()
}

// draftPrompt converts the reasoning into the final text for the unit.
func draftPrompt(req ports.GenerateRequest, reasoning, freshLabel string) string {
	var b strings.Builder
	writeContext(&b, req)
	b.WriteString("REASONING:\n\n")
	b.WriteString(reasoning)
	b.WriteString("\n\nTASK:\n\n")
	fmt.Fprintf(&b, "Convert your reasoning into the final LaTeX for this %s. ", req.Level)
	b.WriteString("Show all work, put every mathematical statement in its proper environment, and write only " +
		"the requested unit, nothing around it.")
	if freshLabel != "" {
		fmt.Fprintf(&b, " If you introduce a new labeled environment, use \\label{%s}.", freshLabel)
	}
	return b.String()
}

func comparePrompt(req ports.GenerateRequest, a, b string) string {
	var sb strings.Builder
	writeContext(&sb, req)
	sb.WriteString("DRAFT A:\n\n")
	sb.WriteString(a)
	sb.WriteString("\n\nDRAFT B:\n\n")
	sb.WriteString(b)
	sb.WriteString("\n\nTASK:\n\nDecide which draft better fulfills the instructions above. " +
		"End with a single line containing exactly A, B, or TIE.")
	return sb.String()
}

func reviewPrompt(req ports.GenerateRequest, content string) string {
	var b strings.Builder
	writeContext(&b, req)
	b.WriteString("MATH TO CHECK:\n\n")
	b.WriteString(content)
	b.WriteString("\n\nTASK:\n\nFor each sentence, re-check the logic, calculations, and notation. " +
		"List every confirmed error with a direct citation of the math you believe is incorrect. " +
		"End with a single line containing exactly ACCEPT or REJECT.")
	return b.String()
}

// writeContext lays out the surrounding material the way every prompt
// shares it: ancestor content outermost first, then the unit's own task,
// boundaries, and accumulated feedback.
func writeContext(b *strings.Builder, req ports.GenerateRequest) {
	headers := [...]string{"CURRENT DOCUMENT", "CURRENT SECTION", "CURRENT SUBSECTION"}
	for i, ancestor := range req.Ancestors {
		if strings.TrimSpace(ancestor) == "" {
			continue
		}
		header := "ENCLOSING CONTEXT"
		if i < len(headers) {
			header = headers[i]
		}
		fmt.Fprintf(b, "%s:\n\n%s\n\n", header, ancestor)
	}
	if req.Title != "" {
		fmt.Fprintf(b, "UNIT TITLE:\n\n%s\n\n", req.Title)
	}
	if req.Task != "" {
		fmt.Fprintf(b, "INSTRUCTIONS:\n\n%s\n\n", req.Task)
	}
	if req.SiblingHint != "" {
		fmt.Fprintf(b, "NEIGHBOURING UNITS (do not write their content):\n\n%s\n\n", req.SiblingHint)
	}
	if req.Provisional != "" {
		fmt.Fprintf(b, "PREVIOUS ATTEMPT:\n\n%s\n\n", req.Provisional)
	}
	if req.Feedback != "" {
		fmt.Fprintf(b, "REVIEWER FEEDBACK:\n\n%s\n\n", req.Feedback)
	}
}
