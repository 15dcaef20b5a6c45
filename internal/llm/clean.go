package llm

import "strings"

// badPhrases are prompt-scaffolding echoes that models sometimes append.
// Cleaning stops at the first line that starts with any of them.
var badPhrases = []string{
	"You are on Step",
	"TASK:",
	"Final Answer:",
	"MATH BLOCKS",
	"SUBSECTION INSTRUCTIONS",
	"NEXT STEP:",
}

// Clean strips prompt echoes, trailing blank lines, and wrapping code
// fences from a model response.
func Clean(out string) string {
	lines := strings.Split(out, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		if startsWithBadPhrase(line) {
			break
		}
		cleaned = append(cleaned, line)
	}
	for len(cleaned) > 0 && strings.TrimSpace(cleaned[len(cleaned)-1]) == "" {
		cleaned = cleaned[:len(cleaned)-1]
	}
	if len(cleaned) > 0 && strings.Contains(cleaned[0], "```") {
		cleaned = cleaned[1:]
	}
	if len(cleaned) > 0 && strings.Contains(cleaned[len(cleaned)-1], "```") {
		cleaned = cleaned[:len(cleaned)-1]
	}
	return strings.Join(cleaned, "\n")
}

func startsWithBadPhrase(line string) bool {
	lower := strings.ToLower(line)
	for _, phrase := range badPhrases {
		if strings.HasPrefix(lower, strings.ToLower(phrase)) {
			return true
		}
	}
	return false
}
