// internal/llm/split.go
//
// LaTeX structure splitters. A winning candidate at a non-leaf level
// declares its children structurally (\section, \subsection, environment
// blocks); these functions carve that structure into ordered child tasks
// for the engine to delegate.

package llm

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/yourusername/texweave/internal/engine"
)

var (
	sectionPattern    = regexp.MustCompile(`\\section\{([^}]+)\}`)
	subsectionPattern = regexp.MustCompile(`\\subsection\{([^}]+)\}`)
	envBeginPattern   = regexp.MustCompile(`\\begin\{(\w+\*?)\}`)
	envEndPattern     = regexp.MustCompile(`\\end\{(\w+\*?)\}`)
)

// SplitSections partitions a document draft into one child task per
// declared \section.
func SplitSections(content string) []engine.ChildTask {
	return splitHeadings(content, sectionPattern, "section")
}

// SplitSubsections partitions a section draft into one child task per
// declared \subsection.
func SplitSubsections(content string) []engine.ChildTask {
	return splitHeadings(content, subsectionPattern, "subsection")
}

// SplitBlocks partitions a subsection draft into one child task per
// top-level mathematical environment. Prose between environments stays with
// the subsection; a draft with no environments yields no children and the
// subsection stands as written.
func SplitBlocks(content string) []engine.ChildTask {
	blocks := topLevelEnvironments(content)
	if len(blocks) == 0 {
		return nil
	}
	hints := make([]string, len(blocks))
	for i, b := range blocks {
		hints[i] = b.name
	}
	tasks := make([]engine.ChildTask, 0, len(blocks))
	for i, b := range blocks {
		tasks = append(tasks, engine.ChildTask{
			Title: b.name,
			Task: fmt.Sprintf("Rewrite and verify this %s block, keeping its mathematical intent but showing "+
				"every step rigorously:\n\n%s", b.name, strings.TrimSpace(b.text)),
			SiblingHint: siblingHint(hints, i),
		})
	}
	return tasks
}

// splitHeadings slices the content at each heading match; every child task
// covers its heading through the character before the next heading.
func splitHeadings(content string, pattern *regexp.Regexp, kind string) []engine.ChildTask {
	locs := pattern.FindAllStringSubmatchIndex(content, -1)
	if len(locs) == 0 {
		return nil
	}
	titles := make([]string, len(locs))
	for i, loc := range locs {
		titles[i] = strings.TrimSpace(content[loc[2]:loc[3]])
	}
	tasks := make([]engine.ChildTask, 0, len(locs))
	for i, loc := range locs {
		end := len(content)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		draft := strings.TrimSpace(content[loc[0]:end])
		tasks = append(tasks, engine.ChildTask{
			Title: titles[i],
			Task: fmt.Sprintf("Write out the %s %q in full, expanding this draft:\n\n%s",
				kind, titles[i], draft),
			SiblingHint: siblingHint(titles, i),
		})
	}
	return tasks
}

type envBlock struct {
	name string
	text string
}

// topLevelEnvironments scans for balanced \begin{X}...\end{X} pairs,
// skipping environments nested inside another one.
func topLevelEnvironments(content string) []envBlock {
	var blocks []envBlock
	offset := 0
	for {
		rest := content[offset:]
		begin := envBeginPattern.FindStringSubmatchIndex(rest)
		if begin == nil {
			return blocks
		}
		name := rest[begin[2]:begin[3]]
		depth := 1
		pos := begin[1]
		for depth > 0 {
			nextBegin := envBeginPattern.FindStringIndex(rest[pos:])
			nextEnd := envEndPattern.FindStringIndex(rest[pos:])
			if nextEnd == nil {
				// Unbalanced: drop the dangling block.
				return blocks
			}
			if nextBegin != nil && nextBegin[0] < nextEnd[0] {
				depth++
				pos += nextBegin[1]
			} else {
				depth--
				pos += nextEnd[1]
			}
		}
		blocks = append(blocks, envBlock{name: name, text: rest[begin[0]:pos]})
		offset += pos
	}
}

func siblingHint(titles []string, self int) string {
	others := make([]string, 0, len(titles)-1)
	for i, title := range titles {
		if i != self {
			others = append(others, title)
		}
	}
	return strings.Join(others, "; ")
}
