package llm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitSections(t *testing.T) {
	doc := `\section{Introduction}
Some framing prose.
\section{Main Results}
The theorem statements.
\section{Conclusion}
Wrap up.`
	tasks := SplitSections(doc)
	require.Len(t, tasks, 3)
	require.Equal(t, "Introduction", tasks[0].Title)
	require.Equal(t, "Main Results", tasks[1].Title)
	require.Equal(t, "Conclusion", tasks[2].Title)
	require.Contains(t, tasks[1].Task, "The theorem statements.")
	require.NotContains(t, tasks[1].Task, "Some framing prose.")
	require.Contains(t, tasks[0].SiblingHint, "Main Results")
	require.NotContains(t, tasks[0].SiblingHint, "Introduction")
}

func TestSplitSectionsEmptyWhenNoHeadings(t *testing.T) {
	require.Nil(t, SplitSections("just prose, no structure"))
}

func TestSplitSubsections(t *testing.T) {
	section := `\section{Results}
Preamble.
\subsection{Upper Bound}
First part.
\subsection{Lower Bound}
Second part.`
	tasks := SplitSubsections(section)
	require.Len(t, tasks, 2)
	require.Equal(t, "Upper Bound", tasks[0].Title)
	require.Contains(t, tasks[1].Task, "Second part.")
}

func TestSplitBlocksSkipsNestedEnvironments(t *testing.T) {
	sub := `Intro prose.
\begin{theorem}
For all $n$, we have
\begin{align}
n + 0 = n.
\end{align}
\end{theorem}
\begin{proof}
Immediate.
\end{proof}
Closing prose.`
	tasks := SplitBlocks(sub)
	require.Len(t, tasks, 2)
	require.Equal(t, "theorem", tasks[0].Title)
	require.Equal(t, "proof", tasks[1].Title)
	// The nested align stays inside the theorem block.
	require.Contains(t, tasks[0].Task, `\begin{align}`)
	require.Contains(t, tasks[0].Task, `\end{theorem}`)
}

func TestSplitBlocksNoneWithoutEnvironments(t *testing.T) {
	require.Nil(t, SplitBlocks("prose only, $x+y$ inline"))
}

func TestSplitBlocksDropsUnbalancedTail(t *testing.T) {
	sub := `\begin{lemma}
Done.
\end{lemma}
\begin{proof}
Never closed.`
	tasks := SplitBlocks(sub)
	require.Len(t, tasks, 1)
	require.Equal(t, "lemma", tasks[0].Title)
}
