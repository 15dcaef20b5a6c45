package labels

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewManagerCollectsExistingLabels(t *testing.T) {
	doc := `\section{Intro}\label{sec1} and \eqref{eq2} with \label{eq2}`
	m := NewManager(doc, 4, 1)
	require.True(t, m.Known("sec1"))
	require.True(t, m.Known("eq2"))
	require.False(t, m.Known("zzzz"))
}

func TestFreshNeverRepeats(t *testing.T) {
	m := NewManager("", 2, 42)
	seen := map[string]bool{}
	for i := 0; i < 500; i++ {
		label := m.Fresh()
		require.Len(t, label, 2)
		require.False(t, seen[label], "label %q repeated", label)
		seen[label] = true
	}
}

func TestAbsorbReservesCandidateLabels(t *testing.T) {
	m := NewManager("", 4, 7)
	m.Absorb(`\begin{theorem}\label{abcd}\end{theorem}`)
	require.True(t, m.Known("abcd"))
}
