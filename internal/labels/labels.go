// internal/labels/labels.go
//
// LaTeX label bookkeeping. Candidate producers run concurrently, so fresh
// \label{...} names are allocated through a single manager that knows every
// label already present in the source document.

package labels

import (
	"math/rand"
	"regexp"
	"sync"
)

var labelPattern = regexp.MustCompile(`\\label\{([^}]+)\}`)

const labelAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Manager tracks every label seen so far and hands out fresh unique ones.
type Manager struct {
	mu     sync.Mutex
	length int
	rng    *rand.Rand
	known  map[string]bool
}

// NewManager scans the document for existing \label{...} occurrences.
// length is the number of characters in generated labels.
func NewManager(doc string, length int, seed int64) *Manager {
	known := make(map[string]bool)
	for _, match := range labelPattern.FindAllStringSubmatch(doc, -1) {
		known[match[1]] = true
	}
	if length < 1 {
		length = 4
	}
	return &Manager{
		length: length,
		rng:    rand.New(rand.NewSource(seed)),
		known:  known,
	}
}

// Fresh generates, records, and returns a new unique label.
func (m *Manager) Fresh() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for {
		buf := make([]byte, m.length)
		for i := range buf {
			buf[i] = labelAlphabet[m.rng.Intn(len(labelAlphabet))]
		}
		label := string(buf)
		if !m.known[label] {
			m.known[label] = true
			return label
		}
	}
}

// Known reports whether the label has been seen or allocated.
func (m *Manager) Known(label string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.known[label]
}

// Absorb records every label appearing in the given text, so labels invented
// by a winning candidate are reserved before the next round.
func (m *Manager) Absorb(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, match := range labelPattern.FindAllStringSubmatch(text, -1) {
		m.known[match[1]] = true
	}
}
