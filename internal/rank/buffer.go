package rank

import (
	"sort"

	"github.com/dexsentry/dexsentry/internal/engine"
)

// Buffer accumulates scored candidates for exactly one polling cycle and
// selects the best of them at cycle end. It is owned by the cycle that
// created it and discarded afterwards; no locking needed.
type Buffer struct {
	candidates []engine.ScoredCandidate
}

// NewBuffer creates an empty ranking buffer for one cycle.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Add appends a candidate in ingestion order.
func (b *Buffer) Add(c engine.ScoredCandidate) {
	b.candidates = append(b.candidates, c)
}

// Len returns how many candidates the buffer holds.
func (b *Buffer) Len() int { return len(b.candidates) }

// TopN returns the n highest-composite candidates, descending. The sort is
// stable, so equal scores keep their ingestion order and repeated runs over
// the same input produce the same output.
func (b *Buffer) TopN(n int) []engine.ScoredCandidate {
	if n <= 0 || len(b.candidates) == 0 {
		return nil
	}

	out := make([]engine.ScoredCandidate, len(b.candidates))
	copy(out, b.candidates)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Composite > out[j].Composite
	})

	if n > len(out) {
		n = len(out)
	}
	return out[:n]
}
