// Package testutil provides deterministic fixtures shared by the rules
// engine's tests: scripted dice sources, combatant builders and a fully wired
// combat engine.
package testutil

import "sync"

// FixedSource always returns Val, so every die shows Val+1 (clamped to the die).
type FixedSource struct{ Val int }

// Intn returns min(Val, n-1).
func (f FixedSource) Intn(n int) int {
	if f.Val >= n {
		return n - 1
	}
	return f.Val
}

// SequenceSource returns Vals in order and repeats the last one forever.
// Each value is reduced modulo n. It is safe for concurrent use.
type SequenceSource struct {
	mu   sync.Mutex
	Vals []int
	pos  int
}

// NewSequence returns a SequenceSource over vals.
//
// Precondition: len(vals) > 0.
func NewSequence(vals ...int) *SequenceSource {
	if len(vals) == 0 {
		panic("testutil: NewSequence called with no values")
	}
	return &SequenceSource{Vals: vals}
}

// D20s converts natural d20 faces into Intn results, e.g. D20s(20, 1) → 19, 0.
func D20s(faces ...int) []int {
	out := make([]int, len(faces))
	for i, f := range faces {
		out[i] = f - 1
	}
	return out
}

// Intn returns the next scripted value modulo n.
func (s *SequenceSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.Vals[min(s.pos, len(s.Vals)-1)]
	s.pos++
	return v % n
}

// Calls returns how many values have been drawn.
func (s *SequenceSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}
