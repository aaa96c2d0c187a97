// Package entropy supplies the randomness the simulation consumes. A
// Source wraps a seedable PRNG so tests and replays can pin outcomes; a
// nil *Source stays usable and falls back to crypto/rand, so callers
// never need to guard.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"log/slog"
	mrand "math/rand"
	"sync"
)

// Source produces uniform floats, probability rolls and bounded integers.
// Construct with New or NewSeeded; methods are safe for concurrent use
// and on a nil receiver.
type Source struct {
	mu  sync.Mutex
	rng *mrand.Rand
}

// New returns a Source seeded from crypto/rand.
func New() *Source {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		slog.Warn("entropy seed read failed, using zero seed", "error", err)
	}
	return NewSeeded(int64(binary.LittleEndian.Uint64(b[:])))
}

// NewSeeded returns a deterministic Source for tests and reproducible runs.
func NewSeeded(seed int64) *Source {
	return &Source{rng: mrand.New(mrand.NewSource(seed))}
}

// Float returns a uniform float64 in [0, 1).
func (s *Source) Float() float64 {
	if s == nil {
		return cryptoRandFloat()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// Roll reports whether an event with probability p occurred. p <= 0 never
// fires, p >= 1 always does.
func (s *Source) Roll(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return s.Float() < p
}

// IntBetween returns a uniform integer in [lo, hi], both ends inclusive.
func (s *Source) IntBetween(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + int(s.Float()*float64(hi-lo+1))
}

// cryptoRandFloat builds a uniform float64 in [0, 1) from 53 bits of
// crypto/rand entropy.
func cryptoRandFloat() float64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0.5
	}
	n := binary.LittleEndian.Uint64(buf[:]) >> 11
	return float64(n) / float64(1<<53)
}
