// Package rng abstracts the randomness used by raffle draws. The
// production source reads the OS CSPRNG; tests inject a recorded
// sequence so draws are reproducible.
package rng

import (
	"crypto/rand"
	"errors"
	"math/big"
	"sync"
)

var errEmptyRange = errors.New("rng: upper bound must be positive")

// Source yields uniform values in [0, n).
type Source interface {
	Uint64n(n uint64) (uint64, error)
}

// CryptoSource draws from crypto/rand.
type CryptoSource struct{}

// Uint64n returns a uniform value in [0, n).
func (CryptoSource) Uint64n(n uint64) (uint64, error) {
	if n == 0 {
		return 0, errEmptyRange
	}
	v, err := rand.Int(rand.Reader, new(big.Int).SetUint64(n))
	if err != nil {
		return 0, err
	}
	return v.Uint64(), nil
}

// Sequence replays a fixed list of values, reducing each modulo the
// requested bound. It cycles when exhausted.
type Sequence struct {
	mu     sync.Mutex
	values []uint64
	next   int
}

// NewSequence returns a Sequence over the given values.
func NewSequence(values ...uint64) *Sequence {
	return &Sequence{values: values}
}

// Uint64n returns the next recorded value modulo n.
func (s *Sequence) Uint64n(n uint64) (uint64, error) {
	if n == 0 {
		return 0, errEmptyRange
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.values) == 0 {
		return 0, nil
	}
	v := s.values[s.next%len(s.values)]
	s.next++
	return v % n, nil
}
