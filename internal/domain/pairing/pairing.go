// Package pairing draws random matchups from the catalog.
package pairing

import (
	"errors"
	"math/rand"
	"sync"
	"time"
)

// ErrInsufficientCatalog is returned when fewer than two names are available.
var ErrInsufficientCatalog = errors.New("need at least two items to pair")

// Selector samples two distinct names uniformly at random.
// It is safe for concurrent use.
type Selector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// Option applies a configuration option to the Selector.
type Option func(*Selector)

// WithSeed makes the draw sequence reproducible.
func WithSeed(seed int64) Option {
	return func(s *Selector) {
		s.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // matchups are not security sensitive
	}
}

// New creates a Selector seeded from the clock unless WithSeed is given.
func New(opts ...Option) *Selector {
	s := &Selector{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // matchups are not security sensitive
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RandomPair returns two different names drawn without replacement. Every
// ordered pair is equally likely. names is not modified.
func (s *Selector) RandomPair(names []string) (string, string, error) {
	n := len(names)
	if n < 2 {
		return "", "", ErrInsufficientCatalog
	}

	s.mu.Lock()
	i := s.rng.Intn(n)
	j := s.rng.Intn(n - 1)
	s.mu.Unlock()

	if j >= i {
		j++
	}
	return names[i], names[j], nil
}
