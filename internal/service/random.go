package service

import (
	"math/rand"
	"sync"
	"time"
)

// RandomSource yields uniform values in [0, 1). *rand.Rand satisfies it but is
// not safe for concurrent use; see NewRandomSource.
type RandomSource interface {
	Float64() float64
}

type lockedSource struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandomSource returns a goroutine-safe RandomSource. A zero seed uses the clock.
func NewRandomSource(seed int64) RandomSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedSource{rnd: rand.New(rand.NewSource(seed))}
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Float64()
}

// drawWinner picks an index with probability proportional to its weight.
// u must lie in [0, 1). The first index whose cumulative weight reaches
// u*total wins; the last index is the fallback for rounding at the top end.
func drawWinner(weights []float64, u float64) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}

	r := u * total
	cumulative := 0.0
	for i, w := range weights {
		cumulative += w
		if cumulative >= r {
			return i
		}
	}
	return len(weights) - 1
}
