// Package probability derives win probabilities and fair odds from a horse's race history.
package probability

import (
	"errors"
	"fmt"
	"math"
)

const (
	// DefaultProbability is used for horses that have never run.
	DefaultProbability = 0.1
	// MinProbability is the floor for horses that have run but never won,
	// so every entrant keeps a non-zero weight in the draw.
	MinProbability = 0.01
)

var (
	ErrInvalidStatistics  = errors.New("invalid race statistics")
	ErrInvalidProbability = errors.New("invalid probability")
)

// WinProbability returns the probability of a horse winning based on its history.
// The result always lies in (0, 1].
func WinProbability(racesRun, racesWon int) (float64, error) {
	if racesRun < 0 || racesWon < 0 {
		return 0, fmt.Errorf("%w: negative counts (run=%d, won=%d)", ErrInvalidStatistics, racesRun, racesWon)
	}
	if racesWon > racesRun {
		return 0, fmt.Errorf("%w: races won %d exceeds races run %d", ErrInvalidStatistics, racesWon, racesRun)
	}
	if racesRun == 0 {
		return DefaultProbability, nil
	}

	p := float64(racesWon) / float64(racesRun)
	return math.Max(p, MinProbability), nil
}

// SuggestedOdds returns the fair decimal odds for a probability.
func SuggestedOdds(p float64) (float64, error) {
	if math.IsNaN(p) || p <= 0 || p > 1 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidProbability, p)
	}
	return 1 / p, nil
}
