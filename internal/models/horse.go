package models

import (
	"time"

	"github.com/yourusername/race-settlement/internal/probability"
)

// Horse represents a horse and its cumulative race record
type Horse struct {
	ID        string    `db:"id" json:"id" validate:"required"`
	Name      string    `db:"name" json:"name" validate:"required"`
	RacesRun  int       `db:"races_run" json:"races_run" validate:"gte=0"`
	RacesWon  int       `db:"races_won" json:"races_won" validate:"gte=0,ltefield=RacesRun"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// WinProbability returns the horse's current win probability
func (h *Horse) WinProbability() (float64, error) {
	return probability.WinProbability(h.RacesRun, h.RacesWon)
}

// AfterRace returns the horse's counts once a race it ran in has finished
func (h *Horse) AfterRace(won bool) (racesRun, racesWon int) {
	racesRun = h.RacesRun + 1
	racesWon = h.RacesWon
	if won {
		racesWon++
	}
	return racesRun, racesWon
}
