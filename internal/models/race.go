package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RaceStatus represents the lifecycle state of a race
type RaceStatus string

const (
	RaceStatusScheduled RaceStatus = "scheduled"
	RaceStatusFinished  RaceStatus = "finished"
)

// Race represents a race event
type Race struct {
	ID             string     `db:"id" json:"id" validate:"required"`
	Name           string     `db:"name" json:"name" validate:"required"`
	StartTime      time.Time  `db:"start_time" json:"start_time" validate:"required"`
	Status         RaceStatus `db:"status" json:"status" validate:"oneof=scheduled finished"`
	WinningHorseID *string    `db:"winning_horse_id" json:"winning_horse_id,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// IsScheduled checks if the race has not been settled yet
func (r *Race) IsScheduled() bool {
	return r.Status == RaceStatusScheduled
}

// IsFinished checks if the race has been settled
func (r *Race) IsFinished() bool {
	return r.Status == RaceStatusFinished
}

// AcceptsBetsAt reports whether betting is still open at the given instant
func (r *Race) AcceptsBetsAt(now time.Time) bool {
	return now.Before(r.StartTime)
}

// RaceEntry registers a horse in a race with fixed decimal odds
type RaceEntry struct {
	ID        int64           `db:"id" json:"id"`
	RaceID    string          `db:"race_id" json:"race_id" validate:"required"`
	HorseID   string          `db:"horse_id" json:"horse_id" validate:"required"`
	HorseName string          `db:"name" json:"name"`
	Odds      decimal.Decimal `db:"odds" json:"odds"`
}
