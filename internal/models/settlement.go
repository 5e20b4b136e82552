package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BetPayout is one line of a settlement manifest
type BetPayout struct {
	BetID   uuid.UUID       `json:"bet_id"`
	User    string          `json:"user"`
	HorseID string          `json:"horse_id"`
	Amount  int64           `json:"amount"`
	Odds    decimal.Decimal `json:"odds"`
	Status  BetStatus       `json:"status"`
	Payout  int64           `json:"payout"`
}

// SettlementResult is the manifest returned after a race is settled
type SettlementResult struct {
	RaceID         string      `json:"race_id"`
	Status         RaceStatus  `json:"status"`
	WinningHorseID string      `json:"winning_horse_id"`
	Payouts        []BetPayout `json:"payouts"`
	TotalPayout    int64       `json:"total_payout"`
	SettledAt      time.Time   `json:"settled_at"`
}

// WinnerCount returns the number of winning bets in the manifest
func (s *SettlementResult) WinnerCount() int {
	n := 0
	for _, p := range s.Payouts {
		if p.Status == BetStatusWon {
			n++
		}
	}
	return n
}

// NextRace is a scheduled race together with its entrants
type NextRace struct {
	Race    *Race        `json:"race"`
	Entries []*RaceEntry `json:"entries"`
}

// RaceResults describes a race and the bets that won on it
type RaceResults struct {
	RaceID         string     `json:"race_id"`
	Status         RaceStatus `json:"status"`
	WinningHorseID *string    `json:"winning_horse_id"`
	Winners        []*Bet     `json:"winners"`
}

// HorseStats is a horse's record plus derived probability and odds
type HorseStats struct {
	Horse          *Horse  `json:"horse"`
	WinProbability float64 `json:"win_probability"`
	SuggestedOdds  float64 `json:"suggested_odds"`
}
