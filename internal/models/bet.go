package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BetStatus represents the status of a bet
type BetStatus string

const (
	BetStatusPending BetStatus = "pending"
	BetStatusWon     BetStatus = "won"
	BetStatusLost    BetStatus = "lost"
)

// Bet represents a wager on a horse in a race
type Bet struct {
	ID        uuid.UUID       `db:"id" json:"id" validate:"required"`
	User      string          `db:"user_id" json:"user" validate:"required"`
	RaceID    string          `db:"race_id" json:"race_id" validate:"required"`
	HorseID   string          `db:"horse_id" json:"horse_id" validate:"required"`
	Amount    int64           `db:"amount" json:"amount" validate:"required,gt=0"`
	Odds      decimal.Decimal `db:"odds" json:"odds"` // copied from the entry at placement
	Status    BetStatus       `db:"status" json:"status" validate:"required,oneof=pending won lost"`
	Payout    int64           `db:"payout" json:"payout" validate:"gte=0"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	SettledAt *time.Time      `db:"settled_at" json:"settled_at,omitempty"`
}

// IsPending checks if the bet is still awaiting settlement
func (b *Bet) IsPending() bool {
	return b.Status == BetStatusPending
}

// Settle resolves the bet against the winning horse
func (b *Bet) Settle(winningHorseID string, at time.Time) {
	if b.HorseID == winningHorseID {
		b.Status = BetStatusWon
		b.Payout = CalculatePayout(b.Amount, b.Odds)
	} else {
		b.Status = BetStatusLost
		b.Payout = 0
	}
	b.SettledAt = &at
}

// CalculatePayout returns floor(amount * odds) computed in exact decimal arithmetic
func CalculatePayout(amount int64, odds decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).Mul(odds).Floor().IntPart()
}
