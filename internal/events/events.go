// Package events broadcasts bet and settlement notifications after they are committed.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/yourusername/race-settlement/internal/models"
)

// Event types
const (
	TypeBetPlaced   = "bet_placed"
	TypeRaceSettled = "race_settled"
)

// Publisher receives committed domain events. Implementations must not
// block for long; callers publish after their transaction has committed.
type Publisher interface {
	BetPlaced(ctx context.Context, bet *models.Bet) error
	RaceSettled(ctx context.Context, result *models.SettlementResult) error
}

// Envelope is the wire form shared by every transport
type Envelope struct {
	Type       string    `json:"type"`
	RaceID     string    `json:"race_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

func betPlacedEnvelope(bet *models.Bet) Envelope {
	return Envelope{Type: TypeBetPlaced, RaceID: bet.RaceID, OccurredAt: bet.CreatedAt, Payload: bet}
}

func raceSettledEnvelope(result *models.SettlementResult) Envelope {
	return Envelope{Type: TypeRaceSettled, RaceID: result.RaceID, OccurredAt: result.SettledAt, Payload: result}
}

// Noop discards every event
type Noop struct{}

func (Noop) BetPlaced(context.Context, *models.Bet) error                { return nil }
func (Noop) RaceSettled(context.Context, *models.SettlementResult) error { return nil }

// Fanout delivers each event to every publisher and joins their errors
type Fanout []Publisher

// BetPlaced forwards to every publisher
func (f Fanout) BetPlaced(ctx context.Context, bet *models.Bet) error {
	var errs []error
	for _, p := range f {
		if err := p.BetPlaced(ctx, bet); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RaceSettled forwards to every publisher
func (f Fanout) RaceSettled(ctx context.Context, result *models.SettlementResult) error {
	var errs []error
	for _, p := range f {
		if err := p.RaceSettled(ctx, result); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
