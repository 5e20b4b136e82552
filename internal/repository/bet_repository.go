package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yourusername/race-settlement/internal/database"
	"github.com/yourusername/race-settlement/internal/models"
)

const betColumns = `id, user_id, race_id, horse_id, amount, odds, status, payout, created_at, settled_at`

// PostgresBetLedger implements BetLedger for PostgreSQL
type PostgresBetLedger struct {
	q database.Querier
}

// NewPostgresBetLedger creates a new bet ledger
func NewPostgresBetLedger(q database.Querier) BetLedger {
	return &PostgresBetLedger{q: q}
}

func scanBet(row pgx.Row) (*models.Bet, error) {
	bet := &models.Bet{}
	err := row.Scan(
		&bet.ID, &bet.User, &bet.RaceID, &bet.HorseID, &bet.Amount, &bet.Odds,
		&bet.Status, &bet.Payout, &bet.CreatedAt, &bet.SettledAt,
	)
	return bet, err
}

// Insert records a new bet
func (b *PostgresBetLedger) Insert(ctx context.Context, bet *models.Bet) error {
	query := `
		INSERT INTO bets (id, user_id, race_id, horse_id, amount, odds, status, payout, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := b.q.Exec(ctx, query,
		bet.ID, bet.User, bet.RaceID, bet.HorseID, bet.Amount, bet.Odds,
		bet.Status, bet.Payout, bet.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create bet: %w", mapPgError(err))
	}
	return nil
}

// Get retrieves a bet by ID
func (b *PostgresBetLedger) Get(ctx context.Context, id uuid.UUID) (*models.Bet, error) {
	bet, err := scanBet(b.q.QueryRow(ctx, `SELECT `+betColumns+` FROM bets WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bet: %w", err)
	}
	return bet, nil
}

// BetsForRace retrieves all bets for a race in placement order
func (b *PostgresBetLedger) BetsForRace(ctx context.Context, raceID string) ([]*models.Bet, error) {
	return b.list(ctx, `SELECT `+betColumns+` FROM bets WHERE race_id = $1 ORDER BY created_at ASC, id ASC`, raceID)
}

// WinningBets retrieves the winning bets for a race
func (b *PostgresBetLedger) WinningBets(ctx context.Context, raceID string) ([]*models.Bet, error) {
	return b.list(ctx, `SELECT `+betColumns+` FROM bets
		WHERE race_id = $1 AND status = 'won'
		ORDER BY created_at ASC, id ASC`, raceID)
}

// ForUser retrieves a user's bets, newest first
func (b *PostgresBetLedger) ForUser(ctx context.Context, user string) ([]*models.Bet, error) {
	return b.list(ctx, `SELECT `+betColumns+` FROM bets WHERE user_id = $1 ORDER BY created_at DESC, id ASC`, user)
}

func (b *PostgresBetLedger) list(ctx context.Context, query string, args ...any) ([]*models.Bet, error) {
	rows, err := b.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bets: %w", err)
	}
	defer rows.Close()

	var bets []*models.Bet
	for rows.Next() {
		bet, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bet: %w", err)
		}
		bets = append(bets, bet)
	}
	return bets, rows.Err()
}

// UpdateSettlement persists a bet's outcome. Only pending bets are updated.
func (b *PostgresBetLedger) UpdateSettlement(ctx context.Context, bet *models.Bet) error {
	query := `
		UPDATE bets
		SET status = $2, payout = $3, settled_at = $4
		WHERE id = $1 AND status = 'pending'
	`

	tag, err := b.q.Exec(ctx, query, bet.ID, bet.Status, bet.Payout, bet.SettledAt)
	if err != nil {
		return fmt.Errorf("failed to settle bet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("bet %s is not pending: %w", bet.ID, models.ErrNotFound)
	}
	return nil
}
