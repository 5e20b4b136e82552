package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/yourusername/race-settlement/internal/database"
)

// Repositories holds all repository implementations bound to one unit of work
type Repositories struct {
	Horses HorseRepository
	Races  RaceRepository
	Bets   BetLedger
}

// NewRepositories creates repositories that run directly against a querier
func NewRepositories(q database.Querier) *Repositories {
	return &Repositories{
		Horses: NewPostgresHorseRepository(q),
		Races:  NewPostgresRaceRepository(q),
		Bets:   NewPostgresBetLedger(q),
	}
}

// PostgresStore implements Store on top of a pgx connection pool
type PostgresStore struct {
	db *database.DB
}

// NewPostgresStore creates a new PostgreSQL-backed store
func NewPostgresStore(db *database.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	return &PostgresStore{db: db}, nil
}

// WithinTx runs fn inside a database transaction
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(repos *Repositories) error) error {
	return s.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		return fn(NewRepositories(tx))
	})
}

// ReadOnly runs fn inside a read-only repeatable-read transaction
func (s *PostgresStore) ReadOnly(ctx context.Context, fn func(repos *Repositories) error) error {
	tx, err := s.db.Pool().BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return fmt.Errorf("failed to begin read-only transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewRepositories(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Ping verifies database connectivity
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
