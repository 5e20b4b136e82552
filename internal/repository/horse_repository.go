package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/yourusername/race-settlement/internal/database"
	"github.com/yourusername/race-settlement/internal/models"
)

// PostgresHorseRepository implements HorseRepository for PostgreSQL
type PostgresHorseRepository struct {
	q database.Querier
}

// NewPostgresHorseRepository creates a new horse repository
func NewPostgresHorseRepository(q database.Querier) HorseRepository {
	return &PostgresHorseRepository{q: q}
}

// Create inserts a new horse
func (r *PostgresHorseRepository) Create(ctx context.Context, horse *models.Horse) error {
	query := `
		INSERT INTO horses (id, name, races_run, races_won)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query, horse.ID, horse.Name, horse.RacesRun, horse.RacesWon).
		Scan(&horse.CreatedAt, &horse.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create horse: %w", mapPgError(err))
	}
	return nil
}

// Get retrieves a horse by ID
func (r *PostgresHorseRepository) Get(ctx context.Context, id string) (*models.Horse, error) {
	query := `
		SELECT id, name, races_run, races_won, created_at, updated_at
		FROM horses WHERE id = $1
	`

	horse := &models.Horse{}
	err := r.q.QueryRow(ctx, query, id).Scan(
		&horse.ID, &horse.Name, &horse.RacesRun, &horse.RacesWon, &horse.CreatedAt, &horse.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get horse: %w", err)
	}
	return horse, nil
}

// Update overwrites a horse's race counters
func (r *PostgresHorseRepository) Update(ctx context.Context, id string, racesRun, racesWon int) error {
	query := `
		UPDATE horses
		SET races_run = $2, races_won = $3, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.q.Exec(ctx, query, id, racesRun, racesWon)
	if err != nil {
		return fmt.Errorf("failed to update horse: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Count returns the number of horses
func (r *PostgresHorseRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM horses`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count horses: %w", err)
	}
	return n, nil
}
