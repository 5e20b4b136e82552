package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/yourusername/race-settlement/internal/database"
	"github.com/yourusername/race-settlement/internal/models"
)

const (
	errScanRace  = "failed to scan race: %w"
	errScanEntry = "failed to scan race entry: %w"

	raceColumns = `id, name, start_time, status, winning_horse_id, created_at, updated_at`
)

// PostgresRaceRepository implements RaceRepository for PostgreSQL
type PostgresRaceRepository struct {
	q database.Querier
}

// NewPostgresRaceRepository creates a new race repository
func NewPostgresRaceRepository(q database.Querier) RaceRepository {
	return &PostgresRaceRepository{q: q}
}

func scanRace(row pgx.Row) (*models.Race, error) {
	race := &models.Race{}
	err := row.Scan(
		&race.ID, &race.Name, &race.StartTime, &race.Status, &race.WinningHorseID,
		&race.CreatedAt, &race.UpdatedAt,
	)
	return race, err
}

// Create inserts a new race
func (r *PostgresRaceRepository) Create(ctx context.Context, race *models.Race) error {
	query := `
		INSERT INTO races (id, name, start_time, status, winning_horse_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	if race.Status == "" {
		race.Status = models.RaceStatusScheduled
	}

	err := r.q.QueryRow(ctx, query, race.ID, race.Name, race.StartTime, race.Status, race.WinningHorseID).
		Scan(&race.CreatedAt, &race.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create race: %w", mapPgError(err))
	}
	return nil
}

// Get retrieves a race by ID
func (r *PostgresRaceRepository) Get(ctx context.Context, id string) (*models.Race, error) {
	return r.get(ctx, `SELECT `+raceColumns+` FROM races WHERE id = $1`, id)
}

// GetForUpdate retrieves a race by ID and locks its row
func (r *PostgresRaceRepository) GetForUpdate(ctx context.Context, id string) (*models.Race, error) {
	return r.get(ctx, `SELECT `+raceColumns+` FROM races WHERE id = $1 FOR UPDATE`, id)
}

// GetForShare retrieves a race by ID under a shared row lock
func (r *PostgresRaceRepository) GetForShare(ctx context.Context, id string) (*models.Race, error) {
	return r.get(ctx, `SELECT `+raceColumns+` FROM races WHERE id = $1 FOR SHARE`, id)
}

func (r *PostgresRaceRepository) get(ctx context.Context, query, id string) (*models.Race, error) {
	race, err := scanRace(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get race: %w", err)
	}
	return race, nil
}

// MarkFinished records the winner of a scheduled race
func (r *PostgresRaceRepository) MarkFinished(ctx context.Context, id, winningHorseID string) error {
	query := `
		UPDATE races
		SET status = 'finished', winning_horse_id = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'scheduled'
	`

	tag, err := r.q.Exec(ctx, query, id, winningHorseID)
	if err != nil {
		return fmt.Errorf("failed to finish race: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrRaceAlreadyFinished
	}
	return nil
}

// NextScheduled returns the scheduled race with the earliest start time
func (r *PostgresRaceRepository) NextScheduled(ctx context.Context) (*models.Race, error) {
	query := `SELECT ` + raceColumns + `
		FROM races
		WHERE status = 'scheduled'
		ORDER BY start_time ASC, id ASC
		LIMIT 1
	`

	race, err := scanRace(r.q.QueryRow(ctx, query))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get next race: %w", err)
	}
	return race, nil
}

// DueForSettlement returns scheduled races whose start time has passed
func (r *PostgresRaceRepository) DueForSettlement(ctx context.Context, now time.Time) ([]*models.Race, error) {
	query := `SELECT ` + raceColumns + `
		FROM races
		WHERE status = 'scheduled' AND start_time <= $1
		ORDER BY start_time ASC, id ASC
	`

	rows, err := r.q.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query due races: %w", err)
	}
	defer rows.Close()

	var races []*models.Race
	for rows.Next() {
		race, err := scanRace(rows)
		if err != nil {
			return nil, fmt.Errorf(errScanRace, err)
		}
		races = append(races, race)
	}
	return races, rows.Err()
}

// AddEntry registers a horse in a race
func (r *PostgresRaceRepository) AddEntry(ctx context.Context, entry *models.RaceEntry) error {
	query := `
		INSERT INTO race_entries (race_id, horse_id, odds)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	err := r.q.QueryRow(ctx, query, entry.RaceID, entry.HorseID, entry.Odds).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to add race entry: %w", mapPgError(err))
	}
	return nil
}

// EntriesFor returns a race's entrants in registration order
func (r *PostgresRaceRepository) EntriesFor(ctx context.Context, raceID string) ([]*models.RaceEntry, error) {
	query := `
		SELECT e.id, e.race_id, e.horse_id, h.name, e.odds
		FROM race_entries e
		JOIN horses h ON h.id = e.horse_id
		WHERE e.race_id = $1
		ORDER BY e.id ASC
	`

	rows, err := r.q.Query(ctx, query, raceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query race entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.RaceEntry
	for rows.Next() {
		entry := &models.RaceEntry{}
		if err := rows.Scan(&entry.ID, &entry.RaceID, &entry.HorseID, &entry.HorseName, &entry.Odds); err != nil {
			return nil, fmt.Errorf(errScanEntry, err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Entry returns a single horse's entry in a race
func (r *PostgresRaceRepository) Entry(ctx context.Context, raceID, horseID string) (*models.RaceEntry, error) {
	query := `
		SELECT e.id, e.race_id, e.horse_id, h.name, e.odds
		FROM race_entries e
		JOIN horses h ON h.id = e.horse_id
		WHERE e.race_id = $1 AND e.horse_id = $2
	`

	entry := &models.RaceEntry{}
	err := r.q.QueryRow(ctx, query, raceID, horseID).
		Scan(&entry.ID, &entry.RaceID, &entry.HorseID, &entry.HorseName, &entry.Odds)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get race entry: %w", err)
	}
	return entry, nil
}
