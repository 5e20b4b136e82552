package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/race-settlement/internal/models"
)

// HorseRepository defines the interface for horse data access
type HorseRepository interface {
	Create(ctx context.Context, horse *models.Horse) error
	Get(ctx context.Context, id string) (*models.Horse, error)
	Update(ctx context.Context, id string, racesRun, racesWon int) error
	Count(ctx context.Context) (int, error)
}

// RaceRepository defines the interface for race and entry data access
type RaceRepository interface {
	Create(ctx context.Context, race *models.Race) error
	Get(ctx context.Context, id string) (*models.Race, error)
	// GetForUpdate reads the race and holds a row lock for the rest of the transaction.
	GetForUpdate(ctx context.Context, id string) (*models.Race, error)
	// GetForShare reads the race and holds a shared row lock, which blocks
	// GetForUpdate in other transactions until this one ends.
	GetForShare(ctx context.Context, id string) (*models.Race, error)
	// MarkFinished transitions a scheduled race to finished.
	// It returns models.ErrRaceAlreadyFinished if the race was not scheduled.
	MarkFinished(ctx context.Context, id, winningHorseID string) error
	NextScheduled(ctx context.Context) (*models.Race, error)
	DueForSettlement(ctx context.Context, now time.Time) ([]*models.Race, error)
	AddEntry(ctx context.Context, entry *models.RaceEntry) error
	// EntriesFor returns a race's entrants ordered by registration.
	EntriesFor(ctx context.Context, raceID string) ([]*models.RaceEntry, error)
	Entry(ctx context.Context, raceID, horseID string) (*models.RaceEntry, error)
}

// BetLedger defines the interface for bet data access
type BetLedger interface {
	Insert(ctx context.Context, bet *models.Bet) error
	Get(ctx context.Context, id uuid.UUID) (*models.Bet, error)
	BetsForRace(ctx context.Context, raceID string) ([]*models.Bet, error)
	WinningBets(ctx context.Context, raceID string) ([]*models.Bet, error)
	ForUser(ctx context.Context, user string) ([]*models.Bet, error)
	UpdateSettlement(ctx context.Context, bet *models.Bet) error
}

// Store runs units of work against a consistent set of repositories.
type Store interface {
	// WithinTx runs fn atomically. Any error returned by fn discards every write it made.
	WithinTx(ctx context.Context, fn func(repos *Repositories) error) error
	// ReadOnly runs fn against a consistent snapshot.
	ReadOnly(ctx context.Context, fn func(repos *Repositories) error) error
	Ping(ctx context.Context) error
}
