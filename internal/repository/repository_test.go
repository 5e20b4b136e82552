package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/race-settlement/internal/database/dbtest"
	"github.com/yourusername/race-settlement/internal/models"
)

var start = time.Date(2026, 5, 1, 15, 0, 0, 0, time.UTC)

// seedRace creates two horses entered in one scheduled race.
func seedRace(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	err := store.WithinTx(ctx, func(repos *Repositories) error {
		for _, h := range []*models.Horse{
			{ID: "A", Name: "Alpha", RacesRun: 4, RacesWon: 1},
			{ID: "B", Name: "Bravo"},
		} {
			if err := repos.Horses.Create(ctx, h); err != nil {
				return err
			}
		}
		if err := repos.Races.Create(ctx, &models.Race{ID: "r1", Name: "Opener", StartTime: start}); err != nil {
			return err
		}
		for _, e := range []*models.RaceEntry{
			{RaceID: "r1", HorseID: "A", Odds: decimal.RequireFromString("2.5")},
			{RaceID: "r1", HorseID: "B", Odds: decimal.RequireFromString("1.15")},
		} {
			if err := repos.Races.AddEntry(ctx, e); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func newBet(user, horseID string, amount int64, odds string) *models.Bet {
	return &models.Bet{
		ID:        uuid.New(),
		User:      user,
		RaceID:    "r1",
		HorseID:   horseID,
		Amount:    amount,
		Odds:      decimal.RequireFromString(odds),
		Status:    models.BetStatusPending,
		CreatedAt: start.Add(-time.Hour),
	}
}

// exerciseStore runs the shared contract against any Store implementation.
func exerciseStore(t *testing.T, store Store) {
	ctx := context.Background()
	seedRace(t, store)

	t.Run("entries keep registration order", func(t *testing.T) {
		err := store.ReadOnly(ctx, func(repos *Repositories) error {
			entries, err := repos.Races.EntriesFor(ctx, "r1")
			require.NoError(t, err)
			require.Len(t, entries, 2)
			assert.Equal(t, "A", entries[0].HorseID)
			assert.Equal(t, "Alpha", entries[0].HorseName)
			assert.True(t, entries[1].Odds.Equal(decimal.RequireFromString("1.15")))

			_, err = repos.Races.Entry(ctx, "r1", "Z")
			assert.ErrorIs(t, err, models.ErrNotFound)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("failed unit of work leaves no trace", func(t *testing.T) {
		boom := errors.New("boom")
		err := store.WithinTx(ctx, func(repos *Repositories) error {
			require.NoError(t, repos.Bets.Insert(ctx, newBet("alice", "A", 10, "2.5")))
			require.NoError(t, repos.Horses.Update(ctx, "A", 5, 2))
			return boom
		})
		require.ErrorIs(t, err, boom)

		err = store.ReadOnly(ctx, func(repos *Repositories) error {
			bets, err := repos.Bets.BetsForRace(ctx, "r1")
			require.NoError(t, err)
			assert.Empty(t, bets)

			horse, err := repos.Horses.Get(ctx, "A")
			require.NoError(t, err)
			assert.Equal(t, 4, horse.RacesRun)
			assert.Equal(t, 1, horse.RacesWon)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("settlement round trip", func(t *testing.T) {
		winner := newBet("alice", "B", 100, "1.15")
		loser := newBet("bob", "A", 40, "2.5")

		err := store.WithinTx(ctx, func(repos *Repositories) error {
			require.NoError(t, repos.Bets.Insert(ctx, winner))
			return repos.Bets.Insert(ctx, loser)
		})
		require.NoError(t, err)

		settledAt := start.Add(time.Minute)
		err = store.WithinTx(ctx, func(repos *Repositories) error {
			race, err := repos.Races.GetForUpdate(ctx, "r1")
			require.NoError(t, err)
			require.True(t, race.IsScheduled())

			bets, err := repos.Bets.BetsForRace(ctx, "r1")
			require.NoError(t, err)
			require.Len(t, bets, 2)
			for _, b := range bets {
				b.Settle("B", settledAt)
				require.NoError(t, repos.Bets.UpdateSettlement(ctx, b))
			}
			return repos.Races.MarkFinished(ctx, "r1", "B")
		})
		require.NoError(t, err)

		err = store.ReadOnly(ctx, func(repos *Repositories) error {
			race, err := repos.Races.Get(ctx, "r1")
			require.NoError(t, err)
			assert.True(t, race.IsFinished())
			require.NotNil(t, race.WinningHorseID)
			assert.Equal(t, "B", *race.WinningHorseID)

			winners, err := repos.Bets.WinningBets(ctx, "r1")
			require.NoError(t, err)
			require.Len(t, winners, 1)
			assert.Equal(t, winner.ID, winners[0].ID)
			assert.Equal(t, int64(115), winners[0].Payout)
			require.NotNil(t, winners[0].SettledAt)

			got, err := repos.Bets.Get(ctx, loser.ID)
			require.NoError(t, err)
			assert.Equal(t, models.BetStatusLost, got.Status)
			assert.Zero(t, got.Payout)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("finished race cannot finish again", func(t *testing.T) {
		err := store.WithinTx(ctx, func(repos *Repositories) error {
			return repos.Races.MarkFinished(ctx, "r1", "A")
		})
		assert.ErrorIs(t, err, models.ErrRaceAlreadyFinished)
	})

	t.Run("next scheduled race and due races", func(t *testing.T) {
		err := store.WithinTx(ctx, func(repos *Repositories) error {
			for _, r := range []*models.Race{
				{ID: "r3", Name: "Late", StartTime: start.Add(3 * time.Hour)},
				{ID: "r2", Name: "Early", StartTime: start.Add(time.Hour)},
			} {
				if err := repos.Races.Create(ctx, r); err != nil {
					return err
				}
			}
			return nil
		})
		require.NoError(t, err)

		err = store.ReadOnly(ctx, func(repos *Repositories) error {
			next, err := repos.Races.NextScheduled(ctx)
			require.NoError(t, err)
			assert.Equal(t, "r2", next.ID)

			due, err := repos.Races.DueForSettlement(ctx, start.Add(2*time.Hour))
			require.NoError(t, err)
			require.Len(t, due, 1)
			assert.Equal(t, "r2", due[0].ID)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("duplicate horse rejected", func(t *testing.T) {
		err := store.WithinTx(ctx, func(repos *Repositories) error {
			return repos.Horses.Create(ctx, &models.Horse{ID: "A", Name: "Again"})
		})
		assert.ErrorIs(t, err, models.ErrDuplicateKey)
	})
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreReadOnlyRejectsWrites(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	err := store.ReadOnly(ctx, func(repos *Repositories) error {
		return repos.Horses.Create(ctx, &models.Horse{ID: "A", Name: "Alpha"})
	})
	assert.ErrorIs(t, err, errReadOnly)

	err = store.ReadOnly(ctx, func(repos *Repositories) error {
		n, err := repos.Horses.Count(ctx)
		assert.Zero(t, n)
		return err
	})
	assert.NoError(t, err)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	seedRace(t, store)
	ctx := context.Background()

	err := store.ReadOnly(ctx, func(repos *Repositories) error {
		horse, err := repos.Horses.Get(ctx, "A")
		require.NoError(t, err)
		horse.RacesWon = 99
		return nil
	})
	require.NoError(t, err)

	err = store.ReadOnly(ctx, func(repos *Repositories) error {
		horse, err := repos.Horses.Get(ctx, "A")
		require.NoError(t, err)
		assert.Equal(t, 1, horse.RacesWon)
		return nil
	})
	require.NoError(t, err)
}

func TestMemoryStoreCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := NewMemoryStore().WithinTx(ctx, func(*Repositories) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestPostgresStore(t *testing.T) {
	db := dbtest.SetupTestDB(t)

	store, err := NewPostgresStore(db)
	require.NoError(t, err)

	exerciseStore(t, store)

	t.Run("shared race lock blocks row lock", func(t *testing.T) {
		assertShareBlocksUpdate(t, store)
	})
}

// assertShareBlocksUpdate holds GetForShare open in one transaction and checks
// that GetForUpdate in another only returns once the first has committed.
func assertShareBlocksUpdate(t *testing.T, store *PostgresStore) {
	t.Helper()
	ctx := context.Background()

	err := store.WithinTx(ctx, func(repos *Repositories) error {
		return repos.Races.Create(ctx, &models.Race{ID: "r9", Name: "Nightcap", StartTime: start})
	})
	require.NoError(t, err)

	shared := make(chan struct{})
	release := make(chan struct{})
	sharerDone := make(chan error, 1)
	go func() {
		sharerDone <- store.WithinTx(ctx, func(repos *Repositories) error {
			if _, err := repos.Races.GetForShare(ctx, "r9"); err != nil {
				return err
			}
			close(shared)
			<-release
			return nil
		})
	}()

	select {
	case <-shared:
	case err := <-sharerDone:
		t.Fatalf("shared lock transaction ended early: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for shared lock")
	}

	locked := make(chan error, 1)
	go func() {
		locked <- store.WithinTx(ctx, func(repos *Repositories) error {
			_, err := repos.Races.GetForUpdate(ctx, "r9")
			return err
		})
	}()

	select {
	case err := <-locked:
		t.Fatalf("row lock acquired while shared lock held: %v", err)
	case <-time.After(300 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-sharerDone)

	select {
	case err := <-locked:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("row lock not acquired after shared lock released")
	}
}

func TestMemoryStoreGetForShare(t *testing.T) {
	store := NewMemoryStore()
	seedRace(t, store)
	ctx := context.Background()

	err := store.WithinTx(ctx, func(repos *Repositories) error {
		race, err := repos.Races.GetForShare(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, "Opener", race.Name)

		_, err = repos.Races.GetForShare(ctx, "missing")
		assert.ErrorIs(t, err, models.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestNewPostgresStoreRequiresDB(t *testing.T) {
	_, err := NewPostgresStore(nil)
	assert.Error(t, err)
}
