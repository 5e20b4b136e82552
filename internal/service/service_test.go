package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/race-settlement/internal/events"
	"github.com/yourusername/race-settlement/internal/lock"
	"github.com/yourusername/race-settlement/internal/logger"
	"github.com/yourusername/race-settlement/internal/models"
	"github.com/yourusername/race-settlement/internal/repository"
)

var clock = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

// MockRandomSource is a mock implementation of RandomSource
type MockRandomSource struct {
	mock.Mock
}

func (m *MockRandomSource) Float64() float64 {
	return m.Called().Get(0).(float64)
}

type fixedSource float64

func (f fixedSource) Float64() float64 { return float64(f) }

// recordingPublisher captures published events
type recordingPublisher struct {
	mu      sync.Mutex
	bets    []*models.Bet
	results []*models.SettlementResult
	err     error
}

func (p *recordingPublisher) BetPlaced(_ context.Context, bet *models.Bet) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bets = append(p.bets, bet)
	return p.err
}

func (p *recordingPublisher) RaceSettled(_ context.Context, result *models.SettlementResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results = append(p.results, result)
	return p.err
}

type horseFixture struct {
	id       string
	run, won int
	odds     string
}

// newStore builds a memory store with one race r1 starting an hour after clock.
func newStore(t *testing.T, horses ...horseFixture) *repository.MemoryStore {
	t.Helper()
	store := repository.NewMemoryStore()
	seedRace(t, store, horses...)
	return store
}

// seedRace creates race r1 starting an hour after clock with the given entrants.
func seedRace(t *testing.T, store repository.Store, horses ...horseFixture) {
	t.Helper()
	ctx := context.Background()

	err := store.WithinTx(ctx, func(repos *repository.Repositories) error {
		if err := repos.Races.Create(ctx, &models.Race{ID: "r1", Name: "Test Cup", StartTime: clock.Add(time.Hour)}); err != nil {
			return err
		}
		for _, h := range horses {
			if err := repos.Horses.Create(ctx, &models.Horse{ID: h.id, Name: "Horse " + h.id, RacesRun: h.run, RacesWon: h.won}); err != nil {
				return err
			}
			entry := &models.RaceEntry{RaceID: "r1", HorseID: h.id, Odds: decimal.RequireFromString(h.odds)}
			if err := repos.Races.AddEntry(ctx, entry); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func evenPair() []horseFixture {
	return []horseFixture{{id: "A", run: 2, won: 1, odds: "2.0"}, {id: "B", run: 2, won: 1, odds: "2.0"}}
}

func publisherOf(pub *recordingPublisher) events.Publisher {
	if pub == nil {
		return nil
	}
	return pub
}

func newBetting(store repository.Store, locker lock.RaceLocker, pub *recordingPublisher) *BettingService {
	svc := NewBettingService(store, locker, publisherOf(pub), logger.Discard())
	svc.now = func() time.Time { return clock }
	return svc
}

func newEngine(store repository.Store, rng RandomSource, locker lock.RaceLocker, pub *recordingPublisher) *SettlementEngine {
	engine := NewSettlementEngine(store, rng, locker, publisherOf(pub), logger.Discard())
	engine.now = func() time.Time { return clock.Add(2 * time.Hour) }
	return engine
}

func horse(t *testing.T, store repository.Store, id string) *models.Horse {
	t.Helper()
	var h *models.Horse
	err := store.ReadOnly(context.Background(), func(repos *repository.Repositories) error {
		var err error
		h, err = repos.Horses.Get(context.Background(), id)
		return err
	})
	require.NoError(t, err)
	return h
}

func TestDrawWinner(t *testing.T) {
	weights := []float64{0.5, 0.5}

	assert.Equal(t, 0, drawWinner(weights, 0))
	assert.Equal(t, 0, drawWinner(weights, 0.5))
	assert.Equal(t, 1, drawWinner(weights, 0.500001))
	assert.Equal(t, 1, drawWinner(weights, 0.999999))

	assert.Equal(t, 2, drawWinner([]float64{0.1, 0.1, 0.1}, 1), "top of range falls back to the last entry")
}

func TestDrawWinnerFrequencies(t *testing.T) {
	rng := NewRandomSource(42)
	weights := []float64{0.6, 0.3, 0.1}
	counts := make([]int, len(weights))

	const draws = 20000
	for i := 0; i < draws; i++ {
		counts[drawWinner(weights, rng.Float64())]++
	}

	for i, w := range weights {
		assert.InDelta(t, w, float64(counts[i])/draws, 0.02, "entry %d", i)
	}
}

func TestSettleRaceScenario(t *testing.T) {
	store := newStore(t, evenPair()...)
	pub := &recordingPublisher{}
	locker := lock.NewLocalLocker()
	ctx := context.Background()

	betting := newBetting(store, locker, pub)
	onA, err := betting.PlaceBet(ctx, PlaceBetRequest{User: "alice", RaceID: "r1", HorseID: "A", Amount: 100})
	require.NoError(t, err)
	onB, err := betting.PlaceBet(ctx, PlaceBetRequest{User: "bob", RaceID: "r1", HorseID: "B", Amount: 100})
	require.NoError(t, err)

	rng := &MockRandomSource{}
	rng.On("Float64").Return(0.25).Once()

	result, err := newEngine(store, rng, locker, pub).SettleRace(ctx, "r1")
	require.NoError(t, err)
	rng.AssertExpectations(t)

	assert.Equal(t, "r1", result.RaceID)
	assert.Equal(t, models.RaceStatusFinished, result.Status)
	assert.Equal(t, "A", result.WinningHorseID)
	assert.Equal(t, int64(200), result.TotalPayout)
	require.Len(t, result.Payouts, 2)

	payouts := map[uuid.UUID]models.BetPayout{}
	for _, p := range result.Payouts {
		payouts[p.BetID] = p
	}
	assert.Equal(t, models.BetStatusWon, payouts[onA.ID].Status)
	assert.Equal(t, int64(200), payouts[onA.ID].Payout)
	assert.Equal(t, models.BetStatusLost, payouts[onB.ID].Status)
	assert.Zero(t, payouts[onB.ID].Payout)

	a, b := horse(t, store, "A"), horse(t, store, "B")
	assert.Equal(t, 3, a.RacesRun)
	assert.Equal(t, 2, a.RacesWon)
	assert.Equal(t, 3, b.RacesRun)
	assert.Equal(t, 1, b.RacesWon)

	require.Len(t, pub.results, 1)
	assert.Equal(t, "A", pub.results[0].WinningHorseID)
	assert.Len(t, pub.bets, 2)
}

func TestSettleRaceUpdatesEveryEntrant(t *testing.T) {
	horses := []horseFixture{
		{id: "h1", run: 10, won: 2, odds: "5.0"},
		{id: "h2", run: 8, won: 2, odds: "4.0"},
		{id: "h3", run: 12, won: 5, odds: "2.4"},
		{id: "h4", run: 15, won: 0, odds: "15.0"},
		{id: "h5", run: 0, won: 0, odds: "9.0"},
	}

	for _, u := range []float64{0, 0.2, 0.45, 0.7, 0.9, 0.999} {
		store := newStore(t, horses...)
		result, err := newEngine(store, fixedSource(u), nil, nil).SettleRace(context.Background(), "r1")
		require.NoError(t, err)

		wins := 0
		for _, h := range horses {
			after := horse(t, store, h.id)
			assert.Equal(t, h.run+1, after.RacesRun, "u=%v horse=%s", u, h.id)
			switch after.RacesWon - h.won {
			case 1:
				wins++
				assert.Equal(t, result.WinningHorseID, h.id)
			case 0:
			default:
				t.Fatalf("horse %s won count moved by %d", h.id, after.RacesWon-h.won)
			}
		}
		assert.Equal(t, 1, wins, "u=%v", u)
	}
}

func TestSettleRacePayoutsUseExactDecimal(t *testing.T) {
	store := newStore(t,
		horseFixture{id: "A", run: 1, won: 1, odds: "1.15"},
		horseFixture{id: "B", run: 1, won: 0, odds: "7.5"},
	)
	ctx := context.Background()
	betting := newBetting(store, nil, nil)

	amounts := []int64{100, 7, 33}
	for _, amount := range amounts {
		_, err := betting.PlaceBet(ctx, PlaceBetRequest{User: "alice", RaceID: "r1", HorseID: "A", Amount: amount})
		require.NoError(t, err)
	}
	_, err := betting.PlaceBet(ctx, PlaceBetRequest{User: "bob", RaceID: "r1", HorseID: "B", Amount: 50})
	require.NoError(t, err)

	// A weighs 1.0 against B's 0.01, so u=0 selects A
	result, err := newEngine(store, fixedSource(0), nil, nil).SettleRace(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, "A", result.WinningHorseID)

	// floor(100*1.15)=115, floor(7*1.15)=8, floor(33*1.15)=37
	assert.Equal(t, int64(115+8+37), result.TotalPayout)
	assert.Equal(t, 3, result.WinnerCount())
}

func TestSettleRaceTwice(t *testing.T) {
	store := newStore(t, evenPair()...)
	engine := newEngine(store, fixedSource(0.1), nil, nil)
	ctx := context.Background()

	_, err := engine.SettleRace(ctx, "r1")
	require.NoError(t, err)
	before := horse(t, store, "A")

	_, err = engine.SettleRace(ctx, "r1")
	assert.ErrorIs(t, err, models.ErrRaceAlreadyFinished)
	assert.Equal(t, before, horse(t, store, "A"))
}

func TestSettleRaceValidation(t *testing.T) {
	ctx := context.Background()

	_, err := newEngine(newStore(t, evenPair()...), fixedSource(0), nil, nil).SettleRace(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrRaceNotFound)

	_, err = newEngine(newStore(t), fixedSource(0), nil, nil).SettleRace(ctx, "r1")
	assert.ErrorIs(t, err, models.ErrNoEntrants)
}

func TestSettleRaceInvalidStatistics(t *testing.T) {
	store := newStore(t, evenPair()...)
	ctx := context.Background()

	bad := &corruptingStore{MemoryStore: store, horseID: "B"}
	_, err := newEngine(bad, fixedSource(0), nil, nil).SettleRace(ctx, "r1")
	assert.ErrorIs(t, err, models.ErrInvalidStatistics)
	assert.Equal(t, "InvalidStatistics", models.ErrorCode(err))

	race := raceState(t, store)
	assert.True(t, race.IsScheduled())
}

// failingLedger fails UpdateSettlement after the horses and race were written
type failingLedger struct {
	repository.BetLedger
}

func (f failingLedger) UpdateSettlement(context.Context, *models.Bet) error {
	return errors.New("disk full")
}

type failingStore struct {
	*repository.MemoryStore
}

func (s failingStore) WithinTx(ctx context.Context, fn func(*repository.Repositories) error) error {
	return s.MemoryStore.WithinTx(ctx, func(repos *repository.Repositories) error {
		repos.Bets = failingLedger{repos.Bets}
		return fn(repos)
	})
}

// corruptingStore reports races_won > races_run for one horse
type corruptingStore struct {
	*repository.MemoryStore
	horseID string
}

type corruptHorses struct {
	repository.HorseRepository
	horseID string
}

func (c corruptHorses) Get(ctx context.Context, id string) (*models.Horse, error) {
	h, err := c.HorseRepository.Get(ctx, id)
	if err == nil && id == c.horseID {
		h.RacesWon = h.RacesRun + 1
	}
	return h, err
}

func (s *corruptingStore) WithinTx(ctx context.Context, fn func(*repository.Repositories) error) error {
	return s.MemoryStore.WithinTx(ctx, func(repos *repository.Repositories) error {
		repos.Horses = corruptHorses{repos.Horses, s.horseID}
		return fn(repos)
	})
}

func raceState(t *testing.T, store repository.Store) *models.Race {
	t.Helper()
	var race *models.Race
	err := store.ReadOnly(context.Background(), func(repos *repository.Repositories) error {
		var err error
		race, err = repos.Races.Get(context.Background(), "r1")
		return err
	})
	require.NoError(t, err)
	return race
}

func TestSettleRaceRollsBackOnStorageFailure(t *testing.T) {
	store := newStore(t, evenPair()...)
	ctx := context.Background()

	bet, err := newBetting(store, nil, nil).PlaceBet(ctx, PlaceBetRequest{User: "alice", RaceID: "r1", HorseID: "A", Amount: 100})
	require.NoError(t, err)

	pub := &recordingPublisher{}
	_, err = newEngine(failingStore{store}, fixedSource(0), nil, pub).SettleRace(ctx, "r1")
	require.ErrorIs(t, err, models.ErrStorageFailure)
	assert.Equal(t, "StorageFailure", models.ErrorCode(err))
	assert.Empty(t, pub.results, "nothing is published for a failed settlement")

	assert.True(t, raceState(t, store).IsScheduled())
	a := horse(t, store, "A")
	assert.Equal(t, 2, a.RacesRun)
	assert.Equal(t, 1, a.RacesWon)

	got, err := NewQueryService(store, 0).GetBet(ctx, bet.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPending())
}

func TestSettleRaceConcurrent(t *testing.T) {
	store := newStore(t, evenPair()...)
	engine := newEngine(store, NewRandomSource(7), lock.NewLocalLocker(), nil)
	ctx := context.Background()

	const workers = 10
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.SettleRace(ctx, "r1")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, models.ErrRaceAlreadyFinished)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 3, horse(t, store, "A").RacesRun)
}

func TestSettleRaceLosingBet(t *testing.T) {
	store := newStore(t, evenPair()...)
	ctx := context.Background()

	_, err := newBetting(store, nil, nil).PlaceBet(ctx, PlaceBetRequest{User: "alice", RaceID: "r1", HorseID: "A", Amount: 10})
	require.NoError(t, err)

	result, err := newEngine(store, fixedSource(0.9), nil, nil).SettleRace(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "B", result.WinningHorseID)
	require.Len(t, result.Payouts, 1)
	assert.Equal(t, models.BetStatusLost, result.Payouts[0].Status)
}

func TestPlaceBet(t *testing.T) {
	store := newStore(t, evenPair()...)
	pub := &recordingPublisher{}
	svc := newBetting(store, nil, pub)
	ctx := context.Background()

	bet, err := svc.PlaceBet(ctx, PlaceBetRequest{User: "  alice ", RaceID: "r1", HorseID: "B", Amount: 25})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, bet.ID)
	assert.Equal(t, "alice", bet.User)
	assert.Equal(t, models.BetStatusPending, bet.Status)
	assert.True(t, bet.Odds.Equal(decimal.RequireFromString("2.0")))
	assert.Equal(t, clock, bet.CreatedAt)
	assert.Nil(t, bet.SettledAt)
	require.Len(t, pub.bets, 1)

	stored, err := NewQueryService(store, 0).GetBet(ctx, bet.ID)
	require.NoError(t, err)
	assert.Equal(t, bet.ID, stored.ID)
}

func TestPlaceBetRejections(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		req     PlaceBetRequest
		now     time.Time
		settled bool
		want    error
	}{
		{name: "unknown race", req: PlaceBetRequest{User: "u", RaceID: "nope", HorseID: "A", Amount: 1}, want: models.ErrRaceNotFound},
		{name: "finished race", req: PlaceBetRequest{User: "u", RaceID: "r1", HorseID: "A", Amount: 1}, settled: true, want: models.ErrRaceNotScheduled},
		{name: "after start", req: PlaceBetRequest{User: "u", RaceID: "r1", HorseID: "A", Amount: 1}, now: clock.Add(time.Hour), want: models.ErrBettingClosed},
		{name: "non entrant", req: PlaceBetRequest{User: "u", RaceID: "r1", HorseID: "Z", Amount: 1}, want: models.ErrHorseNotInRace},
		{name: "zero amount", req: PlaceBetRequest{User: "u", RaceID: "r1", HorseID: "A", Amount: 0}, want: models.ErrInvalidAmount},
		{name: "negative amount", req: PlaceBetRequest{User: "u", RaceID: "r1", HorseID: "A", Amount: -5}, want: models.ErrInvalidAmount},
		{name: "blank user", req: PlaceBetRequest{User: "   ", RaceID: "r1", HorseID: "A", Amount: 5}, want: models.ErrInvalidUser},
		{name: "closed wins over bad horse", req: PlaceBetRequest{User: "u", RaceID: "r1", HorseID: "Z", Amount: 1}, now: clock.Add(2 * time.Hour), want: models.ErrBettingClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newStore(t, evenPair()...)
			if tt.settled {
				_, err := newEngine(store, fixedSource(0), nil, nil).SettleRace(ctx, "r1")
				require.NoError(t, err)
			}

			pub := &recordingPublisher{}
			svc := newBetting(store, nil, pub)
			if !tt.now.IsZero() {
				svc.now = func() time.Time { return tt.now }
			}

			_, err := svc.PlaceBet(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, pub.bets)

			bets, err := NewQueryService(store, 0).ListBets(ctx, "r1")
			require.NoError(t, err)
			assert.Empty(t, bets)
		})
	}
}

func TestPublishFailureDoesNotFailCommittedWork(t *testing.T) {
	store := newStore(t, evenPair()...)
	pub := &recordingPublisher{err: errors.New("broker down")}
	ctx := context.Background()

	_, err := newBetting(store, nil, pub).PlaceBet(ctx, PlaceBetRequest{User: "alice", RaceID: "r1", HorseID: "A", Amount: 10})
	require.NoError(t, err)

	_, err = newEngine(store, fixedSource(0), nil, pub).SettleRace(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, raceState(t, store).IsFinished())
}
