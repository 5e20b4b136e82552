package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/yourusername/race-settlement/internal/models"
	"github.com/yourusername/race-settlement/internal/probability"
	"github.com/yourusername/race-settlement/internal/repository"
)

const (
	cacheKeyNextRace  = "next-race"
	cacheKeyHorseStat = "horse-stats:"
)

// QueryService answers read-only questions about races, horses and bets.
// Next-race and horse-stat answers are cached until the next settlement.
type QueryService struct {
	store repository.Store
	cache *gocache.Cache
}

// NewQueryService creates a query service. A zero ttl disables caching.
func NewQueryService(store repository.Store, ttl time.Duration) *QueryService {
	q := &QueryService{store: store}
	if ttl > 0 {
		q.cache = gocache.New(ttl, 2*ttl)
	}
	return q
}

func (q *QueryService) cached(key string) (any, bool) {
	if q.cache == nil {
		return nil, false
	}
	return q.cache.Get(key)
}

func (q *QueryService) remember(key string, value any) {
	if q.cache != nil {
		q.cache.SetDefault(key, value)
	}
}

// Invalidate drops every cached answer
func (q *QueryService) Invalidate() {
	if q.cache != nil {
		q.cache.Flush()
	}
}

// BetPlaced is a no-op; bets do not affect cached answers.
func (q *QueryService) BetPlaced(context.Context, *models.Bet) error {
	return nil
}

// RaceSettled invalidates the cache since horse records and the next race changed.
func (q *QueryService) RaceSettled(context.Context, *models.SettlementResult) error {
	q.Invalidate()
	return nil
}

// NextScheduledRace returns the scheduled race with the earliest start and its entrants
func (q *QueryService) NextScheduledRace(ctx context.Context) (*models.NextRace, error) {
	if v, ok := q.cached(cacheKeyNextRace); ok {
		return v.(*models.NextRace), nil
	}

	var next *models.NextRace
	err := q.store.ReadOnly(ctx, func(repos *repository.Repositories) error {
		race, err := repos.Races.NextScheduled(ctx)
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNoNextRace
		}
		if err != nil {
			return storageFailure("load next race", err)
		}

		entries, err := repos.Races.EntriesFor(ctx, race.ID)
		if err != nil {
			return storageFailure("load entries", err)
		}
		next = &models.NextRace{Race: race, Entries: entries}
		return nil
	})
	if err != nil {
		return nil, storageFailure("next race", err)
	}

	q.remember(cacheKeyNextRace, next)
	return next, nil
}

// RaceResults returns a race's status, winner and winning bets
func (q *QueryService) RaceResults(ctx context.Context, raceID string) (*models.RaceResults, error) {
	var results *models.RaceResults
	err := q.store.ReadOnly(ctx, func(repos *repository.Repositories) error {
		race, err := repos.Races.Get(ctx, raceID)
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("%w: %s", models.ErrRaceNotFound, raceID)
		}
		if err != nil {
			return storageFailure("load race", err)
		}

		winners, err := repos.Bets.WinningBets(ctx, raceID)
		if err != nil {
			return storageFailure("load winning bets", err)
		}
		if winners == nil {
			winners = []*models.Bet{}
		}

		results = &models.RaceResults{
			RaceID:         race.ID,
			Status:         race.Status,
			WinningHorseID: race.WinningHorseID,
			Winners:        winners,
		}
		return nil
	})
	if err != nil {
		return nil, storageFailure("race results", err)
	}
	return results, nil
}

// HorseStats returns a horse's record with its win probability and fair odds
func (q *QueryService) HorseStats(ctx context.Context, horseID string) (*models.HorseStats, error) {
	key := cacheKeyHorseStat + horseID
	if v, ok := q.cached(key); ok {
		return v.(*models.HorseStats), nil
	}

	var horse *models.Horse
	err := q.store.ReadOnly(ctx, func(repos *repository.Repositories) error {
		var err error
		horse, err = repos.Horses.Get(ctx, horseID)
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("%w: %s", models.ErrHorseNotFound, horseID)
		}
		return err
	})
	if err != nil {
		return nil, storageFailure("horse stats", err)
	}

	p, err := horse.WinProbability()
	if err != nil {
		return nil, fmt.Errorf("horse %s: %w", horseID, err)
	}
	odds, err := probability.SuggestedOdds(p)
	if err != nil {
		return nil, fmt.Errorf("horse %s: %w", horseID, err)
	}

	stats := &models.HorseStats{Horse: horse, WinProbability: p, SuggestedOdds: odds}
	q.remember(key, stats)
	return stats, nil
}

// ListBets returns every bet on a race in placement order
func (q *QueryService) ListBets(ctx context.Context, raceID string) ([]*models.Bet, error) {
	var bets []*models.Bet
	err := q.store.ReadOnly(ctx, func(repos *repository.Repositories) error {
		if _, err := repos.Races.Get(ctx, raceID); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return fmt.Errorf("%w: %s", models.ErrRaceNotFound, raceID)
			}
			return err
		}
		var err error
		bets, err = repos.Bets.BetsForRace(ctx, raceID)
		return err
	})
	if err != nil {
		return nil, storageFailure("list bets", err)
	}
	if bets == nil {
		bets = []*models.Bet{}
	}
	return bets, nil
}

// UserBets returns a user's bets, newest first
func (q *QueryService) UserBets(ctx context.Context, user string) ([]*models.Bet, error) {
	if user == "" {
		return nil, models.ErrInvalidUser
	}

	var bets []*models.Bet
	err := q.store.ReadOnly(ctx, func(repos *repository.Repositories) error {
		var err error
		bets, err = repos.Bets.ForUser(ctx, user)
		return err
	})
	if err != nil {
		return nil, storageFailure("user bets", err)
	}
	if bets == nil {
		bets = []*models.Bet{}
	}
	return bets, nil
}

// GetBet returns a single bet
func (q *QueryService) GetBet(ctx context.Context, id uuid.UUID) (*models.Bet, error) {
	var bet *models.Bet
	err := q.store.ReadOnly(ctx, func(repos *repository.Repositories) error {
		var err error
		bet, err = repos.Bets.Get(ctx, id)
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("%w: %s", models.ErrBetNotFound, id)
		}
		return err
	})
	if err != nil {
		return nil, storageFailure("get bet", err)
	}
	return bet, nil
}

// DueRaces returns scheduled races whose start time is at or before now
func (q *QueryService) DueRaces(ctx context.Context, now time.Time) ([]*models.Race, error) {
	var races []*models.Race
	err := q.store.ReadOnly(ctx, func(repos *repository.Repositories) error {
		var err error
		races, err = repos.Races.DueForSettlement(ctx, now)
		return err
	})
	if err != nil {
		return nil, storageFailure("due races", err)
	}
	return races, nil
}
