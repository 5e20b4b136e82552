package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/race-settlement/internal/events"
	"github.com/yourusername/race-settlement/internal/lock"
	"github.com/yourusername/race-settlement/internal/logger"
	"github.com/yourusername/race-settlement/internal/metrics"
	"github.com/yourusername/race-settlement/internal/models"
	"github.com/yourusername/race-settlement/internal/repository"
)

// SettlementEngine draws race winners and settles every bet on the race atomically
type SettlementEngine struct {
	store     repository.Store
	rng       RandomSource
	locker    lock.RaceLocker
	publisher events.Publisher
	audit     *logger.AuditLogger
	logger    *logrus.Logger
	now       func() time.Time
}

// NewSettlementEngine creates a new settlement engine
func NewSettlementEngine(
	store repository.Store,
	rng RandomSource,
	locker lock.RaceLocker,
	publisher events.Publisher,
	log *logrus.Logger,
) *SettlementEngine {
	if log == nil {
		log = logger.Discard()
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	if locker == nil {
		locker = lock.NewLocalLocker()
	}

	return &SettlementEngine{
		store:     store,
		rng:       rng,
		locker:    locker,
		publisher: publisher,
		audit:     logger.NewAuditLogger(log),
		logger:    log,
		now:       time.Now,
	}
}

// SettleRace draws a winner for a scheduled race, updates every entrant's
// record, finishes the race and settles its pending bets in one unit of work.
func (e *SettlementEngine) SettleRace(ctx context.Context, raceID string) (*models.SettlementResult, error) {
	start := time.Now()

	release, err := e.locker.Lock(ctx, raceID)
	if err != nil {
		return nil, e.fail(raceID, storageFailure("lock race", err))
	}
	defer release()

	var result *models.SettlementResult
	err = e.store.WithinTx(ctx, func(repos *repository.Repositories) error {
		var err error
		result, err = e.settle(ctx, repos, raceID)
		return err
	})
	if err != nil {
		return nil, e.fail(raceID, storageFailure("settle race", err))
	}

	won := result.WinnerCount()
	metrics.RecordRaceSettled(time.Since(start).Seconds(), won, len(result.Payouts)-won, result.TotalPayout)
	e.audit.LogRaceSettlement(result)

	if err := e.publisher.RaceSettled(ctx, result); err != nil {
		metrics.RecordPublishFailure(events.TypeRaceSettled)
		e.logger.WithError(err).WithField("race_id", raceID).Warn("Failed to publish settlement")
	}

	return result, nil
}

func (e *SettlementEngine) fail(raceID string, err error) error {
	metrics.RecordSettlementFailure(models.ErrorCode(err))
	e.audit.LogSettlementFailure(raceID, err)
	return err
}

func (e *SettlementEngine) settle(ctx context.Context, repos *repository.Repositories, raceID string) (*models.SettlementResult, error) {
	race, err := repos.Races.GetForUpdate(ctx, raceID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", models.ErrRaceNotFound, raceID)
	}
	if err != nil {
		return nil, storageFailure("load race", err)
	}
	if !race.IsScheduled() {
		return nil, fmt.Errorf("%w: %s", models.ErrRaceAlreadyFinished, raceID)
	}

	entries, err := repos.Races.EntriesFor(ctx, raceID)
	if err != nil {
		return nil, storageFailure("load entries", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrNoEntrants, raceID)
	}

	horses := make([]*models.Horse, len(entries))
	weights := make([]float64, len(entries))
	for i, entry := range entries {
		horse, err := repos.Horses.Get(ctx, entry.HorseID)
		if err != nil {
			return nil, storageFailure("load entrant "+entry.HorseID, err)
		}
		p, err := horse.WinProbability()
		if err != nil {
			return nil, fmt.Errorf("horse %s: %w", horse.ID, err)
		}
		horses[i] = horse
		weights[i] = p
	}

	winner := horses[drawWinner(weights, e.rng.Float64())]

	for _, horse := range horses {
		racesRun, racesWon := horse.AfterRace(horse.ID == winner.ID)
		if err := repos.Horses.Update(ctx, horse.ID, racesRun, racesWon); err != nil {
			return nil, storageFailure("update horse "+horse.ID, err)
		}
	}

	if err := repos.Races.MarkFinished(ctx, raceID, winner.ID); err != nil {
		if errors.Is(err, models.ErrRaceAlreadyFinished) {
			return nil, fmt.Errorf("%w: %s", models.ErrRaceAlreadyFinished, raceID)
		}
		return nil, storageFailure("finish race", err)
	}

	bets, err := repos.Bets.BetsForRace(ctx, raceID)
	if err != nil {
		return nil, storageFailure("load bets", err)
	}

	settledAt := e.now().UTC()
	result := &models.SettlementResult{
		RaceID:         raceID,
		Status:         models.RaceStatusFinished,
		WinningHorseID: winner.ID,
		Payouts:        make([]models.BetPayout, 0, len(bets)),
		SettledAt:      settledAt,
	}

	for _, bet := range bets {
		if !bet.IsPending() {
			continue
		}
		bet.Settle(winner.ID, settledAt)
		if err := repos.Bets.UpdateSettlement(ctx, bet); err != nil {
			return nil, storageFailure("settle bet "+bet.ID.String(), err)
		}
		result.Payouts = append(result.Payouts, models.BetPayout{
			BetID:   bet.ID,
			User:    bet.User,
			HorseID: bet.HorseID,
			Amount:  bet.Amount,
			Odds:    bet.Odds,
			Status:  bet.Status,
			Payout:  bet.Payout,
		})
		result.TotalPayout += bet.Payout
	}

	e.logger.WithFields(logrus.Fields{
		"race_id":      raceID,
		"winner":       winner.ID,
		"entrants":     len(entries),
		"bets_settled": len(result.Payouts),
	}).Debug("Race drawn")

	return result, nil
}
