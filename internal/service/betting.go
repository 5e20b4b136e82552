package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/race-settlement/internal/events"
	"github.com/yourusername/race-settlement/internal/lock"
	"github.com/yourusername/race-settlement/internal/logger"
	"github.com/yourusername/race-settlement/internal/metrics"
	"github.com/yourusername/race-settlement/internal/models"
	"github.com/yourusername/race-settlement/internal/repository"
)

// PlaceBetRequest describes a wager to be placed
type PlaceBetRequest struct {
	User    string
	RaceID  string
	HorseID string
	Amount  int64
}

// BettingService accepts wagers on scheduled races
type BettingService struct {
	store     repository.Store
	locker    lock.RaceLocker
	publisher events.Publisher
	audit     *logger.AuditLogger
	logger    *logrus.Logger
	now       func() time.Time
}

// NewBettingService creates a new betting service. The locker must be the
// same one the settlement engine uses.
func NewBettingService(
	store repository.Store,
	locker lock.RaceLocker,
	publisher events.Publisher,
	log *logrus.Logger,
) *BettingService {
	if log == nil {
		log = logger.Discard()
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	if locker == nil {
		locker = lock.NewLocalLocker()
	}

	return &BettingService{
		store:     store,
		locker:    locker,
		publisher: publisher,
		audit:     logger.NewAuditLogger(log),
		logger:    log,
		now:       time.Now,
	}
}

// PlaceBet validates the request against the race and records a pending bet
// at the entry's odds.
func (s *BettingService) PlaceBet(ctx context.Context, req PlaceBetRequest) (*models.Bet, error) {
	start := time.Now()
	req.User = strings.TrimSpace(req.User)

	bet, err := s.placeBet(ctx, req)
	if err != nil {
		metrics.RecordBetRejected(models.ErrorCode(err))
		s.audit.LogBetRejected(req.User, req.RaceID, req.HorseID, req.Amount, err)
		return nil, err
	}

	metrics.RecordBetPlaced(time.Since(start).Seconds())
	s.audit.LogBetPlacement(bet)

	if err := s.publisher.BetPlaced(ctx, bet); err != nil {
		metrics.RecordPublishFailure(events.TypeBetPlaced)
		s.logger.WithError(err).WithField("bet_id", bet.ID).Warn("Failed to publish bet")
	}

	return bet, nil
}

func (s *BettingService) placeBet(ctx context.Context, req PlaceBetRequest) (*models.Bet, error) {
	release, err := s.locker.Lock(ctx, req.RaceID)
	if err != nil {
		return nil, storageFailure("lock race", err)
	}
	defer release()

	var bet *models.Bet
	err = s.store.WithinTx(ctx, func(repos *repository.Repositories) error {
		// Settlement takes FOR UPDATE on the same row, so a bet either commits
		// before the bet set is read or sees the race finished.
		race, err := repos.Races.GetForShare(ctx, req.RaceID)
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("%w: %s", models.ErrRaceNotFound, req.RaceID)
		}
		if err != nil {
			return storageFailure("load race", err)
		}
		if !race.IsScheduled() {
			return fmt.Errorf("%w: %s", models.ErrRaceNotScheduled, req.RaceID)
		}

		now := s.now().UTC()
		if !race.AcceptsBetsAt(now) {
			return fmt.Errorf("%w: %s started at %s", models.ErrBettingClosed, race.ID, race.StartTime.Format(time.RFC3339))
		}

		entry, err := repos.Races.Entry(ctx, req.RaceID, req.HorseID)
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("%w: horse %s, race %s", models.ErrHorseNotInRace, req.HorseID, req.RaceID)
		}
		if err != nil {
			return storageFailure("load entry", err)
		}

		if req.Amount <= 0 {
			return fmt.Errorf("%w: got %d", models.ErrInvalidAmount, req.Amount)
		}
		if req.User == "" {
			return models.ErrInvalidUser
		}

		bet = &models.Bet{
			ID:        uuid.New(),
			User:      req.User,
			RaceID:    req.RaceID,
			HorseID:   req.HorseID,
			Amount:    req.Amount,
			Odds:      entry.Odds,
			Status:    models.BetStatusPending,
			CreatedAt: now,
		}
		if err := repos.Bets.Insert(ctx, bet); err != nil {
			return storageFailure("insert bet", err)
		}
		return nil
	})
	if err != nil {
		return nil, storageFailure("place bet", err)
	}
	return bet, nil
}
