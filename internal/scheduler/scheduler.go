// Package scheduler settles races automatically once their start time has passed.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/race-settlement/internal/models"
)

// RaceSettler settles a single race
type RaceSettler interface {
	SettleRace(ctx context.Context, raceID string) (*models.SettlementResult, error)
}

// DueRaceFinder lists scheduled races whose start time has passed
type DueRaceFinder interface {
	DueRaces(ctx context.Context, now time.Time) ([]*models.Race, error)
}

// Scheduler manages the auto-settlement job
type Scheduler struct {
	cron            *cron.Cron
	settler         RaceSettler
	finder          DueRaceFinder
	logger          *logrus.Logger
	now             func() time.Time
	mu              sync.RWMutex
	isRunning       bool
	jobIDs          []cron.EntryID
	jobTimeout      time.Duration
	gracefulTimeout time.Duration
}

// NewScheduler creates a new scheduler
func NewScheduler(settler RaceSettler, finder DueRaceFinder, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:            cron.New(cron.WithLocation(time.UTC)),
		settler:         settler,
		finder:          finder,
		logger:          logger,
		now:             time.Now,
		jobIDs:          make([]cron.EntryID, 0),
		jobTimeout:      time.Minute,
		gracefulTimeout: 30 * time.Second,
	}
}

// ScheduleAutoSettlement registers the settlement sweep on a cron spec
func (s *Scheduler) ScheduleAutoSettlement(cronExpression string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	jobFunc := func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
		defer cancel()

		if _, err := s.SettleDueRaces(ctx); err != nil {
			s.logger.WithError(err).Error("Auto-settlement sweep failed")
		}
	}

	entryID, err := s.cron.AddFunc(cronExpression, jobFunc)
	if err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithField("cron", cronExpression).Info("Scheduled auto-settlement job")

	return nil
}

// SettleDueRaces settles every race that is due and returns how many it settled.
// A race finished concurrently by someone else is skipped; other failures are
// logged and the sweep moves on to the next race.
func (s *Scheduler) SettleDueRaces(ctx context.Context) (int, error) {
	races, err := s.finder.DueRaces(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to list due races: %w", err)
	}

	settled := 0
	for _, race := range races {
		if ctx.Err() != nil {
			return settled, ctx.Err()
		}

		result, err := s.settler.SettleRace(ctx, race.ID)
		switch {
		case err == nil:
			settled++
			s.logger.WithFields(logrus.Fields{
				"race_id": race.ID,
				"winner":  result.WinningHorseID,
				"payout":  result.TotalPayout,
			}).Info("Race auto-settled")
		case errors.Is(err, models.ErrRaceAlreadyFinished):
			s.logger.WithField("race_id", race.ID).Debug("Race already settled")
		default:
			s.logger.WithError(err).WithField("race_id", race.ID).Warn("Failed to auto-settle race")
		}
	}

	return settled, nil
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")

	return nil
}

// Stop waits for running jobs to finish, up to the graceful timeout
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	s.isRunning = false
	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-time.After(s.gracefulTimeout):
		return fmt.Errorf("scheduler did not stop within %s", s.gracefulTimeout)
	}
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns the time of the next scheduled sweep
func (s *Scheduler) NextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || len(s.jobIDs) == 0 {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() && (nextRun.IsZero() || entry.Next.Before(nextRun)) {
			nextRun = entry.Next
		}
	}

	return nextRun
}
