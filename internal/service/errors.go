package service

import (
	"errors"
	"fmt"

	"github.com/yourusername/race-settlement/internal/models"
)

// domainErrors pass through unchanged; anything else is a storage failure.
var domainErrors = []error{
	models.ErrRaceNotFound,
	models.ErrRaceNotScheduled,
	models.ErrRaceAlreadyFinished,
	models.ErrBettingClosed,
	models.ErrHorseNotInRace,
	models.ErrHorseNotFound,
	models.ErrBetNotFound,
	models.ErrNoNextRace,
	models.ErrNoEntrants,
	models.ErrInvalidAmount,
	models.ErrInvalidUser,
	models.ErrInvalidProbability,
	models.ErrInvalidStatistics,
	models.ErrStorageFailure,
}

func isDomainError(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func storageFailure(op string, err error) error {
	if err == nil || isDomainError(err) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", models.ErrStorageFailure, op, err)
}
