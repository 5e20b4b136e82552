package models

import (
	"errors"

	"github.com/yourusername/race-settlement/internal/probability"
)

// Repository errors
var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicateKey = errors.New("duplicate key violation")
)

// Domain errors surfaced to callers
var (
	ErrRaceNotFound        = errors.New("race not found")
	ErrRaceNotScheduled    = errors.New("race is not scheduled")
	ErrRaceAlreadyFinished = errors.New("race already finished")
	ErrBettingClosed       = errors.New("betting is closed for this race")
	ErrHorseNotInRace      = errors.New("horse is not entered in this race")
	ErrHorseNotFound       = errors.New("horse not found")
	ErrBetNotFound         = errors.New("bet not found")
	ErrNoNextRace          = errors.New("no scheduled races")
	ErrNoEntrants          = errors.New("race has no entrants")
	ErrInvalidAmount       = errors.New("bet amount must be a positive integer")
	ErrInvalidUser         = errors.New("user is required")
	ErrStorageFailure      = errors.New("storage failure")

	ErrInvalidProbability = probability.ErrInvalidProbability
	ErrInvalidStatistics  = probability.ErrInvalidStatistics
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrRaceNotFound, "RaceNotFound"},
	{ErrRaceNotScheduled, "RaceNotScheduled"},
	{ErrRaceAlreadyFinished, "RaceAlreadyFinished"},
	{ErrBettingClosed, "BettingClosed"},
	{ErrHorseNotInRace, "HorseNotInRace"},
	{ErrHorseNotFound, "HorseNotFound"},
	{ErrBetNotFound, "BetNotFound"},
	{ErrNoNextRace, "NoNextRace"},
	{ErrNoEntrants, "NoEntrants"},
	{ErrInvalidAmount, "InvalidAmount"},
	{ErrInvalidUser, "InvalidUser"},
	{ErrInvalidProbability, "InvalidProbability"},
	{ErrInvalidStatistics, "InvalidStatistics"},
	{ErrStorageFailure, "StorageFailure"},
}

// ErrorCode returns the stable wire code for a domain error.
// Unknown errors map to StorageFailure.
func ErrorCode(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return "StorageFailure"
}
