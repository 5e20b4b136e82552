// Package logger provides audit logging.
package logger

import (
	"github.com/sirupsen/logrus"

	"github.com/yourusername/race-settlement/internal/models"
)

// AuditLogger provides dedicated audit trail logging for wagers and settlements.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogBetPlacement logs an accepted wager.
func (al *AuditLogger) LogBetPlacement(bet *models.Bet) {
	al.WithFields(logrus.Fields{
		"bet_id":     bet.ID.String(),
		"user":       bet.User,
		"race_id":    bet.RaceID,
		"horse_id":   bet.HorseID,
		"amount":     bet.Amount,
		"odds":       bet.Odds.String(),
		"created_at": bet.CreatedAt.Unix(),
	}).Info("Bet placement recorded")
}

// LogBetRejected logs a wager refused by validation.
func (al *AuditLogger) LogBetRejected(user, raceID, horseID string, amount int64, reason error) {
	al.WithFields(logrus.Fields{
		"user":     user,
		"race_id":  raceID,
		"horse_id": horseID,
		"amount":   amount,
		"reason":   models.ErrorCode(reason),
	}).Warn("Bet placement rejected")
}

// LogRaceSettlement logs a committed settlement with its manifest totals.
func (al *AuditLogger) LogRaceSettlement(result *models.SettlementResult) {
	al.WithFields(logrus.Fields{
		"race_id":          result.RaceID,
		"winning_horse_id": result.WinningHorseID,
		"bets_settled":     len(result.Payouts),
		"winning_bets":     result.WinnerCount(),
		"total_payout":     result.TotalPayout,
		"settled_at":       result.SettledAt.Unix(),
	}).Info("Race settlement recorded")
}

// LogSettlementFailure logs a settlement attempt that was rolled back or refused.
func (al *AuditLogger) LogSettlementFailure(raceID string, err error) {
	al.WithFields(logrus.Fields{
		"race_id": raceID,
		"reason":  models.ErrorCode(err),
		"error":   err.Error(),
	}).Warn("Race settlement not applied")
}
