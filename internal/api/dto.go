package api

import (
	"time"

	"github.com/yourusername/race-settlement/internal/models"
)

// PlaceBetRequest is the body of POST /bets
type PlaceBetRequest struct {
	User    string `json:"user"`
	RaceID  string `json:"raceId" binding:"required"`
	HorseID string `json:"horseId" binding:"required"`
	Amount  int64  `json:"amount"`
}

type entryResponse struct {
	HorseID string  `json:"horseId"`
	Name    string  `json:"name"`
	Odds    float64 `json:"odds"`
}

type nextRaceResponse struct {
	RaceID    string          `json:"raceId"`
	Name      string          `json:"name"`
	StartTime time.Time       `json:"startTime"`
	Status    string          `json:"status"`
	Entries   []entryResponse `json:"entries"`
}

func newNextRaceResponse(next *models.NextRace) nextRaceResponse {
	resp := nextRaceResponse{
		RaceID:    next.Race.ID,
		Name:      next.Race.Name,
		StartTime: next.Race.StartTime,
		Status:    string(next.Race.Status),
		Entries:   make([]entryResponse, 0, len(next.Entries)),
	}
	for _, e := range next.Entries {
		resp.Entries = append(resp.Entries, entryResponse{
			HorseID: e.HorseID,
			Name:    e.HorseName,
			Odds:    e.Odds.InexactFloat64(),
		})
	}
	return resp
}

type betResponse struct {
	BetID     string     `json:"betId"`
	User      string     `json:"user"`
	RaceID    string     `json:"raceId"`
	HorseID   string     `json:"horseId"`
	Amount    int64      `json:"amount"`
	Odds      float64    `json:"odds"`
	Status    string     `json:"status"`
	Payout    int64      `json:"payout"`
	CreatedAt time.Time  `json:"createdAt"`
	SettledAt *time.Time `json:"settledAt,omitempty"`
}

func newBetResponse(b *models.Bet) betResponse {
	return betResponse{
		BetID:     b.ID.String(),
		User:      b.User,
		RaceID:    b.RaceID,
		HorseID:   b.HorseID,
		Amount:    b.Amount,
		Odds:      b.Odds.InexactFloat64(),
		Status:    string(b.Status),
		Payout:    b.Payout,
		CreatedAt: b.CreatedAt,
		SettledAt: b.SettledAt,
	}
}

func newBetsResponse(bets []*models.Bet) []betResponse {
	out := make([]betResponse, 0, len(bets))
	for _, b := range bets {
		out = append(out, newBetResponse(b))
	}
	return out
}

type payoutResponse struct {
	BetID   string  `json:"betId"`
	User    string  `json:"user"`
	HorseID string  `json:"horseId"`
	Amount  int64   `json:"amount"`
	Odds    float64 `json:"odds"`
	Status  string  `json:"status"`
	Payout  int64   `json:"payout"`
}

type settlementResponse struct {
	RaceID         string           `json:"raceId"`
	Status         string           `json:"status"`
	WinningHorseID string           `json:"winningHorseId"`
	TotalPayout    int64            `json:"totalPayout"`
	Payouts        []payoutResponse `json:"payouts"`
}

func newSettlementResponse(r *models.SettlementResult) settlementResponse {
	resp := settlementResponse{
		RaceID:         r.RaceID,
		Status:         string(r.Status),
		WinningHorseID: r.WinningHorseID,
		TotalPayout:    r.TotalPayout,
		Payouts:        make([]payoutResponse, 0, len(r.Payouts)),
	}
	for _, p := range r.Payouts {
		resp.Payouts = append(resp.Payouts, payoutResponse{
			BetID:   p.BetID.String(),
			User:    p.User,
			HorseID: p.HorseID,
			Amount:  p.Amount,
			Odds:    p.Odds.InexactFloat64(),
			Status:  string(p.Status),
			Payout:  p.Payout,
		})
	}
	return resp
}

type winnerResponse struct {
	BetID     string  `json:"betId"`
	User      string  `json:"user"`
	Amount    int64   `json:"amount"`
	OddsAtBet float64 `json:"oddsAtBet"`
	Payout    int64   `json:"payout"`
}

type raceResultsResponse struct {
	RaceID         string           `json:"raceId"`
	Status         string           `json:"status"`
	WinningHorseID *string          `json:"winningHorseId"`
	Winners        []winnerResponse `json:"winners"`
}

func newRaceResultsResponse(r *models.RaceResults) raceResultsResponse {
	resp := raceResultsResponse{
		RaceID:         r.RaceID,
		Status:         string(r.Status),
		WinningHorseID: r.WinningHorseID,
		Winners:        make([]winnerResponse, 0, len(r.Winners)),
	}
	for _, b := range r.Winners {
		resp.Winners = append(resp.Winners, winnerResponse{
			BetID:     b.ID.String(),
			User:      b.User,
			Amount:    b.Amount,
			OddsAtBet: b.Odds.InexactFloat64(),
			Payout:    b.Payout,
		})
	}
	return resp
}

type horseStatsResponse struct {
	HorseID        string  `json:"horseId"`
	Name           string  `json:"name"`
	RacesRun       int     `json:"racesRun"`
	RacesWon       int     `json:"racesWon"`
	WinProbability float64 `json:"winProbability"`
	SuggestedOdds  float64 `json:"suggestedOdds"`
}

func newHorseStatsResponse(s *models.HorseStats) horseStatsResponse {
	return horseStatsResponse{
		HorseID:        s.Horse.ID,
		Name:           s.Horse.Name,
		RacesRun:       s.Horse.RacesRun,
		RacesWon:       s.Horse.RacesWon,
		WinProbability: s.WinProbability,
		SuggestedOdds:  s.SuggestedOdds,
	}
}
