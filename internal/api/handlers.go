package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yourusername/race-settlement/internal/service"
)

var endpoints = []string{
	"GET /races/next",
	"POST /bets",
	"GET /bets/:id",
	"POST /races/:id/result",
	"GET /races/:id/results",
	"GET /races/:id/bets",
	"GET /horses/:id/stats",
	"GET /users/:user/bets",
	"GET /ws/results",
}

func (s *Server) index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   "Horse race betting and settlement API",
		"endpoints": endpoints,
	})
}

func (s *Server) nextRace(c *gin.Context) {
	next, err := s.queries.NextScheduledRace(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newNextRaceResponse(next))
}

func (s *Server) placeBet(c *gin.Context) {
	var req PlaceBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "InvalidRequest", err.Error())
		return
	}

	bet, err := s.betting.PlaceBet(c.Request.Context(), service.PlaceBetRequest{
		User:    req.User,
		RaceID:  req.RaceID,
		HorseID: req.HorseID,
		Amount:  req.Amount,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newBetResponse(bet))
}

func (s *Server) getBet(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "InvalidBetID", "bet id must be a UUID")
		return
	}

	bet, err := s.queries.GetBet(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBetResponse(bet))
}

func (s *Server) settleRace(c *gin.Context) {
	result, err := s.settler.SettleRace(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSettlementResponse(result))
}

func (s *Server) raceResults(c *gin.Context) {
	results, err := s.queries.RaceResults(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newRaceResultsResponse(results))
}

func (s *Server) raceBets(c *gin.Context) {
	bets, err := s.queries.ListBets(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBetsResponse(bets))
}

func (s *Server) userBets(c *gin.Context) {
	bets, err := s.queries.UserBets(c.Request.Context(), c.Param("user"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBetsResponse(bets))
}

func (s *Server) horseStats(c *gin.Context) {
	stats, err := s.queries.HorseStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newHorseStatsResponse(stats))
}
