// Package api exposes the betting and settlement services over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/race-settlement/internal/health"
	"github.com/yourusername/race-settlement/internal/metrics"
	"github.com/yourusername/race-settlement/internal/models"
	"github.com/yourusername/race-settlement/internal/service"
)

// BetPlacer places wagers
type BetPlacer interface {
	PlaceBet(ctx context.Context, req service.PlaceBetRequest) (*models.Bet, error)
}

// RaceSettler settles races
type RaceSettler interface {
	SettleRace(ctx context.Context, raceID string) (*models.SettlementResult, error)
}

// Queries answers read-only requests
type Queries interface {
	NextScheduledRace(ctx context.Context) (*models.NextRace, error)
	RaceResults(ctx context.Context, raceID string) (*models.RaceResults, error)
	HorseStats(ctx context.Context, horseID string) (*models.HorseStats, error)
	ListBets(ctx context.Context, raceID string) ([]*models.Bet, error)
	UserBets(ctx context.Context, user string) ([]*models.Bet, error)
	GetBet(ctx context.Context, id uuid.UUID) (*models.Bet, error)
}

// Options configures the HTTP server
type Options struct {
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	BetRateLimit   float64
	BetRateBurst   int
	MetricsEnabled bool
	MetricsPath    string
}

// Server is the HTTP front end
type Server struct {
	betting  BetPlacer
	settler  RaceSettler
	queries  Queries
	health   *health.Checker
	liveFeed gin.HandlerFunc
	logger   *logrus.Logger
	opts     Options
	router   *gin.Engine
	server   *http.Server
}

// NewServer wires the routes. liveFeed may be nil to disable the websocket endpoint.
func NewServer(
	betting BetPlacer,
	settler RaceSettler,
	queries Queries,
	checker *health.Checker,
	liveFeed gin.HandlerFunc,
	logger *logrus.Logger,
	opts Options,
) *Server {
	s := &Server{
		betting:  betting,
		settler:  settler,
		queries:  queries,
		health:   checker,
		liveFeed: liveFeed,
		logger:   logger,
		opts:     opts,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger), requestMetrics())

	r.GET("/", s.index)
	if s.health != nil {
		s.health.Register(r)
	}
	if s.opts.MetricsEnabled {
		r.GET(s.opts.MetricsPath, gin.WrapH(metrics.Handler()))
	}
	if s.liveFeed != nil {
		r.GET("/ws/results", s.liveFeed)
	}

	r.GET("/races/next", s.nextRace)
	r.POST("/races/:id/result", s.settleRace)
	r.GET("/races/:id/results", s.raceResults)
	r.GET("/races/:id/bets", s.raceBets)
	r.GET("/horses/:id/stats", s.horseStats)
	r.GET("/users/:user/bets", s.userBets)
	r.GET("/bets/:id", s.getBet)

	limiter := newClientLimiter(s.opts.BetRateLimit, s.opts.BetRateBurst, limiterIdleTTL)
	r.POST("/bets", limiter.middleware(), s.placeBet)

	return r
}

// Handler returns the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.opts.Port),
		Handler:      s.router,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("port", s.opts.Port).Info("HTTP server starting")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("HTTP server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
