package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/race-settlement/internal/config"
	"github.com/yourusername/race-settlement/internal/database"
	"github.com/yourusername/race-settlement/internal/events"
	"github.com/yourusername/race-settlement/internal/health"
	"github.com/yourusername/race-settlement/internal/lock"
	"github.com/yourusername/race-settlement/internal/repository"
	"github.com/yourusername/race-settlement/internal/service"
)

// app holds the wired services and the resources that must be closed on exit
type app struct {
	store   repository.Store
	locker  lock.RaceLocker
	hub     *events.Hub
	queries *service.QueryService
	betting *service.BettingService
	engine  *service.SettlementEngine
	checker *health.Checker
	closers []func() error
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func newApp(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*app, error) {
	a := &app{checker: health.NewChecker(cfg.App.Name, Version, log)}

	store, err := newStore(ctx, cfg, log, a)
	if err != nil {
		return nil, err
	}
	a.store = store
	a.checker.AddDependency("store", store)

	a.locker = lock.NewLocalLocker()
	if cfg.Redis.Enabled {
		client, err := lock.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		a.checker.AddDependency("redis", redisPinger{client})
		a.locker = lock.NewRedisLocker(client, cfg.Settlement.LockTTL(), cfg.Settlement.LockWait(), log)
		log.WithField("addr", cfg.Redis.Addr).Info("Using Redis race locks")
	}

	a.queries = service.NewQueryService(store, cfg.Cache.TTL())
	a.hub = events.NewHub(log)
	publishers := events.Fanout{a.queries, a.hub}

	if cfg.Kafka.Enabled {
		kp, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.BetPlacedTopic, cfg.Kafka.RaceSettledTopic, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, kp.Close)
		publishers = append(publishers, kp)
		log.WithField("brokers", cfg.Kafka.Brokers).Info("Publishing events to Kafka")
	}

	a.betting = service.NewBettingService(store, a.locker, publishers, log)
	a.engine = service.NewSettlementEngine(store, service.NewRandomSource(cfg.Settlement.RandomSeed), a.locker, publishers, log)

	return a, nil
}

func newStore(ctx context.Context, cfg *config.Config, log *logrus.Logger, a *app) (repository.Store, error) {
	if !cfg.UsesPostgres() {
		log.Warn("Using in-memory storage; data is lost on restart")
		return repository.NewMemoryStore(), nil
	}

	db, err := database.Initialize(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.closers = append(a.closers, func() error {
		db.Close()
		return nil
	})
	log.Info("Database connection established")

	return repository.NewPostgresStore(db)
}

// Close releases resources in reverse order of acquisition
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
