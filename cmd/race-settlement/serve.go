package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/race-settlement/internal/api"
	"github.com/yourusername/race-settlement/internal/scheduler"
	"github.com/yourusername/race-settlement/internal/service"
)

var seedOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		appLog.WithFields(logrus.Fields{
			"environment": cfg.App.Environment,
			"storage":     cfg.Storage.Driver,
			"version":     Version,
		}).Info("Race settlement service starting")

		a, err := newApp(ctx, cfg, appLog)
		if err != nil {
			return err
		}
		defer func() {
			if err := a.Close(); err != nil {
				appLog.WithError(err).Error("Failed to release resources")
			}
		}()

		if seedOnStart {
			seeded, err := service.SeedDemoData(ctx, a.store, time.Now())
			if err != nil {
				return err
			}
			appLog.WithField("seeded", seeded).Info("Demo data checked")
		}

		if cfg.Settlement.AutoSettleEnabled {
			sched := scheduler.NewScheduler(a.engine, a.queries, appLog)
			if err := sched.ScheduleAutoSettlement(cfg.Settlement.AutoSettleCron); err != nil {
				return err
			}
			if err := sched.Start(); err != nil {
				return err
			}
			defer func() {
				if err := sched.Stop(); err != nil {
					appLog.WithError(err).Warn("Scheduler did not stop cleanly")
				}
			}()
		}

		srv := api.NewServer(a.betting, a.engine, a.queries, a.checker, a.hub.ServeWS, appLog, api.Options{
			Port:           cfg.Server.Port,
			ReadTimeout:    time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
			WriteTimeout:   time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
			BetRateLimit:   cfg.Server.BetRateLimit,
			BetRateBurst:   cfg.Server.BetRateBurst,
			MetricsEnabled: cfg.Metrics.Enabled,
			MetricsPath:    cfg.Metrics.Path,
		})

		a.checker.SetReady(true)
		return srv.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&seedOnStart, "seed", false, "Seed demo horses and a race if the store is empty")
}
