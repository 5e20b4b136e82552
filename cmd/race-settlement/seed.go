package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/race-settlement/internal/service"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert demo horses and a race if the store is empty",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, appLog)
		if err != nil {
			return err
		}
		defer a.Close()

		seeded, err := service.SeedDemoData(cmd.Context(), a.store, time.Now())
		if err != nil {
			return err
		}
		if !seeded {
			appLog.Info("Store already has horses; nothing seeded")
			return nil
		}
		appLog.WithField("race_id", service.DemoRaceID).Info("Demo data seeded")
		return nil
	},
}
