package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yourusername/race-settlement/internal/database"
)

var downSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the PostgreSQL schema",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		if !cfg.UsesPostgres() {
			return fmt.Errorf("migrations require storage.driver=postgres, got %q", cfg.Storage.Driver)
		}
		return nil
	},
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		changed, err := database.MigrateUp(cfg.GetDatabaseDSN())
		if err != nil {
			return err
		}
		if !changed {
			appLog.Info("Schema already up to date")
			return nil
		}
		appLog.Info("Migrations applied")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := database.MigrateDown(cfg.GetDatabaseDSN(), downSteps); err != nil {
			return err
		}
		appLog.WithField("steps", downSteps).Info("Migrations rolled back")
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := database.Status(cfg.GetDatabaseDSN())
		if err != nil {
			return err
		}
		if !status.Applied {
			fmt.Println("No migrations applied")
			return nil
		}
		fmt.Printf("Version: %d (dirty: %t)\n", status.Version, status.Dirty)
		return nil
	},
}

func init() {
	migrateDownCmd.Flags().IntVar(&downSteps, "steps", 1, "Number of migrations to roll back")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
}
