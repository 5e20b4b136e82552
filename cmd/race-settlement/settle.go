package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var settleCmd = &cobra.Command{
	Use:   "settle <race-id>",
	Short: "Draw a winner for a race and settle its bets",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, appLog)
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.engine.SettleRace(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}
