package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourusername/race-settlement/internal/models"
	"github.com/yourusername/race-settlement/internal/repository"
)

// DemoRaceID is the race created by SeedDemoData
const DemoRaceID = "r1"

var demoHorses = []models.Horse{
	{ID: "h1", Name: "Relámpago", RacesRun: 10, RacesWon: 2},
	{ID: "h2", Name: "Trueno", RacesRun: 8, RacesWon: 2},
	{ID: "h3", Name: "Viento", RacesRun: 12, RacesWon: 5},
	{ID: "h4", Name: "Sombra", RacesRun: 15, RacesWon: 1},
}

var demoOdds = map[string]string{
	"h1": "5.0",
	"h2": "4.0",
	"h3": "2.4",
	"h4": "15.0",
}

// SeedDemoData creates four horses and one race starting an hour after now.
// It does nothing if any horse already exists and reports whether it seeded.
func SeedDemoData(ctx context.Context, store repository.Store, now time.Time) (bool, error) {
	seeded := false
	err := store.WithinTx(ctx, func(repos *repository.Repositories) error {
		n, err := repos.Horses.Count(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}

		for _, h := range demoHorses {
			horse := h
			if err := repos.Horses.Create(ctx, &horse); err != nil {
				return err
			}
		}

		race := &models.Race{
			ID:        DemoRaceID,
			Name:      "Clásico Shelby",
			StartTime: now.Add(time.Hour).UTC(),
			Status:    models.RaceStatusScheduled,
		}
		if err := repos.Races.Create(ctx, race); err != nil {
			return err
		}

		for _, h := range demoHorses {
			entry := &models.RaceEntry{
				RaceID:  race.ID,
				HorseID: h.ID,
				Odds:    decimal.RequireFromString(demoOdds[h.ID]),
			}
			if err := repos.Races.AddEntry(ctx, entry); err != nil {
				return err
			}
		}

		seeded = true
		return nil
	})
	if err != nil {
		return false, storageFailure("seed demo data", err)
	}
	return seeded, nil
}
