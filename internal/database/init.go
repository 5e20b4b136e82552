package database

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/race-settlement/internal/config"
)

// Initialize connects to the configured database and warns when the schema
// has not been migrated yet.
func Initialize(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*DB, error) {
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	status, err := Status(cfg.GetDatabaseDSN())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read migration status: %w", err)
	}

	switch {
	case !status.Applied:
		log.Warn("No migrations have been applied. Run `race-settlement migrate up`.")
	case status.Dirty:
		db.Close()
		return nil, fmt.Errorf("database schema is dirty at version %d", status.Version)
	default:
		log.WithField("schema_version", status.Version).Info("Database schema verified")
	}

	return db, nil
}
