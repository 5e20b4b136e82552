package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/yourusername/race-settlement/internal/models"
)

const uniqueViolation = "23505"

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return models.ErrDuplicateKey
	}
	return err
}
