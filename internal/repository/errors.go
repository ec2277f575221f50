package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/helixir/research-catalog/internal/domain"
)

// PostgreSQL SQLSTATE codes for integrity constraint violations.
const (
	pgNotNullViolation    = "23502"
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
)

// translateError maps driver errors onto domain errors. Constraint violations
// keep the raw driver message so it can be shown to API clients.
func translateError(entity, op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		var kind domain.ConstraintKind
		switch pgErr.Code {
		case pgNotNullViolation:
			kind = domain.ConstraintNotNull
		case pgForeignKeyViolation:
			kind = domain.ConstraintForeignKey
		case pgUniqueViolation:
			kind = domain.ConstraintUnique
		case pgCheckViolation:
			kind = domain.ConstraintCheck
		}
		if kind != "" {
			return domain.NewConstraintError(kind, pgErr.ConstraintName, pgErr.Message, pgErr)
		}
	}
	return fmt.Errorf("failed to %s %s: %w", op, entity, err)
}

