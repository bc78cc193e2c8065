package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"retail-service/internal/infrastructure/store"
	domainerrors "retail-service/pkg/errors"
)

// HandleSQLError converts common SQL errors to storage sentinels.
// This centralizes error handling logic across all postgres repositories.
//
// Conversions:
//   - sql.ErrNoRows → store.ErrorNotFound
//   - unique violations → domain conflict
//   - nil → nil (passthrough)
//   - other errors → returned as-is
func HandleSQLError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrorNotFound
	}
	if store.IsUniqueViolation(err, "") {
		return domainerrors.ErrConflict.Wrap(err)
	}
	return err
}

// nullableTime maps the zero time to NULL so the column default applies.
func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}

// withTx executes fn inside a transaction, rolling back on error.
func withTx(db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %w, rollback error: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
