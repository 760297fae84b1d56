package dbx

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/5w1tchy/lending-api/internal/lending"
)

// Runner lets stores work with both *sqlx.DB and *sqlx.Tx.
type Runner interface {
	sqlx.ExtContext
}

// WithinTx runs fn in a transaction (commit on nil, rollback on error).
// Postgres default isolation (read committed) applies; callers take the
// row and advisory locks they need.
func WithinTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return Classify("begin", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return Classify("commit", err)
	}
	return nil
}

const (
	codeUniqueViolation = "23505"
	codeInvalidText     = "22P02"

	// OutstandingBorrowIndex is the partial unique index allowing one
	// outstanding borrow per book.
	OutstandingBorrowIndex = "borrows_one_outstanding_per_book"
)

// Classify maps a driver error onto the lending error taxonomy.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if isDomain(err) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return lending.ErrNotFound
	}
	code, constraint := pgCode(err)
	switch {
	case code == codeInvalidText:
		// malformed uuid in a lookup
		return lending.ErrNotFound
	case code == codeUniqueViolation && constraint == OutstandingBorrowIndex:
		return lending.ErrNotAvailable
	}
	return lending.NewStorageError(op, err)
}

// pgCode understands both drivers: pgx/v5 stdlib and lib/pq.
func pgCode(err error) (code, constraint string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Constraint
	}
	return "", ""
}

func isDomain(err error) bool {
	return errors.Is(err, lending.ErrStorage) ||
		errors.Is(err, lending.ErrNotFound) ||
		errors.Is(err, lending.ErrNotAvailable) ||
		errors.Is(err, lending.ErrLimitReached) ||
		errors.Is(err, lending.ErrNotBorrowed)
}
