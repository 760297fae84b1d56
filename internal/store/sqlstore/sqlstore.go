// Package sqlstore is the PostgreSQL lending.Store.
//
// A unit of work is a read-committed transaction that first takes a
// transaction-scoped advisory lock on the user and then the row lock on the
// book, always in that order. Concurrent borrows of one book, or by one
// user, queue behind each other and re-read committed state.
package sqlstore

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/5w1tchy/lending-api/internal/lending"
	"github.com/5w1tchy/lending-api/internal/models"
	"github.com/5w1tchy/lending-api/internal/store/books"
	"github.com/5w1tchy/lending-api/internal/store/borrows"
	"github.com/5w1tchy/lending-api/internal/store/dbx"
)

const (
	lockUserSQL = `SELECT pg_advisory_xact_lock(hashtext($1))`
	lockBookSQL = `SELECT id FROM books WHERE id = $1 FOR UPDATE`

	userLockPrefix = "lending:user:"
)

type Store struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Catalog() lending.Catalog { return books.New(s.db) }
func (s *Store) Ledger() lending.Ledger   { return borrows.New(s.db) }

func (s *Store) WithinTx(ctx context.Context, scope lending.LockScope, fn func(tx lending.UnitOfWork) error) error {
	return dbx.WithinTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if scope.UserID != "" {
			if _, err := tx.ExecContext(ctx, lockUserSQL, userLockPrefix+scope.UserID); err != nil {
				return dbx.Classify("lock_user", err)
			}
		}
		if scope.BookID != "" {
			if _, err := tx.ExecContext(ctx, lockBookSQL, scope.BookID); err != nil {
				return dbx.Classify("lock_book", err)
			}
		}
		return fn(unit{tx: tx})
	})
}

func (s *Store) Stats(ctx context.Context, now time.Time) (models.LendingStats, error) {
	const q = `SELECT
  (SELECT COUNT(*) FROM books)                                                       AS books_total,
  (SELECT COUNT(*) FROM books WHERE is_available)                                    AS books_available,
  (SELECT COUNT(*) FROM borrows WHERE returned_at IS NULL)                           AS borrows_outstanding,
  (SELECT COUNT(*) FROM borrows WHERE returned_at IS NULL AND return_deadline < $1)  AS borrows_overdue`

	var st models.LendingStats
	if err := sqlx.GetContext(ctx, s.db, &st, q, now); err != nil {
		return models.LendingStats{}, dbx.Classify("stats", err)
	}
	return st, nil
}

type unit struct {
	tx *sqlx.Tx
}

func (u unit) Catalog() lending.Catalog { return books.New(u.tx) }
func (u unit) Ledger() lending.Ledger   { return borrows.New(u.tx) }
