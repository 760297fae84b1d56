package dbx_test

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/5w1tchy/lending-api/internal/lending"
	"github.com/5w1tchy/lending-api/internal/store/dbx"
)

func TestClassify(t *testing.T) {
	cause := errors.New("connection refused")
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", sql.ErrNoRows, lending.ErrNotFound},
		{"wrapped no rows", fmt.Errorf("get: %w", sql.ErrNoRows), lending.ErrNotFound},
		{"pgx bad uuid", &pgconn.PgError{Code: "22P02"}, lending.ErrNotFound},
		{"pq bad uuid", &pq.Error{Code: "22P02"}, lending.ErrNotFound},
		{"pgx outstanding index", &pgconn.PgError{Code: "23505", ConstraintName: dbx.OutstandingBorrowIndex}, lending.ErrNotAvailable},
		{"pq outstanding index", &pq.Error{Code: "23505", Constraint: dbx.OutstandingBorrowIndex}, lending.ErrNotAvailable},
		{"other unique violation", &pgconn.PgError{Code: "23505", ConstraintName: "books_pkey"}, lending.ErrStorage},
		{"connectivity", cause, lending.ErrStorage},
		{"domain error passes through", lending.ErrLimitReached, lending.ErrLimitReached},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := dbx.Classify("op", tc.err)
			if !errors.Is(got, tc.want) {
				t.Fatalf("Classify(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
	if dbx.Classify("op", nil) != nil {
		t.Fatal("nil error must stay nil")
	}
}

func TestWithinTx_CommitAndRollback(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	xdb := sqlx.NewDb(db, "sqlmock")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE books SET is_available = $1`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = dbx.WithinTx(t.Context(), xdb, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(t.Context(), `UPDATE books SET is_available = $1`, true)
		return err
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectRollback()
	boom := errors.New("boom")
	if err := dbx.WithinTx(t.Context(), xdb, func(*sqlx.Tx) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}

	mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))
	if err := dbx.WithinTx(t.Context(), xdb, func(*sqlx.Tx) error { return nil }); !errors.Is(err, lending.ErrStorage) {
		t.Fatalf("want storage error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet: %v", err)
	}
}
