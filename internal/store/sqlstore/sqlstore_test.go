package sqlstore_test

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/5w1tchy/lending-api/internal/lending"
	"github.com/5w1tchy/lending-api/internal/store/sqlstore"
)

var (
	bookCols   = []string{"id", "title", "author", "is_available", "created_by", "created_at", "updated_at"}
	borrowCols = []string{"id", "book_id", "user_id", "borrowed_at", "return_deadline", "returned_at", "fine"}
	now        = time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)
)

func newService(t *testing.T) (*lending.Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	store := sqlstore.New(sqlx.NewDb(db, "sqlmock"))
	return lending.NewService(store, lending.WithClock(func() time.Time { return now })), mock
}

func expectLocks(mock sqlmock.Sqlmock, userID, bookID string) {
	mock.ExpectBegin()
	if userID != "" {
		mock.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_xact_lock(hashtext($1))`)).
			WithArgs("lending:user:" + userID).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectExec(regexp.QuoteMeta(`SELECT id FROM books WHERE id = $1 FOR UPDATE`)).
		WithArgs(bookID).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func TestBorrow_LocksUserThenBookAndCommits(t *testing.T) {
	svc, mock := newService(t)

	expectLocks(mock, "u1", "b1")
	mock.ExpectQuery(regexp.QuoteMeta(`FROM books WHERE id = $1`)).
		WithArgs("b1").
		WillReturnRows(sqlmock.NewRows(bookCols).AddRow("b1", "Dune", "Herbert", true, nil, now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM borrows`)).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO borrows`)).
		WithArgs(sqlmock.AnyArg(), "b1", "u1", now, now.Add(14*24*time.Hour)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE books SET is_available = $1`)).
		WithArgs(false, "b1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	b, err := svc.Borrow(t.Context(), "b1", "u1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if b.IsAvailable {
		t.Fatal("returned book must be unavailable")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet: %v", err)
	}
}

func TestBorrow_AtLimitRollsBack(t *testing.T) {
	svc, mock := newService(t)

	expectLocks(mock, "u1", "b1")
	mock.ExpectQuery(regexp.QuoteMeta(`FROM books WHERE id = $1`)).
		WillReturnRows(sqlmock.NewRows(bookCols).AddRow("b1", "Dune", "Herbert", true, nil, now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM borrows`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectRollback()

	_, err := svc.Borrow(t.Context(), "b1", "u1")
	if !errors.Is(err, lending.ErrLimitReached) {
		t.Fatalf("want ErrLimitReached, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet: %v", err)
	}
}

func TestBorrow_AvailabilityWriteFailsRollsBack(t *testing.T) {
	svc, mock := newService(t)

	expectLocks(mock, "u1", "b1")
	mock.ExpectQuery(regexp.QuoteMeta(`FROM books WHERE id = $1`)).
		WillReturnRows(sqlmock.NewRows(bookCols).AddRow("b1", "Dune", "Herbert", true, nil, now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM borrows`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO borrows`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE books SET is_available = $1`)).
		WillReturnError(errors.New("server closed the connection unexpectedly"))
	mock.ExpectRollback()

	_, err := svc.Borrow(t.Context(), "b1", "u1")
	if !errors.Is(err, lending.ErrStorage) {
		t.Fatalf("want storage error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet: %v", err)
	}
}

func TestReturn_FreezesFineAndFreesBook(t *testing.T) {
	svc, mock := newService(t)
	borrowedAt := now.Add(-17 * 24 * time.Hour)

	expectLocks(mock, "u1", "b1")
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).
		WithArgs("b1", "u1").
		WillReturnRows(sqlmock.NewRows(borrowCols).
			AddRow("br1", "b1", "u1", borrowedAt, borrowedAt.Add(14*24*time.Hour), nil, 0))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE borrows SET returned_at = $1, fine = $2 WHERE id = $3`)).
		WithArgs(now, int64(15), "br1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE books SET is_available = $1`)).
		WithArgs(true, "b1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	closed, err := svc.ReturnBook(t.Context(), "b1", "u1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if closed.Fine != 15 {
		t.Fatalf("want fine 15, got %d", closed.Fine)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet: %v", err)
	}
}

func TestReturn_NotBorrowed(t *testing.T) {
	svc, mock := newService(t)

	expectLocks(mock, "u2", "b1")
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).
		WithArgs("b1", "u2").
		WillReturnRows(sqlmock.NewRows(borrowCols))
	mock.ExpectRollback()

	_, err := svc.ReturnBook(t.Context(), "b1", "u2")
	if !errors.Is(err, lending.ErrNotBorrowed) {
		t.Fatalf("want ErrNotBorrowed, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet: %v", err)
	}
}

func TestDeleteBook_LocksBookOnly(t *testing.T) {
	svc, mock := newService(t)

	expectLocks(mock, "", "b1")
	mock.ExpectQuery(regexp.QuoteMeta(`FROM books WHERE id = $1`)).
		WillReturnRows(sqlmock.NewRows(bookCols).AddRow("b1", "Dune", "Herbert", false, nil, now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS`)).
		WithArgs("b1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	if err := svc.DeleteBook(t.Context(), "b1"); !errors.Is(err, lending.ErrNotAvailable) {
		t.Fatalf("want ErrNotAvailable, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet: %v", err)
	}
}

func TestStats(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectQuery(regexp.QuoteMeta(`AS books_total`)).
		WithArgs(now).
		WillReturnRows(sqlmock.NewRows([]string{"books_total", "books_available", "borrows_outstanding", "borrows_overdue"}).
			AddRow(10, 7, 3, 1))

	st, err := svc.Stats(t.Context())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if st.BooksTotal != 10 || st.BooksAvailable != 7 || st.BorrowsOutstanding != 3 || st.BorrowsOverdue != 1 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS books`,
		`CREATE TABLE IF NOT EXISTS borrows`,
		`CREATE UNIQUE INDEX IF NOT EXISTS borrows_one_outstanding_per_book`,
		`CREATE INDEX IF NOT EXISTS borrows_outstanding_by_user`,
		`CREATE TABLE IF NOT EXISTS lending_activity`,
	} {
		mock.ExpectExec(regexp.QuoteMeta(stmt)).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	if err := sqlstore.Migrate(t.Context(), sqlx.NewDb(db, "sqlmock")); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet: %v", err)
	}
}
