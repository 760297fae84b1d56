package borrows_test

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/5w1tchy/lending-api/internal/lending"
	"github.com/5w1tchy/lending-api/internal/store/borrows"
	"github.com/5w1tchy/lending-api/internal/store/dbx"
)

const day = 24 * time.Hour

func newLedger(t *testing.T) (*borrows.Ledger, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return borrows.New(sqlx.NewDb(db, "sqlmock")), mock
}

func TestActiveCountFor(t *testing.T) {
	l, mock := newLedger(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM borrows WHERE user_id = $1 AND returned_at IS NULL`)).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := l.ActiveCountFor(t.Context(), "u1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if n != 3 {
		t.Fatalf("want 3, got %d", n)
	}
}

func TestHasOutstanding(t *testing.T) {
	l, mock := newLedger(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS (SELECT 1 FROM borrows WHERE book_id = $1 AND returned_at IS NULL)`)).
		WithArgs("b1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := l.HasOutstanding(t.Context(), "b1")
	if err != nil || !ok {
		t.Fatalf("want true, got %v (err %v)", ok, err)
	}
}

func TestOpen_SetsDeadline(t *testing.T) {
	l, mock := newLedger(t)
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO borrows (id, book_id, user_id, borrowed_at, return_deadline, fine)`)).
		WithArgs(sqlmock.AnyArg(), "b1", "u1", now, now.Add(14*day)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	b, err := l.Open(t.Context(), "b1", "u1", now)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !b.ReturnDeadline.Equal(now.Add(14*day)) || b.ID == "" || !b.Outstanding() {
		t.Fatalf("unexpected borrow: %+v", b)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet: %v", err)
	}
}

func TestOpen_OutstandingIndexViolation(t *testing.T) {
	l, mock := newLedger(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO borrows`)).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: dbx.OutstandingBorrowIndex})

	_, err := l.Open(t.Context(), "b1", "u1", time.Now())
	if !errors.Is(err, lending.ErrNotAvailable) {
		t.Fatalf("want ErrNotAvailable, got %v", err)
	}
}

func TestClose_FreezesFine(t *testing.T) {
	l, mock := newLedger(t)
	borrowedAt := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	deadline := borrowedAt.Add(14 * day)
	now := borrowedAt.Add(16 * day)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM borrows
WHERE book_id = $1 AND user_id = $2 AND returned_at IS NULL
FOR UPDATE`)).
		WithArgs("b1", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "book_id", "user_id", "borrowed_at", "return_deadline", "returned_at", "fine"}).
			AddRow("br1", "b1", "u1", borrowedAt, deadline, nil, 0))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE borrows SET returned_at = $1, fine = $2 WHERE id = $3`)).
		WithArgs(now, int64(10), "br1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	b, err := l.Close(t.Context(), "b1", "u1", now)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if b.Fine != 10 || b.ReturnedAt == nil || !b.ReturnedAt.Equal(now) {
		t.Fatalf("unexpected borrow: %+v", b)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet: %v", err)
	}
}

func TestClose_NothingOutstanding(t *testing.T) {
	l, mock := newLedger(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM borrows`)).
		WithArgs("b1", "u2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "book_id", "user_id", "borrowed_at", "return_deadline", "returned_at", "fine"}))

	_, err := l.Close(t.Context(), "b1", "u2", time.Now())
	if !errors.Is(err, lending.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestListOutstandingFor_LiveFine(t *testing.T) {
	l, mock := newLedger(t)
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	cols := []string{"borrow_id", "book_id", "user_id", "title", "borrowed_at", "return_deadline"}

	mock.ExpectQuery(regexp.QuoteMeta(`AND br.user_id = $1`)).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("br1", "b1", "u1", "Dune", now.Add(-17*day), now.Add(-3*day)).
			AddRow("br2", "b2", "u1", "Emma", now.Add(-2*day), now.Add(12*day)))

	got, err := l.ListOutstandingFor(t.Context(), "u1", now)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 rows, got %d", len(got))
	}
	if got[0].Title != "Dune" || got[0].CurrentFine != 15 {
		t.Fatalf("unexpected first row: %+v", got[0])
	}
	if got[1].CurrentFine != 0 {
		t.Fatalf("want 0 fine before deadline, got %d", got[1].CurrentFine)
	}
}

func TestListOverdue(t *testing.T) {
	l, mock := newLedger(t)
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	cols := []string{"borrow_id", "book_id", "user_id", "title", "borrowed_at", "return_deadline"}

	mock.ExpectQuery(regexp.QuoteMeta(`AND br.return_deadline < $1`)).
		WithArgs(now).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("br1", "b1", "u7", "Dune", now.Add(-16*day), now.Add(-2*day)))

	got, err := l.ListOverdue(t.Context(), now)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 1 || got[0].UserID != "u7" || got[0].CurrentFine != 10 {
		t.Fatalf("unexpected rows: %+v", got)
	}
}
