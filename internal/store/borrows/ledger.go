// Package borrows is the SQL Ledger: the borrows table.
package borrows

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/5w1tchy/lending-api/internal/lending"
	"github.com/5w1tchy/lending-api/internal/models"
	"github.com/5w1tchy/lending-api/internal/store/dbx"
)

const (
	borrowColumns = `id, book_id, user_id, borrowed_at, return_deadline, returned_at, fine`

	outstandingSelect = `SELECT br.id AS borrow_id, br.book_id, br.user_id, b.title, br.borrowed_at, br.return_deadline
FROM borrows br
JOIN books b ON b.id = br.book_id
WHERE br.returned_at IS NULL`
)

type Ledger struct {
	db dbx.Runner
}

func New(db dbx.Runner) *Ledger {
	return &Ledger{db: db}
}

func (l *Ledger) ActiveCountFor(ctx context.Context, userID string) (int, error) {
	var n int
	err := l.db.QueryRowxContext(ctx,
		`SELECT COUNT(*) FROM borrows WHERE user_id = $1 AND returned_at IS NULL`, userID).Scan(&n)
	if err != nil {
		return 0, dbx.Classify("active_count", err)
	}
	return n, nil
}

func (l *Ledger) HasOutstanding(ctx context.Context, bookID string) (bool, error) {
	var ok bool
	err := l.db.QueryRowxContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM borrows WHERE book_id = $1 AND returned_at IS NULL)`, bookID).Scan(&ok)
	if err != nil {
		return false, dbx.Classify("has_outstanding", err)
	}
	return ok, nil
}

func (l *Ledger) Open(ctx context.Context, bookID, userID string, now time.Time) (models.Borrow, error) {
	b := models.Borrow{
		ID:             uuid.NewString(),
		BookID:         bookID,
		UserID:         userID,
		BorrowedAt:     now,
		ReturnDeadline: lending.DeadlineFor(now),
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO borrows (id, book_id, user_id, borrowed_at, return_deadline, fine)
VALUES ($1, $2, $3, $4, $5, 0)`,
		b.ID, b.BookID, b.UserID, b.BorrowedAt, b.ReturnDeadline)
	if err != nil {
		return models.Borrow{}, dbx.Classify("open_borrow", err)
	}
	return b, nil
}

// Close sets returned_at and freezes the fine on the user's outstanding
// borrow of bookID.
func (l *Ledger) Close(ctx context.Context, bookID, userID string, now time.Time) (models.Borrow, error) {
	const sel = `SELECT ` + borrowColumns + ` FROM borrows
WHERE book_id = $1 AND user_id = $2 AND returned_at IS NULL
FOR UPDATE`

	var b models.Borrow
	if err := sqlx.GetContext(ctx, l.db, &b, sel, bookID, userID); err != nil {
		return models.Borrow{}, dbx.Classify("close_borrow", err)
	}

	returnedAt := now
	b.ReturnedAt = &returnedAt
	b.Fine = lending.FineAt(b.ReturnDeadline, now)

	_, err := l.db.ExecContext(ctx,
		`UPDATE borrows SET returned_at = $1, fine = $2 WHERE id = $3`, returnedAt, b.Fine, b.ID)
	if err != nil {
		return models.Borrow{}, dbx.Classify("close_borrow", err)
	}
	return b, nil
}

func (l *Ledger) ListOutstandingFor(ctx context.Context, userID string, now time.Time) ([]models.OutstandingBorrow, error) {
	const q = outstandingSelect + `
  AND br.user_id = $1
ORDER BY br.borrowed_at, br.id`
	return l.listOutstanding(ctx, "list_outstanding", now, q, userID)
}

func (l *Ledger) ListOverdue(ctx context.Context, now time.Time) ([]models.OutstandingBorrow, error) {
	const q = outstandingSelect + `
  AND br.return_deadline < $1
ORDER BY br.return_deadline, br.id`
	return l.listOutstanding(ctx, "list_overdue", now, q, now)
}

func (l *Ledger) listOutstanding(ctx context.Context, op string, now time.Time, q string, args ...any) ([]models.OutstandingBorrow, error) {
	out := []models.OutstandingBorrow{}
	if err := sqlx.SelectContext(ctx, l.db, &out, q, args...); err != nil {
		return nil, dbx.Classify(op, err)
	}
	for i := range out {
		out[i].CurrentFine = lending.FineAt(out[i].ReturnDeadline, now)
	}
	return out, nil
}
