package models

import "time"

// Borrow is one lending of a book to a user. ReturnedAt is nil while the
// borrow is outstanding; Fine is frozen when it is set.
type Borrow struct {
	ID             string     `json:"id" db:"id"`
	BookID         string     `json:"book_id" db:"book_id"`
	UserID         string     `json:"user_id" db:"user_id"`
	BorrowedAt     time.Time  `json:"borrowed_at" db:"borrowed_at"`
	ReturnDeadline time.Time  `json:"return_deadline" db:"return_deadline"`
	ReturnedAt     *time.Time `json:"returned_at,omitempty" db:"returned_at"`
	Fine           int64      `json:"fine" db:"fine"`
}

func (b Borrow) Outstanding() bool { return b.ReturnedAt == nil }

// OutstandingBorrow is a listing row with the fine computed as of the read.
type OutstandingBorrow struct {
	BorrowID       string    `json:"borrow_id" db:"borrow_id"`
	BookID         string    `json:"book_id" db:"book_id"`
	UserID         string    `json:"user_id" db:"user_id"`
	Title          string    `json:"title" db:"title"`
	BorrowedAt     time.Time `json:"borrowed_at" db:"borrowed_at"`
	ReturnDeadline time.Time `json:"return_deadline" db:"return_deadline"`
	CurrentFine    int64     `json:"current_fine" db:"-"`
}

type LendingStats struct {
	BooksTotal         int `json:"books_total" db:"books_total"`
	BooksAvailable     int `json:"books_available" db:"books_available"`
	BorrowsOutstanding int `json:"borrows_outstanding" db:"borrows_outstanding"`
	BorrowsOverdue     int `json:"borrows_overdue" db:"borrows_overdue"`
}
