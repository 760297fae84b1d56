package lending

import (
	"context"
	"time"

	"github.com/5w1tchy/lending-api/internal/models"
)

// Catalog owns Book records. Implementations return ErrNotFound for
// unknown ids and a *StorageError for backend failures.
type Catalog interface {
	CreateBook(ctx context.Context, title, author string, createdBy *string) (models.Book, error)
	GetBook(ctx context.Context, id string) (models.Book, error)
	UpdateBook(ctx context.Context, id string, patch models.BookPatch) (models.Book, error)
	DeleteBook(ctx context.Context, id string) error
	ListBooks(ctx context.Context) ([]models.Book, error)
	SetAvailability(ctx context.Context, id string, available bool) error
}

// Ledger owns Borrow records. Open does not re-check limits or
// availability; Service does that inside the same unit of work.
type Ledger interface {
	ActiveCountFor(ctx context.Context, userID string) (int, error)
	HasOutstanding(ctx context.Context, bookID string) (bool, error)
	Open(ctx context.Context, bookID, userID string, now time.Time) (models.Borrow, error)
	Close(ctx context.Context, bookID, userID string, now time.Time) (models.Borrow, error)
	ListOutstandingFor(ctx context.Context, userID string, now time.Time) ([]models.OutstandingBorrow, error)
	ListOverdue(ctx context.Context, now time.Time) ([]models.OutstandingBorrow, error)
}

type UnitOfWork interface {
	Catalog() Catalog
	Ledger() Ledger
}

// LockScope names what a unit of work must hold exclusively: the book row
// and the user's set of outstanding borrows. Empty fields are not locked.
type LockScope struct {
	BookID string
	UserID string
}

// Store is a backend for Service. Catalog and Ledger outside WithinTx run
// each call on its own; WithinTx runs fn atomically under scope and undoes
// every write when fn returns an error.
type Store interface {
	UnitOfWork
	WithinTx(ctx context.Context, scope LockScope, fn func(tx UnitOfWork) error) error
	Stats(ctx context.Context, now time.Time) (models.LendingStats, error)
}
