package lending

import (
	"context"
	"errors"
	"time"

	"github.com/5w1tchy/lending-api/internal/models"
)

const (
	logMsgBorrowed       = "book borrowed"
	logMsgBorrowRejected = "borrow rejected"
	logMsgReturned       = "book returned"
	logMsgReturnRejected = "return rejected"
	logMsgStorageFailed  = "storage operation failed"
	logMsgCacheBust      = "catalog cache invalidation failed"

	logAttrBookID = "book_id"
	logAttrUserID = "user_id"
	logAttrFine   = "fine"
	logAttrReason = "reason"
	logAttrOp     = "op"
	logAttrError  = "error"
)

// Service is the single entry point for catalog and lending operations.
// Borrow and ReturnBook run as one unit of work against the Store, so the
// availability flag and the ledger never disagree.
type Service struct {
	store    Store
	now      func() time.Time
	logger   Logger
	cache    ListCache
	activity ActivityRecorder
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		now:    time.Now,
		logger: discardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) ListBooks(ctx context.Context) ([]models.Book, error) {
	var version string
	if s.cache != nil {
		books, v, ok := s.cache.GetBooks(ctx)
		if ok {
			return books, nil
		}
		version = v
	}
	books, err := s.store.Catalog().ListBooks(ctx)
	if err != nil {
		return nil, s.logStorage("list_books", err)
	}
	if s.cache != nil && version != "" {
		s.cache.SetBooks(ctx, version, books)
	}
	return books, nil
}

func (s *Service) GetBook(ctx context.Context, id string) (models.Book, error) {
	b, err := s.store.Catalog().GetBook(ctx, id)
	if err != nil {
		return models.Book{}, s.logStorage("get_book", err)
	}
	return b, nil
}

// CreateBook adds an available book. creatorID may be empty.
func (s *Service) CreateBook(ctx context.Context, title, author, creatorID string) (models.Book, error) {
	var createdBy *string
	if creatorID != "" {
		createdBy = &creatorID
	}
	b, err := s.store.Catalog().CreateBook(ctx, title, author, createdBy)
	if err != nil {
		return models.Book{}, s.logStorage("create_book", err)
	}
	s.invalidate(ctx)
	return b, nil
}

func (s *Service) UpdateBook(ctx context.Context, id string, patch models.BookPatch) (models.Book, error) {
	b, err := s.store.Catalog().UpdateBook(ctx, id, patch)
	if err != nil {
		return models.Book{}, s.logStorage("update_book", err)
	}
	if !patch.Empty() {
		s.invalidate(ctx)
	}
	return b, nil
}

// DeleteBook removes a book. A book that is currently lent out cannot be
// deleted and yields ErrNotAvailable.
func (s *Service) DeleteBook(ctx context.Context, id string) error {
	err := s.store.WithinTx(ctx, LockScope{BookID: id}, func(tx UnitOfWork) error {
		if _, err := tx.Catalog().GetBook(ctx, id); err != nil {
			return err
		}
		lent, err := tx.Ledger().HasOutstanding(ctx, id)
		if err != nil {
			return err
		}
		if lent {
			return ErrNotAvailable
		}
		return tx.Catalog().DeleteBook(ctx, id)
	})
	if err != nil {
		return s.logStorage("delete_book", err)
	}
	s.invalidate(ctx)
	return nil
}

// Borrow lends bookID to userID and returns the book as now unavailable.
func (s *Service) Borrow(ctx context.Context, bookID, userID string) (models.Book, error) {
	now := s.now()
	var out models.Book

	err := s.store.WithinTx(ctx, LockScope{BookID: bookID, UserID: userID}, func(tx UnitOfWork) error {
		book, err := tx.Catalog().GetBook(ctx, bookID)
		if err != nil {
			return err
		}
		active, err := tx.Ledger().ActiveCountFor(ctx, userID)
		if err != nil {
			return err
		}
		if err := decideBorrow(book, active); err != nil {
			return err
		}
		if _, err := tx.Ledger().Open(ctx, bookID, userID, now); err != nil {
			return err
		}
		if err := tx.Catalog().SetAvailability(ctx, bookID, false); err != nil {
			return err
		}
		book.IsAvailable = false
		out = book
		return nil
	})
	if err != nil {
		s.logRejected(logMsgBorrowRejected, bookID, userID, err)
		return models.Book{}, err
	}

	s.logger.Info(logMsgBorrowed, logAttrBookID, bookID, logAttrUserID, userID)
	s.invalidate(ctx)
	s.record(Activity{Kind: ActivityBorrowed, BookID: bookID, UserID: userID, OccurredAt: now})
	return out, nil
}

// ReturnBook closes the caller's outstanding borrow of bookID and returns
// the closed record with its frozen fine.
func (s *Service) ReturnBook(ctx context.Context, bookID, userID string) (models.Borrow, error) {
	now := s.now()
	var closed models.Borrow

	err := s.store.WithinTx(ctx, LockScope{BookID: bookID, UserID: userID}, func(tx UnitOfWork) error {
		b, err := tx.Ledger().Close(ctx, bookID, userID, now)
		if errors.Is(err, ErrNotFound) {
			return ErrNotBorrowed
		}
		if err != nil {
			return err
		}
		if err := tx.Catalog().SetAvailability(ctx, bookID, true); err != nil {
			return err
		}
		closed = b
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		// a book id the store cannot resolve while locking is never borrowed
		err = ErrNotBorrowed
	}
	if err != nil {
		s.logRejected(logMsgReturnRejected, bookID, userID, err)
		return models.Borrow{}, err
	}

	s.logger.Info(logMsgReturned, logAttrBookID, bookID, logAttrUserID, userID, logAttrFine, closed.Fine)
	s.invalidate(ctx)
	s.record(Activity{Kind: ActivityReturned, BookID: bookID, UserID: userID, Fine: closed.Fine, OccurredAt: now})
	return closed, nil
}

// ListMyBorrows lists userID's outstanding borrows with fines as of now.
func (s *Service) ListMyBorrows(ctx context.Context, userID string) ([]models.OutstandingBorrow, error) {
	out, err := s.store.Ledger().ListOutstandingFor(ctx, userID, s.now())
	if err != nil {
		return nil, s.logStorage("list_outstanding", err)
	}
	return out, nil
}

// ListOverdue lists every outstanding borrow past its deadline.
func (s *Service) ListOverdue(ctx context.Context) ([]models.OutstandingBorrow, error) {
	out, err := s.store.Ledger().ListOverdue(ctx, s.now())
	if err != nil {
		return nil, s.logStorage("list_overdue", err)
	}
	return out, nil
}

func (s *Service) Stats(ctx context.Context) (models.LendingStats, error) {
	st, err := s.store.Stats(ctx, s.now())
	if err != nil {
		return models.LendingStats{}, s.logStorage("stats", err)
	}
	return st, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn(logMsgCacheBust, logAttrError, err.Error())
	}
}

func (s *Service) record(a Activity) {
	if s.activity != nil {
		s.activity.Record(a)
	}
}

func (s *Service) logStorage(op string, err error) error {
	if errors.Is(err, ErrStorage) {
		s.logger.Error(logMsgStorageFailed, logAttrOp, op, logAttrError, err.Error())
	}
	return err
}

func (s *Service) logRejected(msg, bookID, userID string, err error) {
	if errors.Is(err, ErrStorage) {
		s.logger.Error(logMsgStorageFailed, logAttrBookID, bookID, logAttrUserID, userID, logAttrError, err.Error())
		return
	}
	s.logger.Debug(msg, logAttrBookID, bookID, logAttrUserID, userID, logAttrReason, err.Error())
}
