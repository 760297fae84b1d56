// Package memory is an in-process lending.Store. A single lock guards all
// books and borrows; WithinTx holds it for the whole unit of work and
// replays an undo log when the unit fails.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/5w1tchy/lending-api/internal/lending"
	"github.com/5w1tchy/lending-api/internal/models"
)

type bookEntry struct {
	book models.Book
	seq  uint64
}

type Store struct {
	mu      sync.RWMutex
	books   map[string]bookEntry
	seq     uint64
	borrows []models.Borrow
	open    map[string]int // book id -> index of its outstanding borrow
	now     func() time.Time
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{
		books: make(map[string]bookEntry),
		open:  make(map[string]int),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Catalog() lending.Catalog { return catalog{view{s: s}} }
func (s *Store) Ledger() lending.Ledger   { return ledger{view{s: s}} }

func (s *Store) WithinTx(ctx context.Context, _ lending.LockScope, fn func(tx lending.UnitOfWork) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u := &unit{s: s}
	if err := fn(u); err != nil {
		u.rollback()
		return err
	}
	return nil
}

func (s *Store) Stats(_ context.Context, now time.Time) (models.LendingStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st models.LendingStats
	for _, e := range s.books {
		st.BooksTotal++
		if e.book.IsAvailable {
			st.BooksAvailable++
		}
	}
	for _, i := range s.open {
		st.BorrowsOutstanding++
		if now.After(s.borrows[i].ReturnDeadline) {
			st.BorrowsOverdue++
		}
	}
	return st, nil
}

type unit struct {
	s    *Store
	undo []func()
}

func (u *unit) Catalog() lending.Catalog { return catalog{view{s: u.s, tx: u}} }
func (u *unit) Ledger() lending.Ledger   { return ledger{view{s: u.s, tx: u}} }

func (u *unit) rollback() {
	for i := len(u.undo) - 1; i >= 0; i-- {
		u.undo[i]()
	}
	u.undo = nil
}

// view locks per call when used outside a unit of work; inside one the
// unit already holds the write lock.
type view struct {
	s  *Store
	tx *unit
}

func (v view) rlock() func() {
	if v.tx != nil {
		return func() {}
	}
	v.s.mu.RLock()
	return v.s.mu.RUnlock
}

func (v view) lock() func() {
	if v.tx != nil {
		return func() {}
	}
	v.s.mu.Lock()
	return v.s.mu.Unlock
}

func (v view) onUndo(fn func()) {
	if v.tx != nil {
		v.tx.undo = append(v.tx.undo, fn)
	}
}

// --- catalog ---

type catalog struct{ view }

func (c catalog) CreateBook(_ context.Context, title, author string, createdBy *string) (models.Book, error) {
	defer c.lock()()

	now := c.s.now().UTC()
	b := models.Book{
		ID:          uuid.NewString(),
		Title:       title,
		Author:      author,
		IsAvailable: true,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	c.s.seq++
	c.s.books[b.ID] = bookEntry{book: b, seq: c.s.seq}
	c.onUndo(func() { delete(c.s.books, b.ID) })
	return b, nil
}

func (c catalog) GetBook(_ context.Context, id string) (models.Book, error) {
	defer c.rlock()()
	e, ok := c.s.books[id]
	if !ok {
		return models.Book{}, lending.ErrNotFound
	}
	return e.book, nil
}

func (c catalog) UpdateBook(_ context.Context, id string, patch models.BookPatch) (models.Book, error) {
	defer c.lock()()
	e, ok := c.s.books[id]
	if !ok {
		return models.Book{}, lending.ErrNotFound
	}
	if patch.Empty() {
		return e.book, nil
	}
	prev := e
	if patch.Title != nil {
		e.book.Title = *patch.Title
	}
	if patch.Author != nil {
		e.book.Author = *patch.Author
	}
	e.book.UpdatedAt = c.s.now().UTC()
	c.s.books[id] = e
	c.onUndo(func() { c.s.books[id] = prev })
	return e.book, nil
}

func (c catalog) DeleteBook(_ context.Context, id string) error {
	defer c.lock()()
	e, ok := c.s.books[id]
	if !ok {
		return lending.ErrNotFound
	}
	delete(c.s.books, id)
	c.onUndo(func() { c.s.books[id] = e })
	return nil
}

func (c catalog) ListBooks(_ context.Context) ([]models.Book, error) {
	defer c.rlock()()
	entries := make([]bookEntry, 0, len(c.s.books))
	for _, e := range c.s.books {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	out := make([]models.Book, len(entries))
	for i, e := range entries {
		out[i] = e.book
	}
	return out, nil
}

func (c catalog) SetAvailability(_ context.Context, id string, available bool) error {
	defer c.lock()()
	e, ok := c.s.books[id]
	if !ok {
		return lending.ErrNotFound
	}
	prev := e
	e.book.IsAvailable = available
	e.book.UpdatedAt = c.s.now().UTC()
	c.s.books[id] = e
	c.onUndo(func() { c.s.books[id] = prev })
	return nil
}

// --- ledger ---

type ledger struct{ view }

func (l ledger) ActiveCountFor(_ context.Context, userID string) (int, error) {
	defer l.rlock()()
	n := 0
	for _, i := range l.s.open {
		if l.s.borrows[i].UserID == userID {
			n++
		}
	}
	return n, nil
}

func (l ledger) HasOutstanding(_ context.Context, bookID string) (bool, error) {
	defer l.rlock()()
	_, ok := l.s.open[bookID]
	return ok, nil
}

func (l ledger) Open(_ context.Context, bookID, userID string, now time.Time) (models.Borrow, error) {
	defer l.lock()()
	if _, ok := l.s.open[bookID]; ok {
		return models.Borrow{}, lending.ErrNotAvailable
	}
	b := models.Borrow{
		ID:             uuid.NewString(),
		BookID:         bookID,
		UserID:         userID,
		BorrowedAt:     now,
		ReturnDeadline: lending.DeadlineFor(now),
	}
	n := len(l.s.borrows)
	l.s.borrows = append(l.s.borrows, b)
	l.s.open[bookID] = n
	l.onUndo(func() {
		delete(l.s.open, bookID)
		l.s.borrows = l.s.borrows[:n]
	})
	return b, nil
}

func (l ledger) Close(_ context.Context, bookID, userID string, now time.Time) (models.Borrow, error) {
	defer l.lock()()
	i, ok := l.s.open[bookID]
	if !ok || l.s.borrows[i].UserID != userID {
		return models.Borrow{}, lending.ErrNotFound
	}
	prev := l.s.borrows[i]
	b := prev
	returnedAt := now
	b.ReturnedAt = &returnedAt
	b.Fine = lending.FineAt(b.ReturnDeadline, now)
	l.s.borrows[i] = b
	delete(l.s.open, bookID)
	l.onUndo(func() {
		l.s.borrows[i] = prev
		l.s.open[bookID] = i
	})
	return b, nil
}

func (l ledger) ListOutstandingFor(_ context.Context, userID string, now time.Time) ([]models.OutstandingBorrow, error) {
	defer l.rlock()()
	return l.outstanding(now, func(b models.Borrow) bool { return b.UserID == userID }), nil
}

func (l ledger) ListOverdue(_ context.Context, now time.Time) ([]models.OutstandingBorrow, error) {
	defer l.rlock()()
	return l.outstanding(now, func(b models.Borrow) bool { return now.After(b.ReturnDeadline) }), nil
}

func (l ledger) outstanding(now time.Time, keep func(models.Borrow) bool) []models.OutstandingBorrow {
	out := []models.OutstandingBorrow{}
	for _, i := range l.s.open {
		b := l.s.borrows[i]
		if !keep(b) {
			continue
		}
		out = append(out, models.OutstandingBorrow{
			BorrowID:       b.ID,
			BookID:         b.BookID,
			UserID:         b.UserID,
			Title:          l.s.books[b.BookID].book.Title,
			BorrowedAt:     b.BorrowedAt,
			ReturnDeadline: b.ReturnDeadline,
			CurrentFine:    lending.FineAt(b.ReturnDeadline, now),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BorrowedAt.Equal(out[j].BorrowedAt) {
			return out[i].BorrowID < out[j].BorrowID
		}
		return out[i].BorrowedAt.Before(out[j].BorrowedAt)
	})
	return out
}
