package lending

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrNotAvailable = errors.New("book is not available")
	ErrLimitReached = errors.New("borrow limit reached")
	ErrNotBorrowed  = errors.New("book is not borrowed by this user")
	// ErrForbidden is raised by the HTTP boundary, never by Service.
	ErrForbidden = errors.New("forbidden")
	ErrStorage   = errors.New("storage failure")
)

// StorageError wraps a failure of the backing store. errors.Is(err, ErrStorage)
// matches it regardless of the cause.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

func NewStorageError(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
