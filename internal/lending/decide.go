package lending

import "github.com/5w1tchy/lending-api/internal/models"

// decideBorrow applies the borrow rules to the state read inside the unit
// of work. It has no side effects.
func decideBorrow(book models.Book, activeBorrows int) error {
	if !book.IsAvailable {
		return ErrNotAvailable
	}
	if activeBorrows >= MaxActiveBorrows {
		return ErrLimitReached
	}
	return nil
}
