package apperr

import (
	"errors"
	"log"
	"net/http"

	"github.com/5w1tchy/lending-api/internal/lending"
)

// FromLending maps a lending error kind to a Problem. Storage failures and
// anything unrecognized become a 500 without detail.
func FromLending(err error) Problem {
	switch {
	case errors.Is(err, lending.ErrNotFound):
		return Problem{Status: http.StatusNotFound, Title: "Not Found", Detail: "Book not found"}
	case errors.Is(err, lending.ErrNotAvailable):
		return Problem{Status: http.StatusBadRequest, Title: "Bad Request", Detail: "Book is not available"}
	case errors.Is(err, lending.ErrLimitReached):
		return Problem{Status: http.StatusBadRequest, Title: "Bad Request", Detail: "Borrow limit reached"}
	case errors.Is(err, lending.ErrNotBorrowed):
		return Problem{Status: http.StatusBadRequest, Title: "Bad Request", Detail: "Book is not borrowed by you"}
	case errors.Is(err, lending.ErrForbidden):
		return Problem{Status: http.StatusForbidden, Title: "Forbidden"}
	default:
		retry := false
		return Problem{Status: http.StatusInternalServerError, Title: "Internal Server Error", Retryable: &retry}
	}
}

// HandleLendingError writes the mapped Problem. Returns true if err != nil.
func HandleLendingError(w http.ResponseWriter, r *http.Request, err error) bool {
	if err == nil {
		return false
	}
	p := FromLending(err)
	if p.Status >= 500 {
		log.Printf("[lending] %s %s: %v", r.Method, r.URL.Path, err)
	}
	Write(w, r, p)
	return true
}
