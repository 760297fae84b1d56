package borrows

import (
	"net/http"
	"time"

	"github.com/5w1tchy/lending-api/internal/api/apperr"
	"github.com/5w1tchy/lending-api/internal/api/httpx"
	"github.com/5w1tchy/lending-api/internal/api/middlewares"
	"github.com/5w1tchy/lending-api/internal/lending"
	"github.com/5w1tchy/lending-api/internal/models"
	"github.com/5w1tchy/lending-api/internal/validate"
)

type Handler struct {
	Svc *lending.Service
}

func New(svc *lending.Service) *Handler {
	return &Handler{Svc: svc}
}

type returnResp struct {
	BookID     string    `json:"book_id"`
	ReturnedAt time.Time `json:"returned_at"`
	Fine       int64     `json:"fine"`
}

// POST /books/{id}/borrow
func (h *Handler) Borrow(w http.ResponseWriter, r *http.Request) {
	caller, bookID, ok := callerAndBook(w, r, lending.ErrNotFound)
	if !ok {
		return
	}
	b, err := h.Svc.Borrow(r.Context(), bookID, caller)
	if apperr.HandleLendingError(w, r, err) {
		return
	}
	httpx.OK(w, b)
}

// POST /books/{id}/return
func (h *Handler) Return(w http.ResponseWriter, r *http.Request) {
	caller, bookID, ok := callerAndBook(w, r, lending.ErrNotBorrowed)
	if !ok {
		return
	}
	closed, err := h.Svc.ReturnBook(r.Context(), bookID, caller)
	if apperr.HandleLendingError(w, r, err) {
		return
	}
	resp := returnResp{BookID: closed.BookID, Fine: closed.Fine}
	if closed.ReturnedAt != nil {
		resp.ReturnedAt = *closed.ReturnedAt
	}
	httpx.OK(w, resp)
}

// GET /borrows/mine
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	caller, ok := middlewares.IdentityFrom(r.Context())
	if !ok {
		apperr.WriteStatus(w, r, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	list, err := h.Svc.ListMyBorrows(r.Context(), caller.ID)
	if apperr.HandleLendingError(w, r, err) {
		return
	}
	if list == nil {
		list = []models.OutstandingBorrow{}
	}
	httpx.OK(w, list)
}

// callerAndBook resolves the authenticated caller and the path book id. A
// malformed id is answered with badID.
func callerAndBook(w http.ResponseWriter, r *http.Request, badID error) (string, string, bool) {
	caller, ok := middlewares.IdentityFrom(r.Context())
	if !ok {
		apperr.WriteStatus(w, r, http.StatusUnauthorized, "Unauthorized", "")
		return "", "", false
	}
	id, err := validate.ID(r.PathValue("id"))
	if err != nil {
		apperr.Write(w, r, apperr.FromLending(badID))
		return "", "", false
	}
	return caller.ID, id, true
}
