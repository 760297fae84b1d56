package books

import (
	"net/http"

	"github.com/5w1tchy/lending-api/internal/api/apperr"
	"github.com/5w1tchy/lending-api/internal/api/httpx"
	"github.com/5w1tchy/lending-api/internal/api/middlewares"
	"github.com/5w1tchy/lending-api/internal/lending"
	"github.com/5w1tchy/lending-api/internal/models"
)

const (
	minTextLen = 1
	maxTextLen = 255
)

// Handler serves the /books catalog endpoints. Capability checks happen in
// the router; handlers only parse, validate and call the service.
type Handler struct {
	Svc *lending.Service
}

func New(svc *lending.Service) *Handler {
	return &Handler{Svc: svc}
}

// GET /books
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.Svc.ListBooks(r.Context())
	if apperr.HandleLendingError(w, r, err) {
		return
	}
	if list == nil {
		list = []models.Book{}
	}
	httpx.OK(w, list)
}

// GET /books/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := bookID(w, r)
	if !ok {
		return
	}
	b, err := h.Svc.GetBook(r.Context(), id)
	if apperr.HandleLendingError(w, r, err) {
		return
	}
	httpx.OK(w, b)
}

// POST /books
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var body bookReq
	if err := httpx.DecodeJSON(r, &body); err != nil {
		apperr.WriteStatus(w, r, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if body.Title == nil || body.Author == nil {
		apperr.WriteStatus(w, r, http.StatusBadRequest, "Bad Request", "title and author are required")
		return
	}
	title, ok := boundedField(w, r, "title", *body.Title)
	if !ok {
		return
	}
	author, ok := boundedField(w, r, "author", *body.Author)
	if !ok {
		return
	}

	caller, _ := middlewares.IdentityFrom(r.Context())
	b, err := h.Svc.CreateBook(r.Context(), title, author, caller.ID)
	if apperr.HandleLendingError(w, r, err) {
		return
	}
	w.Header().Set("Location", "/books/"+b.ID)
	httpx.Created(w, b)
}

// PUT /books/{id} and PATCH /books/{id}. Both are partial: omitted fields
// keep their value.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := bookID(w, r)
	if !ok {
		return
	}
	var body bookReq
	if err := httpx.DecodeJSON(r, &body); err != nil {
		apperr.WriteStatus(w, r, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	var patch models.BookPatch
	if body.Title != nil {
		t, ok := boundedField(w, r, "title", *body.Title)
		if !ok {
			return
		}
		patch.Title = &t
	}
	if body.Author != nil {
		a, ok := boundedField(w, r, "author", *body.Author)
		if !ok {
			return
		}
		patch.Author = &a
	}
	if patch.Empty() {
		apperr.WriteStatus(w, r, http.StatusBadRequest, "Bad Request", "nothing to update")
		return
	}

	b, err := h.Svc.UpdateBook(r.Context(), id, patch)
	if apperr.HandleLendingError(w, r, err) {
		return
	}
	httpx.OK(w, b)
}

// DELETE /books/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := bookID(w, r)
	if !ok {
		return
	}
	if apperr.HandleLendingError(w, r, h.Svc.DeleteBook(r.Context(), id)) {
		return
	}
	httpx.NoContent(w)
}
