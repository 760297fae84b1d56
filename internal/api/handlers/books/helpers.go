package books

import (
	"net/http"

	"github.com/5w1tchy/lending-api/internal/api/apperr"
	"github.com/5w1tchy/lending-api/internal/lending"
	"github.com/5w1tchy/lending-api/internal/validate"
)

// bookReq is the writable part of a book. is_available and created_by are
// server-owned and rejected as unknown fields.
type bookReq struct {
	Title  *string `json:"title"`
	Author *string `json:"author"`
}

// bookID reads {id}. A malformed id cannot name a book, so it is a 404.
func bookID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := validate.ID(r.PathValue("id"))
	if err != nil {
		apperr.Write(w, r, apperr.FromLending(lending.ErrNotFound))
		return "", false
	}
	return id, true
}

func boundedField(w http.ResponseWriter, r *http.Request, name, raw string) (string, bool) {
	v, err := validate.RequireBounded(name, raw, minTextLen, maxTextLen)
	if err != nil {
		apperr.WriteField(w, r, name, "invalid", err.Error())
		return "", false
	}
	return v, true
}
