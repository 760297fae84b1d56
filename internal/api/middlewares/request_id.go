package middlewares

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// HeaderRequestID carries the correlation id in both directions. Problem
// bodies read it back off the request header.
const HeaderRequestID = "X-Request-ID"

const maxRequestIDLen = 64

type requestIDKey struct{}

// RequestID keeps a well-formed inbound X-Request-ID and otherwise mints a
// UUIDv7, so generated ids sort by arrival time in the access log.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get(HeaderRequestID)
		if !wellFormedRequestID(rid) {
			rid = newRequestID()
		}
		r = r.WithContext(WithRequestID(r.Context(), rid))
		r.Header.Set(HeaderRequestID, rid)
		w.Header().Set(HeaderRequestID, rid)

		next.ServeHTTP(w, r)
	})
}

func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, rid)
}

// RequestIDFrom returns the id RequestID attached to ctx.
func RequestIDFrom(ctx context.Context) (string, bool) {
	rid, ok := ctx.Value(requestIDKey{}).(string)
	return rid, ok && rid != ""
}

// GetRequestID prefers the context value and falls back to the raw header
// for requests that never passed through RequestID.
func GetRequestID(r *http.Request) string {
	if rid, ok := RequestIDFrom(r.Context()); ok {
		return rid
	}
	return r.Header.Get(HeaderRequestID)
}

func newRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// wellFormedRequestID accepts 1..64 characters from [A-Za-z0-9_.-].
func wellFormedRequestID(s string) bool {
	if s == "" || len(s) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '_', c == '.', c == '-':
		default:
			return false
		}
	}
	return true
}
