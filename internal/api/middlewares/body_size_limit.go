package middlewares

import (
	"net/http"
	"os"
	"strconv"
)

// Book payloads are tiny; 64KB is plenty.
const defaultBodyLimit = 64 << 10

// BodySizeLimit caps request bodies of mutating requests at MAX_BODY_SIZE bytes.
func BodySizeLimit(next http.Handler) http.Handler {
	limit := int64(defaultBodyLimit)
	if v := os.Getenv("MAX_BODY_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			limit = n
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			r.Body = http.MaxBytesReader(w, r.Body, limit)
		}
		next.ServeHTTP(w, r)
	})
}
