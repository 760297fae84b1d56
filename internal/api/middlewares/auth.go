package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/5w1tchy/lending-api/internal/access"
	"github.com/5w1tchy/lending-api/internal/api/apperr"
	jwtutil "github.com/5w1tchy/lending-api/internal/security/jwt"
)

// RequireAuth verifies the Bearer JWT and injects the caller identity
// (subject + role claim) into the request context.
func RequireAuth(codec *jwtutil.Codec, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("Authorization")
		if raw == "" {
			apperr.WriteStatus(w, r, http.StatusUnauthorized, "Unauthorized", "missing Authorization header")
			return
		}
		tokenStr, err := bearer(raw)
		if err != nil {
			apperr.WriteStatus(w, r, http.StatusUnauthorized, "Unauthorized", "invalid Authorization header")
			return
		}
		claims, err := codec.ParseAccess(tokenStr)
		if err != nil {
			apperr.WriteStatus(w, r, http.StatusUnauthorized, "Unauthorized", "invalid token")
			return
		}

		id := access.Identity{ID: claims.Subject, Role: access.Role(claims.Role)}
		if !access.IsAuthenticated(id) {
			apperr.WriteStatus(w, r, http.StatusUnauthorized, "Unauthorized", "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

func bearer(h string) (string, error) {
	if !strings.HasPrefix(h, "Bearer ") && !strings.HasPrefix(h, "bearer ") {
		return "", errors.New("no bearer")
	}
	tok := strings.TrimSpace(h[len("Bearer "):])
	if tok == "" {
		return "", errors.New("empty bearer")
	}
	return tok, nil
}
