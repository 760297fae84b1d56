package middlewares

import (
	"log"
	"net/http"

	"github.com/5w1tchy/lending-api/internal/access"
	"github.com/5w1tchy/lending-api/internal/api/apperr"
)

// RequireAction rejects callers the access policy does not allow to perform
// action. It expects RequireAuth to have run first.
func RequireAction(action access.Action, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		if !ok {
			apperr.WriteStatus(w, r, http.StatusUnauthorized, "Unauthorized", "")
			return
		}
		if !access.Allows(id, action) {
			log.Printf("[access] denied %s for user=%s role=%s on %s %s", action, id.ID, id.Role, r.Method, r.URL.Path)
			apperr.WriteStatus(w, r, http.StatusForbidden, "Forbidden", "")
			return
		}
		next.ServeHTTP(w, r)
	})
}
