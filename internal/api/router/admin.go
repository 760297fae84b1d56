package router

import (
	"net/http"

	"github.com/5w1tchy/lending-api/internal/access"
	admin "github.com/5w1tchy/lending-api/internal/api/handlers/admin"
	"github.com/5w1tchy/lending-api/internal/api/middlewares"
	jwtutil "github.com/5w1tchy/lending-api/internal/security/jwt"
)

// Admin builds the /admin/* sub-router; every route requires an admin
// capability.
func Admin(tokens *jwtutil.Codec, h *admin.Handler) http.Handler {
	mux := http.NewServeMux()

	gate := func(action access.Action, next http.HandlerFunc) http.Handler {
		return middlewares.RequireAuth(tokens, middlewares.RequireAction(action, next))
	}

	mux.Handle("GET /admin/stats", gate(access.ViewStats, h.Stats))
	mux.Handle("GET /admin/reports/overdue/{date}", gate(access.ViewReports, h.OverdueReport))
	return mux
}
