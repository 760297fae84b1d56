package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/5w1tchy/lending-api/internal/api/httpx"
)

// Pinger is anything the service depends on that can be probed.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Healthz reports 200 when db (if any) answers within a second.
func Healthz(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				httpx.ErrorJSON(w, http.StatusServiceUnavailable, "database unavailable")
				return
			}
		}
		httpx.OK(w, map[string]string{"status": "ok"})
	}
}
