package admin

import (
	"context"
	"log"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/5w1tchy/lending-api/internal/api/apperr"
	"github.com/5w1tchy/lending-api/internal/models"
)

const StatsCacheKey = "admin:stats"
const StatsCacheDuration = 30 * time.Second

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var marshalStats = func(v statsEnvelope) ([]byte, error) { return json.Marshal(v) }

type statsEnvelope struct {
	Status string              `json:"status"`
	Data   models.LendingStats `json:"data"`
}

// GET /admin/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.writeCachedStats(ctx, w) {
		return
	}

	stats, err := h.Svc.Stats(ctx)
	if apperr.HandleLendingError(w, r, err) {
		return
	}

	body, err := marshalStats(statsEnvelope{Status: "success", Data: stats})
	if err != nil {
		log.Printf("[admin] encode stats: %v", err)
		apperr.WriteStatus(w, r, http.StatusInternalServerError, "Internal Server Error", "")
		return
	}
	if h.RDB != nil {
		_ = h.RDB.SetEx(ctx, StatsCacheKey, body, StatsCacheDuration).Err()
	}
	writeRaw(w, body)
}

func (h *Handler) writeCachedStats(ctx context.Context, w http.ResponseWriter) bool {
	if h.RDB == nil {
		return false
	}
	cached, err := h.RDB.Get(ctx, StatsCacheKey).Bytes()
	if err != nil || len(cached) == 0 {
		return false
	}
	writeRaw(w, cached)
	return true
}

func writeRaw(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
