package admin

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/5w1tchy/lending-api/internal/lending"
)

// ReportLinker hands out short-lived download links for stored reports.
type ReportLinker interface {
	GeneratePresignedDownloadURL(ctx context.Context, objectKey string) (string, error)
}

type Handler struct {
	Svc     *lending.Service
	RDB     *redis.Client // optional; stats are not cached without it
	Reports ReportLinker  // optional; report links are unavailable without it
}

func NewHandler(svc *lending.Service, rdb *redis.Client, reports ReportLinker) *Handler {
	return &Handler{Svc: svc, RDB: rdb, Reports: reports}
}
