package admin

import (
	"log"
	"net/http"
	"time"

	"github.com/5w1tchy/lending-api/internal/api/apperr"
	"github.com/5w1tchy/lending-api/internal/api/httpx"
	"github.com/5w1tchy/lending-api/internal/maintenance"
)

// GET /admin/reports/overdue/{date}
func (h *Handler) OverdueReport(w http.ResponseWriter, r *http.Request) {
	if h.Reports == nil {
		apperr.WriteStatus(w, r, http.StatusNotFound, "Not Found", "object storage is not configured")
		return
	}

	day := r.PathValue("date")
	if _, err := time.Parse(time.DateOnly, day); err != nil {
		apperr.WriteField(w, r, "date", "invalid", "date must be YYYY-MM-DD")
		return
	}

	url, err := h.Reports.GeneratePresignedDownloadURL(r.Context(), maintenance.ReportKey(day))
	if err != nil {
		log.Printf("[overdue-report] presign %s: %v", day, err)
		apperr.WriteStatus(w, r, http.StatusInternalServerError, "Internal Server Error", "")
		return
	}
	httpx.OK(w, map[string]string{"url": url})
}
