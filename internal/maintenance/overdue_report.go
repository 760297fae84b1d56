package maintenance

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/5w1tchy/lending-api/internal/models"
)

// OverdueSource lists outstanding borrows past their deadline, fines as of now.
type OverdueSource interface {
	ListOverdue(ctx context.Context) ([]models.OutstandingBorrow, error)
}

// ReportSink stores a finished report document.
type ReportSink interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string) error
}

type OverdueReport struct {
	Date        string                     `json:"date"`
	GeneratedAt time.Time                  `json:"generated_at"`
	Count       int                        `json:"count"`
	TotalFines  int64                      `json:"total_fines"`
	Borrows     []models.OutstandingBorrow `json:"borrows"`
}

// ReportKey is the object key of the overdue report for day ("YYYY-MM-DD").
func ReportKey(day string) string {
	return "reports/overdue/" + day + ".json"
}

// WriteOverdueReport builds today's report and uploads it. It returns the
// object key written.
func WriteOverdueReport(ctx context.Context, src OverdueSource, sink ReportSink, now time.Time) (string, error) {
	rows, err := src.ListOverdue(ctx)
	if err != nil {
		return "", fmt.Errorf("list overdue: %w", err)
	}
	rep := OverdueReport{
		Date:        now.Format(time.DateOnly),
		GeneratedAt: now.UTC(),
		Count:       len(rows),
		Borrows:     rows,
	}
	for _, r := range rows {
		rep.TotalFines += r.CurrentFine
	}
	body, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	key := ReportKey(rep.Date)
	if err := sink.PutObject(ctx, key, body, "application/json"); err != nil {
		return "", err
	}
	return key, nil
}

// StartOverdueReport runs WriteOverdueReport daily at localTime ("HH:MM")
// in tzName until ctx is done.
// Call once at startup: maintenance.StartOverdueReport(ctx, svc, s3c, "06:00", "UTC")
func StartOverdueReport(ctx context.Context, src OverdueSource, sink ReportSink, localTime, tzName string) {
	go func() {
		loc, err := time.LoadLocation(tzName)
		if err != nil {
			loc = time.Local
		}
		h, m := parseClock(localTime, 6, 0)

		for {
			now := time.Now().In(loc)
			next := time.Date(now.Year(), now.Month(), now.Day(), h, m, 0, 0, loc)
			if !next.After(now) {
				next = next.Add(24 * time.Hour)
			}
			timer := time.NewTimer(time.Until(next))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
				key, err := WriteOverdueReport(ctx, src, sink, time.Now().In(loc))
				if err != nil {
					log.Printf("[overdue-report] failed: %v", err)
					continue
				}
				log.Printf("[overdue-report] wrote %s", key)
			}
		}
	}()
}

func parseClock(s string, defH, defM int) (int, int) {
	h, m := defH, defM
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return h, m
	}
	if v, err := strconv.Atoi(parts[0]); err == nil && v >= 0 && v < 24 {
		h = v
	}
	if v, err := strconv.Atoi(parts[1]); err == nil && v >= 0 && v < 60 {
		m = v
	}
	return h, m
}
