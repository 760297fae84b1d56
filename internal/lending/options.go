package lending

import (
	"context"
	"log/slog"
	"time"

	"github.com/5w1tchy/lending-api/internal/models"
)

// Logger is satisfied by *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// ListCache stores the catalog listing between mutations. GetBooks returns
// a version token on a miss; SetBooks stores under that token, so a listing
// read before an Invalidate is never served after it.
type ListCache interface {
	GetBooks(ctx context.Context) (books []models.Book, version string, ok bool)
	SetBooks(ctx context.Context, version string, books []models.Book)
	Invalidate(ctx context.Context) error
}

type ActivityKind string

const (
	ActivityBorrowed ActivityKind = "borrowed"
	ActivityReturned ActivityKind = "returned"
)

type Activity struct {
	Kind       ActivityKind
	BookID     string
	UserID     string
	Fine       int64
	OccurredAt time.Time
}

// ActivityRecorder receives committed lending events. Record must not block.
type ActivityRecorder interface {
	Record(a Activity)
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(l Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithListCache(c ListCache) Option {
	return func(s *Service) { s.cache = c }
}

func WithActivityRecorder(r ActivityRecorder) Option {
	return func(s *Service) { s.activity = r }
}

func discardLogger() Logger { return slog.New(slog.DiscardHandler) }
