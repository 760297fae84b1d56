package validate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Env validates required env configuration. Fail-fast on bad config; all
// problems are reported together.
func Env() error {
	var errs []error

	if len(os.Getenv("AUTH_JWT_SECRET")) < 32 {
		errs = append(errs, errors.New("AUTH_JWT_SECRET must be at least 32 characters"))
	}

	switch backend := StorageBackend(); backend {
	case "memory":
	case "postgres":
		if os.Getenv("DATABASE_URL") == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORAGE_BACKEND=postgres"))
		}
		switch d := os.Getenv("DB_DRIVER"); d {
		case "", "pgx", "postgres":
		default:
			errs = append(errs, fmt.Errorf("DB_DRIVER: unsupported driver %q (pgx|postgres)", d))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND: unsupported backend %q (memory|postgres)", backend))
	}

	if err := envMinInt("AUTH_CLOCK_SKEW_SEC", 0); err != nil {
		errs = append(errs, fmt.Errorf("AUTH_CLOCK_SKEW_SEC: %w", err))
	}
	if err := envMinInt("BORROW_RATE_BURST", 1); err != nil {
		errs = append(errs, fmt.Errorf("BORROW_RATE_BURST: %w", err))
	}
	if err := envMinInt("ACTIVITY_QUEUE_SIZE", 1); err != nil {
		errs = append(errs, fmt.Errorf("ACTIVITY_QUEUE_SIZE: %w", err))
	}
	if err := envMinInt("ACTIVITY_WORKERS", 1); err != nil {
		errs = append(errs, fmt.Errorf("ACTIVITY_WORKERS: %w", err))
	}
	if v := os.Getenv("BORROW_RATE_PER_SEC"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err != nil || f <= 0 {
			errs = append(errs, fmt.Errorf("BORROW_RATE_PER_SEC: invalid rate %q", v))
		}
	}
	if v := os.Getenv("OVERDUE_REPORT_TZ"); v != "" {
		if _, err := time.LoadLocation(v); err != nil {
			errs = append(errs, fmt.Errorf("OVERDUE_REPORT_TZ: %w", err))
		}
	}
	return errors.Join(errs...)
}

// StorageBackend returns STORAGE_BACKEND, defaulting to postgres.
func StorageBackend() string {
	if v := strings.ToLower(strings.TrimSpace(os.Getenv("STORAGE_BACKEND"))); v != "" {
		return v
	}
	return "postgres"
}

// HardeningWarnings returns non-fatal warnings you may want to log on startup.
func HardeningWarnings(appEnv string) []string {
	var warns []string

	if StorageBackend() == "memory" {
		warns = append(warns, "STORAGE_BACKEND=memory keeps all books and borrows in process memory; data is lost on restart")
	}
	if d := time.Duration(envInt("AUTH_CLOCK_SKEW_SEC", 60)) * time.Second; d > 5*time.Minute {
		warns = append(warns, fmt.Sprintf("AUTH_CLOCK_SKEW_SEC=%s is > 5m; expired tokens stay usable that long", d))
	}

	if strings.EqualFold(appEnv, "production") {
		if u := os.Getenv("UPSTASH_REDIS_URL"); u != "" && strings.HasPrefix(u, "redis://") {
			warns = append(warns, "UPSTASH_REDIS_URL uses redis:// (no TLS). Prefer rediss:// for TLS")
		}
		if os.Getenv("UPSTASH_REDIS_URL") == "" && os.Getenv("REDIS_ADDR") != "" && os.Getenv("REDIS_PASSWORD") == "" {
			warns = append(warns, "REDIS_ADDR provided without REDIS_PASSWORD; require auth in production")
		}
		if os.Getenv("TLS_CERT_FILE") == "" {
			warns = append(warns, "TLS_CERT_FILE not set; serving plain HTTP")
		}
	}
	return warns
}

// PingRedis checks connectivity with a short timeout.
func PingRedis(rdb *redis.Client, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	_, err := rdb.Ping(ctx).Result()
	return err
}

// --- helpers ---

func envInt(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envMinInt(key string, min int64) error {
	v := os.Getenv(key)
	if v == "" {
		return nil // unset -> code defaults apply elsewhere
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("not a number: %v", err)
	}
	if n < min {
		return fmt.Errorf("must be >= %d", min)
	}
	return nil
}
