package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	admin "github.com/5w1tchy/lending-api/internal/api/handlers/admin"
	mw "github.com/5w1tchy/lending-api/internal/api/middlewares"
	"github.com/5w1tchy/lending-api/internal/api/router"
	"github.com/5w1tchy/lending-api/internal/lending"
	"github.com/5w1tchy/lending-api/internal/maintenance"
	"github.com/5w1tchy/lending-api/internal/metrics/activityqueue"
	"github.com/5w1tchy/lending-api/internal/repository/sqlconnect"
	jwtutil "github.com/5w1tchy/lending-api/internal/security/jwt"
	"github.com/5w1tchy/lending-api/internal/storage/s3"
	"github.com/5w1tchy/lending-api/internal/store/catalogcache"
	"github.com/5w1tchy/lending-api/internal/store/memory"
	"github.com/5w1tchy/lending-api/internal/store/sqlstore"
	"github.com/5w1tchy/lending-api/internal/validate"
)

func main() {
	_ = godotenv.Load()

	if err := validate.Env(); err != nil {
		log.Fatalf("invalid configuration:\n%v", err)
	}
	for _, w := range validate.HardeningWarnings(os.Getenv("APP_ENV")) {
		log.Printf("[config] warning: %s", w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalln("server error:", err)
	}
}

func run(ctx context.Context) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	opts := []lending.Option{lending.WithLogger(logger)}

	// --- storage backend ---
	var (
		store lending.Store
		db    *sqlx.DB
	)
	switch validate.StorageBackend() {
	case "memory":
		store = memory.New()
		log.Println("[storage] using in-memory store")
	default:
		var err error
		db, err = sqlconnect.ConnectDB()
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer db.Close()
		if os.Getenv("DB_AUTO_MIGRATE") == "1" {
			if err := sqlstore.Migrate(ctx, db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			log.Println("[storage] schema migrated")
		}
		store = sqlstore.New(db)

		q := activityqueue.Start(db, envInt("ACTIVITY_QUEUE_SIZE", 10000), envInt("ACTIVITY_WORKERS", 2))
		defer q.Shutdown()
		opts = append(opts, lending.WithActivityRecorder(q))
		log.Println("[storage] connected to PostgreSQL")
	}

	// --- redis (optional) ---
	rdb, err := newRedis()
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		if err := validate.PingRedis(rdb, 3*time.Second); err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		log.Println("[redis] connected")
	}
	opts = append(opts, lending.WithListCache(catalogcache.New(rdb)))

	svc := lending.NewService(store, opts...)
	tokens := jwtutil.New(jwtutil.LoadConfig())

	// --- object storage + overdue report (optional) ---
	var reports admin.ReportLinker
	if s3.Configured() {
		s3c, err := s3.NewR2Client(ctx)
		if err != nil {
			return fmt.Errorf("object storage: %w", err)
		}
		reports = s3c
		maintenance.StartOverdueReport(ctx, svc, s3c, envStr("OVERDUE_REPORT_AT", "06:00"), envStr("OVERDUE_REPORT_TZ", "UTC"))
		log.Println("[overdue-report] scheduled")
	}

	deps := router.Deps{
		Svc:    svc,
		Tokens: tokens,
		Admin:  router.Admin(tokens, admin.NewHandler(svc, rdb, reports)),
	}
	if db != nil {
		deps.Health = db
	}
	if rdb != nil {
		deps.BorrowLimit = borrowLimiter(rdb)
	}

	handler := mw.Chain(router.Router(deps),
		mw.Recovery,
		mw.RequestID,
		mw.Cors(mw.CorsOriginsFromEnv()),
		mw.ResponseTime,
		mw.SecurityHeaders,
		mw.BodySizeLimit,
		mw.Compression,
	)

	port := ":" + envStr("API_PORT", "3000")
	server := &http.Server{
		Addr:              port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
	}

	errCh := make(chan error, 1)
	go func() {
		cert, key := os.Getenv("TLS_CERT_FILE"), os.Getenv("TLS_KEY_FILE")
		fmt.Println("Server is running on port:", port)
		if cert != "" && key != "" {
			errCh <- server.ListenAndServeTLS(cert, key)
			return
		}
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func borrowLimiter(rdb *redis.Client) mw.Middleware {
	rate := 1.0
	if v := os.Getenv("BORROW_RATE_PER_SEC"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			rate = f
		}
	}
	tb := mw.NewRedisTokenBucket(rdb, rate, envInt("BORROW_RATE_BURST", 10), mw.PerUserKey("tb:borrow"))
	return tb.Middleware
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
