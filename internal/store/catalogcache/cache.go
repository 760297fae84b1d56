// Package catalogcache keeps the book listing in Redis under a versioned
// prefix. Any catalog or lending mutation bumps the version, which orphans
// every older entry; they expire on their own TTL.
package catalogcache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	"github.com/5w1tchy/lending-api/internal/models"
)

const (
	versionKey = "catalog:ver"
	listBlock  = "books"
)

var json = jsoniter.ConfigFastest

type Cache struct {
	rdb     *redis.Client
	enabled bool
	ttl     time.Duration
	shortTO time.Duration
	warned  atomic.Bool
}

// New builds the cache. A nil client or CATALOG_DISABLE_CACHE=1 gives a
// cache that always misses.
func New(rdb *redis.Client) *Cache {
	if rdb == nil || os.Getenv("CATALOG_DISABLE_CACHE") == "1" {
		return &Cache{enabled: false}
	}

	ttl := time.Minute
	if v := os.Getenv("CATALOG_CACHE_TTL"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			ttl = time.Duration(secs) * time.Second
		}
	}
	shortTO := 150 * time.Millisecond
	if v := os.Getenv("CATALOG_CACHE_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			shortTO = time.Duration(ms) * time.Millisecond
		}
	}
	return &Cache{rdb: rdb, enabled: true, ttl: ttl, shortTO: shortTO}
}

func (c *Cache) GetBooks(ctx context.Context) ([]models.Book, string, bool) {
	if !c.enabled {
		return nil, "", false
	}
	ctx, cancel := context.WithTimeout(ctx, c.shortTO)
	defer cancel()

	ver, err := c.rdb.Get(ctx, versionKey).Int64()
	if errors.Is(err, redis.Nil) {
		// the first INCR yields 1, so an absent counter must read as 0
		ver = 0
	} else if err != nil {
		c.warnOnce("version read failed: %v; bypassing cache", err)
		return nil, "", false
	}
	prefix := fmt.Sprintf("catalog:v%d:", ver)

	raw, err := c.rdb.Get(ctx, prefix+listBlock).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, prefix, false
	}
	if err != nil {
		c.warnOnce("get failed: %v; bypassing cache", err)
		return nil, "", false
	}
	var books []models.Book
	if err := json.Unmarshal(raw, &books); err != nil {
		c.warnOnce("corrupt entry %s: %v", prefix+listBlock, err)
		return nil, prefix, false
	}
	return books, prefix, true
}

func (c *Cache) SetBooks(ctx context.Context, version string, books []models.Book) {
	if !c.enabled || version == "" {
		return
	}
	raw, err := json.Marshal(books)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, c.shortTO)
	defer cancel()
	if err := c.rdb.SetEx(ctx, version+listBlock, raw, c.ttl).Err(); err != nil {
		c.warnOnce("set failed: %v", err)
	}
}

// Invalidate bumps the version. Call it after the mutation committed.
func (c *Cache) Invalidate(ctx context.Context) error {
	if !c.enabled {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.shortTO)
	defer cancel()
	if err := c.rdb.Incr(ctx, versionKey).Err(); err != nil {
		return fmt.Errorf("bump catalog version: %w", err)
	}
	return nil
}

func (c *Cache) warnOnce(format string, args ...any) {
	if c.warned.CompareAndSwap(false, true) {
		log.Printf("[catalog][cache] "+format, args...)
	}
}
