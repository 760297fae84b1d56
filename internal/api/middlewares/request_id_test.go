package middlewares_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	mw "github.com/5w1tchy/lending-api/internal/api/middlewares"
)

func TestRequestID_GeneratesUUIDv7(t *testing.T) {
	var seen string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid, ok := mw.RequestIDFrom(r.Context())
		if !ok {
			t.Error("Expected request ID in context")
		}
		seen = rid
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	mw.RequestID(handler).ServeHTTP(rec, httptest.NewRequest("GET", "/books", nil))

	got := rec.Header().Get(mw.HeaderRequestID)
	if got == "" || got != seen {
		t.Fatalf("Expected response header %q to match context id %q", got, seen)
	}
	id, err := uuid.Parse(got)
	if err != nil {
		t.Fatalf("Expected a uuid, got %q: %v", got, err)
	}
	if id.Version() != 7 {
		t.Errorf("Expected version 7, got %d", id.Version())
	}
}

func TestRequestID_UsesProvidedID(t *testing.T) {
	req := httptest.NewRequest("GET", "/books", nil)
	req.Header.Set(mw.HeaderRequestID, "custom-request-id")
	rec := httptest.NewRecorder()

	mw.RequestID(http.NotFoundHandler()).ServeHTTP(rec, req)

	if got := rec.Header().Get(mw.HeaderRequestID); got != "custom-request-id" {
		t.Errorf("Expected custom-request-id, got %s", got)
	}
}

func TestRequestID_RejectsInvalidID(t *testing.T) {
	for _, bad := range []string{"invalid@#$%id", "has space", strings.Repeat("a", 65)} {
		req := httptest.NewRequest("GET", "/books", nil)
		req.Header.Set(mw.HeaderRequestID, bad)
		rec := httptest.NewRecorder()

		mw.RequestID(http.NotFoundHandler()).ServeHTTP(rec, req)

		rid := rec.Header().Get(mw.HeaderRequestID)
		if rid == bad || rid == "" {
			t.Errorf("Expected a generated request ID for %q, got %q", bad, rid)
		}
	}
}

func TestGetRequestID_FallsBackToHeader(t *testing.T) {
	req := httptest.NewRequest("GET", "/books", nil)
	if got := mw.GetRequestID(req); got != "" {
		t.Fatalf("Expected empty id, got %q", got)
	}
	req.Header.Set(mw.HeaderRequestID, "upstream-1")
	if got := mw.GetRequestID(req); got != "upstream-1" {
		t.Errorf("Expected upstream-1, got %q", got)
	}

	req = req.WithContext(mw.WithRequestID(req.Context(), "ctx-1"))
	if got := mw.GetRequestID(req); got != "ctx-1" {
		t.Errorf("Expected ctx-1, got %q", got)
	}
}
