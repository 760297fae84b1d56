package router

import (
	"net/http"

	"github.com/5w1tchy/lending-api/internal/access"
	"github.com/5w1tchy/lending-api/internal/api/handlers"
	"github.com/5w1tchy/lending-api/internal/api/handlers/books"
	"github.com/5w1tchy/lending-api/internal/api/handlers/borrows"
	"github.com/5w1tchy/lending-api/internal/api/middlewares"
	"github.com/5w1tchy/lending-api/internal/lending"
	jwtutil "github.com/5w1tchy/lending-api/internal/security/jwt"
)

// Deps is everything the HTTP surface needs. Optional fields may be nil.
type Deps struct {
	Svc    *lending.Service
	Tokens *jwtutil.Codec

	Admin       http.Handler           // optional; mounted under /admin/ when set
	BorrowLimit middlewares.Middleware // optional; applied to borrow and return
	Health      handlers.Pinger        // optional
}

func Router(d Deps) http.Handler {
	mux := http.NewServeMux()

	// gate authenticates the caller, then checks one capability
	gate := func(action access.Action, h http.HandlerFunc, extra ...middlewares.Middleware) http.Handler {
		return middlewares.RequireAuth(d.Tokens, middlewares.RequireAction(action, middlewares.Chain(h, extra...)))
	}
	var limited []middlewares.Middleware
	if d.BorrowLimit != nil {
		limited = append(limited, d.BorrowLimit)
	}

	mux.HandleFunc("GET /healthz", handlers.Healthz(d.Health))

	bh := books.New(d.Svc)
	mux.Handle("GET /books", gate(access.ReadCatalog, bh.List))
	mux.Handle("POST /books", gate(access.ManageCatalog, bh.Create))
	mux.Handle("GET /books/{id}", gate(access.ReadCatalog, bh.Get))
	mux.Handle("PUT /books/{id}", gate(access.ManageCatalog, bh.Update))
	mux.Handle("PATCH /books/{id}", gate(access.ManageCatalog, bh.Update))
	mux.Handle("DELETE /books/{id}", gate(access.ManageCatalog, bh.Delete))

	lh := borrows.New(d.Svc)
	mux.Handle("POST /books/{id}/borrow", gate(access.Borrow, lh.Borrow, limited...))
	mux.Handle("POST /books/{id}/return", gate(access.Return, lh.Return, limited...))
	mux.Handle("GET /borrows/mine", gate(access.ListOwnBorrows, lh.Mine))

	if d.Admin != nil {
		mux.Handle("/admin/", d.Admin)
	}
	return mux
}
