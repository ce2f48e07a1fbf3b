package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/bookshare/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bookshare/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/bookshare/internal/httpserver/mw"
)

func init() {
	Register(registerBooks)
	RegisterStream(registerFeed)
}

func registerBooks(r chi.Router, d deps.Deps) {
	limited := r.With(mw.RateLimit(mw.RateLimitConfig{
		Burst:             d.RateLimitBurst,
		RefillPerIPPerMin: d.RateLimitPerMin,
		TrustProxy:        d.TrustProxy,
	}))

	r.Get("/api/books", handlers.Books(d))
	limited.Post("/api/donate", handlers.Donate(d))
	limited.Post("/api/receive", handlers.Receive(d))
}

func registerFeed(r chi.Router, d deps.Deps) {
	r.Get("/api/feed", handlers.Feed(d))
}
