package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/bookshare/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bookshare/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/bookshare/internal/httpserver/mw"
)

func init() { Register(registerOps) }

func registerOps(r chi.Router, d deps.Deps) {
	restricted := r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger))
	restricted.Get("/infra", handlers.Infra(d))
	restricted.Post("/reload", handlers.Reload(d))
}
