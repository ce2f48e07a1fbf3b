package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/bookshare/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bookshare/internal/logger"
)

const pingTimeout = 2 * time.Second

type readyzResponse struct {
	Ready bool   `json:"ready"`
	Store string `json:"store"`
	Error string `json:"error,omitempty"`
}

// Readyz reports ready once the ledger backend answers a ping.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()

		if err := d.Store.Ping(ctx); err != nil {
			d.Logger.Warn("readiness check failed",
				logger.String("store", d.StoreKind),
				logger.Error(err))
			writeJSON(w, d.Logger, http.StatusServiceUnavailable, readyzResponse{
				Ready: false,
				Store: d.StoreKind,
				Error: "store unreachable",
			})
			return
		}

		writeJSON(w, d.Logger, http.StatusOK, readyzResponse{Ready: true, Store: d.StoreKind})
	}
}
