package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/bookshare/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bookshare/internal/logger"
)

// Books lists in-stock books, filtered by ?search= (or ?q=).
func Books(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("search")
		if q == "" {
			q = r.URL.Query().Get("q")
		}

		entries, err := d.Searcher.Search(r.Context(), q)
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}

		d.Logger.Debug("book search",
			logger.String("query", q),
			logger.Int("results", len(entries)))

		out := make([]bookView, 0, len(entries))
		for _, e := range entries {
			out = append(out, viewOf(e))
		}
		writeJSON(w, d.Logger, http.StatusOK, out)
	}
}
