package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/bookshare/internal/httpserver/deps"
)

// Feed streams stock changes over a websocket.
func Feed(d deps.Deps) http.HandlerFunc {
	return d.Feed.ServeWS
}
