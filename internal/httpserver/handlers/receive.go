package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/bookshare/internal/httpserver/deps"
)

type receiveRequest struct {
	ISBN string `json:"isbn"`
}

type receiveResponse struct {
	Result  string   `json:"result"`
	Message string   `json:"message"`
	Book    bookView `json:"book"`
	Stock   int      `json:"stock"`
}

func Receive(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req receiveRequest
		if err := decodeBody(r, w, &req); err != nil {
			writeJSON(w, d.Logger, http.StatusBadRequest, errorResponse{Result: "error", Error: "invalid request body"})
			return
		}

		entry, err := d.Ledger.Receive(r.Context(), req.ISBN)
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}

		writeJSON(w, d.Logger, http.StatusOK, receiveResponse{
			Result:  "success",
			Message: "Enjoy your book!",
			Book:    viewOf(entry),
			Stock:   entry.Stock,
		})
	}
}
