package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/bookshare/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bookshare/internal/ledger"
)

type donateRequest struct {
	ISBN      string `json:"isbn"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Thumbnail string `json:"thumbnail"`
}

type donateResponse struct {
	Result  string `json:"result"`
	Message string `json:"message"`
	ISBN    string `json:"isbn"`
	Stock   int    `json:"stock"`
}

func Donate(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req donateRequest
		if err := decodeBody(r, w, &req); err != nil {
			writeJSON(w, d.Logger, http.StatusBadRequest, errorResponse{Result: "error", Error: "invalid request body"})
			return
		}

		res, err := d.Ledger.Donate(r.Context(), ledger.DonateRequest{
			ISBN:      req.ISBN,
			Title:     req.Title,
			Author:    req.Author,
			Thumbnail: req.Thumbnail,
		})
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}

		writeJSON(w, d.Logger, http.StatusOK, donateResponse{
			Result:  "success",
			Message: "Thank you for your donation!",
			ISBN:    res.ISBN,
			Stock:   res.Stock,
		})
	}
}
