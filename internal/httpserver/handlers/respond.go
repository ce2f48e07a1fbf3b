package handlers

import (
	"errors"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/MrSnakeDoc/bookshare/internal/domain"
	"github.com/MrSnakeDoc/bookshare/internal/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxBodyBytes bounds donate/receive payloads.
const maxBodyBytes = 16 << 10

type errorResponse struct {
	Result string `json:"result"`
	Error  string `json:"error"`
}

// bookView is the wire form of a ledger entry.
type bookView struct {
	ISBN      string `json:"isbn"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Thumbnail string `json:"thumbnail"`
	Stock     int    `json:"stock"`
}

func viewOf(b domain.BookEntry) bookView {
	return bookView{
		ISBN:      b.ISBN,
		Title:     b.Title,
		Author:    b.Author,
		Thumbnail: b.SecureThumbnail(),
		Stock:     b.Stock,
	}
}

func writeJSON(w http.ResponseWriter, log logger.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug("failed to write response", logger.Error(err))
	}
}

// statusFor maps ledger errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDepleted):
		return http.StatusConflict
	case errors.Is(err, domain.ErrStore):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, log logger.Logger, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		// backend details stay in the logs
		msg = "the book ledger is temporarily unavailable"
	}
	writeJSON(w, log, status, errorResponse{Result: "error", Error: msg})
}

func decodeBody(r *http.Request, w http.ResponseWriter, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return nil
}
