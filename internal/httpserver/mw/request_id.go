package mw

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// EchoRequestID copies the id set by middleware.RequestID onto the response.
// It must run after middleware.RequestID.
func EchoRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			w.Header().Set(middleware.RequestIDHeader, id)
		}
		next.ServeHTTP(w, r)
	})
}
