// Package middleware contains the HTTP middlewares wrapped around the API.
package middleware

import (
	"context"
	"net/http"
	"time"
)

// TimeoutHandler sets the timeout in each request
type TimeoutHandler struct {
	timeout time.Duration
}

// NewTimeoutHandler returns new TimeoutHandler that timeouts request if it
// exceeds the timeout value
func NewTimeoutHandler(timeout time.Duration) *TimeoutHandler {
	return &TimeoutHandler{
		timeout: timeout,
	}
}

// Handler bounds the context of every request. Unlike [http.TimeoutHandler]
// it leaves the response to next, which maps the expired context onto the
// proper error body.
func (h *TimeoutHandler) Handler(next http.Handler) http.Handler {
	if h.timeout <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
