package middleware

import (
	"context"
	"net/http"
	"time"
)

// RequestTimeout bounds every request context. Outbound calls proxied by a
// handler inherit the deadline, so a slow remote cannot hold a worker past it.
// The server's WriteTimeout still applies on top.
func RequestTimeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if timeout <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
