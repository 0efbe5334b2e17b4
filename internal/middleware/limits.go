package middleware

import (
	"context"
	"net/http"
	"time"
)

// Common size limits
const (
	KB = 1024
	MB = 1024 * KB

	// DefaultMaxBodySize fits any cart request with room to spare.
	DefaultMaxBodySize = 64 * KB
)

// MaxBodySize limits the size of request bodies. Declared oversize bodies are
// refused up front with a too_large error; undeclared ones are capped by
// http.MaxBytesReader and fail at decode time.
func MaxBodySize(maxBytes ...int64) func(http.Handler) http.Handler {
	limit := int64(DefaultMaxBodySize)
	if len(maxBytes) > 0 && maxBytes[0] > 0 {
		limit = maxBytes[0]
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && r.ContentLength > limit {
				respondTooLarge(w, r, "Request body too large")
				return
			}

			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// DefaultTimeout bounds one cart request, including the coupon round trip.
const DefaultTimeout = 15 * time.Second

// Timeout attaches a deadline to the request context. Downstream calls that
// honor the context give up when it passes; handlers still write their own
// response. If nothing was written by then, a timeout error is sent.
func Timeout(timeout ...time.Duration) func(http.Handler) http.Handler {
	d := DefaultTimeout
	if len(timeout) > 0 && timeout[0] > 0 {
		d = timeout[0]
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			sw := &statusWriter{ResponseWriter: w}
			next.ServeHTTP(sw, r.WithContext(ctx))

			if !sw.wroteHeader && ctx.Err() == context.DeadlineExceeded {
				respondTimeout(w, r)
			}
		})
	}
}
