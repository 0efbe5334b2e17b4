package storefront

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dukerupert/resell/internal/cookie"
	"github.com/dukerupert/resell/internal/middleware"
)

type sessionKey struct{}

// Session resolves the cart session cookie, minting one when it is missing
// or malformed, and stores the id in the request context. The request
// logger gains a session_id attribute.
func Session(cfg *cookie.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := middleware.GetLogger(r.Context())
			id := cfg.Session(w, r, logger)

			ctx := context.WithValue(r.Context(), sessionKey{}, id)
			ctx = middleware.WithLogger(ctx, logger.With(slog.String("session_id", id)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext returns the cart session id stored by Session, or "".
func SessionFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}
