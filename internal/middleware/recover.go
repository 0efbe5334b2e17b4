package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/dukerupert/resell/internal/telemetry"
)

// Recover turns a handler panic into a logged 500. The panic is reported to
// Sentry when it is enabled.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			err := fmt.Errorf("panic: %v", rec)
			GetLogger(r.Context()).Error("panic recovered",
				"error", err,
				"stack", string(debug.Stack()),
			)
			telemetry.CaptureErrorFromContext(r.Context(), err, map[string]interface{}{
				"path":   r.URL.Path,
				"method": r.Method,
			})
			respondInternalError(w, r, err)
		}()

		next.ServeHTTP(w, r)
	})
}
