package routes

import (
	"github.com/dukerupert/resell/internal/handler"
	"github.com/dukerupert/resell/internal/router"
)

// RegisterOpsRoutes registers /health and /metrics. It also installs the JSON
// fallbacks for unknown routes.
func RegisterOpsRoutes(r *router.Router, deps OpsDeps) {
	if deps.Health != nil {
		r.Get("/health", deps.Health.ServeHTTP)
	}
	if deps.Metrics != nil {
		r.Get("/metrics", deps.Metrics.ServeHTTP)
	}

	r.NotFound(handler.NotFoundResponse)
	r.MethodNotAllowed(handler.MethodNotAllowedResponse)
}
