package routes

import (
	"net/http"

	"github.com/dukerupert/resell/internal/cookie"
	"github.com/dukerupert/resell/internal/handler/storefront"
	"github.com/dukerupert/resell/internal/middleware"
	"github.com/dukerupert/resell/internal/router"
)

// StorefrontDeps contains dependencies for the cart API routes
type StorefrontDeps struct {
	CartHandler *storefront.CartHandler
	Cookie      *cookie.Config

	// CouponLimiter throttles POST /cart/coupon on top of the global limiter.
	// Nil disables the extra limit.
	CouponLimiter *middleware.RateLimiter

	// Extra runs after the session is resolved, e.g. Sentry scope tagging.
	Extra []router.Middleware
}

// OpsDeps contains dependencies for operational endpoints
type OpsDeps struct {
	Health  http.Handler
	Metrics http.Handler
}
