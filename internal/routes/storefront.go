package routes

import (
	"github.com/dukerupert/resell/internal/handler/storefront"
	"github.com/dukerupert/resell/internal/router"
)

// RegisterStorefrontRoutes registers the cart API. Every route resolves the
// cart session cookie first.
func RegisterStorefrontRoutes(r *router.Router, deps StorefrontDeps) {
	chain := append([]router.Middleware{storefront.Session(deps.Cookie)}, deps.Extra...)
	cart := r.Group(chain...)

	h := deps.CartHandler
	cart.Get("/cart", h.View)
	cart.Delete("/cart", h.Clear)

	cart.Post("/cart/items", h.AddItem)
	cart.Patch("/cart/items/{id}", h.UpdateItem)
	cart.Delete("/cart/items/{id}", h.RemoveItem)

	coupons := cart
	if deps.CouponLimiter != nil {
		coupons = cart.Group(deps.CouponLimiter.Middleware)
	}
	coupons.Post("/cart/coupon", h.ApplyCoupon)
	cart.Delete("/cart/coupon", h.RemoveCoupon)

	cart.Post("/cart/toggle", h.Toggle)
	cart.Put("/cart/open", h.SetOpen)
}
