package storefront

import (
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/resell/internal/auth"
	"github.com/dukerupert/resell/internal/domain"
	"github.com/dukerupert/resell/internal/handler"
	"github.com/dukerupert/resell/internal/middleware"
	"github.com/dukerupert/resell/internal/router"
	"github.com/dukerupert/resell/internal/service"
)

// CartHandler serves the cart JSON API. Every route expects the Session
// middleware to have resolved the cart session.
type CartHandler struct {
	cartService service.CartService
}

// NewCartHandler creates a new cart handler
func NewCartHandler(cartService service.CartService) *CartHandler {
	return &CartHandler{cartService: cartService}
}

type addItemRequest struct {
	ID       string          `json:"id" validate:"required,max=128"`
	Name     string          `json:"name" validate:"max=256"`
	Price    decimal.Decimal `json:"price"`
	Quantity *int            `json:"quantity" validate:"omitempty,min=1,max=999"`
	Image    string          `json:"image" validate:"omitempty,max=2048"`
	Kind     string          `json:"kind" validate:"omitempty,oneof=product service"`
	PlanID   string          `json:"planId" validate:"max=128"`
	PlanName string          `json:"planName" validate:"max=256"`
}

type updateItemRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

type applyCouponRequest struct {
	Code string `json:"code" validate:"max=64"`
}

type setOpenRequest struct {
	Open *bool `json:"open" validate:"required"`
}

// View handles GET /cart
func (h *CartHandler) View(w http.ResponseWriter, r *http.Request) {
	summary, err := h.cartService.GetCartSummary(r.Context(), SessionFromContext(r.Context()))
	h.respond(w, r, summary, err)
}

// AddItem handles POST /cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	const op = "cart.add"

	var req addItemRequest
	if err := handler.DecodeJSON(r, op, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if req.Price.IsNegative() {
		handler.ErrorResponse(w, r, domain.NewValidationError(op, "price", "must not be negative"))
		return
	}

	kind := domain.ItemKind(req.Kind)
	if kind == "" {
		kind = domain.ItemKindProduct
	}
	item := domain.LineItem{
		ID:       req.ID,
		Name:     req.Name,
		Price:    req.Price,
		Image:    req.Image,
		Kind:     kind,
		PlanID:   req.PlanID,
		PlanName: req.PlanName,
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	summary, err := h.cartService.AddItem(r.Context(), SessionFromContext(r.Context()), item, quantity)
	h.respond(w, r, summary, err)
}

// UpdateItem handles PATCH /cart/items/{id}. A quantity of zero removes the line.
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := handler.DecodeJSON(r, "cart.set_quantity", &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	summary, err := h.cartService.UpdateItemQuantity(r.Context(), SessionFromContext(r.Context()), router.Param(r, "id"), *req.Quantity)
	h.respond(w, r, summary, err)
}

// RemoveItem handles DELETE /cart/items/{id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	summary, err := h.cartService.RemoveItem(r.Context(), SessionFromContext(r.Context()), router.Param(r, "id"))
	h.respond(w, r, summary, err)
}

// Clear handles DELETE /cart
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	summary, err := h.cartService.ClearCart(r.Context(), SessionFromContext(r.Context()))
	h.respond(w, r, summary, err)
}

// ApplyCoupon handles POST /cart/coupon. The caller's bearer token, if any,
// is passed through to the coupon service untouched.
func (h *CartHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var req applyCouponRequest
	if err := handler.DecodeJSON(r, "coupon.apply", &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	token := auth.BearerToken(r)
	ctx := r.Context()
	if sub := auth.Subject(token); sub != "" {
		ctx = middleware.WithLogger(ctx, middleware.GetLogger(ctx).With(slog.String("customer", sub)))
		r = r.WithContext(ctx)
	}

	summary, err := h.cartService.ApplyCoupon(ctx, SessionFromContext(ctx), req.Code, token)
	h.respond(w, r, summary, err)
}

// RemoveCoupon handles DELETE /cart/coupon
func (h *CartHandler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	summary, err := h.cartService.RemoveCoupon(r.Context(), SessionFromContext(r.Context()))
	h.respond(w, r, summary, err)
}

// Toggle handles POST /cart/toggle
func (h *CartHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	summary, err := h.cartService.ToggleCart(r.Context(), SessionFromContext(r.Context()))
	h.respond(w, r, summary, err)
}

// SetOpen handles PUT /cart/open
func (h *CartHandler) SetOpen(w http.ResponseWriter, r *http.Request) {
	var req setOpenRequest
	if err := handler.DecodeJSON(r, "cart.set_open", &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	summary, err := h.cartService.SetCartOpen(r.Context(), SessionFromContext(r.Context()), *req.Open)
	h.respond(w, r, summary, err)
}

func (h *CartHandler) respond(w http.ResponseWriter, r *http.Request, summary *domain.CartSummary, err error) {
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if summary == nil {
		handler.InternalErrorResponse(w, r, nil)
		return
	}
	handler.WriteJSON(w, http.StatusOK, newCartResponse(summary))
}
