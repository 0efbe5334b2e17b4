package domain

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// CART DOMAIN ERRORS
// =============================================================================

var (
	ErrInvalidQuantity = &Error{Code: EINVALID, Message: "Quantity must be at least 1"}
	ErrInvalidLineItem = &Error{Code: EINVALID, Message: "Line item needs an id and a non-negative price"}
	ErrInvalidSession  = &Error{Code: EINVALID, Message: "Cart session is invalid"}
)

// ItemKind distinguishes catalog products from subscribed services.
type ItemKind string

const (
	ItemKindProduct ItemKind = "product"
	ItemKindService ItemKind = "service"
)

// Valid reports whether k is a known kind.
func (k ItemKind) Valid() bool {
	return k == ItemKindProduct || k == ItemKindService
}

// LineItem is one distinct purchasable entry in a cart.
// ID is unique within a cart only.
type LineItem struct {
	ID       string
	Name     string
	Price    decimal.Decimal // unit price captured when the item was added
	Quantity int
	Image    string
	Kind     ItemKind

	// PlanID and PlanName are set for services with a selected pricing tier.
	PlanID   string
	PlanName string
}

// Subtotal returns price * quantity.
func (i LineItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// CartState is a point-in-time copy of a cart store.
type CartState struct {
	Items          []LineItem
	TotalItemCount int
	TotalAmount    decimal.Decimal
	IsOpen         bool

	// Version increments every time Items changes. Coupon results carry the
	// version they were computed against.
	Version uint64
}

// IsEmpty reports whether the cart holds no items.
func (s CartState) IsEmpty() bool {
	return len(s.Items) == 0
}

// ItemIDs returns the ids of all line items in cart order.
func (s CartState) ItemIDs() []string {
	ids := make([]string, 0, len(s.Items))
	for _, item := range s.Items {
		ids = append(ids, item.ID)
	}
	return ids
}

// Totals are the amounts displayed for a cart.
type Totals struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// CartSummary aggregates cart contents, coupon state and displayed totals.
type CartSummary struct {
	Items        []LineItem
	ItemCount    int
	Subtotal     decimal.Decimal
	Discount     decimal.Decimal
	Tax          decimal.Decimal
	Total        decimal.Decimal
	CouponStatus CouponStatus
	Coupon       *CouponApplication
	IsOpen       bool
}
