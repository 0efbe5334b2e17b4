package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// COUPON DOMAIN ERRORS
// =============================================================================

// CouponRejectedMessage is shown for every coupon failure. The shopper never
// learns why a code was refused.
const CouponRejectedMessage = "We couldn't apply that coupon. Please check your code and try again."

var (
	ErrCouponCodeRequired = &Error{Code: EINVALID, Op: "coupon.apply", Message: "Please enter a coupon code"}
	ErrCouponEmptyCart    = &Error{Code: EINVALID, Op: "coupon.apply", Message: "Add something to your cart before applying a coupon"}
	ErrCouponPending      = &Error{Code: ECONFLICT, Op: "coupon.apply", Message: "A coupon is already being applied"}
	ErrCouponStale        = &Error{Code: ECONFLICT, Op: "coupon.apply", Message: "Your cart changed while the coupon was being applied. Please apply it again."}
)

// CouponRejected wraps cause as the uniform coupon failure.
func CouponRejected(op string, cause error) error {
	return &Error{
		Code:    ECOUPON,
		Op:      op,
		Message: CouponRejectedMessage,
		Err:     cause,
	}
}

// DiscountType is how the server computed a discount.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Valid reports whether t is a known discount type.
func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixed
}

// CouponStatus is the state of a cart's coupon session.
type CouponStatus string

const (
	CouponIdle    CouponStatus = "idle"
	CouponPending CouponStatus = "pending"
	CouponApplied CouponStatus = "applied"
)

// CouponRequest is what the validation service needs to price a coupon.
type CouponRequest struct {
	Code        string
	OrderAmount decimal.Decimal
	ProductIDs  []string

	// AuthToken is forwarded as a bearer credential when set.
	AuthToken string
}

// CouponApplication is the server-authoritative result of validating a code
// against one exact cart. Discount math never happens locally.
type CouponApplication struct {
	Code           string
	Title          string
	DiscountType   DiscountType
	DiscountValue  decimal.Decimal
	DiscountAmount decimal.Decimal
	FinalAmount    decimal.Decimal
}

//go:generate mockgen -destination=../mocks/coupon_validator.go -package=mocks github.com/dukerupert/resell/internal/domain CouponValidator

// CouponValidator validates a coupon code against an order.
// Every failure must surface as an ECOUPON error.
type CouponValidator interface {
	ValidateCoupon(ctx context.Context, req CouponRequest) (*CouponApplication, error)
}
