// Package checkout reconciles a cart with the coupon applied to it and
// computes the totals shown to the shopper.
package checkout

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dukerupert/resell/internal/cart"
	"github.com/dukerupert/resell/internal/domain"
	"github.com/dukerupert/resell/internal/tax"
	"github.com/dukerupert/resell/internal/telemetry"
	"github.com/shopspring/decimal"
)

// token identifies one apply attempt against one cart version. A response is
// accepted only while its token is still current.
type token struct {
	attempt uint64
	version uint64
}

// Session holds the coupon state of one cart.
//
// Lock order is session before store. The store calls back through OnChange
// without holding its own lock.
type Session struct {
	store     *cart.Store
	validator domain.CouponValidator
	calc      tax.Calculator
	logger    *slog.Logger
	metrics   *telemetry.BusinessMetrics

	mu      sync.Mutex
	status  domain.CouponStatus
	attempt uint64
	applied *domain.CouponApplication
	// appliedVersion is the cart version the applied coupon was priced for.
	appliedVersion uint64
}

// NewSession binds a coupon session to store. Any change to the store's items
// clears the coupon.
func NewSession(store *cart.Store, validator domain.CouponValidator, calc tax.Calculator, logger *slog.Logger, metrics *telemetry.BusinessMetrics) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	if calc == nil {
		calc = tax.NewNoTaxCalculator()
	}

	s := &Session{
		store:     store,
		validator: validator,
		calc:      calc,
		logger:    logger,
		metrics:   metrics,
		status:    domain.CouponIdle,
	}
	store.OnChange(s.invalidate)
	return s
}

// Apply validates code against the current cart. A new code replaces any
// applied one. The result is discarded as stale if the cart changed, or
// another attempt started, while the request was in flight.
func (s *Session) Apply(ctx context.Context, code, authToken string) (*domain.CouponApplication, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		s.metrics.RecordCouponOutcome(telemetry.CouponOutcomeInvalid)
		return nil, domain.ErrCouponCodeRequired
	}

	s.mu.Lock()
	state := s.store.State()
	if state.IsEmpty() {
		s.mu.Unlock()
		s.metrics.RecordCouponOutcome(telemetry.CouponOutcomeInvalid)
		return nil, domain.ErrCouponEmptyCart
	}
	if s.status == domain.CouponPending {
		s.mu.Unlock()
		s.metrics.RecordCouponOutcome(telemetry.CouponOutcomePending)
		return nil, domain.ErrCouponPending
	}

	s.attempt++
	tok := token{attempt: s.attempt, version: state.Version}
	s.status = domain.CouponPending
	s.applied = nil
	s.mu.Unlock()

	telemetry.AddBreadcrumb(ctx, "coupon", "apply", map[string]interface{}{"code": code, "cart_version": tok.version})

	spanCtx, finish := telemetry.StartSpan(ctx, "coupon.validate", code)
	start := time.Now()
	app, err := s.validator.ValidateCoupon(spanCtx, domain.CouponRequest{
		Code:        code,
		OrderAmount: state.TotalAmount,
		ProductIDs:  state.ItemIDs(),
		AuthToken:   authToken,
	})
	finish()
	s.metrics.ObserveCouponLatency(time.Since(start).Seconds())

	s.mu.Lock()
	defer s.mu.Unlock()

	if tok.attempt != s.attempt || tok.version != s.store.Version() {
		if tok.attempt == s.attempt {
			s.status = domain.CouponIdle
		}
		s.logger.InfoContext(ctx, "discarding stale coupon result",
			slog.String("code", code),
			slog.Uint64("cart_version", tok.version),
		)
		s.metrics.RecordCouponOutcome(telemetry.CouponOutcomeStale)
		return nil, domain.ErrCouponStale
	}

	if err != nil {
		s.status = domain.CouponIdle
		s.metrics.RecordCouponOutcome(telemetry.CouponOutcomeRejected)
		if domain.ErrorCode(err) != domain.ECOUPON {
			err = domain.CouponRejected("checkout.apply", err)
		}
		return nil, err
	}
	if app == nil {
		s.status = domain.CouponIdle
		s.metrics.RecordCouponOutcome(telemetry.CouponOutcomeRejected)
		return nil, domain.CouponRejected("checkout.apply", nil)
	}

	applied := *app
	s.status = domain.CouponApplied
	s.applied = &applied
	s.appliedVersion = tok.version
	s.metrics.RecordCouponOutcome(telemetry.CouponOutcomeApplied)

	s.logger.InfoContext(ctx, "coupon applied",
		slog.String("code", applied.Code),
		slog.String("discount", applied.DiscountAmount.String()),
	)

	out := applied
	return &out, nil
}

// Remove clears the coupon. A pending attempt becomes stale.
func (s *Session) Remove() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == domain.CouponApplied {
		s.metrics.RecordCouponOutcome(telemetry.CouponOutcomeRemoved)
	}
	s.resetLocked()
}

// Status returns the current coupon state.
func (s *Session) Status() domain.CouponStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.status
}

// Applied returns a copy of the applied coupon, or nil.
func (s *Session) Applied() *domain.CouponApplication {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.applied == nil {
		return nil
	}
	out := *s.applied
	return &out
}

// Totals computes the displayed amounts for the current cart.
func (s *Session) Totals(ctx context.Context) (domain.Totals, error) {
	summary, err := s.Summary(ctx)
	if err != nil {
		return domain.Totals{}, err
	}
	return domain.Totals{
		Subtotal: summary.Subtotal,
		Discount: summary.Discount,
		Tax:      summary.Tax,
		Total:    summary.Total,
	}, nil
}

// Summary returns the cart contents together with coupon state and totals.
// total = (applied ? finalAmount : subtotal) + tax, with tax charged on the
// post-discount amount.
func (s *Session) Summary(ctx context.Context) (domain.CartSummary, error) {
	s.mu.Lock()
	state := s.store.State()
	status := s.status
	var applied *domain.CouponApplication
	if s.applied != nil && s.appliedVersion == state.Version {
		app := *s.applied
		applied = &app
	} else if status == domain.CouponApplied {
		// The listener has not run yet for this change.
		status = domain.CouponIdle
	}
	s.mu.Unlock()

	subtotal := state.TotalAmount
	discount := decimal.Zero
	taxable := subtotal
	if applied != nil {
		discount = applied.DiscountAmount
		taxable = applied.FinalAmount
	}

	result, err := s.calc.CalculateTax(ctx, tax.TaxParams{
		LineItems:     taxLineItems(state.Items),
		TaxableAmount: taxable,
	})
	if err != nil {
		return domain.CartSummary{}, domain.Internal(err, "checkout.summary", "failed to calculate tax")
	}

	return domain.CartSummary{
		Items:        state.Items,
		ItemCount:    state.TotalItemCount,
		Subtotal:     subtotal,
		Discount:     discount,
		Tax:          result.TotalTax,
		Total:        taxable.Add(result.TotalTax),
		CouponStatus: status,
		Coupon:       applied,
		IsOpen:       state.IsOpen,
	}, nil
}

// invalidate runs after every change to the cart's items.
func (s *Session) invalidate(domain.CartState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.CouponIdle {
		s.logger.Debug("cart changed, clearing coupon", slog.String("status", string(s.status)))
	}
	s.resetLocked()
}

func (s *Session) resetLocked() {
	s.attempt++
	s.status = domain.CouponIdle
	s.applied = nil
	s.appliedVersion = 0
}

func taxLineItems(items []domain.LineItem) []tax.LineItem {
	out := make([]tax.LineItem, 0, len(items))
	for _, item := range items {
		out = append(out, tax.LineItem{
			ID:          item.ID,
			Description: item.Name,
			Quantity:    item.Quantity,
			UnitPrice:   item.Price,
			TotalPrice:  item.Subtotal(),
			Kind:        string(item.Kind),
		})
	}
	return out
}
