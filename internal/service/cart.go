package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/resell/internal/cart"
	"github.com/dukerupert/resell/internal/checkout"
	"github.com/dukerupert/resell/internal/domain"
	"github.com/dukerupert/resell/internal/events"
	"github.com/dukerupert/resell/internal/storage"
	"github.com/dukerupert/resell/internal/tax"
	"github.com/dukerupert/resell/internal/telemetry"
)

// CartService provides business logic for shopping cart operations.
// Every method is keyed by the cart session id, which must be a UUID.
type CartService interface {
	GetCartSummary(ctx context.Context, sessionID string) (*domain.CartSummary, error)
	AddItem(ctx context.Context, sessionID string, item domain.LineItem, quantity int) (*domain.CartSummary, error)
	UpdateItemQuantity(ctx context.Context, sessionID string, itemID string, quantity int) (*domain.CartSummary, error)
	RemoveItem(ctx context.Context, sessionID string, itemID string) (*domain.CartSummary, error)
	ClearCart(ctx context.Context, sessionID string) (*domain.CartSummary, error)
	ApplyCoupon(ctx context.Context, sessionID string, code string, authToken string) (*domain.CartSummary, error)
	RemoveCoupon(ctx context.Context, sessionID string) (*domain.CartSummary, error)
	SetCartOpen(ctx context.Context, sessionID string, open bool) (*domain.CartSummary, error)
	ToggleCart(ctx context.Context, sessionID string) (*domain.CartSummary, error)
}

// Config wires a CartManager.
type Config struct {
	Storage   storage.Storage
	Validator domain.CouponValidator
	Tax       tax.Calculator
	Publisher events.Publisher
	Metrics   *telemetry.BusinessMetrics
	Logger    *slog.Logger

	// IdleTTL is how long an untouched cart stays in memory. Evicted carts
	// are reloaded from storage on next use. Zero means 30 minutes.
	IdleTTL time.Duration
}

// CartManager implements CartService with one cart store and one coupon
// session per cart session, created on first use.
type CartManager struct {
	storage   storage.Storage
	validator domain.CouponValidator
	calc      tax.Calculator
	publisher events.Publisher
	metrics   *telemetry.BusinessMetrics
	logger    *slog.Logger
	idleTTL   time.Duration
	now       func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	id       string
	store    *cart.Store
	session  *checkout.Session
	lastUsed time.Time
}

var _ CartService = (*CartManager)(nil)

// NewCartService creates a new CartManager.
func NewCartService(cfg Config) (*CartManager, error) {
	if cfg.Storage == nil {
		return nil, ErrStorageRequired
	}
	if cfg.Validator == nil {
		return nil, ErrValidatorRequired
	}
	if cfg.Tax == nil {
		cfg.Tax = tax.NewNoTaxCalculator()
	}
	if cfg.Publisher == nil {
		cfg.Publisher = events.NopPublisher{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 30 * time.Minute
	}

	return &CartManager{
		storage:   cfg.Storage,
		validator: cfg.Validator,
		calc:      cfg.Tax,
		publisher: cfg.Publisher,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		idleTTL:   cfg.IdleTTL,
		now:       time.Now,
		entries:   make(map[string]*entry),
	}, nil
}

// GetCartSummary returns the cart, loading it from storage on first access.
func (m *CartManager) GetCartSummary(ctx context.Context, sessionID string) (*domain.CartSummary, error) {
	e, err := m.entry(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return m.summary(ctx, e)
}

// AddItem adds quantity of item, or raises the quantity of an existing line.
func (m *CartManager) AddItem(ctx context.Context, sessionID string, item domain.LineItem, quantity int) (*domain.CartSummary, error) {
	e, err := m.entry(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	_, err = e.store.Add(ctx, item, quantity)
	return m.afterMutation(ctx, "add", e, err)
}

// UpdateItemQuantity sets an absolute quantity. Zero or less removes the line.
func (m *CartManager) UpdateItemQuantity(ctx context.Context, sessionID string, itemID string, quantity int) (*domain.CartSummary, error) {
	e, err := m.entry(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	_, err = e.store.SetQuantity(ctx, itemID, quantity)
	return m.afterMutation(ctx, "set_quantity", e, err)
}

// RemoveItem deletes a line. Unknown ids are not an error.
func (m *CartManager) RemoveItem(ctx context.Context, sessionID string, itemID string) (*domain.CartSummary, error) {
	e, err := m.entry(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	_, err = e.store.Remove(ctx, itemID)
	return m.afterMutation(ctx, "remove", e, err)
}

// ClearCart empties the cart.
func (m *CartManager) ClearCart(ctx context.Context, sessionID string) (*domain.CartSummary, error) {
	e, err := m.entry(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	_, err = e.store.Clear(ctx)
	return m.afterMutation(ctx, "clear", e, err)
}

// ApplyCoupon validates code against the cart and applies it.
func (m *CartManager) ApplyCoupon(ctx context.Context, sessionID string, code string, authToken string) (*domain.CartSummary, error) {
	e, err := m.entry(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	app, err := e.session.Apply(ctx, code, authToken)
	if err != nil {
		if domain.ErrorCode(err) == domain.ECOUPON {
			m.logger.InfoContext(ctx, "coupon rejected",
				slog.String("session_id", e.id),
				slog.Any("error", err),
			)
		}
		return nil, err
	}

	ev := events.New(events.TypeCouponApplied, e.id, e.store.State())
	ev.CouponCode = app.Code
	m.publish(ctx, ev)

	return m.summary(ctx, e)
}

// RemoveCoupon clears any applied or pending coupon.
func (m *CartManager) RemoveCoupon(ctx context.Context, sessionID string) (*domain.CartSummary, error) {
	e, err := m.entry(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	had := e.session.Applied()
	e.session.Remove()
	if had != nil {
		ev := events.New(events.TypeCouponRemoved, e.id, e.store.State())
		ev.CouponCode = had.Code
		m.publish(ctx, ev)
	}

	return m.summary(ctx, e)
}

// SetCartOpen sets the slide-over visibility flag.
func (m *CartManager) SetCartOpen(ctx context.Context, sessionID string, open bool) (*domain.CartSummary, error) {
	e, err := m.entry(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	e.store.SetOpen(open)
	return m.summary(ctx, e)
}

// ToggleCart flips the slide-over visibility flag.
func (m *CartManager) ToggleCart(ctx context.Context, sessionID string) (*domain.CartSummary, error) {
	e, err := m.entry(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	e.store.ToggleOpen()
	return m.summary(ctx, e)
}

// Sweep evicts carts idle since before now minus the idle TTL and returns how
// many were evicted. Snapshots are untouched.
func (m *CartManager) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := now.Add(-m.idleTTL)
	evicted := 0
	for id, e := range m.entries {
		if e.lastUsed.Before(cutoff) {
			delete(m.entries, id)
			evicted++
		}
	}
	m.metrics.SetActiveCarts(len(m.entries))
	return evicted
}

// ActiveCarts returns the number of carts held in memory.
func (m *CartManager) ActiveCarts() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.entries)
}

// entry returns the cart for sessionID, creating it on first use. The store
// is initialized outside the registry lock.
func (m *CartManager) entry(ctx context.Context, sessionID string) (*entry, error) {
	id, err := NormalizeSessionID(sessionID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	e, ok := m.entries[id]
	if !ok {
		logger := m.logger.With(slog.String("session_id", id))
		store := cart.NewStore(m.storage, CartKey(id), logger)
		e = &entry{
			id:      id,
			store:   store,
			session: checkout.NewSession(store, m.validator, m.calc, logger, m.metrics),
		}
		store.OnChange(func(state domain.CartState) {
			m.publish(context.Background(), events.New(events.TypeCartChanged, id, state))
		})
		m.entries[id] = e
		m.metrics.SetActiveCarts(len(m.entries))
	}
	e.lastUsed = m.now()
	m.mu.Unlock()

	e.store.Initialize(ctx)
	return e, nil
}

// afterMutation records the outcome of a store operation. A failed snapshot
// write is reported but does not fail the request; the in-memory cart is
// still authoritative.
func (m *CartManager) afterMutation(ctx context.Context, op string, e *entry, err error) (*domain.CartSummary, error) {
	if err != nil {
		switch domain.ErrorCode(err) {
		case domain.EINTERNAL:
			m.metrics.RecordMutation(op, "error")
			m.metrics.RecordPersistFailure(op)
			m.logger.ErrorContext(ctx, "failed to persist cart",
				slog.String("operation", op),
				slog.String("session_id", e.id),
				slog.Any("error", err),
			)
			telemetry.CaptureErrorFromContext(ctx, err, map[string]interface{}{
				"operation":  op,
				"session_id": e.id,
			})
		default:
			m.metrics.RecordMutation(op, "invalid")
			return nil, err
		}
	} else {
		m.metrics.RecordMutation(op, "ok")
	}

	summary, err := m.summary(ctx, e)
	if err != nil {
		return nil, err
	}
	m.metrics.ObserveCart(summary.ItemCount, summary.Subtotal.InexactFloat64())
	return summary, nil
}

func (m *CartManager) summary(ctx context.Context, e *entry) (*domain.CartSummary, error) {
	summary, err := e.session.Summary(ctx)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

func (m *CartManager) publish(ctx context.Context, ev events.Event) {
	if err := m.publisher.Publish(ctx, ev); err != nil {
		m.logger.WarnContext(ctx, "failed to publish cart event",
			slog.String("type", string(ev.Type)),
			slog.Any("error", err),
		)
	}
}
