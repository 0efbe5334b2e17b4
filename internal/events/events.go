// Package events publishes cart activity for downstream consumers such as
// abandoned-cart analytics.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/dukerupert/resell/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SchemaVersion is bumped on incompatible payload changes.
const SchemaVersion = 1

// Type names a cart event.
type Type string

const (
	TypeCartChanged   Type = "cart.changed"
	TypeCouponApplied Type = "coupon.applied"
	TypeCouponRemoved Type = "coupon.removed"
)

// Event is one cart activity record.
type Event struct {
	SchemaVersion int             `json:"schema_version"`
	ID            uuid.UUID       `json:"id"`
	Type          Type            `json:"type"`
	SessionID     string          `json:"session_id"`
	CartVersion   uint64          `json:"cart_version"`
	ItemCount     int             `json:"item_count"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	ProductIDs    []string        `json:"product_ids"`
	CouponCode    string          `json:"coupon_code,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// New builds an event of type t from a cart snapshot.
func New(t Type, sessionID string, state domain.CartState) Event {
	return Event{
		SchemaVersion: SchemaVersion,
		ID:            uuid.New(),
		Type:          t,
		SessionID:     sessionID,
		CartVersion:   state.Version,
		ItemCount:     state.TotalItemCount,
		Subtotal:      state.TotalAmount,
		ProductIDs:    state.ItemIDs(),
		OccurredAt:    time.Now().UTC(),
	}
}

// Publisher delivers events. Publish must not block on the broker.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close()
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close()                               {}

// MemoryPublisher keeps events in memory. Useful in development and tests.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryPublisher creates an empty MemoryPublisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(_ context.Context, e Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, e)
	return nil
}

func (p *MemoryPublisher) Close() {}

// Events returns a copy of everything published so far.
func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}
