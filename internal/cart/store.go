// Package cart holds the authoritative in-memory state of a shopping cart and
// mirrors every change to a Storage key.
package cart

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dukerupert/resell/internal/domain"
	"github.com/dukerupert/resell/internal/storage"
	"github.com/shopspring/decimal"
)

// Store is the single source of truth for one cart and the only writer of its
// storage key. Operations are serialised; each runs to completion before the
// next starts.
type Store struct {
	storage storage.Storage
	key     string
	logger  *slog.Logger

	mu          sync.Mutex
	initialized bool
	items       []domain.LineItem
	count       int
	amount      decimal.Decimal
	open        bool
	version     uint64
	listeners   []func(domain.CartState)
}

// NewStore creates an empty store persisted under key.
// Call Initialize to rehydrate it.
func NewStore(s storage.Storage, key string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		storage: s,
		key:     key,
		logger:  logger.With(slog.String("cart_key", key)),
		amount:  decimal.Zero,
	}
}

// Initialize loads the persisted snapshot once. Missing or malformed data
// yields an empty cart. Later calls return the current state untouched.
func (s *Store) Initialize(ctx context.Context) domain.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initLocked(ctx)
	return s.stateLocked()
}

// Add appends item with the given quantity, or raises the quantity of the
// existing line with the same ID. Nothing else on an existing line changes.
func (s *Store) Add(ctx context.Context, item domain.LineItem, quantity int) (domain.CartState, error) {
	if quantity < 1 {
		return s.State(), domain.ErrInvalidQuantity
	}
	if item.ID == "" || item.Price.IsNegative() {
		return s.State(), domain.ErrInvalidLineItem
	}
	if item.Kind == "" {
		item.Kind = domain.ItemKindProduct
	}
	if !item.Kind.Valid() {
		return s.State(), domain.ErrInvalidLineItem
	}

	return s.mutate(ctx, "add", func() bool {
		if i := s.indexLocked(item.ID); i >= 0 {
			s.items[i].Quantity += quantity
			return true
		}
		item.Quantity = quantity
		s.items = append(s.items, item)
		return true
	})
}

// Remove deletes the line with id. Unknown ids are a no-op.
func (s *Store) Remove(ctx context.Context, id string) (domain.CartState, error) {
	return s.mutate(ctx, "remove", func() bool {
		return s.removeLocked(id)
	})
}

// SetQuantity sets the absolute quantity of the line with id.
// quantity <= 0 removes the line. Unknown ids are a no-op.
func (s *Store) SetQuantity(ctx context.Context, id string, quantity int) (domain.CartState, error) {
	return s.mutate(ctx, "set_quantity", func() bool {
		if quantity <= 0 {
			return s.removeLocked(id)
		}
		i := s.indexLocked(id)
		if i < 0 || s.items[i].Quantity == quantity {
			return false
		}
		s.items[i].Quantity = quantity
		return true
	})
}

// Clear empties the cart and persists an empty snapshot.
func (s *Store) Clear(ctx context.Context) (domain.CartState, error) {
	return s.mutate(ctx, "clear", func() bool {
		changed := len(s.items) > 0
		s.items = nil
		return changed
	})
}

// ToggleOpen flips the slide-over visibility flag. Not persisted.
func (s *Store) ToggleOpen() domain.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.open = !s.open
	return s.stateLocked()
}

// SetOpen sets the slide-over visibility flag. Not persisted.
func (s *Store) SetOpen(open bool) domain.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.open = open
	return s.stateLocked()
}

// State returns a copy of the current cart.
func (s *Store) State() domain.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.stateLocked()
}

// Version returns the current item version.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.version
}

// OnChange registers fn to run after every operation that changes the items.
// fn runs outside the store lock and may call back into the store.
func (s *Store) OnChange(fn func(domain.CartState)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listeners = append(s.listeners, fn)
}

// mutate applies fn, recomputes aggregates and overwrites the snapshot.
// The snapshot is written on every call, changed or not. A failed write keeps
// the in-memory change and is returned as an internal error.
func (s *Store) mutate(ctx context.Context, op string, fn func() bool) (domain.CartState, error) {
	s.mu.Lock()
	s.initLocked(ctx)

	changed := fn()
	if changed {
		s.version++
	}
	s.recomputeLocked()
	state := s.stateLocked()
	err := s.persistLocked(ctx, op)

	var listeners []func(domain.CartState)
	if changed {
		listeners = append(listeners, s.listeners...)
	}
	s.mu.Unlock()

	for _, listener := range listeners {
		listener(state)
	}

	return state, err
}

func (s *Store) initLocked(ctx context.Context) {
	if s.initialized {
		return
	}
	s.initialized = true
	s.items = s.loadLocked(ctx)
	s.recomputeLocked()
}

func (s *Store) loadLocked(ctx context.Context) []domain.LineItem {
	data, err := s.storage.Get(ctx, s.key)
	if err != nil {
		if storage.IsNotFound(err) {
			s.logger.Debug("no persisted cart, starting empty")
		} else {
			s.logger.Warn("failed to read persisted cart, starting empty", "error", err)
		}
		return nil
	}

	items, err := decodeSnapshot(data)
	if err != nil {
		s.logger.Warn("discarding malformed cart snapshot", "error", err, "bytes", len(data))
		return nil
	}

	s.logger.Debug("restored cart", "items", len(items))
	return items
}

func (s *Store) persistLocked(ctx context.Context, op string) error {
	data, err := encodeSnapshot(s.items)
	if err != nil {
		return domain.Internal(err, "cart."+op, "failed to encode cart")
	}
	if err := s.storage.Put(ctx, s.key, data); err != nil {
		return domain.Internal(err, "cart."+op, "failed to persist cart")
	}
	return nil
}

func (s *Store) recomputeLocked() {
	count := 0
	amount := decimal.Zero
	for _, item := range s.items {
		count += item.Quantity
		amount = amount.Add(item.Subtotal())
	}
	s.count = count
	s.amount = amount
}

func (s *Store) indexLocked(id string) int {
	for i, item := range s.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) removeLocked(id string) bool {
	i := s.indexLocked(id)
	if i < 0 {
		return false
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return true
}

func (s *Store) stateLocked() domain.CartState {
	items := make([]domain.LineItem, len(s.items))
	copy(items, s.items)
	return domain.CartState{
		Items:          items,
		TotalItemCount: s.count,
		TotalAmount:    s.amount,
		IsOpen:         s.open,
		Version:        s.version,
	}
}
