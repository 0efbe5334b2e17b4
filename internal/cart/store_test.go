package cart

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/dukerupert/resell/internal/domain"
	"github.com/dukerupert/resell/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "carts/test.json"

func item(id string, price string) domain.LineItem {
	return domain.LineItem{
		ID:    id,
		Name:  "Item " + id,
		Price: decimal.RequireFromString(price),
		Kind:  domain.ItemKindProduct,
	}
}

// recordingStorage counts writes and can be told to fail them.
type recordingStorage struct {
	*storage.MemoryStorage
	mu      sync.Mutex
	puts    int
	failput error
}

func newRecordingStorage() *recordingStorage {
	return &recordingStorage{MemoryStorage: storage.NewMemoryStorage()}
}

func (r *recordingStorage) Put(ctx context.Context, key string, data []byte) error {
	r.mu.Lock()
	r.puts++
	fail := r.failput
	r.mu.Unlock()
	if fail != nil {
		return fail
	}
	return r.MemoryStorage.Put(ctx, key, data)
}

func (r *recordingStorage) putCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.puts
}

func newTestStore(t *testing.T) (*Store, *recordingStorage) {
	t.Helper()
	backend := newRecordingStorage()
	s := NewStore(backend, testKey, nil)
	s.Initialize(context.Background())
	return s, backend
}

func assertAggregates(t *testing.T, state domain.CartState) {
	t.Helper()
	count := 0
	amount := decimal.Zero
	ids := make(map[string]struct{})
	for _, it := range state.Items {
		assert.GreaterOrEqual(t, it.Quantity, 1, "line %s has quantity < 1", it.ID)
		_, dup := ids[it.ID]
		assert.False(t, dup, "duplicate line id %s", it.ID)
		ids[it.ID] = struct{}{}
		count += it.Quantity
		amount = amount.Add(it.Subtotal())
	}
	assert.Equal(t, count, state.TotalItemCount)
	assert.True(t, amount.Equal(state.TotalAmount), "amount %s != %s", state.TotalAmount, amount)
}

func TestStore_Add(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	state, err := s.Add(ctx, item("a", "10.00"), 1)
	require.NoError(t, err)
	assert.Len(t, state.Items, 1)
	assert.Equal(t, 1, state.TotalItemCount)
	assert.True(t, state.TotalAmount.Equal(decimal.RequireFromString("10")))

	state, err = s.Add(ctx, item("b", "2.50"), 3)
	require.NoError(t, err)
	assert.Len(t, state.Items, 2)
	assert.Equal(t, 4, state.TotalItemCount)
	assert.True(t, state.TotalAmount.Equal(decimal.RequireFromString("17.50")))
	assert.Equal(t, []string{"a", "b"}, state.ItemIDs())
}

func TestStore_AddExistingIncrementsOnly(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	_, err := s.Add(ctx, item("a", "10.00"), 1)
	require.NoError(t, err)

	changed := item("a", "99.00")
	changed.Name = "Renamed"
	state, err := s.Add(ctx, changed, 2)
	require.NoError(t, err)

	require.Len(t, state.Items, 1)
	assert.Equal(t, 3, state.Items[0].Quantity)
	assert.Equal(t, "Item a", state.Items[0].Name)
	assert.True(t, state.Items[0].Price.Equal(decimal.RequireFromString("10")), "price captured on first add is kept")
}

func TestStore_AddRejectsInvalid(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		item     domain.LineItem
		quantity int
		want     error
	}{
		{name: "zero quantity", item: item("a", "1"), quantity: 0, want: domain.ErrInvalidQuantity},
		{name: "negative quantity", item: item("a", "1"), quantity: -2, want: domain.ErrInvalidQuantity},
		{name: "empty id", item: item("", "1"), quantity: 1, want: domain.ErrInvalidLineItem},
		{name: "negative price", item: item("a", "-1"), quantity: 1, want: domain.ErrInvalidLineItem},
		{name: "unknown kind", item: domain.LineItem{ID: "a", Price: decimal.Zero, Kind: "gift"}, quantity: 1, want: domain.ErrInvalidLineItem},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, backend := newTestStore(t)
			state, err := s.Add(ctx, tt.item, tt.quantity)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
			assert.True(t, state.IsEmpty())
			assert.Equal(t, uint64(0), s.Version())
			assert.Equal(t, 0, backend.putCount(), "rejected input is not persisted")
		})
	}
}

func TestStore_AddDefaultsKindToProduct(t *testing.T) {
	s, _ := newTestStore(t)
	it := item("a", "1")
	it.Kind = ""

	state, err := s.Add(context.Background(), it, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.ItemKindProduct, state.Items[0].Kind)
}

func TestStore_Remove(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	_, _ = s.Add(ctx, item("a", "1"), 1)
	_, _ = s.Add(ctx, item("b", "2"), 1)

	state, err := s.Remove(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, state.ItemIDs())
	assert.Equal(t, 1, state.TotalItemCount)
}

func TestStore_RemoveUnknownIsNoop(t *testing.T) {
	ctx := context.Background()
	s, backend := newTestStore(t)
	_, _ = s.Add(ctx, item("a", "1"), 1)
	before := s.Version()
	puts := backend.putCount()

	state, err := s.Remove(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, state.ItemIDs())
	assert.Equal(t, before, s.Version(), "version is unchanged by a no-op")
	assert.Equal(t, puts+1, backend.putCount(), "snapshot is still written")
}

func TestStore_SetQuantity(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		id        string
		quantity  int
		wantIDs   []string
		wantCount int
	}{
		{name: "raise", id: "a", quantity: 5, wantIDs: []string{"a", "b"}, wantCount: 6},
		{name: "lower", id: "a", quantity: 1, wantIDs: []string{"a", "b"}, wantCount: 2},
		{name: "zero removes", id: "a", quantity: 0, wantIDs: []string{"b"}, wantCount: 1},
		{name: "negative removes", id: "a", quantity: -3, wantIDs: []string{"b"}, wantCount: 1},
		{name: "unknown id", id: "zzz", quantity: 4, wantIDs: []string{"a", "b"}, wantCount: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestStore(t)
			_, _ = s.Add(ctx, item("a", "1"), 2)
			_, _ = s.Add(ctx, item("b", "1"), 1)

			state, err := s.SetQuantity(ctx, tt.id, tt.quantity)
			require.NoError(t, err)
			assert.Equal(t, tt.wantIDs, state.ItemIDs())
			assert.Equal(t, tt.wantCount, state.TotalItemCount)
			assertAggregates(t, state)
		})
	}
}

func TestStore_SetQuantitySameValueKeepsVersion(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	_, _ = s.Add(ctx, item("a", "1"), 2)
	v := s.Version()

	_, err := s.SetQuantity(ctx, "a", 2)
	require.NoError(t, err)
	assert.Equal(t, v, s.Version())
}

func TestStore_Clear(t *testing.T) {
	ctx := context.Background()
	s, backend := newTestStore(t)
	_, _ = s.Add(ctx, item("a", "1"), 2)

	state, err := s.Clear(ctx)
	require.NoError(t, err)
	assert.True(t, state.IsEmpty())
	assert.Equal(t, 0, state.TotalItemCount)
	assert.True(t, state.TotalAmount.IsZero())

	data, err := backend.Get(ctx, testKey)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestStore_OpenFlagIsNotPersisted(t *testing.T) {
	ctx := context.Background()
	s, backend := newTestStore(t)
	_, _ = s.Add(ctx, item("a", "1"), 1)
	puts := backend.putCount()
	v := s.Version()

	assert.True(t, s.ToggleOpen().IsOpen)
	assert.False(t, s.ToggleOpen().IsOpen)
	assert.True(t, s.SetOpen(true).IsOpen)

	assert.Equal(t, puts, backend.putCount())
	assert.Equal(t, v, s.Version())

	reloaded := NewStore(backend, testKey, nil)
	assert.False(t, reloaded.Initialize(ctx).IsOpen)
}

func TestStore_StateIsACopy(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	_, _ = s.Add(ctx, item("a", "1"), 1)

	state := s.State()
	state.Items[0].Quantity = 100

	assert.Equal(t, 1, s.State().Items[0].Quantity)
}

func TestStore_AggregatesUnderRandomOperations(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	r := rand.New(rand.NewSource(42))
	ids := []string{"a", "b", "c", "d"}
	prices := []string{"0", "1.99", "10", "24.50"}

	for i := 0; i < 500; i++ {
		id := ids[r.Intn(len(ids))]
		var state domain.CartState
		var err error
		switch r.Intn(4) {
		case 0:
			state, err = s.Add(ctx, item(id, prices[r.Intn(len(prices))]), r.Intn(3)+1)
		case 1:
			state, err = s.Remove(ctx, id)
		case 2:
			state, err = s.SetQuantity(ctx, id, r.Intn(5)-1)
		case 3:
			if r.Intn(10) == 0 {
				state, err = s.Clear(ctx)
			} else {
				state = s.ToggleOpen()
			}
		}
		require.NoError(t, err)
		assertAggregates(t, state)
	}
}

func TestStore_VersionTracksItemChanges(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	assert.Equal(t, uint64(0), s.Version())

	_, _ = s.Add(ctx, item("a", "1"), 1)
	assert.Equal(t, uint64(1), s.Version())

	_, _ = s.Add(ctx, item("a", "1"), 1)
	assert.Equal(t, uint64(2), s.Version())

	_, _ = s.SetQuantity(ctx, "a", 7)
	assert.Equal(t, uint64(3), s.Version())

	_, _ = s.Remove(ctx, "a")
	assert.Equal(t, uint64(4), s.Version())

	_, _ = s.Clear(ctx)
	assert.Equal(t, uint64(4), s.Version(), "clearing an empty cart changes nothing")
}

func TestStore_OnChange(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	var calls []uint64
	s.OnChange(func(state domain.CartState) {
		// Listeners may read the store; this would deadlock under the lock.
		calls = append(calls, s.Version())
		assert.Equal(t, s.Version(), state.Version)
	})

	_, _ = s.Add(ctx, item("a", "1"), 1)
	_, _ = s.Remove(ctx, "missing")
	s.ToggleOpen()
	_, _ = s.SetQuantity(ctx, "a", 2)

	assert.Equal(t, []uint64{1, 2}, calls)
}

func TestStore_PersistsEveryMutation(t *testing.T) {
	ctx := context.Background()
	s, backend := newTestStore(t)

	_, _ = s.Add(ctx, item("a", "5"), 1)
	_, _ = s.Add(ctx, item("b", "1"), 2)
	_, _ = s.SetQuantity(ctx, "a", 3)
	_, _ = s.Remove(ctx, "nope")
	_, _ = s.Clear(ctx)
	assert.Equal(t, 5, backend.putCount())
}

func TestStore_RoundTripsThroughStorage(t *testing.T) {
	ctx := context.Background()
	s, backend := newTestStore(t)

	svc := domain.LineItem{
		ID:       "svc-1",
		Name:     "Consultation",
		Price:    decimal.RequireFromString("120.00"),
		Image:    "/img/svc.png",
		Kind:     domain.ItemKindService,
		PlanID:   "plan-pro",
		PlanName: "Pro",
	}
	_, _ = s.Add(ctx, item("a", "3.33"), 2)
	_, _ = s.Add(ctx, svc, 1)
	want := s.State()

	reloaded := NewStore(backend, testKey, nil)
	got := reloaded.Initialize(ctx)

	require.Len(t, got.Items, 2)
	for i := range want.Items {
		assert.Equal(t, want.Items[i].ID, got.Items[i].ID)
		assert.Equal(t, want.Items[i].Name, got.Items[i].Name)
		assert.True(t, want.Items[i].Price.Equal(got.Items[i].Price))
		assert.Equal(t, want.Items[i].Quantity, got.Items[i].Quantity)
		assert.Equal(t, want.Items[i].Image, got.Items[i].Image)
		assert.Equal(t, want.Items[i].Kind, got.Items[i].Kind)
		assert.Equal(t, want.Items[i].PlanID, got.Items[i].PlanID)
		assert.Equal(t, want.Items[i].PlanName, got.Items[i].PlanName)
	}
	assert.Equal(t, want.TotalItemCount, got.TotalItemCount)
	assert.True(t, want.TotalAmount.Equal(got.TotalAmount))
}

func TestStore_InitializeMalformedSnapshot(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "not json", data: `{{{`},
		{name: "object instead of array", data: `{"id":"a"}`},
		{name: "missing id", data: `[{"name":"x","price":1,"quantity":1,"kind":"product"}]`},
		{name: "zero quantity", data: `[{"id":"a","price":1,"quantity":0,"kind":"product"}]`},
		{name: "negative price", data: `[{"id":"a","price":-1,"quantity":1,"kind":"product"}]`},
		{name: "unknown kind", data: `[{"id":"a","price":1,"quantity":1,"kind":"gift"}]`},
		{name: "duplicate id", data: `[{"id":"a","price":1,"quantity":1},{"id":"a","price":1,"quantity":2}]`},
		{name: "fractional quantity", data: `[{"id":"a","price":1,"quantity":1.5}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			backend := storage.NewMemoryStorage()
			require.NoError(t, backend.Put(ctx, testKey, []byte(tt.data)))

			state := NewStore(backend, testKey, nil).Initialize(ctx)
			assert.True(t, state.IsEmpty())
			assert.Equal(t, 0, state.TotalItemCount)
			assert.True(t, state.TotalAmount.IsZero())
		})
	}
}

func TestStore_InitializeTolerantInputs(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantCount int
	}{
		{name: "null", data: `null`, wantCount: 0},
		{name: "empty", data: ``, wantCount: 0},
		{name: "quoted price", data: `[{"id":"a","price":"2.50","quantity":2,"kind":"product"}]`, wantCount: 2},
		{name: "missing kind", data: `[{"id":"a","price":1,"quantity":3}]`, wantCount: 3},
		{name: "extra fields", data: `[{"id":"a","price":1,"quantity":1,"kind":"service","color":"red"}]`, wantCount: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			backend := storage.NewMemoryStorage()
			require.NoError(t, backend.Put(ctx, testKey, []byte(tt.data)))

			state := NewStore(backend, testKey, nil).Initialize(ctx)
			assert.Equal(t, tt.wantCount, state.TotalItemCount)
		})
	}
}

func TestStore_InitializeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryStorage()
	require.NoError(t, backend.Put(ctx, testKey, []byte(`[{"id":"a","price":1,"quantity":1,"kind":"product"}]`)))

	s := NewStore(backend, testKey, nil)
	s.Initialize(ctx)
	_, _ = s.Add(ctx, item("b", "1"), 1)

	// A second read of storage would not see b if it replaced memory.
	require.NoError(t, backend.Put(ctx, testKey, []byte(`[]`)))
	state := s.Initialize(ctx)
	assert.Equal(t, []string{"a", "b"}, state.ItemIDs())
}

func TestStore_MutationBeforeInitializeLoadsFirst(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryStorage()
	require.NoError(t, backend.Put(ctx, testKey, []byte(`[{"id":"a","price":1,"quantity":1,"kind":"product"}]`)))

	s := NewStore(backend, testKey, nil)
	state, err := s.Add(ctx, item("b", "1"), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, state.ItemIDs())
}

func TestStore_PersistFailureKeepsMemory(t *testing.T) {
	ctx := context.Background()
	s, backend := newTestStore(t)
	backend.failput = errors.New("disk full")

	state, err := s.Add(ctx, item("a", "1"), 1)
	require.Error(t, err)
	assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))
	assert.Equal(t, []string{"a"}, state.ItemIDs())
	assert.Equal(t, uint64(1), s.Version())
}

func TestStore_ConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Add(ctx, item("a", "1"), 1)
		}()
	}
	wg.Wait()

	state := s.State()
	require.Len(t, state.Items, 1)
	assert.Equal(t, 50, state.Items[0].Quantity)
	assert.Equal(t, uint64(50), state.Version)
}
