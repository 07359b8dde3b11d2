package cart

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/arena/internal/domain"
)

func product(name, price string) domain.Product {
	return domain.Product{
		ID:       uuid.New(),
		Name:     name,
		PriceDH:  decimal.RequireFromString(price),
		Category: "skins",
		ImageURL: "https://cdn.example.com/" + name + ".png",
	}
}

type failingStorage struct {
	loadErr error
	saveErr error
	saves   int
}

func (f *failingStorage) Load(context.Context, string) ([]byte, error) { return nil, f.loadErr }
func (f *failingStorage) Save(context.Context, string, []byte) error {
	f.saves++
	return f.saveErr
}
func (f *failingStorage) Update(_ context.Context, _ string, fn func([]byte) ([]byte, error)) error {
	f.saves++
	if _, err := fn(nil); err != nil {
		return err
	}
	return f.saveErr
}

func TestStore_AddMergesSameProduct(t *testing.T) {
	ctx := context.Background()
	s := New(ctx, NewMemoryStorage())
	p := product("vbucks", "25.50")

	require.NoError(t, s.Add(ctx, p, 1))
	require.NoError(t, s.Add(ctx, p, 2))

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, 3, s.Count())
	assert.True(t, decimal.RequireFromString("76.50").Equal(s.Total()))
}

func TestStore_AddSnapshotsProductAtAddTime(t *testing.T) {
	ctx := context.Background()
	s := New(ctx, NewMemoryStorage())
	p := product("battlepass", "90")

	require.NoError(t, s.Add(ctx, p, 1))
	p.PriceDH = decimal.NewFromInt(120)
	p.Name = "renamed"
	require.NoError(t, s.Add(ctx, p, 1))

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "battlepass", items[0].Name)
	assert.True(t, decimal.NewFromInt(90).Equal(items[0].UnitPrice))
}

func TestStore_AddRejectsInvalidQuantity(t *testing.T) {
	ctx := context.Background()
	s := New(ctx, NewMemoryStorage())

	err := s.Add(ctx, product("x", "1"), 0)

	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	assert.Empty(t, s.Items())
}

func TestStore_RemoveUnknownIsNoop(t *testing.T) {
	ctx := context.Background()
	storage := &failingStorage{}
	s := New(ctx, storage)

	s.Remove(ctx, uuid.New())

	assert.Equal(t, 0, storage.saves, "no-op remove should not rewrite storage")
}

func TestStore_SetQuantity(t *testing.T) {
	ctx := context.Background()
	s := New(ctx, NewMemoryStorage())
	p := product("coins", "10")
	require.NoError(t, s.Add(ctx, p, 1))

	require.NoError(t, s.SetQuantity(ctx, p.ID, 4))
	assert.Equal(t, 4, s.Count())

	require.NoError(t, s.SetQuantity(ctx, p.ID, 0))
	assert.Empty(t, s.Items())

	err := s.SetQuantity(ctx, p.ID, 2)
	assert.True(t, domain.IsCode(err, domain.ENOTFOUND))
}

func TestStore_TotalKeepsFullPrecision(t *testing.T) {
	ctx := context.Background()
	s := New(ctx, NewMemoryStorage())
	require.NoError(t, s.Add(ctx, product("a", "0.333"), 3))

	assert.True(t, decimal.RequireFromString("0.999").Equal(s.Total()))
	assert.Equal(t, "1.00", s.DisplayTotal())
}

func TestStore_PersistRoundTrip(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	s := New(ctx, storage)
	a, b := product("a", "12.5"), product("b", "3")
	require.NoError(t, s.Add(ctx, a, 2))
	require.NoError(t, s.Add(ctx, b, 1))

	restored := New(ctx, storage)

	assert.Equal(t, s.Items()[0].ProductID, restored.Items()[0].ProductID)
	assert.Equal(t, s.Count(), restored.Count())
	assert.True(t, s.Total().Equal(restored.Total()))
	require.Len(t, restored.Items(), 2)
	for i, item := range s.Items() {
		got := restored.Items()[i]
		assert.Equal(t, item.ProductID, got.ProductID)
		assert.Equal(t, item.Name, got.Name)
		assert.Equal(t, item.ImageURL, got.ImageURL)
		assert.Equal(t, item.Quantity, got.Quantity)
		assert.True(t, item.UnitPrice.Equal(got.UnitPrice))
	}
}

func TestStore_HydrateFallsBackToEmpty(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		storage Storage
	}{
		{"nil storage", nil},
		{"never written", NewMemoryStorage()},
		{"load error", &failingStorage{loadErr: errors.New("connection reset")}},
		{"malformed json", func() Storage {
			m := NewMemoryStorage()
			_ = m.Save(ctx, StorageKey, []byte("{not json"))
			return m
		}()},
		{"wrong shape", func() Storage {
			m := NewMemoryStorage()
			_ = m.Save(ctx, StorageKey, []byte(`{"items":1}`))
			return m
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(ctx, tt.storage)
			assert.Empty(t, s.Items())
			assert.Equal(t, 0, s.Count())
			assert.True(t, s.Total().IsZero())
		})
	}
}

func TestStore_HydrateRepairsDuplicatesAndInvalidLines(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	storage := NewMemoryStorage()
	raw := `[
		{"product_id":"` + id.String() + `","name":"a","unit_price":"5","quantity":1},
		{"product_id":"` + id.String() + `","name":"a","unit_price":"5","quantity":2},
		{"product_id":"` + uuid.New().String() + `","name":"zero","unit_price":"5","quantity":0},
		{"product_id":"00000000-0000-0000-0000-000000000000","name":"nil","unit_price":"5","quantity":1}
	]`
	require.NoError(t, storage.Save(ctx, StorageKey, []byte(raw)))

	s := New(ctx, storage)

	require.Len(t, s.Items(), 1)
	assert.Equal(t, 3, s.Count())
}

func TestStore_SaveFailureKeepsInMemoryState(t *testing.T) {
	ctx := context.Background()
	storage := &failingStorage{saveErr: errors.New("disk full")}
	s := New(ctx, storage)

	require.NoError(t, s.Add(ctx, product("a", "1"), 1))

	assert.Equal(t, 1, s.Count())
	assert.Equal(t, 1, storage.saves)
}

func TestStore_SaveFailureStillReportsMutationErrors(t *testing.T) {
	ctx := context.Background()
	s := New(ctx, &failingStorage{saveErr: errors.New("disk full")})

	err := s.SetQuantity(ctx, uuid.New(), 2)
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

// Two Stores of one device, built before either mutates, must not overwrite
// each other's lines.
func TestStore_ConcurrentStoresOfOneDeviceKeepBothChanges(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	first := New(ctx, storage)
	second := New(ctx, storage)
	a, b := product("a", "10"), product("b", "20")

	require.NoError(t, first.Add(ctx, a, 1))
	require.NoError(t, second.Add(ctx, b, 2))

	reloaded := New(ctx, storage)
	assert.Len(t, reloaded.Items(), 2)
	assert.Equal(t, 3, reloaded.Count())
	assert.Equal(t, 3, second.Count())
}

func TestStore_ConcurrentAddsFromManyRequests(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	p := product("a", "1")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, New(ctx, storage).Add(ctx, p, 1))
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, New(ctx, storage).Count())
}

func TestStore_ConsumeKeepsLinesAddedAfterSnapshot(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	s := New(ctx, storage)
	a, b := product("a", "10"), product("b", "20")
	require.NoError(t, s.Add(ctx, a, 2))

	snap := s.Snapshot()
	other := New(ctx, storage)
	require.NoError(t, other.Add(ctx, a, 1))
	require.NoError(t, other.Add(ctx, b, 1))

	s.Consume(ctx, snap)

	items := New(ctx, storage).Items()
	require.Len(t, items, 2)
	assert.Equal(t, 1, items[0].Quantity)
	assert.Equal(t, b.ID, items[1].ProductID)
}

func TestStore_ConsumeEmptiesPurchasedCart(t *testing.T) {
	ctx := context.Background()
	s := New(ctx, NewMemoryStorage())
	require.NoError(t, s.Add(ctx, product("a", "10"), 2))
	require.NoError(t, s.Add(ctx, product("b", "5"), 1))

	s.Consume(ctx, s.Snapshot())

	assert.Empty(t, s.Items())
	assert.Equal(t, 0, s.Count())
}

func TestStore_SnapshotIsDetached(t *testing.T) {
	ctx := context.Background()
	s := New(ctx, NewMemoryStorage())
	p := product("a", "1")
	require.NoError(t, s.Add(ctx, p, 2))

	snap := s.Snapshot()
	s.Clear(ctx)

	require.Len(t, snap, 1)
	assert.Equal(t, domain.CheckoutLine{ProductID: p.ID, Quantity: 2}, snap[0])
	assert.Empty(t, s.Items())
}

func TestStore_ObserverSeesEveryMutation(t *testing.T) {
	ctx := context.Background()
	var ops []string
	s := New(ctx, NewMemoryStorage(), WithObserver(func(op string, _ int) {
		ops = append(ops, op)
	}))
	p := product("a", "1")

	require.NoError(t, s.Add(ctx, p, 1))
	require.NoError(t, s.SetQuantity(ctx, p.ID, 3))
	s.Remove(ctx, p.ID)
	s.Clear(ctx)

	assert.Equal(t, []string{"add", "update", "remove", "set_all"}, ops)
}

// Random add/remove sequences must keep one line per product and consistent
// aggregates.
func TestStore_RandomSequencesKeepInvariants(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))
	catalog := []domain.Product{
		product("a", "1.10"), product("b", "2.25"), product("c", "19.99"), product("d", "0.05"),
	}

	for run := 0; run < 50; run++ {
		s := New(ctx, NewMemoryStorage())
		for step := 0; step < 40; step++ {
			p := catalog[rng.Intn(len(catalog))]
			if rng.Intn(3) == 0 {
				s.Remove(ctx, p.ID)
			} else {
				require.NoError(t, s.Add(ctx, p, 1+rng.Intn(3)))
			}
		}

		seen := map[uuid.UUID]bool{}
		count := 0
		total := decimal.Zero
		for _, item := range s.Items() {
			require.False(t, seen[item.ProductID], "duplicate line for %s", item.ProductID)
			seen[item.ProductID] = true
			count += item.Quantity
			total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
		assert.Equal(t, count, s.Count())
		assert.True(t, total.Equal(s.Total()))
	}
}
