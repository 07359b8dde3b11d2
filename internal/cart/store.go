// Package cart holds the shopper's cart: an ordered list of catalog items
// that is rewritten to durable storage after every mutation and hydrated
// from it when a Store is built.
package cart

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/arena/internal/domain"
)

// StorageKey is the namespace the cart is persisted under.
const StorageKey = "arena.cart"

// Observer is notified after each mutation with the resulting item count.
type Observer func(op string, count int)

// Store is the cart of one shopper. It holds at most one item per product.
type Store struct {
	mu       sync.Mutex
	items    []domain.CartItem
	storage  Storage
	logger   *slog.Logger
	observer Observer
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used to report persistence failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithObserver registers a mutation observer (metrics).
func WithObserver(fn Observer) Option {
	return func(s *Store) {
		s.observer = fn
	}
}

// New builds a Store hydrated from storage. Missing or malformed data
// yields an empty cart; hydration never fails.
func New(ctx context.Context, storage Storage, opts ...Option) *Store {
	s := &Store{storage: storage, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.items = s.hydrate(ctx)
	return s
}

func (s *Store) hydrate(ctx context.Context) []domain.CartItem {
	if s.storage == nil {
		return nil
	}

	data, err := s.storage.Load(ctx, StorageKey)
	if err != nil {
		s.logger.Warn("failed to load cart, starting empty", "error", err)
		return nil
	}
	return s.decode(data)
}

func (s *Store) decode(data []byte) []domain.CartItem {
	if len(data) == 0 {
		return nil
	}

	var raw []domain.CartItem
	if err := json.Unmarshal(data, &raw); err != nil {
		s.logger.Warn("discarding malformed cart", "error", err)
		return nil
	}

	return normalize(raw)
}

// normalize drops invalid lines and merges duplicate products so that the
// one-line-per-product invariant holds even for hand-edited storage.
func normalize(raw []domain.CartItem) []domain.CartItem {
	items := make([]domain.CartItem, 0, len(raw))
	for _, item := range raw {
		if item.ProductID == uuid.Nil || item.Quantity < 1 || item.UnitPrice.IsNegative() {
			continue
		}
		if i := indexOf(items, item.ProductID); i >= 0 {
			items[i].Quantity += item.Quantity
			continue
		}
		items = append(items, item)
	}
	return items
}

func indexOf(items []domain.CartItem, productID uuid.UUID) int {
	return slices.IndexFunc(items, func(item domain.CartItem) bool {
		return item.ProductID == productID
	})
}

// Add puts quantity units of product in the cart. An existing line for the
// product has its quantity increased; otherwise a new line is appended with
// the product's current price, name and image.
func (s *Store) Add(ctx context.Context, product domain.Product, quantity int) error {
	if quantity < 1 {
		return domain.ErrInvalidQuantity
	}

	return s.mutate(ctx, "add", func(items []domain.CartItem) ([]domain.CartItem, error) {
		if i := indexOf(items, product.ID); i >= 0 {
			items[i].Quantity += quantity
			return items, nil
		}
		return append(items, domain.NewCartItem(product, quantity)), nil
	})
}

// Remove deletes the line for productID. Unknown products are ignored.
func (s *Store) Remove(ctx context.Context, productID uuid.UUID) {
	_ = s.mutate(ctx, "remove", func(items []domain.CartItem) ([]domain.CartItem, error) {
		if i := indexOf(items, productID); i >= 0 {
			return slices.Delete(items, i, i+1), nil
		}
		return items, nil
	})
}

// SetQuantity sets the quantity of an existing line. A quantity below 1
// removes the line.
func (s *Store) SetQuantity(ctx context.Context, productID uuid.UUID, quantity int) error {
	op := "update"
	if quantity < 1 {
		op = "remove"
	}

	return s.mutate(ctx, op, func(items []domain.CartItem) ([]domain.CartItem, error) {
		i := indexOf(items, productID)
		if i < 0 {
			return nil, domain.NotFound("cart.set_quantity", "cart item", productID.String())
		}
		if quantity < 1 {
			return slices.Delete(items, i, i+1), nil
		}
		items[i].Quantity = quantity
		return items, nil
	})
}

// SetAll replaces the whole cart. SetAll(nil) empties it.
func (s *Store) SetAll(ctx context.Context, items []domain.CartItem) {
	next := normalize(items)
	_ = s.mutate(ctx, "set_all", func([]domain.CartItem) ([]domain.CartItem, error) {
		return slices.Clone(next), nil
	})
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) {
	s.SetAll(ctx, nil)
}

// Consume removes purchased quantities. Lines added or increased since the
// purchase snapshot was taken keep the remainder.
func (s *Store) Consume(ctx context.Context, lines []domain.CheckoutLine) {
	_ = s.mutate(ctx, "consume", func(items []domain.CartItem) ([]domain.CartItem, error) {
		for _, line := range lines {
			i := indexOf(items, line.ProductID)
			if i < 0 {
				continue
			}
			items[i].Quantity -= line.Quantity
			if items[i].Quantity < 1 {
				items = slices.Delete(items, i, i+1)
			}
		}
		return items, nil
	})
}

// Items returns a copy of the cart lines in insertion order.
func (s *Store) Items() []domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}

// Total is the sum of unit price times quantity at full precision.
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := decimal.Zero
	for _, item := range s.items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// DisplayTotal is Total rounded to two decimals.
func (s *Store) DisplayTotal() string {
	return domain.RoundDisplay(s.Total())
}

// Count is the sum of quantities.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, item := range s.items {
		count += item.Quantity
	}
	return count
}

// Snapshot returns the checkout request lines for the current contents.
// The result does not change when the cart is mutated afterwards.
func (s *Store) Snapshot() []domain.CheckoutLine {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := make([]domain.CheckoutLine, len(s.items))
	for i, item := range s.items {
		lines[i] = domain.CheckoutLine{ProductID: item.ProductID, Quantity: item.Quantity}
	}
	return lines
}

// mutate applies fn to the latest stored cart and writes the result back in
// one storage update, so concurrent Stores of the same device never
// overwrite each other's changes. fn receives a copy it may modify.
//
// A failed storage update applies fn to the in-memory cart instead, which
// stays authoritative for this request.
func (s *Store) mutate(ctx context.Context, op string, fn func([]domain.CartItem) ([]domain.CartItem, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.storage == nil {
		return s.apply(op, slices.Clone(s.items), fn)
	}

	var next []domain.CartItem
	var fnErr error
	err := s.storage.Update(ctx, StorageKey, func(current []byte) ([]byte, error) {
		next, fnErr = fn(s.decode(current))
		if fnErr != nil {
			return nil, fnErr
		}
		return encode(next)
	})
	switch {
	case fnErr != nil:
		return fnErr
	case err != nil:
		s.logger.Error("failed to persist cart", "op", op, "error", err)
		return s.apply(op, slices.Clone(s.items), fn)
	}

	s.items = next
	s.notify(op)
	return nil
}

func (s *Store) apply(op string, items []domain.CartItem, fn func([]domain.CartItem) ([]domain.CartItem, error)) error {
	next, err := fn(items)
	if err != nil {
		return err
	}
	s.items = next
	s.notify(op)
	return nil
}

// notify reports the item count to the observer. Callers hold s.mu.
func (s *Store) notify(op string) {
	if s.observer == nil {
		return
	}
	count := 0
	for _, item := range s.items {
		count += item.Quantity
	}
	s.observer(op, count)
}

func encode(items []domain.CartItem) ([]byte, error) {
	if items == nil {
		items = []domain.CartItem{}
	}
	return json.Marshal(items)
}
