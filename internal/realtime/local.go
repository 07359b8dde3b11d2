package realtime

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/dukerupert/arena/internal/domain"
)

// LocalBus is an in-process feed. Handlers run synchronously on the
// publishing goroutine.
type LocalBus struct {
	observer Observer

	mu       sync.RWMutex
	nextID   uint64
	handlers map[uuid.UUID]map[uint64]Handler
	closed   bool
}

// NewLocalBus creates an empty in-process feed.
func NewLocalBus(observer Observer) *LocalBus {
	return &LocalBus{observer: observer, handlers: make(map[uuid.UUID]map[uint64]Handler)}
}

// Publish implements Publisher.
func (b *LocalBus) Publish(ctx context.Context, msg domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrClosed
	}
	targets := make([]Handler, 0, len(b.handlers[msg.OrderID]))
	for _, fn := range b.handlers[msg.OrderID] {
		targets = append(targets, fn)
	}
	b.mu.RUnlock()

	b.observe("published")
	for _, fn := range targets {
		fn(msg)
		b.observe("delivered")
	}
	return nil
}

// Subscribe implements Subscriber.
func (b *LocalBus) Subscribe(orderID uuid.UUID, fn Handler) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}

	b.nextID++
	id := b.nextID
	if b.handlers[orderID] == nil {
		b.handlers[orderID] = make(map[uint64]Handler)
	}
	b.handlers[orderID][id] = fn

	return &localSubscription{bus: b, orderID: orderID, id: id}, nil
}

// Subscribers returns the number of live subscriptions for an order.
func (b *LocalBus) Subscribers(orderID uuid.UUID) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[orderID])
}

// Close drops every subscription.
func (b *LocalBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.handlers = make(map[uuid.UUID]map[uint64]Handler)
	return nil
}

func (b *LocalBus) observe(event string) {
	if b.observer != nil {
		b.observer(event)
	}
}

type localSubscription struct {
	bus     *LocalBus
	orderID uuid.UUID
	id      uint64
	once    sync.Once
}

func (s *localSubscription) Unsubscribe() error {
	s.once.Do(func() {
		s.bus.mu.Lock()
		defer s.bus.mu.Unlock()
		if byID := s.bus.handlers[s.orderID]; byID != nil {
			delete(byID, s.id)
			if len(byID) == 0 {
				delete(s.bus.handlers, s.orderID)
			}
		}
	})
	return nil
}
