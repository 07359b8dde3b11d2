// Package realtime delivers message-insert events per order. In production
// the feed runs over NATS; a single process can use the in-memory LocalBus.
package realtime

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dukerupert/arena/internal/domain"
)

// Handler receives the full inserted row.
type Handler func(msg domain.Message)

// Subscription is a live interest in one order's feed.
type Subscription interface {
	Unsubscribe() error
}

// Publisher emits insert events.
type Publisher interface {
	Publish(ctx context.Context, msg domain.Message) error
}

// Subscriber opens order-scoped subscriptions.
type Subscriber interface {
	Subscribe(orderID uuid.UUID, fn Handler) (Subscription, error)
}

// Bus is a complete realtime feed.
type Bus interface {
	Publisher
	Subscriber
	Close() error
}

// Observer counts feed activity: "published", "delivered" or "dropped".
type Observer func(event string)

// Subject is the NATS subject carrying inserts for an order.
func Subject(orderID uuid.UUID) string {
	return fmt.Sprintf("arena.orders.%s.messages", orderID)
}

// PublishingMessages persists messages through the wrapped store and then
// announces each new row on the feed.
type PublishingMessages struct {
	domain.MessageStore
	publisher Publisher
	onError   func(msg domain.Message, err error)
}

// NewPublishingMessages wraps store. onError, if set, sees publish failures;
// the message stays persisted either way.
func NewPublishingMessages(store domain.MessageStore, publisher Publisher, onError func(domain.Message, error)) *PublishingMessages {
	return &PublishingMessages{MessageStore: store, publisher: publisher, onError: onError}
}

// CreateMessage implements domain.MessageStore.
func (p *PublishingMessages) CreateMessage(ctx context.Context, in domain.NewMessage) (*domain.Message, error) {
	msg, err := p.MessageStore.CreateMessage(ctx, in)
	if err != nil {
		return nil, err
	}

	if err := p.publisher.Publish(context.WithoutCancel(ctx), *msg); err != nil && p.onError != nil {
		p.onError(*msg, err)
	}
	return msg, nil
}
