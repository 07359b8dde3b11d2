package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

var ErrEmptyMessage = &Error{Code: EINVALID, Message: "Message cannot be empty"}

// MaxMessageLength bounds a single support chat message.
const MaxMessageLength = 2000

// Message is a persisted support chat message of an order.
type Message struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"order_id"`
	SenderID  uuid.UUID `json:"sender_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// NewMessage is the payload of a message that has not been persisted yet.
type NewMessage struct {
	OrderID  uuid.UUID `json:"order_id"`
	SenderID uuid.UUID `json:"sender_id"`
	Content  string    `json:"content"`
}

// MessageStore is the gateway's messages collection.
type MessageStore interface {
	// RecentMessages returns up to limit messages of the order, newest first,
	// skipping the offset newest ones.
	RecentMessages(ctx context.Context, orderID uuid.UUID, offset, limit int) ([]Message, error)

	// CreateMessage persists a message and returns the canonical row.
	CreateMessage(ctx context.Context, msg NewMessage) (*Message, error)
}
