package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dukerupert/arena/internal/domain"
)

// Messages is the messages collection.
type Messages struct {
	db DBTX
}

var _ domain.MessageStore = (*Messages)(nil)

func NewMessages(db DBTX) *Messages {
	return &Messages{db: db}
}

func scanMessage(row pgx.Row) (domain.Message, error) {
	var m domain.Message
	err := row.Scan(&m.ID, &m.OrderID, &m.SenderID, &m.Content, &m.CreatedAt)
	return m, err
}

// RecentMessages returns a newest-first page.
func (s *Messages) RecentMessages(ctx context.Context, orderID uuid.UUID, offset, limit int) ([]domain.Message, error) {
	const op = "messages.recent"

	rows, err := s.db.Query(ctx, `
		SELECT id, order_id, sender_id, content, created_at
		FROM messages
		WHERE order_id = $1
		ORDER BY created_at DESC, id DESC
		OFFSET $2 LIMIT $3`, orderID, offset, limit)
	if err != nil {
		return nil, mapError(err, op, nil)
	}
	messages, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Message, error) {
		return scanMessage(r)
	})
	if err != nil {
		return nil, mapError(err, op, nil)
	}
	return messages, nil
}

func (s *Messages) CreateMessage(ctx context.Context, in domain.NewMessage) (*domain.Message, error) {
	m, err := scanMessage(s.db.QueryRow(ctx, `
		INSERT INTO messages (order_id, sender_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, order_id, sender_id, content, created_at`,
		in.OrderID, in.SenderID, in.Content))
	if err != nil {
		return nil, mapError(err, "messages.create", nil)
	}
	return &m, nil
}
