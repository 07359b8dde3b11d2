package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dukerupert/arena/internal/domain"
)

const orderSelect = `
	SELECT o.id, o.user_id, o.product_id, p.name, u.username, o.quantity, o.status,
	       o.price_paid, o.points_earned, o.created_at
	FROM orders o
	JOIN products p ON p.id = o.product_id
	JOIN profiles u ON u.id = o.user_id`

// Orders is the orders collection.
type Orders struct {
	db DBTX
}

var _ domain.OrderStore = (*Orders)(nil)

func NewOrders(db DBTX) *Orders {
	return &Orders{db: db}
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	err := row.Scan(&o.ID, &o.UserID, &o.ProductID, &o.ProductName, &o.Username, &o.Quantity, &o.Status,
		&o.PricePaid, &o.PointsEarned, &o.CreatedAt)
	return o, err
}

func collectOrders(rows pgx.Rows, op string) ([]domain.Order, error) {
	orders, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Order, error) {
		return scanOrder(r)
	})
	if err != nil {
		return nil, mapError(err, op, nil)
	}
	return orders, nil
}

func (s *Orders) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	o, err := scanOrder(s.db.QueryRow(ctx, orderSelect+` WHERE o.id = $1`, id))
	if err != nil {
		return nil, mapError(err, "orders.get", domain.ErrOrderNotFound)
	}
	return &o, nil
}

func (s *Orders) ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]domain.Order, error) {
	rows, err := s.db.Query(ctx, orderSelect+` WHERE o.user_id = $1 ORDER BY o.created_at DESC`, userID)
	if err != nil {
		return nil, mapError(err, "orders.list_by_user", nil)
	}
	return collectOrders(rows, "orders.list_by_user")
}

// ListOrders returns the newest orders, optionally of one status.
func (s *Orders) ListOrders(ctx context.Context, status domain.OrderStatus, limit int) ([]domain.Order, error) {
	rows, err := s.db.Query(ctx,
		orderSelect+` WHERE ($1 = '' OR o.status = $1) ORDER BY o.created_at DESC LIMIT $2`,
		string(status), limit)
	if err != nil {
		return nil, mapError(err, "orders.list", nil)
	}
	return collectOrders(rows, "orders.list")
}

// UpdateOrderStatus overwrites the status of an order.
func (s *Orders) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	const op = "orders.update_status"

	if !status.Valid() {
		return nil, domain.ErrInvalidOrderStatus
	}

	tag, err := s.db.Exec(ctx, `UPDATE orders SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return nil, mapError(err, op, nil)
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrOrderNotFound
	}
	return s.GetOrder(ctx, id)
}
