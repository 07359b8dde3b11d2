package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/arena/internal/domain"
)

// Audit is the audit_logs collection.
type Audit struct {
	db DBTX
}

var _ domain.AuditStore = (*Audit)(nil)

func NewAudit(db DBTX) *Audit {
	return &Audit{db: db}
}

func (s *Audit) AppendAudit(ctx context.Context, e domain.AuditEntry) error {
	var details any
	if len(e.Details) > 0 {
		details = string(e.Details)
	}
	var actor any
	if e.ActorID != uuid.Nil {
		actor = e.ActorID
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO audit_logs (actor_id, action, target_type, target_id, details)
		VALUES ($1, $2, $3, $4, $5::jsonb)`,
		actor, e.Action, e.TargetType, e.TargetID, details)
	return mapError(err, "audit.append", nil)
}

// ListAudit returns the newest entries first.
func (s *Audit) ListAudit(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, actor_id, action, target_type, target_id, details, created_at
		FROM audit_logs
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, mapError(err, "audit.list", nil)
	}
	entries, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.AuditEntry, error) {
		var e domain.AuditEntry
		var details []byte
		var actor *uuid.UUID
		err := r.Scan(&e.ID, &actor, &e.Action, &e.TargetType, &e.TargetID, &details, &e.CreatedAt)
		if actor != nil {
			e.ActorID = *actor
		}
		e.Details = details
		return e, err
	})
	if err != nil {
		return nil, mapError(err, "audit.list", nil)
	}
	return entries, nil
}

// ChatLogs is the chat_logs collection.
type ChatLogs struct {
	db DBTX
}

var _ domain.ChatLogStore = (*ChatLogs)(nil)

func NewChatLogs(db DBTX) *ChatLogs {
	return &ChatLogs{db: db}
}

func (s *ChatLogs) AppendChatLog(ctx context.Context, e domain.ChatLog) error {
	var userID any
	if e.UserID != uuid.Nil {
		userID = e.UserID
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO chat_logs (conversation_id, user_id, role, content)
		VALUES ($1, $2, $3, $4)`,
		e.ConversationID, userID, e.Role, e.Content)
	return mapError(err, "chatlogs.append", nil)
}

// Stats provides dashboard aggregates.
type Stats struct {
	db DBTX
}

var _ domain.StatsStore = (*Stats)(nil)

func NewStats(db DBTX) *Stats {
	return &Stats{db: db}
}

// Revenue sums the price of completed and pending orders.
func (s *Stats) Revenue(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.db.QueryRow(ctx, `
		SELECT COALESCE(sum(price_paid), 0)
		FROM orders
		WHERE status IN ('pending', 'completed')`).Scan(&total)
	if err != nil {
		return decimal.Zero, mapError(err, "stats.revenue", nil)
	}
	return total, nil
}

// CountOrders counts orders, optionally of one status.
func (s *Stats) CountOrders(ctx context.Context, status domain.OrderStatus) (int, error) {
	var n int
	err := s.db.QueryRow(ctx,
		`SELECT count(*) FROM orders WHERE ($1 = '' OR status = $1)`, string(status)).Scan(&n)
	if err != nil {
		return 0, mapError(err, "stats.count_orders", nil)
	}
	return n, nil
}

func (s *Stats) CountProfiles(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM profiles`).Scan(&n); err != nil {
		return 0, mapError(err, "stats.count_profiles", nil)
	}
	return n, nil
}
