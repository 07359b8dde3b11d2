package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AuditEntry records an admin action.
type AuditEntry struct {
	ID         uuid.UUID       `json:"id"`
	ActorID    uuid.UUID       `json:"actor_id"`
	Action     string          `json:"action"`
	TargetType string          `json:"target_type"`
	TargetID   string          `json:"target_id"`
	Details    json.RawMessage `json:"details,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// AuditStore is the gateway's audit_logs collection.
type AuditStore interface {
	AppendAudit(ctx context.Context, entry AuditEntry) error
	ListAudit(ctx context.Context, limit int) ([]AuditEntry, error)
}

// DashboardStats summarizes the store for the admin dashboard.
type DashboardStats struct {
	Revenue       decimal.Decimal `json:"revenue"`
	OrderCount    int             `json:"order_count"`
	PendingOrders int             `json:"pending_orders"`
	UserCount     int             `json:"user_count"`
	RecentOrders  []Order         `json:"recent_orders"`
}

// StatsStore provides aggregate reads for the dashboard.
type StatsStore interface {
	Revenue(ctx context.Context) (decimal.Decimal, error)
	CountOrders(ctx context.Context, status OrderStatus) (int, error)
	CountProfiles(ctx context.Context) (int, error)
}

// ChatRole identifies the author of an assistant chat turn.
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatLog is one persisted assistant conversation turn.
type ChatLog struct {
	ConversationID string    `json:"conversation_id"`
	UserID         uuid.UUID `json:"user_id"`
	Role           ChatRole  `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// ChatLogStore persists assistant conversations.
type ChatLogStore interface {
	AppendChatLog(ctx context.Context, entry ChatLog) error
}
