// Package postgres implements the gateway collections and procedures over
// PostgreSQL with pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dukerupert/arena/internal/domain"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Open creates a connection pool and verifies it.
func Open(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("invalid database url: %w", err)
	}
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return pool, nil
}

// Store bundles every gateway collection over one connection.
type Store struct {
	*Products
	*Profiles
	*Orders
	*Messages
	*Wallet
	*Tournaments
	*PointShop
	*Audit
	*ChatLogs
	*Stats
	*Checkout
	*Revocations
}

// NewStore builds all collections over db.
func NewStore(db DBTX) *Store {
	return &Store{
		Products:    NewProducts(db),
		Profiles:    NewProfiles(db),
		Orders:      NewOrders(db),
		Messages:    NewMessages(db),
		Wallet:      NewWallet(db),
		Tournaments: NewTournaments(db),
		PointShop:   NewPointShop(db),
		Audit:       NewAudit(db),
		ChatLogs:    NewChatLogs(db),
		Stats:       NewStats(db),
		Checkout:    NewCheckout(db),
		Revocations: NewRevocations(db),
	}
}

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
	checkViolation      = "23514"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// mapError converts driver errors into domain errors. notFound is returned
// for pgx.ErrNoRows.
func mapError(err error, op string, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) && notFound != nil {
		return notFound
	}
	if errors.Is(err, context.Canceled) {
		return domain.Aborted(op, err)
	}
	switch pgCode(err) {
	case uniqueViolation:
		return domain.WrapError(err, domain.ECONFLICT, op, "Resource already exists")
	case foreignKeyViolation:
		return domain.WrapError(err, domain.EINVALID, op, "Referenced resource does not exist")
	case checkViolation:
		return domain.WrapError(err, domain.EINVALID, op, "Value out of range")
	}
	return domain.Internal(err, op, "database error")
}
