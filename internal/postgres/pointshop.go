package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dukerupert/arena/internal/domain"
)

const pointItemColumns = `id, name, description, cost_points, stock, image_url, active`

// PointShop is the point_shop_items collection and the redemption procedure.
type PointShop struct {
	db DBTX
}

var _ domain.PointShopStore = (*PointShop)(nil)

func NewPointShop(db DBTX) *PointShop {
	return &PointShop{db: db}
}

func scanPointItem(row pgx.Row) (domain.PointShopItem, error) {
	var i domain.PointShopItem
	err := row.Scan(&i.ID, &i.Name, &i.Description, &i.CostPoints, &i.Stock, &i.ImageURL, &i.Active)
	return i, err
}

// ListPointItems returns active rewards, cheapest first.
func (s *PointShop) ListPointItems(ctx context.Context) ([]domain.PointShopItem, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+pointItemColumns+` FROM point_shop_items WHERE active ORDER BY cost_points, name`)
	if err != nil {
		return nil, mapError(err, "pointshop.list", nil)
	}
	items, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.PointShopItem, error) {
		return scanPointItem(r)
	})
	if err != nil {
		return nil, mapError(err, "pointshop.list", nil)
	}
	return items, nil
}

func (s *PointShop) GetPointItem(ctx context.Context, id uuid.UUID) (*domain.PointShopItem, error) {
	i, err := scanPointItem(s.db.QueryRow(ctx,
		`SELECT `+pointItemColumns+` FROM point_shop_items WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, "pointshop.get", domain.ErrPointItemNotFound)
	}
	return &i, nil
}

func (s *PointShop) CreatePointItem(ctx context.Context, in domain.PointItemInput) (*domain.PointShopItem, error) {
	i, err := scanPointItem(s.db.QueryRow(ctx, `
		INSERT INTO point_shop_items (name, description, cost_points, stock, image_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+pointItemColumns,
		in.Name, in.Description, in.CostPoints, in.Stock, in.ImageURL))
	if err != nil {
		return nil, mapError(err, "pointshop.create", nil)
	}
	return &i, nil
}

type redeemPayload struct {
	Success   *bool  `json:"success"`
	NewPoints *int64 `json:"new_points"`
	Message   string `json:"message"`
}

// RedeemPointItem runs the atomic redemption procedure.
func (s *PointShop) RedeemPointItem(ctx context.Context, userID, itemID uuid.UUID) (*domain.RedemptionResult, error) {
	const op = "pointshop.redeem"

	var raw []byte
	if err := s.db.QueryRow(ctx, `SELECT redeem_point_item($1, $2)`, userID, itemID).Scan(&raw); err != nil {
		return nil, mapError(err, op, nil)
	}

	var p redeemPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, domain.Internal(err, op, "malformed redemption response")
	}
	if p.Success == nil || (*p.Success && p.NewPoints == nil) {
		return nil, domain.Internal(fmt.Errorf("incomplete payload: %s", raw), op, "malformed redemption response")
	}
	if !*p.Success {
		return &domain.RedemptionResult{Success: false, Message: p.Message}, nil
	}
	return &domain.RedemptionResult{Success: true, NewPoints: *p.NewPoints}, nil
}
