package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dukerupert/arena/internal/domain"
)

const productColumns = `id, name, price_dh, category, type, stock, description, image_url, created_at`

// Products is the products collection.
type Products struct {
	db DBTX
}

var _ domain.ProductStore = (*Products)(nil)

func NewProducts(db DBTX) *Products {
	return &Products{db: db}
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.PriceDH, &p.Category, &p.Type, &p.Stock, &p.Description, &p.ImageURL, &p.CreatedAt)
	return p, err
}

// ListProducts returns live products matching filter.
func (s *Products) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	const op = "products.list"

	var (
		where = []string{"deleted_at IS NULL"}
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Category != "" {
		where = append(where, "category = "+arg(filter.Category))
	}
	if filter.Type != "" {
		where = append(where, "type = "+arg(filter.Type))
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		p := arg("%" + escapeLike(q) + "%")
		where = append(where, fmt.Sprintf("(name ILIKE %s OR description ILIKE %s)", p, p))
	}
	if filter.InStockOnly {
		where = append(where, "stock > 0")
	}

	order := "created_at DESC"
	switch filter.Sort {
	case domain.SortPriceAsc:
		order = "price_dh ASC, created_at DESC"
	case domain.SortPriceDesc:
		order = "price_dh DESC, created_at DESC"
	}

	query := fmt.Sprintf(`SELECT %s FROM products WHERE %s ORDER BY %s`,
		productColumns, strings.Join(where, " AND "), order)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, op, nil)
	}
	products, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Product, error) {
		return scanProduct(r)
	})
	if err != nil {
		return nil, mapError(err, op, nil)
	}
	return products, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// GetProduct returns a live product.
func (s *Products) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	p, err := scanProduct(s.db.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1 AND deleted_at IS NULL`, id))
	if err != nil {
		return nil, mapError(err, "products.get", domain.ErrProductNotFound)
	}
	return &p, nil
}

// ListCategories returns the distinct categories of live products.
func (s *Products) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx,
		`SELECT DISTINCT category FROM products WHERE deleted_at IS NULL ORDER BY category`)
	if err != nil {
		return nil, mapError(err, "products.categories", nil)
	}
	categories, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, mapError(err, "products.categories", nil)
	}
	return categories, nil
}

// CreateProduct inserts a product.
func (s *Products) CreateProduct(ctx context.Context, in domain.ProductInput) (*domain.Product, error) {
	p, err := scanProduct(s.db.QueryRow(ctx, `
		INSERT INTO products (name, price_dh, category, type, stock, description, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+productColumns,
		in.Name, in.PriceDH, in.Category, in.Type, in.Stock, in.Description, in.ImageURL))
	if err != nil {
		return nil, mapError(err, "products.create", nil)
	}
	return &p, nil
}

// UpdateProduct overwrites the editable fields of a product.
func (s *Products) UpdateProduct(ctx context.Context, id uuid.UUID, in domain.ProductInput) (*domain.Product, error) {
	p, err := scanProduct(s.db.QueryRow(ctx, `
		UPDATE products
		SET name = $2, price_dh = $3, category = $4, type = $5, stock = $6, description = $7, image_url = $8
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+productColumns,
		id, in.Name, in.PriceDH, in.Category, in.Type, in.Stock, in.Description, in.ImageURL))
	if err != nil {
		return nil, mapError(err, "products.update", domain.ErrProductNotFound)
	}
	return &p, nil
}

// DeleteProduct hides a product. Orders keep referencing the row.
func (s *Products) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE products SET deleted_at = now() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return mapError(err, "products.delete", nil)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}
