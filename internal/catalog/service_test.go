package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/arena/internal/domain"
)

type mockProductStore struct {
	domain.ProductStore
	lastFilter domain.ProductFilter
	calls      int
}

func (m *mockProductStore) ListProducts(_ context.Context, f domain.ProductFilter) ([]domain.Product, error) {
	m.calls++
	m.lastFilter = f
	return []domain.Product{{ID: uuid.New(), Name: "Steam card"}}, nil
}

func (m *mockProductStore) ListCategories(context.Context) ([]string, error) {
	return []string{"gift-cards", "skins"}, nil
}

func TestQueryFilter(t *testing.T) {
	tests := []struct {
		name    string
		q       Query
		want    domain.ProductFilter
		invalid string
	}{
		{
			name: "defaults to newest",
			q:    Query{},
			want: domain.ProductFilter{Sort: domain.SortNewest},
		},
		{
			name: "all means no filter",
			q:    Query{Category: "All", Type: "all", Sort: "price_asc", InStock: true, Search: "  steam "},
			want: domain.ProductFilter{Sort: domain.SortPriceAsc, InStockOnly: true, Search: "steam"},
		},
		{
			name: "keeps category",
			q:    Query{Category: "skins", Sort: "price_desc"},
			want: domain.ProductFilter{Category: "skins", Sort: domain.SortPriceDesc},
		},
		{
			name:    "unknown sort",
			q:       Query{Sort: "popular"},
			invalid: "sort",
		},
		{
			name:    "search too long",
			q:       Query{Search: strings.Repeat("x", MaxSearchLength+1)},
			invalid: "search",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.q.Filter()
			if tt.invalid != "" {
				require.Error(t, err)
				assert.Contains(t, domain.GetValidationFields(err), tt.invalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestList(t *testing.T) {
	store := &mockProductStore{}
	svc := NewService(store)

	products, err := svc.List(context.Background(), Query{Category: "skins"})
	require.NoError(t, err)
	assert.Len(t, products, 1)
	assert.Equal(t, "skins", store.lastFilter.Category)

	_, err = svc.List(context.Background(), Query{Sort: "bogus"})
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	assert.Equal(t, 1, store.calls, "invalid query must not hit the gateway")
}

func TestCategories(t *testing.T) {
	svc := NewService(&mockProductStore{})

	cats, err := svc.Categories(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"gift-cards", "skins"}, cats)
}
