package points

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/arena/internal/domain"
	"github.com/dukerupert/arena/internal/session"
)

type mockPointShop struct {
	ListPointItemsFunc  func(ctx context.Context) ([]domain.PointShopItem, error)
	GetPointItemFunc    func(ctx context.Context, id uuid.UUID) (*domain.PointShopItem, error)
	RedeemPointItemFunc func(ctx context.Context, userID, itemID uuid.UUID) (*domain.RedemptionResult, error)

	redeemCalls int
}

func (m *mockPointShop) ListPointItems(ctx context.Context) ([]domain.PointShopItem, error) {
	return m.ListPointItemsFunc(ctx)
}

func (m *mockPointShop) GetPointItem(ctx context.Context, id uuid.UUID) (*domain.PointShopItem, error) {
	return m.GetPointItemFunc(ctx, id)
}

func (m *mockPointShop) CreatePointItem(context.Context, domain.PointItemInput) (*domain.PointShopItem, error) {
	return nil, errors.New("not used")
}

func (m *mockPointShop) RedeemPointItem(ctx context.Context, userID, itemID uuid.UUID) (*domain.RedemptionResult, error) {
	m.redeemCalls++
	return m.RedeemPointItemFunc(ctx, userID, itemID)
}

func shopWith(item domain.PointShopItem, result *domain.RedemptionResult, err error) *mockPointShop {
	return &mockPointShop{
		GetPointItemFunc: func(_ context.Context, id uuid.UUID) (*domain.PointShopItem, error) {
			if id != item.ID {
				return nil, domain.ErrPointItemNotFound
			}
			clone := item
			return &clone, nil
		},
		RedeemPointItemFunc: func(context.Context, uuid.UUID, uuid.UUID) (*domain.RedemptionResult, error) {
			return result, err
		},
	}
}

func holderWithPoints(points int64) *session.Holder {
	return session.NewHolder(&domain.Profile{ID: uuid.New(), Username: "yassine", LoyaltyPoints: points})
}

func TestRedeem_Success(t *testing.T) {
	item := domain.PointShopItem{ID: uuid.New(), Name: "Mousepad", CostPoints: 300, Stock: 4, Active: true}
	store := shopWith(item, &domain.RedemptionResult{Success: true, NewPoints: 200}, nil)
	var outcomes []string
	svc := NewService(store, nil, func(o string) { outcomes = append(outcomes, o) })
	holder := holderWithPoints(500)

	got, err := svc.Redeem(context.Background(), holder, item.ID)

	require.NoError(t, err)
	assert.Equal(t, int64(200), got.Profile.LoyaltyPoints)
	assert.Equal(t, 3, got.Item.Stock)
	p, _ := holder.Profile()
	assert.Equal(t, int64(200), p.LoyaltyPoints)
	assert.Equal(t, []string{"redeemed"}, outcomes)
}

func TestRedeem_FastPathRejections(t *testing.T) {
	tests := []struct {
		name   string
		item   domain.PointShopItem
		points int64
		want   error
	}{
		{
			name:   "not enough points",
			item:   domain.PointShopItem{CostPoints: 300, Stock: 1, Active: true},
			points: 299,
			want:   domain.ErrInsufficientPoints,
		},
		{
			name:   "out of stock",
			item:   domain.PointShopItem{CostPoints: 10, Stock: 0, Active: true},
			points: 1000,
			want:   domain.ErrPointItemUnavailable,
		},
		{
			name:   "inactive",
			item:   domain.PointShopItem{CostPoints: 10, Stock: 5, Active: false},
			points: 1000,
			want:   domain.ErrPointItemUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.item.ID = uuid.New()
			store := shopWith(tt.item, nil, nil)
			svc := NewService(store, nil, nil)
			holder := holderWithPoints(tt.points)

			_, err := svc.Redeem(context.Background(), holder, tt.item.ID)

			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, store.redeemCalls, "gateway must not be called")
			p, _ := holder.Profile()
			assert.Equal(t, tt.points, p.LoyaltyPoints)
		})
	}
}

func TestRedeem_GatewayRejectionKeepsPoints(t *testing.T) {
	item := domain.PointShopItem{ID: uuid.New(), CostPoints: 100, Stock: 1, Active: true}
	store := shopWith(item, &domain.RedemptionResult{Success: false, Message: "Out of stock"}, nil)
	svc := NewService(store, nil, nil)
	holder := holderWithPoints(150)

	_, err := svc.Redeem(context.Background(), holder, item.ID)

	assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))
	assert.Equal(t, "Out of stock", domain.ErrorMessage(err))
	p, _ := holder.Profile()
	assert.Equal(t, int64(150), p.LoyaltyPoints)
}

func TestRedeem_TransportFailureIsInternal(t *testing.T) {
	item := domain.PointShopItem{ID: uuid.New(), CostPoints: 100, Stock: 1, Active: true}
	store := shopWith(item, nil, errors.New("connection refused"))
	svc := NewService(store, nil, nil)

	_, err := svc.Redeem(context.Background(), holderWithPoints(150), item.ID)

	assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))
}

func TestRedeem_RequiresLogin(t *testing.T) {
	svc := NewService(&mockPointShop{}, nil, nil)

	_, err := svc.Redeem(context.Background(), session.NewHolder(nil), uuid.New())

	assert.ErrorIs(t, err, domain.ErrLoginRequired)
}

func TestRedeem_UnknownItem(t *testing.T) {
	store := shopWith(domain.PointShopItem{ID: uuid.New()}, nil, nil)
	svc := NewService(store, nil, nil)

	_, err := svc.Redeem(context.Background(), holderWithPoints(10), uuid.New())

	assert.ErrorIs(t, err, domain.ErrPointItemNotFound)
}

type recordingPatcher struct {
	users   []uuid.UUID
	patches []domain.ProfilePatch
}

func (r *recordingPatcher) PatchUser(userID uuid.UUID, patch domain.ProfilePatch) int {
	r.users = append(r.users, userID)
	r.patches = append(r.patches, patch)
	return 1
}

func TestRedeem_BroadcastsPointsToOtherSessions(t *testing.T) {
	item := domain.PointShopItem{ID: uuid.New(), Name: "Mousepad", CostPoints: 300, Stock: 4, Active: true}
	store := shopWith(item, &domain.RedemptionResult{Success: true, NewPoints: 200}, nil)
	sessions := &recordingPatcher{}
	svc := NewService(store, nil, nil, WithSessions(sessions))
	holder := holderWithPoints(500)

	_, err := svc.Redeem(context.Background(), holder, item.ID)
	require.NoError(t, err)

	p, _ := holder.Profile()
	require.Len(t, sessions.patches, 1)
	assert.Equal(t, p.ID, sessions.users[0])
	require.NotNil(t, sessions.patches[0].LoyaltyPoints)
	assert.Equal(t, int64(200), *sessions.patches[0].LoyaltyPoints)
}

func TestRedeem_RejectionDoesNotBroadcast(t *testing.T) {
	item := domain.PointShopItem{ID: uuid.New(), CostPoints: 300, Stock: 4, Active: true}
	store := shopWith(item, &domain.RedemptionResult{Success: true, NewPoints: 0}, nil)
	sessions := &recordingPatcher{}
	svc := NewService(store, nil, nil, WithSessions(sessions))

	_, err := svc.Redeem(context.Background(), holderWithPoints(10), item.ID)

	assert.ErrorIs(t, err, domain.ErrInsufficientPoints)
	assert.Empty(t, sessions.patches)
}
