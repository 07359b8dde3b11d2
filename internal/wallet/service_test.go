package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/arena/internal/billing"
	"github.com/dukerupert/arena/internal/domain"
)

type mockWalletStore struct {
	CreditWalletFunc        func(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, reference string) (*domain.Profile, error)
	AppendWalletHistoryFunc func(ctx context.Context, entry domain.WalletEntry) error
	HasWalletEntryFunc      func(ctx context.Context, reference string) (bool, error)
	ListWalletHistoryFunc   func(ctx context.Context, userID uuid.UUID, limit int) ([]domain.WalletEntry, error)

	credited map[string]bool
	history  []domain.WalletEntry
}

func newMockStore(balance decimal.Decimal, points int64) *mockWalletStore {
	m := &mockWalletStore{credited: map[string]bool{}}
	m.CreditWalletFunc = func(_ context.Context, userID uuid.UUID, amount decimal.Decimal, reference string) (*domain.Profile, error) {
		if m.credited[reference] {
			return &domain.Profile{ID: userID, Username: "kenza", WalletBalance: balance, LoyaltyPoints: points}, domain.ErrDepositAlreadyApplied
		}
		m.credited[reference] = true
		balance = balance.Add(amount)
		return &domain.Profile{ID: userID, Username: "kenza", WalletBalance: balance, LoyaltyPoints: points}, nil
	}
	m.AppendWalletHistoryFunc = func(_ context.Context, entry domain.WalletEntry) error {
		if ok, _ := m.HasWalletEntry(context.Background(), entry.Reference); ok && entry.Reference != "" {
			return nil
		}
		m.history = append(m.history, entry)
		return nil
	}
	return m
}

func (m *mockWalletStore) CreditWallet(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, reference string) (*domain.Profile, error) {
	return m.CreditWalletFunc(ctx, userID, amount, reference)
}

func (m *mockWalletStore) AppendWalletHistory(ctx context.Context, entry domain.WalletEntry) error {
	return m.AppendWalletHistoryFunc(ctx, entry)
}

func (m *mockWalletStore) HasWalletEntry(ctx context.Context, reference string) (bool, error) {
	if m.HasWalletEntryFunc != nil {
		return m.HasWalletEntryFunc(ctx, reference)
	}
	for _, e := range m.history {
		if e.Reference == reference {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockWalletStore) ListWalletHistory(ctx context.Context, userID uuid.UUID, limit int) ([]domain.WalletEntry, error) {
	if m.ListWalletHistoryFunc != nil {
		return m.ListWalletHistoryFunc(ctx, userID, limit)
	}
	return m.history, nil
}

type recordingPatcher struct {
	calls   int
	userID  uuid.UUID
	patch   domain.ProfilePatch
	history *[]domain.WalletEntry
	// historyLenAtPatch records how many history rows existed when the
	// sessions were patched.
	historyLenAtPatch int
}

func (r *recordingPatcher) PatchUser(userID uuid.UUID, patch domain.ProfilePatch) int {
	r.calls++
	r.userID = userID
	r.patch = patch
	if r.history != nil {
		r.historyLenAtPatch = len(*r.history)
	}
	return 2
}

func testUser() *domain.User {
	return &domain.User{ID: uuid.New(), Email: "kenza@example.com", Role: domain.RoleUser}
}

func paidIntent(t *testing.T, provider *billing.MockProvider, user *domain.User, amount string) string {
	t.Helper()
	svc := NewService(provider, newMockStore(decimal.Zero, 0), &recordingPatcher{}, nil)
	dep, err := svc.StartDeposit(context.Background(), user, decimal.RequireFromString(amount))
	require.NoError(t, err)
	provider.Succeed(dep.IntentID)
	return dep.IntentID
}

func TestStartDeposit(t *testing.T) {
	user := testUser()

	tests := []struct {
		name     string
		user     *domain.User
		amount   string
		wantCode string
	}{
		{"below minimum", user, "4.99", domain.EINVALID},
		{"three decimals", user, "10.005", domain.EINVALID},
		{"anonymous", nil, "10", domain.EUNAUTHORIZED},
		{"minimum accepted", user, "5", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := billing.NewMockProvider()
			svc := NewService(provider, newMockStore(decimal.Zero, 0), &recordingPatcher{}, nil)

			dep, err := svc.StartDeposit(context.Background(), tt.user, decimal.RequireFromString(tt.amount))

			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, domain.ErrorCode(err))
				assert.Empty(t, provider.Calls())
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, dep.ClientSecret)
			assert.Equal(t, "mad", dep.Currency)

			pi := provider.PaymentIntents[dep.IntentID]
			assert.Equal(t, int64(500), pi.AmountMinor)
			assert.Equal(t, user.ID.String(), pi.Metadata[billing.MetadataUserID])
			assert.Equal(t, billing.KindDeposit, pi.Metadata[billing.MetadataKind])
		})
	}
}

func TestStartDeposit_ProviderFailureIsInternal(t *testing.T) {
	provider := billing.NewMockProvider()
	provider.CreatePaymentIntentFunc = func(context.Context, billing.CreatePaymentIntentParams) (*billing.PaymentIntent, error) {
		return nil, errors.New("stripe down")
	}
	var outcomes []string
	svc := NewService(provider, newMockStore(decimal.Zero, 0), &recordingPatcher{}, nil,
		WithObserver(func(outcome string, _ decimal.Decimal) { outcomes = append(outcomes, outcome) }))

	_, err := svc.StartDeposit(context.Background(), testUser(), decimal.NewFromInt(20))

	assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))
	assert.Equal(t, []string{"failed"}, outcomes)
}

func TestCompleteDeposit_CreditsPatchesThenRecordsHistory(t *testing.T) {
	ctx := context.Background()
	provider := billing.NewMockProvider()
	user := testUser()
	intentID := paidIntent(t, provider, user, "50")

	store := newMockStore(decimal.NewFromInt(100), 340)
	patcher := &recordingPatcher{history: &store.history}
	svc := NewService(provider, store, patcher, nil)

	profile, err := svc.CompleteDeposit(ctx, intentID)

	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(150).Equal(profile.WalletBalance))

	require.Equal(t, 1, patcher.calls)
	assert.Equal(t, user.ID, patcher.userID)
	require.NotNil(t, patcher.patch.WalletBalance)
	assert.True(t, decimal.NewFromInt(150).Equal(*patcher.patch.WalletBalance))
	require.NotNil(t, patcher.patch.LoyaltyPoints)
	assert.Equal(t, int64(340), *patcher.patch.LoyaltyPoints)
	assert.Zero(t, patcher.patch.PointsDelta)
	assert.Equal(t, 0, patcher.historyLenAtPatch, "sessions are patched before history is written")

	require.Len(t, store.history, 1)
	assert.Equal(t, domain.WalletDeposit, store.history[0].Type)
	assert.True(t, decimal.NewFromInt(50).Equal(store.history[0].Amount))
	assert.Contains(t, store.history[0].Description, intentID)
	assert.Equal(t, intentID, store.history[0].Reference)
}

func TestCompleteDeposit_IsIdempotentPerIntent(t *testing.T) {
	ctx := context.Background()
	provider := billing.NewMockProvider()
	intentID := paidIntent(t, provider, testUser(), "25")
	store := newMockStore(decimal.Zero, 0)
	patcher := &recordingPatcher{}
	svc := NewService(provider, store, patcher, nil)

	_, err := svc.CompleteDeposit(ctx, intentID)
	require.NoError(t, err)

	_, err = svc.CompleteDeposit(ctx, intentID)

	assert.ErrorIs(t, err, domain.ErrDepositAlreadyApplied)
	assert.Equal(t, 1, patcher.calls)
	assert.Len(t, store.history, 1)
}

func TestCompleteDeposit_HistoryFailureIsPartialSuccess(t *testing.T) {
	ctx := context.Background()
	provider := billing.NewMockProvider()
	intentID := paidIntent(t, provider, testUser(), "30")
	store := newMockStore(decimal.Zero, 0)
	store.AppendWalletHistoryFunc = func(context.Context, domain.WalletEntry) error {
		return errors.New("connection reset")
	}
	patcher := &recordingPatcher{}
	var reported []map[string]interface{}
	svc := NewService(provider, store, patcher, nil,
		WithReporter(func(_ error, extras map[string]interface{}) { reported = append(reported, extras) }))

	profile, err := svc.CompleteDeposit(ctx, intentID)

	assert.ErrorIs(t, err, domain.ErrPartialSuccess)
	require.NotNil(t, profile, "credited profile is still returned")
	assert.True(t, decimal.NewFromInt(30).Equal(profile.WalletBalance))
	assert.Equal(t, 1, patcher.calls, "balance change is not rolled back")
	require.Len(t, reported, 1)
	assert.Equal(t, intentID, reported[0]["intent_id"])
}

// A credit that committed but reported an error must be finished by the
// provider's retry rather than treated as a duplicate.
func TestCompleteDeposit_RetryFinishesInterruptedCredit(t *testing.T) {
	ctx := context.Background()
	provider := billing.NewMockProvider()
	user := testUser()
	intentID := paidIntent(t, provider, user, "40")
	store := newMockStore(decimal.NewFromInt(10), 7)
	credit := store.CreditWalletFunc
	interrupted := false
	store.CreditWalletFunc = func(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, reference string) (*domain.Profile, error) {
		p, err := credit(ctx, userID, amount, reference)
		if !interrupted {
			interrupted = true
			return nil, errors.New("connection reset after commit")
		}
		return p, err
	}
	patcher := &recordingPatcher{}
	var reported []error
	var outcomes []string
	svc := NewService(provider, store, patcher, nil,
		WithReporter(func(err error, _ map[string]interface{}) { reported = append(reported, err) }),
		WithObserver(func(outcome string, _ decimal.Decimal) { outcomes = append(outcomes, outcome) }))

	_, err := svc.CompleteDeposit(ctx, intentID)
	require.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))
	assert.Empty(t, store.history)

	profile, err := svc.CompleteDeposit(ctx, intentID)

	assert.ErrorIs(t, err, domain.ErrPartialSuccess)
	assert.NotErrorIs(t, err, domain.ErrDepositAlreadyApplied)
	require.NotNil(t, profile)
	assert.True(t, decimal.NewFromInt(50).Equal(profile.WalletBalance))
	require.Len(t, store.history, 1)
	assert.Equal(t, intentID, store.history[0].Reference)
	require.Equal(t, 1, patcher.calls)
	assert.Equal(t, user.ID, patcher.userID)
	assert.Len(t, reported, 1)
	assert.Equal(t, []string{"failed", "partial"}, outcomes)

	// Once the entry exists the intent is a plain duplicate.
	_, err = svc.CompleteDeposit(ctx, intentID)
	assert.ErrorIs(t, err, domain.ErrDepositAlreadyApplied)
	assert.Len(t, store.history, 1)
	assert.Equal(t, 1, patcher.calls)
}

func TestCompleteDeposit_HistoryCheckFailureIsRetryable(t *testing.T) {
	ctx := context.Background()
	provider := billing.NewMockProvider()
	intentID := paidIntent(t, provider, testUser(), "15")
	store := newMockStore(decimal.Zero, 0)
	store.credited[intentID] = true
	store.HasWalletEntryFunc = func(context.Context, string) (bool, error) {
		return false, errors.New("timeout")
	}
	svc := NewService(provider, store, &recordingPatcher{}, nil)

	_, err := svc.CompleteDeposit(ctx, intentID)

	assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))
	assert.Empty(t, store.history)
}

func TestCompleteDeposit_Rejections(t *testing.T) {
	ctx := context.Background()
	user := testUser()

	t.Run("unpaid intent", func(t *testing.T) {
		provider := billing.NewMockProvider()
		svc := NewService(provider, newMockStore(decimal.Zero, 0), &recordingPatcher{}, nil)
		dep, err := svc.StartDeposit(ctx, user, decimal.NewFromInt(10))
		require.NoError(t, err)

		_, err = svc.CompleteDeposit(ctx, dep.IntentID)

		assert.ErrorIs(t, err, domain.ErrDepositNotPaid)
	})

	t.Run("unknown intent", func(t *testing.T) {
		svc := NewService(billing.NewMockProvider(), newMockStore(decimal.Zero, 0), &recordingPatcher{}, nil)

		_, err := svc.CompleteDeposit(ctx, "pi_missing")

		assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
	})

	t.Run("foreign intent", func(t *testing.T) {
		provider := billing.NewMockProvider()
		pi, err := provider.CreatePaymentIntent(ctx, billing.CreatePaymentIntentParams{AmountMinor: 1000})
		require.NoError(t, err)
		provider.Succeed(pi.ID)
		store := newMockStore(decimal.Zero, 0)
		svc := NewService(provider, store, &recordingPatcher{}, nil)

		_, err = svc.CompleteDeposit(ctx, pi.ID)

		assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
		assert.Empty(t, store.credited)
	})

	t.Run("gateway failure", func(t *testing.T) {
		provider := billing.NewMockProvider()
		intentID := paidIntent(t, provider, user, "10")
		store := newMockStore(decimal.Zero, 0)
		store.CreditWalletFunc = func(context.Context, uuid.UUID, decimal.Decimal, string) (*domain.Profile, error) {
			return nil, errors.New("timeout")
		}
		patcher := &recordingPatcher{}
		svc := NewService(provider, store, patcher, nil)

		_, err := svc.CompleteDeposit(ctx, intentID)

		assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))
		assert.Zero(t, patcher.calls)
		assert.Empty(t, store.history)
	})
}

func TestHistory(t *testing.T) {
	store := newMockStore(decimal.Zero, 0)
	var gotLimit int
	store.ListWalletHistoryFunc = func(_ context.Context, _ uuid.UUID, limit int) ([]domain.WalletEntry, error) {
		gotLimit = limit
		return []domain.WalletEntry{{Type: domain.WalletPurchase}}, nil
	}
	svc := NewService(billing.NewMockProvider(), store, &recordingPatcher{}, nil)

	entries, err := svc.History(context.Background(), testUser())

	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, HistoryLimit, gotLimit)

	_, err = svc.History(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrLoginRequired)
}
