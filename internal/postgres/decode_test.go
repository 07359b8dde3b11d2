package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/arena/internal/domain"
)

func TestDecodeCheckout(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		res, err := decodeCheckout([]byte(`{"success": true, "new_balance": 150.00, "points_earned": 500}`))
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.True(t, decimal.NewFromInt(150).Equal(res.NewBalance))
		assert.Equal(t, int64(500), res.PointsEarned)
	})

	t.Run("business rejection", func(t *testing.T) {
		res, err := decodeCheckout([]byte(`{"success": false, "message": "Not enough stock for Skin"}`))
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, "Not enough stock for Skin", res.Message)
	})

	malformed := map[string]string{
		"not json":        `{`,
		"missing success": `{"new_balance": 1}`,
		"missing balance": `{"success": true, "points_earned": 1}`,
		"negative points": `{"success": true, "new_balance": 1, "points_earned": -5}`,
	}
	for name, raw := range malformed {
		t.Run(name, func(t *testing.T) {
			_, err := decodeCheckout([]byte(raw))
			assert.True(t, domain.IsCode(err, domain.EINTERNAL))
		})
	}
}

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError(nil, "op", nil))
	assert.ErrorIs(t, mapError(pgx.ErrNoRows, "op", domain.ErrOrderNotFound), domain.ErrOrderNotFound)
	assert.True(t, domain.IsCode(mapError(&pgconn.PgError{Code: uniqueViolation}, "op", nil), domain.ECONFLICT))
	assert.True(t, domain.IsCode(mapError(&pgconn.PgError{Code: checkViolation}, "op", nil), domain.EINVALID))
	assert.True(t, domain.IsCode(mapError(errors.New("boom"), "op", nil), domain.EINTERNAL))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\% off\_now`, escapeLike("50% off_now"))
}
