package pricing

import (
	"context"
	"testing"
	"time"

	"coursepay/models"
	"coursepay/services/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

func TestGormTokenStore(t *testing.T) {
	db := testutil.NewTestDB(t)
	store := NewGormTokenStore(db)

	active := models.DiscountToken{
		Token:              "SPRING",
		CourseIDs:          datatypes.JSONSlice[uint]{1, 2},
		DiscountPercentage: 25,
		ExpiresAt:          time.Now().Add(time.Hour),
		IsActive:           true,
	}
	disabled := models.DiscountToken{
		Token:              "WINTER",
		CourseIDs:          datatypes.JSONSlice[uint]{1},
		DiscountPercentage: 40,
		ExpiresAt:          time.Now().Add(time.Hour),
		IsActive:           true,
	}
	require.NoError(t, db.Create(&active).Error)
	require.NoError(t, db.Create(&disabled).Error)
	require.NoError(t, db.Model(&disabled).Update("is_active", false).Error)

	found, err := store.FindApplicableTokens(context.Background(), 1, "SPRING")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, []uint{1, 2}, []uint(found[0].CourseIDs))

	found, err = store.FindApplicableTokens(context.Background(), 1, "WINTER")
	require.NoError(t, err)
	assert.Empty(t, found)

	r := NewResolver(store, zap.NewNop())
	assert.Equal(t, int64(75000), r.ResolvePrice(context.Background(), 2, 100000, "SPRING").EffectivePrice)
	assert.Equal(t, int64(100000), r.ResolvePrice(context.Background(), 3, 100000, "SPRING").EffectivePrice)
}
