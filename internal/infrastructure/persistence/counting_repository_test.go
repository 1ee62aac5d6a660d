package persistence

import (
	"context"
	"testing"

	"github.com/garage-erp/backend/internal/domain/inventory"
	"github.com/garage-erp/backend/internal/domain/shared"
	"github.com/garage-erp/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormCountingRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormCountingRepository(newTestDB(t))
	companyID := uuid.New()

	counting, err := inventory.NewInventoryCounting(companyID, "INV-2026-01", "warehouse A", inventory.ExecutionModeSequential, true, false)
	require.NoError(t, err)
	require.NoError(t, counting.Start())
	require.NoError(t, repo.Save(ctx, counting))

	items := make([]*inventory.CountingItem, 0, 3)
	for i := 0; i < 3; i++ {
		item, err := inventory.NewCountingItem(counting, uuid.New(), uuid.New(), valueobject.NewQuantity(decimal.NewFromInt(int64(10*(i+1)))))
		require.NoError(t, err)
		items = append(items, item)
	}
	require.NoError(t, repo.CreateItems(ctx, items))

	t.Run("counting round trip", func(t *testing.T) {
		got, err := repo.FindByID(ctx, companyID, counting.ID)
		require.NoError(t, err)
		assert.Equal(t, inventory.CountingStatusCount1InProgress, got.Status)
		assert.True(t, got.RequiresCount2)
		assert.False(t, got.RequiresCount3)
		assert.NotNil(t, got.StartedAt)

		_, err = repo.FindByID(ctx, uuid.New(), counting.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("items keep creation order and empty counts", func(t *testing.T) {
		got, err := repo.FindItems(ctx, companyID, counting.ID)
		require.NoError(t, err)
		require.Len(t, got, 3)
		for i, item := range got {
			assert.Equal(t, items[i].ID, item.ID)
			assert.True(t, items[i].TheoreticalQty.Decimal().Equal(item.TheoreticalQty.Decimal()))
			assert.Nil(t, item.Count1)
			assert.Nil(t, item.FinalQty)
			assert.Equal(t, inventory.ResolutionPending, item.ResolutionMethod)
		}
	})

	t.Run("recorded count is persisted and versioned", func(t *testing.T) {
		item, err := repo.FindItem(ctx, companyID, counting.ID, items[0].ID)
		require.NoError(t, err)
		require.NoError(t, item.RecordCount(1, valueobject.NewQuantity(decimal.RequireFromString("9.5"))))
		require.NoError(t, repo.SaveItem(ctx, item))
		assert.Equal(t, 2, item.Version)

		got, err := repo.FindItem(ctx, companyID, counting.ID, items[0].ID)
		require.NoError(t, err)
		require.NotNil(t, got.Count1)
		assert.True(t, decimal.RequireFromString("9.5").Equal(got.Count1.Decimal()))
		assert.Equal(t, 2, got.Version)
	})

	t.Run("stale item is rejected", func(t *testing.T) {
		first, err := repo.FindItem(ctx, companyID, counting.ID, items[1].ID)
		require.NoError(t, err)
		second, err := repo.FindItem(ctx, companyID, counting.ID, items[1].ID)
		require.NoError(t, err)

		require.NoError(t, first.RecordCount(1, valueobject.NewQuantity(decimal.NewFromInt(20))))
		require.NoError(t, repo.SaveItem(ctx, first))

		require.NoError(t, second.RecordCount(1, valueobject.NewQuantity(decimal.NewFromInt(21))))
		err = repo.SaveItem(ctx, second)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.True(t, shared.IsRetryable(err))

		got, err := repo.FindItem(ctx, companyID, counting.ID, items[1].ID)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(20).Equal(got.Count1.Decimal()))
	})

	t.Run("manual override stores the reviewer", func(t *testing.T) {
		reviewer := uuid.New()
		item, err := repo.FindItem(ctx, companyID, counting.ID, items[2].ID)
		require.NoError(t, err)
		require.NoError(t, item.ManualOverride(valueobject.NewQuantity(decimal.NewFromInt(28)), "recounted shelf", reviewer))
		require.NoError(t, repo.SaveItem(ctx, item))

		got, err := repo.FindItem(ctx, companyID, counting.ID, items[2].ID)
		require.NoError(t, err)
		assert.True(t, got.IsResolved())
		assert.Equal(t, inventory.ResolutionManualOverride, got.ResolutionMethod)
		assert.Equal(t, "recounted shelf", got.OverrideNote)
		require.NotNil(t, got.OverriddenBy)
		assert.Equal(t, reviewer, *got.OverriddenBy)
		assert.NotNil(t, got.ResolvedAt)
	})

	t.Run("counting save bumps the version", func(t *testing.T) {
		require.NoError(t, counting.Advance())
		require.NoError(t, repo.Save(ctx, counting))
		assert.Equal(t, 2, counting.Version)

		got, err := repo.FindByID(ctx, companyID, counting.ID)
		require.NoError(t, err)
		assert.Equal(t, inventory.CountingStatusCount2InProgress, got.Status)
	})
}
