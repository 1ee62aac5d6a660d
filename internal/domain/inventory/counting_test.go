package inventory

import (
	"testing"

	"github.com/garage-erp/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInventoryCounting(t *testing.T) {
	c, err := NewInventoryCounting(uuid.New(), " CNT-7 ", "location:A", ExecutionModeSequential, true, false)
	require.NoError(t, err)
	assert.Equal(t, "CNT-7", c.Number)
	assert.Equal(t, CountingStatusDraft, c.Status)

	_, err = NewInventoryCounting(uuid.New(), "CNT", "", ExecutionMode("random"), false, false)
	assert.Error(t, err)

	_, err = NewInventoryCounting(uuid.New(), "CNT", "", ExecutionModeSequential, false, true)
	assert.Error(t, err)

	_, err = NewInventoryCounting(uuid.Nil, "CNT", "", ExecutionModeSequential, false, false)
	assert.Error(t, err)
}

func TestCountingSequentialFlow(t *testing.T) {
	c, err := NewInventoryCounting(uuid.New(), "CNT-1", "all", ExecutionModeSequential, true, true)
	require.NoError(t, err)

	assert.False(t, c.AcceptsCount(1))
	require.NoError(t, c.Start())
	assert.NotNil(t, c.StartedAt)
	assert.True(t, c.AcceptsCount(1))
	assert.False(t, c.AcceptsCount(2))

	require.NoError(t, c.Advance())
	assert.Equal(t, CountingStatusCount2InProgress, c.Status)
	assert.True(t, c.AcceptsCount(2))

	require.NoError(t, c.Advance())
	assert.Equal(t, CountingStatusCount3InProgress, c.Status)
	assert.True(t, c.AcceptsCount(3))
	assert.True(t, c.HasThirdCount())

	require.NoError(t, c.Advance())
	assert.Equal(t, CountingStatusPendingReview, c.Status)
	require.Error(t, c.Advance())
}

func TestCountingParallelFlow(t *testing.T) {
	c, err := NewInventoryCounting(uuid.New(), "CNT-2", "all", ExecutionModeParallel, true, false)
	require.NoError(t, err)
	require.NoError(t, c.Start())
	assert.True(t, c.AcceptsCount(1))
	assert.True(t, c.AcceptsCount(2))
	assert.False(t, c.AcceptsCount(3))

	require.NoError(t, c.Advance())
	assert.Equal(t, CountingStatusPendingReview, c.Status)

	t.Run("third count after review", func(t *testing.T) {
		require.NoError(t, c.RequestThirdCount())
		assert.Equal(t, CountingStatusCount3InProgress, c.Status)
		assert.True(t, c.RequiresCount3)
		assert.True(t, c.AcceptsCount(3))
	})
}

func TestCountingFinalize(t *testing.T) {
	c, err := NewInventoryCounting(uuid.New(), "CNT-3", "all", ExecutionModeSequential, false, false)
	require.NoError(t, err)
	item, err := NewCountingItem(c, uuid.New(), uuid.New(), qty("5"))
	require.NoError(t, err)

	err = c.Finalize([]*CountingItem{item})
	require.Error(t, err)

	require.NoError(t, c.Start())
	require.NoError(t, item.RecordCount(1, qty("4")))
	require.NoError(t, c.Advance())

	err = c.Finalize([]*CountingItem{item})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.NewInvariantError("UNRESOLVED_ITEMS", ""))

	ReconcileItem(item, false)
	require.NoError(t, c.Finalize([]*CountingItem{item}))
	assert.Equal(t, CountingStatusFinalized, c.Status)
	assert.Len(t, c.GetDomainEvents(), 1)

	assert.Error(t, c.Cancel(), "finalized counting cannot be cancelled")
}

func TestCountingCancel(t *testing.T) {
	c, err := NewInventoryCounting(uuid.New(), "CNT-4", "all", ExecutionModeSequential, false, false)
	require.NoError(t, err)
	require.NoError(t, c.Start())
	require.NoError(t, c.Cancel())
	assert.Equal(t, CountingStatusCancelled, c.Status)
	assert.Error(t, c.Start())
}

func TestCountingItemRecordCount(t *testing.T) {
	item := newItem(t, "10")

	assert.Error(t, item.RecordCount(0, qty("1")))
	assert.Error(t, item.RecordCount(4, qty("1")))
	assert.Error(t, item.RecordCount(1, qty("-1")))
	assert.Error(t, item.RecordCount(2, qty("1")), "count 2 before count 1")

	require.NoError(t, item.RecordCount(1, qty("9")))
	assert.Error(t, item.RecordCount(1, qty("9")), "count 1 twice")
	require.NoError(t, item.RecordCount(2, qty("9")))

	ReconcileItem(item, false)
	require.True(t, item.IsResolved())
	err := item.RecordCount(3, qty("9"))
	require.Error(t, err)
	kind, _ := shared.KindOf(err)
	assert.Equal(t, shared.KindDomainInvariant, kind)
}

func TestCountingItemManualOverride(t *testing.T) {
	item := newItem(t, "10", "48", "52", "55")
	ReconcileItem(item, false)
	require.Equal(t, FlagNoConsensus, item.FlagReason)

	assert.Error(t, item.ManualOverride(qty("50"), "  ", uuid.New()))
	assert.Error(t, item.ManualOverride(qty("-1"), "note", uuid.New()))

	by := uuid.New()
	require.NoError(t, item.ManualOverride(qty("50"), "physical recount", by))
	assert.Equal(t, ResolutionManualOverride, item.ResolutionMethod)
	assert.False(t, item.IsFlagged)
	assert.Equal(t, "physical recount", item.OverrideNote)
	assert.Equal(t, &by, item.OverriddenBy)
	assert.Equal(t, "40.0000", item.Variance().String())
}
