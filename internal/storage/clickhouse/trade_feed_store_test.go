package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"curve-launchpad/internal/domain"
	"curve-launchpad/internal/storage"
)

func TestTradeFeedStore_InsertAndGet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeFeedStore(conn)
	ctx := context.Background()

	receipt := &domain.TradeReceipt{
		TokenID:     "tok-001",
		Sequence:    1,
		Side:        domain.SideBuy,
		GrossValue:  1000,
		NetValue:    988,
		QuantityOut: 985,
		UnitPrice:   1_000_000_000,
		ProtocolFee: 10,
		CreatorFee:  2,
		SoldSupply:  985,
		RaisedValue: 988,
		ExecutedAt:  1700000000000,
	}

	require.NoError(t, store.Insert(ctx, receipt))

	result, err := store.GetByTokenID(ctx, "tok-001")
	require.NoError(t, err)
	require.Len(t, result, 1)

	assert.Equal(t, receipt.Sequence, result[0].Sequence)
	assert.Equal(t, receipt.Side, result[0].Side)
	assert.Equal(t, receipt.GrossValue, result[0].GrossValue)
	assert.Equal(t, receipt.NetValue, result[0].NetValue)
	assert.Equal(t, receipt.QuantityOut, result[0].QuantityOut)
	assert.Equal(t, receipt.ExecutedAt, result[0].ExecutedAt)
}

func TestTradeFeedStore_DuplicateDetection(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeFeedStore(conn)
	ctx := context.Background()

	receipt := &domain.TradeReceipt{TokenID: "tok-dup", Sequence: 1, Side: domain.SideBuy, ExecutedAt: 1}
	require.NoError(t, store.Insert(ctx, receipt))

	err := store.Insert(ctx, receipt)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Intra-batch duplicate
	err = store.InsertBulk(ctx, []*domain.TradeReceipt{
		{TokenID: "tok-new", Sequence: 1, Side: domain.SideBuy, ExecutedAt: 1},
		{TokenID: "tok-new", Sequence: 1, Side: domain.SideBuy, ExecutedAt: 1},
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestTradeFeedStore_GetBySequenceRange(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeFeedStore(conn)
	ctx := context.Background()

	receipts := []*domain.TradeReceipt{
		{TokenID: "tok-001", Sequence: 1, Side: domain.SideBuy, ExecutedAt: 1},
		{TokenID: "tok-001", Sequence: 2, Side: domain.SideSell, ExecutedAt: 2},
		{TokenID: "tok-001", Sequence: 3, Side: domain.SideBuy, ExecutedAt: 3},
		{TokenID: "tok-002", Sequence: 2, Side: domain.SideBuy, ExecutedAt: 4},
	}
	require.NoError(t, store.InsertBulk(ctx, receipts))

	result, err := store.GetBySequenceRange(ctx, "tok-001", 2, 3)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, uint64(2), result[0].Sequence)
	assert.Equal(t, uint64(3), result[1].Sequence)
}
