package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"curve-launchpad/internal/domain"
	"curve-launchpad/internal/storage"
)

func TestReceiptStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewReceiptStore(pool)
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

	err := store.Insert(ctx, receipt)
	require.NoError(t, err)

	result, err := store.GetByTokenID(ctx, "tok-001")
	require.NoError(t, err)
	require.Len(t, result, 1)

	assert.Equal(t, receipt.Sequence, result[0].Sequence)
	assert.Equal(t, receipt.Side, result[0].Side)
	assert.Equal(t, receipt.GrossValue, result[0].GrossValue)
	assert.Equal(t, receipt.NetValue, result[0].NetValue)
	assert.Equal(t, receipt.QuantityOut, result[0].QuantityOut)
	assert.Equal(t, receipt.UnitPrice, result[0].UnitPrice)
	assert.Equal(t, receipt.ProtocolFee, result[0].ProtocolFee)
	assert.Equal(t, receipt.CreatorFee, result[0].CreatorFee)
	assert.Equal(t, receipt.ExecutedAt, result[0].ExecutedAt)
	assert.False(t, result[0].FeePayoutPending)
}

func TestReceiptStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewReceiptStore(pool)
	ctx := context.Background()

	receipt := &domain.TradeReceipt{TokenID: "tok-dup", Sequence: 1, Side: domain.SideBuy, ExecutedAt: 1}

	require.NoError(t, store.Insert(ctx, receipt))

	err := store.Insert(ctx, receipt)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestReceiptStore_InsertBulkAtomic(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewReceiptStore(pool)
	ctx := context.Background()

	first := &domain.TradeReceipt{TokenID: "tok-001", Sequence: 1, Side: domain.SideBuy, ExecutedAt: 1}
	require.NoError(t, store.Insert(ctx, first))

	// Batch containing a duplicate must not apply any row.
	batch := []*domain.TradeReceipt{
		{TokenID: "tok-001", Sequence: 2, Side: domain.SideBuy, ExecutedAt: 2},
		{TokenID: "tok-001", Sequence: 1, Side: domain.SideBuy, ExecutedAt: 1},
	}
	err := store.InsertBulk(ctx, batch)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	result, err := store.GetByTokenID(ctx, "tok-001")
	require.NoError(t, err)
	assert.Len(t, result, 1)
}

func TestReceiptStore_GetBySequenceRange(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewReceiptStore(pool)
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
