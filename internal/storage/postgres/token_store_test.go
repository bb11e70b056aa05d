package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"curve-launchpad/internal/domain"
	"curve-launchpad/internal/storage"
)

func TestTokenStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTokenStore(pool)
	ctx := context.Background()

	token := &domain.Token{
		ID:          "tok-001",
		Name:        "Rabbit",
		Symbol:      "RBT",
		Creator:     "creator-1",
		Lifecycle:   domain.LifecycleActive,
		SoldSupply:  1000,
		RaisedValue: 988,
		CreatedAt:   1700000000000,
	}

	err := store.Insert(ctx, token)
	require.NoError(t, err)

	retrieved, err := store.GetByID(ctx, "tok-001")
	require.NoError(t, err)

	assert.Equal(t, token.ID, retrieved.ID)
	assert.Equal(t, token.Name, retrieved.Name)
	assert.Equal(t, token.Symbol, retrieved.Symbol)
	assert.Equal(t, token.Creator, retrieved.Creator)
	assert.Equal(t, token.Lifecycle, retrieved.Lifecycle)
	assert.Equal(t, token.SoldSupply, retrieved.SoldSupply)
	assert.Equal(t, token.RaisedValue, retrieved.RaisedValue)
	assert.Equal(t, token.CreatedAt, retrieved.CreatedAt)
}

func TestTokenStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTokenStore(pool)
	ctx := context.Background()

	token := &domain.Token{ID: "tok-dup", Lifecycle: domain.LifecycleActive, CreatedAt: 1}

	err := store.Insert(ctx, token)
	require.NoError(t, err)

	err = store.Insert(ctx, token)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestTokenStore_GetByIDNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTokenStore(pool)

	_, err := store.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTokenStore_UpdateState(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTokenStore(pool)
	ctx := context.Background()

	token := &domain.Token{ID: "tok-upd", Lifecycle: domain.LifecycleActive, CreatedAt: 1}
	require.NoError(t, store.Insert(ctx, token))

	updated := *token
	updated.Lifecycle = domain.LifecycleGraduated
	updated.SoldSupply = 800_000_000
	updated.RaisedValue = 85_000_000_000
	updated.Sequence = 412
	updated.GraduatedAt = 1700000500000
	require.NoError(t, store.UpdateState(ctx, &updated))

	retrieved, err := store.GetByID(ctx, "tok-upd")
	require.NoError(t, err)
	assert.Equal(t, domain.LifecycleGraduated, retrieved.Lifecycle)
	assert.Equal(t, uint64(800_000_000), retrieved.SoldSupply)
	assert.Equal(t, uint64(85_000_000_000), retrieved.RaisedValue)
	assert.Equal(t, uint64(412), retrieved.Sequence)
	assert.Equal(t, int64(1700000500000), retrieved.GraduatedAt)

	// Unknown token
	missing := domain.Token{ID: "missing"}
	err = store.UpdateState(ctx, &missing)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTokenStore_GetByCreator(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTokenStore(pool)
	ctx := context.Background()

	tokens := []*domain.Token{
		{ID: "tok-b", Creator: "alice", Lifecycle: domain.LifecycleActive, CreatedAt: 2000},
		{ID: "tok-a", Creator: "alice", Lifecycle: domain.LifecycleActive, CreatedAt: 1000},
		{ID: "tok-c", Creator: "bob", Lifecycle: domain.LifecycleActive, CreatedAt: 3000},
	}
	for _, tok := range tokens {
		require.NoError(t, store.Insert(ctx, tok))
	}

	result, err := store.GetByCreator(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "tok-a", result[0].ID)
	assert.Equal(t, "tok-b", result[1].ID)
}

func TestTokenStore_GetByLifecycle(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTokenStore(pool)
	ctx := context.Background()

	tokens := []*domain.Token{
		{ID: "tok-1", Lifecycle: domain.LifecycleActive, CreatedAt: 1000},
		{ID: "tok-2", Lifecycle: domain.LifecycleGraduated, CreatedAt: 2000},
		{ID: "tok-3", Lifecycle: domain.LifecycleActive, CreatedAt: 3000},
	}
	for _, tok := range tokens {
		require.NoError(t, store.Insert(ctx, tok))
	}

	result, err := store.GetByLifecycle(ctx, domain.LifecycleActive)
	require.NoError(t, err)
	assert.Len(t, result, 2)

	result, err = store.GetByLifecycle(ctx, domain.LifecycleGraduated)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "tok-2", result[0].ID)
}
