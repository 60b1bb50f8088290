package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestSQLite(t *testing.T) *SQLiteStore {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "market.db"))
	require.NoError(t, err)
	require.NoError(t, store.RunMigrations())
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_SetGetOverwrite(t *testing.T) {
	store := setupTestSQLite(t)
	ctx := context.Background()

	_, err := store.Get(ctx, CartKey("s1"))
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, CartKey("s1"), "[]"))
	require.NoError(t, store.Set(ctx, CartKey("s1"), `[{"id":"p1","quantity":2}]`))

	value, err := store.Get(ctx, CartKey("s1"))
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"p1","quantity":2}]`, value)
}

func TestSQLiteStore_Delete(t *testing.T) {
	store := setupTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "v"))
	require.NoError(t, store.Delete(ctx, "k"))

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_MigrationsAreIdempotent(t *testing.T) {
	store := setupTestSQLite(t)
	assert.NoError(t, store.RunMigrations())
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, "k", "v"))
	value, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", value)

	require.NoError(t, store.Delete(ctx, "k"))
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}
