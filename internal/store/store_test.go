package store_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbanrasoi/chef-client/internal/store"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "chef.db")

	s, err := store.NewSQLiteStore(path)
	require.NoError(t, err)

	_, err = s.Get(ctx, store.KeyToken)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Set(ctx, store.KeyToken, "token-1"))
	val, err := s.Get(ctx, store.KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "token-1", val)

	// Overwrite wins.
	require.NoError(t, s.Set(ctx, store.KeyToken, "token-2"))
	val, err = s.Get(ctx, store.KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "token-2", val)

	require.NoError(t, s.Remove(ctx, store.KeyToken))
	_, err = s.Get(ctx, store.KeyToken)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "chef.db")

	first, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, store.KeySnapshot, `{"name":"Asha"}`))

	second, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	val, err := second.Get(ctx, store.KeySnapshot)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Asha"}`, val)
}

func TestSQLiteStoreCreatesDataDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "chef.db")

	_, err := store.NewSQLiteStore(path)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Dir(path))
	assert.NoError(t, err)
}

func TestMemoryStoreRemoveMissingKeyIsSafe(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	assert.NoError(t, s.Remove(ctx, "absent"))

	require.NoError(t, s.Set(ctx, "k", "v"))
	val, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", val)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set, skipping redis-backed test")
	}
	ctx := context.Background()

	s, err := store.NewRedisStore(url, "chef-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Remove(ctx, store.KeyToken) })

	require.NoError(t, s.Set(ctx, store.KeyToken, "token-1"))
	val, err := s.Get(ctx, store.KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "token-1", val)

	require.NoError(t, s.Remove(ctx, store.KeyToken))
	_, err = s.Get(ctx, store.KeyToken)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
