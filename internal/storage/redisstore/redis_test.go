package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/market-digest/internal/config"
	"github.com/magabrotheeeer/market-digest/internal/lib/apperr"
	"github.com/magabrotheeeer/market-digest/internal/models"
)

const testKey = "market-digest:subscribers"

func setupTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := config.RedisConnection{
		AddressRedis: mr.Addr(),
	}

	store, err := InitServer(context.Background(), cfg, testKey)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestLoad_MissingKey(t *testing.T) {
	store, _ := setupTestStore(t)

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSaveAndLoad(t *testing.T) {
	store, mr := setupTestStore(t)
	now := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	want := []models.Subscriber{
		{ID: "1", Email: "a@example.com", Topics: []string{"crypto"}, Sources: []string{}, Frequency: "daily", IsActive: true, CreatedAt: now, UpdatedAt: now},
		{ID: "2", Email: "b@example.com", Topics: []string{}, Sources: []string{}, Frequency: "weekly", CreatedAt: now, UpdatedAt: now},
	}

	require.NoError(t, store.Save(context.Background(), want))
	assert.True(t, mr.Exists(testKey))

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoad_InvalidJSON(t *testing.T) {
	store, mr := setupTestStore(t)
	require.NoError(t, mr.Set(testKey, "not-json"))

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, apperr.ErrStorage)
}

func TestSave_ServerDown(t *testing.T) {
	store, mr := setupTestStore(t)
	mr.Close()

	err := store.Save(context.Background(), nil)
	assert.ErrorIs(t, err, apperr.ErrStorage)
}

func TestInitServerInvalidAddr(t *testing.T) {
	cfg := config.RedisConnection{
		AddressRedis: "127.0.0.1:1",
		DialTimeout:  100 * time.Millisecond,
	}

	store, err := InitServer(context.Background(), cfg, testKey)
	assert.Nil(t, store)
	assert.Error(t, err)
}
