package filestore

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/market-digest/internal/lib/apperr"
	"github.com/magabrotheeeer/market-digest/internal/models"
)

func sampleSubscribers() []models.Subscriber {
	now := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	return []models.Subscriber{
		{ID: "1", Email: "a@example.com", Topics: []string{"crypto"}, Sources: []string{}, Frequency: models.FrequencyDaily, IsActive: true, CreatedAt: now, UpdatedAt: now},
		{ID: "2", Email: "b@example.com", Name: "Bob", Topics: []string{}, Sources: []string{"reuters"}, Frequency: models.FrequencyWeekly, CreatedAt: now, UpdatedAt: now},
	}
}

func TestStore_LoadMissingFile(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "nested", "subscribers.json"))
	require.NoError(t, err)

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestStore_LoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subscribers.json")
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	store, err := New(path)
	require.NoError(t, err)

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_SaveAndLoadPreservesOrder(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "subscribers.json"))
	require.NoError(t, err)
	want := sampleSubscribers()

	require.NoError(t, store.Save(context.Background(), want))

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStore_SaveReplacesWholeCollection(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "subscribers.json"))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSubscribers()))
	require.NoError(t, store.Save(ctx, sampleSubscribers()[:1]))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a@example.com", got[0].Email)
}

func TestStore_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := New(filepath.Join(dir, "subscribers.json"))
	require.NoError(t, err)

	require.NoError(t, store.Save(context.Background(), sampleSubscribers()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "subscribers.json", entries[0].Name())
}

func TestStore_LoadCorruptedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subscribers.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	store, err := New(path)
	require.NoError(t, err)

	_, err = store.Load(context.Background())
	assert.ErrorIs(t, err, apperr.ErrStorage)
}

func TestStore_SaveUnwritableDirectory(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
	dir := t.TempDir()
	store, err := New(filepath.Join(dir, "subscribers.json"))
	require.NoError(t, err)
	require.NoError(t, os.Chmod(dir, 0o500))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o700) })

	err = store.Save(context.Background(), sampleSubscribers())
	assert.ErrorIs(t, err, apperr.ErrStorage)
}

func TestStore_CancelledContext(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "subscribers.json"))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, store.Save(ctx, nil), context.Canceled)
}
