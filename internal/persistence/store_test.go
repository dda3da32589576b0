package persistence_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/khbroker/internal/domain"
	"github.com/fairyhunter13/khbroker/internal/persistence"
)

func TestStore_SaveAndLoadUsers_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	store, err := persistence.NewStore(dir)
	require.NoError(t, err)

	u := domain.NewUser(1, "alice", "oauth-1", "key-1", "", time.Now().Truncate(time.Second))
	u.ModifyKudos(42, domain.ActionAccumulated)

	require.NoError(t, store.SaveUsers([]*domain.User{u}))

	loaded, err := store.LoadUsers()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, u.Username, loaded[0].Username)
	assert.Equal(t, u.OAuthID, loaded[0].OAuthID)
	assert.Equal(t, u.Kudos, loaded[0].Kudos)
}

func TestStore_SaveAndLoadWorkers_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	store, err := persistence.NewStore(dir)
	require.NoError(t, err)

	w := domain.NewWorker("id-1", "worker-1", "oauth-2")
	w.Model = "llama"
	require.NoError(t, store.SaveWorkers([]*domain.Worker{w}))

	loaded, err := store.LoadWorkers()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, w.Name, loaded[0].Name)
	assert.Equal(t, w.Model, loaded[0].Model)
}

func TestStore_LoadUsers_MissingFileIsEmpty(t *testing.T) {
	dir := t.TempDir()
	store, err := persistence.NewStore(dir)
	require.NoError(t, err)

	loaded, err := store.LoadUsers()
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestStore_LoadStats_MissingFileYieldsEmptyStats(t *testing.T) {
	dir := t.TempDir()
	store, err := persistence.NewStore(dir)
	require.NoError(t, err)

	stats, err := store.LoadStats()
	require.NoError(t, err)
	assert.Equal(t, 0.0, stats.RequestAverage())
}

func TestStore_Writable(t *testing.T) {
	dir := t.TempDir()
	store, err := persistence.NewStore(dir)
	require.NoError(t, err)
	assert.NoError(t, store.Writable())
}

func TestStore_NewStore_CreatesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "db")
	store, err := persistence.NewStore(dir)
	require.NoError(t, err)
	assert.NoError(t, store.Writable())
}
