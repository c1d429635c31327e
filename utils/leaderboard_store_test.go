package utils

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaderboardStore_ReadMissingFile(t *testing.T) {
	store := NewLeaderboardStore(t.TempDir())

	entries, err := store.Read()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLeaderboardStore_ReplaceSortsDescending(t *testing.T) {
	store := NewLeaderboardStore(t.TempDir())

	entries, err := store.Replace([]LeaderboardEntry{
		{ID: "a", Score: 1},
		{ID: "b", Score: 9},
		{ID: "c", Score: 5},
	})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "b", entries[0].ID)
	assert.Equal(t, "c", entries[1].ID)
	assert.Equal(t, "a", entries[2].ID)

	// Read reflects what was persisted
	got, err := store.Read()
	require.NoError(t, err)
	assert.Equal(t, entries, got)
}

func TestLeaderboardStore_SortIsStableOnTies(t *testing.T) {
	store := NewLeaderboardStore(t.TempDir())

	entries, err := store.Replace([]LeaderboardEntry{
		{ID: "first", Score: 3},
		{ID: "second", Score: 3},
		{ID: "third", Score: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, "first", entries[0].ID)
	assert.Equal(t, "second", entries[1].ID)
	assert.Equal(t, "third", entries[2].ID)
}

func TestLeaderboardStore_MergeUpdates(t *testing.T) {
	store := NewLeaderboardStore(t.TempDir())
	_, err := store.Replace([]LeaderboardEntry{
		{ID: "a", Name: "Ada", Score: 4},
		{ID: "b", Name: "Bob", Score: 2},
	})
	require.NoError(t, err)

	entries, err := store.MergeUpdates([]LeaderboardEntry{
		{ID: "b", Score: 10},
		{ID: "z", Name: "Zoe", Score: 7},
	})
	require.NoError(t, err)
	require.Len(t, entries, 3)

	byID := map[string]LeaderboardEntry{}
	for _, e := range entries {
		byID[e.ID] = e
	}
	assert.Equal(t, 10, byID["b"].Score)
	assert.Equal(t, "Bob", byID["b"].Name, "merge keeps existing fields")
	assert.Equal(t, 7, byID["z"].Score, "unknown ids are appended")
	assert.Equal(t, "b", entries[0].ID)
}

func TestLeaderboardStore_ApplySingle(t *testing.T) {
	store := NewLeaderboardStore(t.TempDir())
	_, err := store.Replace([]LeaderboardEntry{
		{ID: "a", Score: 4},
		{ID: "b", Score: 2},
	})
	require.NoError(t, err)

	entries, err := store.ApplySingle("b", 99)
	require.NoError(t, err)
	assert.Equal(t, "b", entries[0].ID)
	assert.Equal(t, 99, entries[0].Score)

	// Unknown id is a no-op, not an insert
	entries, err = store.ApplySingle("nope", 1)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestLeaderboardStore_HistoryAppendsPerWrite(t *testing.T) {
	store := NewLeaderboardStore(t.TempDir())

	_, err := store.Replace([]LeaderboardEntry{{ID: "a", Score: 1}})
	require.NoError(t, err)
	_, err = store.ApplySingle("a", 2)
	require.NoError(t, err)
	_, err = store.MergeUpdates([]LeaderboardEntry{{ID: "b", Score: 3}})
	require.NoError(t, err)

	records, err := store.History()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Len(t, records[0].Snapshot, 1)
	assert.Len(t, records[2].Snapshot, 2)
	assert.False(t, records[0].At.After(records[1].At))
	assert.False(t, records[1].At.After(records[2].At))
}

func TestLeaderboardStore_CorruptHistoryReinitialized(t *testing.T) {
	dir := t.TempDir()
	store := NewLeaderboardStore(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "leaderboard-history.json"), []byte("{not json"), 0o644))

	_, err := store.Replace([]LeaderboardEntry{{ID: "a", Score: 1}})
	require.NoError(t, err, "history problems never fail the write")

	records, err := store.History()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "a", records[0].Snapshot[0].ID)
}

func TestLeaderboardStore_PersistedLayout(t *testing.T) {
	dir := t.TempDir()
	store := NewLeaderboardStore(dir)
	_, err := store.Replace([]LeaderboardEntry{{ID: "a", Name: "Ada", Score: 1}})
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, "leaderboard.json"))
	require.NoError(t, err)
	var flat []map[string]any
	require.NoError(t, json.Unmarshal(raw, &flat))
	require.Len(t, flat, 1)
	assert.Equal(t, "a", flat[0]["id"])

	raw, err = os.ReadFile(filepath.Join(dir, "leaderboard-history.json"))
	require.NoError(t, err)
	var hist []map[string]any
	require.NoError(t, json.Unmarshal(raw, &hist))
	require.Len(t, hist, 1)
	assert.Contains(t, hist[0], "at")
	assert.Contains(t, hist[0], "snapshot")
}
