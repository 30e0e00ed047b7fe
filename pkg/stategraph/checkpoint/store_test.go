package checkpoint

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// eachStore runs the given suite against every Store implementation.
func eachStore(t *testing.T, run func(t *testing.T, store Store)) {
	t.Helper()

	t.Run("memory", func(t *testing.T) {
		store := NewMemoryStore()
		defer store.Close()
		run(t, store)
	})

	t.Run("sqlite", func(t *testing.T) {
		store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "snapshots.db"))
		require.NoError(t, err)
		defer store.Close()
		run(t, store)
	})
}

// TestStore_SaveLoad round-trips snapshot bytes.
func TestStore_SaveLoad(t *testing.T) {
	eachStore(t, func(t *testing.T, store Store) {
		data := []byte(`{"state":{"n":1}}`)

		require.NoError(t, store.Save("run-1", "load_reviews", data))

		got, err := store.Load("run-1", "load_reviews")
		require.NoError(t, err)
		assert.Equal(t, data, got)
	})
}

// TestStore_LoadMissing returns ErrNotFound for absent snapshots.
func TestStore_LoadMissing(t *testing.T) {
	eachStore(t, func(t *testing.T, store Store) {
		_, err := store.Load("run-1", "ghost")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

// TestStore_OverwriteSameNode keeps one snapshot per (run, node) and
// moves it to the end of the sequence order.
func TestStore_OverwriteSameNode(t *testing.T) {
	eachStore(t, func(t *testing.T, store Store) {
		require.NoError(t, store.Save("run-1", "a", []byte("v1")))
		require.NoError(t, store.Save("run-1", "b", []byte("v2")))
		require.NoError(t, store.Save("run-1", "a", []byte("v3")))

		got, err := store.Load("run-1", "a")
		require.NoError(t, err)
		assert.Equal(t, []byte("v3"), got)

		infos, err := store.List("run-1")
		require.NoError(t, err)
		require.Len(t, infos, 2)
		// The rewritten "a" is now the latest snapshot.
		assert.Equal(t, "b", infos[0].Node)
		assert.Equal(t, "a", infos[1].Node)
	})
}

// TestStore_ListOrderedBySequence returns metadata in save order.
func TestStore_ListOrderedBySequence(t *testing.T) {
	eachStore(t, func(t *testing.T, store Store) {
		for _, node := range []string{"load", "filter", "score"} {
			require.NoError(t, store.Save("run-1", node, []byte(node)))
		}
		require.NoError(t, store.Save("run-2", "other", []byte("x")))

		infos, err := store.List("run-1")
		require.NoError(t, err)
		require.Len(t, infos, 3)
		assert.Equal(t, "load", infos[0].Node)
		assert.Equal(t, "filter", infos[1].Node)
		assert.Equal(t, "score", infos[2].Node)
		assert.Less(t, infos[0].Sequence, infos[1].Sequence)
		assert.Equal(t, int64(len("load")), infos[0].Size)
		assert.Equal(t, "run-1", infos[0].RunID)
		assert.False(t, infos[0].Timestamp.IsZero())
	})
}

// TestStore_ListEmptyRun yields no error and no entries.
func TestStore_ListEmptyRun(t *testing.T) {
	eachStore(t, func(t *testing.T, store Store) {
		infos, err := store.List("ghost")
		require.NoError(t, err)
		assert.Empty(t, infos)
	})
}

// TestStore_DeleteRun removes all of a run's snapshots and nothing else.
func TestStore_DeleteRun(t *testing.T) {
	eachStore(t, func(t *testing.T, store Store) {
		require.NoError(t, store.Save("run-1", "a", []byte("x")))
		require.NoError(t, store.Save("run-2", "a", []byte("y")))

		require.NoError(t, store.DeleteRun("run-1"))

		_, err := store.Load("run-1", "a")
		assert.ErrorIs(t, err, ErrNotFound)

		got, err := store.Load("run-2", "a")
		require.NoError(t, err)
		assert.Equal(t, []byte("y"), got)

		// Deleting an absent run is not an error.
		assert.NoError(t, store.DeleteRun("ghost"))
	})
}

// TestStore_Closed rejects every operation after Close.
func TestStore_Closed(t *testing.T) {
	eachStore(t, func(t *testing.T, store Store) {
		require.NoError(t, store.Save("run-1", "a", []byte("x")))
		require.NoError(t, store.Close())

		assert.ErrorIs(t, store.Save("run-1", "b", []byte("y")), ErrStoreClosed)
		_, err := store.Load("run-1", "a")
		assert.ErrorIs(t, err, ErrStoreClosed)
		_, err = store.List("run-1")
		assert.ErrorIs(t, err, ErrStoreClosed)
		assert.ErrorIs(t, store.DeleteRun("run-1"), ErrStoreClosed)
	})
}

// TestStore_SavedBytesAreCopied checks mutating the caller's buffer
// after Save does not corrupt the stored snapshot.
func TestStore_SavedBytesAreCopied(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	buf := []byte("original")
	require.NoError(t, store.Save("run-1", "a", buf))
	copy(buf, "mutated!")

	got, err := store.Load("run-1", "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), got)
}

// TestSQLiteStore_Reopen checks snapshots survive a reopen of the same
// database file.
func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.db")

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Save("run-1", "a", []byte("persisted")))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Load("run-1", "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("persisted"), got)
}
