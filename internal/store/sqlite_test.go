package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "opening a fresh database should succeed")
	t.Cleanup(func() {
		assert.NoError(t, s.Close())
	})
	return s
}

func TestSQLiteStoreBasicOperations(t *testing.T) {
	t.Parallel()

	s := newTestSQLiteStore(t)

	require.NoError(t, s.Set("key-1", "value-1"))

	value, found, err := s.Get("key-1")
	require.NoError(t, err)
	assert.True(t, found, "stored key should be found")
	assert.Equal(t, "value-1", value)

	require.NoError(t, s.Set("key-1", "value-2"))
	value, _, err = s.Get("key-1")
	require.NoError(t, err)
	assert.Equal(t, "value-2", value, "set should overwrite the previous value")

	require.NoError(t, s.Delete("key-1"))
	_, found, err = s.Get("key-1")
	require.NoError(t, err)
	assert.False(t, found, "deleted key should be gone")
}

func TestSQLiteStoreMissingKey(t *testing.T) {
	t.Parallel()

	s := newTestSQLiteStore(t)

	value, found, err := s.Get("nope")
	require.NoError(t, err, "a missing key is not an error")
	assert.False(t, found)
	assert.Empty(t, value)

	assert.NoError(t, s.Delete("nope"), "deleting a missing key is a no-op")
}

func TestSQLiteStoreKeysByPrefix(t *testing.T) {
	t.Parallel()

	s := newTestSQLiteStore(t)

	require.NoError(t, s.Set("app_one", "1"))
	require.NoError(t, s.Set("app_two", "2"))
	require.NoError(t, s.Set("other", "3"))

	keys, err := s.Keys("app_")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"app_one", "app_two"}, keys, "only prefixed keys should be returned")
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "persist.db")

	s, err := OpenSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set("key-1", "value-1"))
	require.NoError(t, s.Close())

	reopened, err := OpenSQLiteStore(path)
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, reopened.Close())
	}()

	value, found, err := reopened.Get("key-1")
	require.NoError(t, err)
	assert.True(t, found, "data should survive a reopen")
	assert.Equal(t, "value-1", value)
}
