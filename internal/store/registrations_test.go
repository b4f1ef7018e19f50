package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrationCachePutGetRemove(t *testing.T) {
	t.Parallel()

	cache := NewRegistrationCache(NewMemoryStore())

	_, found, err := cache.GetID("$Default")
	require.NoError(t, err)
	assert.False(t, found, "empty cache should have no ids")

	require.NoError(t, cache.Put("$Default", "reg-123", "device-token-1"))

	id, found, err := cache.GetID("$Default")
	require.NoError(t, err)
	assert.True(t, found, "stored association should be found")
	assert.Equal(t, "reg-123", id)

	handle, err := cache.Handle()
	require.NoError(t, err)
	assert.Equal(t, "device-token-1", handle, "push handle should be stored alongside")

	require.NoError(t, cache.Remove("$Default"))

	_, found, err = cache.GetID("$Default")
	require.NoError(t, err)
	assert.False(t, found, "removed association should be gone")

	handle, err = cache.Handle()
	require.NoError(t, err)
	assert.Equal(t, "device-token-1", handle, "removing an association should not clear the push handle")
}

func TestRegistrationCacheNames(t *testing.T) {
	t.Parallel()

	cache := NewRegistrationCache(NewMemoryStore())

	require.NoError(t, cache.Put("$Default", "reg-123", "device-token-1"))
	require.NoError(t, cache.Put("toast", "reg-456", "device-token-1"))

	names, err := cache.Names()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"$Default", "toast"}, names, "all registration names should be listed")
}

func TestRegistrationCacheVerifyVersion(t *testing.T) {
	t.Parallel()

	t.Run("empty store needs a refresh", func(t *testing.T) {
		t.Parallel()

		cache := NewRegistrationCache(NewMemoryStore())

		refreshNeeded, err := cache.VerifyVersion()
		require.NoError(t, err)
		assert.True(t, refreshNeeded, "an empty cache cannot be trusted")
	})

	t.Run("matching version keeps entries but still refreshes", func(t *testing.T) {
		t.Parallel()

		cache := NewRegistrationCache(NewMemoryStore())
		require.NoError(t, cache.Put("$Default", "reg-123", "device-token-1"))

		refreshNeeded, err := cache.VerifyVersion()
		require.NoError(t, err)
		assert.True(t, refreshNeeded, "even a matching cache may be stale after a restart")

		id, found, err := cache.GetID("$Default")
		require.NoError(t, err)
		assert.True(t, found, "matching version should keep the entries")
		assert.Equal(t, "reg-123", id)
	})

	t.Run("version skew purges everything", func(t *testing.T) {
		t.Parallel()

		kv := NewMemoryStore()
		cache := NewRegistrationCache(kv)
		require.NoError(t, cache.Put("$Default", "reg-123", "device-token-1"))
		require.NoError(t, cache.Put("toast", "reg-456", "device-token-1"))

		// Simulate data written by an older release
		require.NoError(t, kv.Set(storagePrefix+versionKey, "0.9.0"))

		refreshNeeded, err := cache.VerifyVersion()
		require.NoError(t, err)
		assert.True(t, refreshNeeded, "version skew must force a refresh")

		names, err := cache.Names()
		require.NoError(t, err)
		assert.Empty(t, names, "all associations should be purged on skew")

		handle, err := cache.Handle()
		require.NoError(t, err)
		assert.Empty(t, handle, "the push handle marker is purged too")
	})

	t.Run("host application keys are untouched", func(t *testing.T) {
		t.Parallel()

		kv := NewMemoryStore()
		cache := NewRegistrationCache(kv)
		require.NoError(t, kv.Set("app_setting", "keep-me"))
		require.NoError(t, kv.Set(storagePrefix+versionKey, "0.9.0"))

		_, err := cache.VerifyVersion()
		require.NoError(t, err)

		value, found, err := kv.Get("app_setting")
		require.NoError(t, err)
		assert.True(t, found, "purge must only touch prefixed keys")
		assert.Equal(t, "keep-me", value)
	})
}

func TestRegistrationCacheClearRegistrations(t *testing.T) {
	t.Parallel()

	cache := NewRegistrationCache(NewMemoryStore())

	require.NoError(t, cache.Put("$Default", "reg-123", "device-token-1"))
	require.NoError(t, cache.Put("toast", "reg-456", "device-token-1"))

	require.NoError(t, cache.ClearRegistrations())

	names, err := cache.Names()
	require.NoError(t, err)
	assert.Empty(t, names, "all name associations should be cleared")

	handle, err := cache.Handle()
	require.NoError(t, err)
	assert.Equal(t, "device-token-1", handle, "the push handle should survive a registration clear")
}
