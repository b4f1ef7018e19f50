package store

import (
	"strings"
)

// Key layout of the registration cache inside the key-value store. All keys
// are prefixed so the library never collides with host application data.
const (
	storagePrefix = "__NH_"
	regNameKey    = "REG_NAME_"
	versionKey    = "STORAGE_VERSION"
	handleKey     = "PNS_HANDLE"

	// StorageVersion is stamped on every write; a mismatch at construction
	// forces a full cache purge.
	StorageVersion = "1.0.0"
)

// RegistrationCache maps logical registration names to server-assigned
// registration ids, plus the last-seen push handle and a storage version
// stamp, on top of an injected KeyValueStore.
type RegistrationCache struct {
	kv KeyValueStore
}

// NewRegistrationCache wraps a key-value store with the registration key
// layout.
func NewRegistrationCache(kv KeyValueStore) *RegistrationCache {
	return &RegistrationCache{kv: kv}
}

// VerifyVersion purges the whole cache when the stored version stamp does
// not match StorageVersion. It always reports that a server refresh is
// needed: version skew purges, and even a matching cache may be stale after
// a restart, so the first registration call re-synchronizes either way.
func (c *RegistrationCache) VerifyVersion() (refreshNeeded bool, err error) {
	current, _, err := c.kv.Get(storagePrefix + versionKey)
	if err != nil {
		return true, err
	}

	if current != StorageVersion {
		keys, err := c.kv.Keys(storagePrefix)
		if err != nil {
			return true, err
		}
		for _, key := range keys {
			if err := c.kv.Delete(key); err != nil {
				return true, err
			}
		}
	}

	return true, nil
}

// GetID returns the cached registration id for name, if any.
func (c *RegistrationCache) GetID(name string) (string, bool, error) {
	id, found, err := c.kv.Get(storagePrefix + regNameKey + name)
	if err != nil || !found || id == "" {
		return "", false, err
	}
	return id, true, nil
}

// Put stores the name→id association, the push handle and the current
// storage version stamp.
func (c *RegistrationCache) Put(name, id, pushHandle string) error {
	if err := c.kv.Set(storagePrefix+regNameKey+name, id); err != nil {
		return err
	}
	if err := c.kv.Set(storagePrefix+handleKey, pushHandle); err != nil {
		return err
	}
	// Always overwrite the storage version with the latest value
	return c.kv.Set(storagePrefix+versionKey, StorageVersion)
}

// Remove deletes the name→id association.
func (c *RegistrationCache) Remove(name string) error {
	return c.kv.Delete(storagePrefix + regNameKey + name)
}

// Names returns the registration names currently cached.
func (c *RegistrationCache) Names() ([]string, error) {
	keys, err := c.kv.Keys(storagePrefix + regNameKey)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(keys))
	for _, key := range keys {
		names = append(names, strings.TrimPrefix(key, storagePrefix+regNameKey))
	}
	return names, nil
}

// Handle returns the last-seen push handle, if any.
func (c *RegistrationCache) Handle() (string, error) {
	handle, _, err := c.kv.Get(storagePrefix + handleKey)
	return handle, err
}

// ClearRegistrations removes every name→id entry while keeping the version
// stamp and push handle markers.
func (c *RegistrationCache) ClearRegistrations() error {
	keys, err := c.kv.Keys(storagePrefix + regNameKey)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := c.kv.Delete(key); err != nil {
			return err
		}
	}
	return nil
}
