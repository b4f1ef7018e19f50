// Package store provides the local key-value persistence used to cache
// registration identifiers between runs, plus the registration cache layer
// built on top of it.
package store

// KeyValueStore is the minimal string-keyed persistence capability the
// registration cache needs. Implementations must tolerate concurrent reads
// but may assume writes are externally serialized.
type KeyValueStore interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool, error)

	// Set stores value under key, overwriting any previous value.
	Set(key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error

	// Keys returns all keys starting with prefix.
	Keys(prefix string) ([]string, error)

	// Close releases any underlying resources.
	Close() error
}
