// Package storage provides key-value backends for the result store.
// The store owns one key and performs whole-value read-modify-write;
// backends only need Get, Set, and Delete on opaque byte blobs.
package storage

// Backend is a minimal key-value store. Implementations must treat
// values as opaque and replace them atomically on Set.
type Backend interface {
	// Get returns the value for key. The second return is false when
	// the key has never been set or was deleted.
	Get(key string) ([]byte, bool, error)
	// Set stores value under key, replacing any previous value.
	Set(key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
}
