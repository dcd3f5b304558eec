// Package kv provides the small key-value substrate the local income adapter
// persists through, with an in-memory and a file-per-key implementation.
package kv

// Store is a flat string-keyed blob store.
type Store interface {
	// Get returns the blob under key; ok is false when the key is absent.
	Get(key string) (data []byte, ok bool, err error)
	Set(key string, data []byte) error
	Delete(key string) error
	// Keys lists every stored key with the given prefix, in unspecified order.
	Keys(prefix string) ([]string, error)
	// Clear removes every key.
	Clear() error
}
