// Package storage holds the durable key/value entries that outlive a single process:
// the session tokens, the serialized user profile and the local address book.
package storage

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("storage: key not found")
	ErrCorrupt  = errors.New("storage: value could not be decoded")
)

// Storage is a flat string key/value store. Implementations must be safe for concurrent use.
type Storage interface {
	Get(key string) (string, error)
	Set(key, value string) error
	// SetMany writes every entry or none of them.
	SetMany(values map[string]string) error
	// Remove deletes the keys; missing keys are not an error.
	Remove(keys ...string) error
}

// Watcher is implemented by stores shared between processes. Watch blocks until ctx is done,
// calling fn with each key changed by another handle on the same data.
type Watcher interface {
	Watch(ctx context.Context, fn func(key string)) error
}

// Has reports whether key is present, treating read failures as absence.
func Has(s Storage, key string) bool {
	_, err := s.Get(key)
	return err == nil
}
