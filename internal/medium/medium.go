// Package medium defines the key-value persistence abstraction backing the
// journal store, with file and SQLite implementations.
package medium

// Medium is a whole-value key-value store. There are no partial updates:
// every Set replaces the full value for the key.
type Medium interface {
	// Get returns the value for key, with ok=false when the key is absent.
	Get(key string) (value string, ok bool, err error)
	// Set replaces the value for key. A rejected write (quota, disk full)
	// is reported as apperr.ErrStorageFull.
	Set(key, value string) error
	// Close releases any underlying resources.
	Close() error
}
