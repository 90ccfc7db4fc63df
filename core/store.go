package core

import (
	"context"
	"errors"
)

var (
	// ErrKeyNotFound is returned when a key does not exist in the store.
	ErrKeyNotFound = errors.New("key not found")

	// ErrVersionConflict is returned when a conditional write loses the race:
	// the version token passed to Put no longer matches the stored version.
	ErrVersionConflict = errors.New("version conflict")

	// ErrStoreUnavailable is returned when the store cannot be reached at all
	// (network failure, timeout, 5xx). Distinct from a conflict: the caller
	// decides whether to retry.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Store is a versioned key-value blob store. All cross-participant
// coordination happens through its compare-and-swap discipline: Get returns
// an opaque version token, and a conditional Put only succeeds if the token
// still matches. There are no partial writes; a failed Put leaves the
// previous value untouched.
type Store interface {
	// Get returns the blob at key together with its current version token.
	Get(ctx context.Context, key string) (value []byte, version string, err error)

	// Put writes the blob at key. An empty version creates the key; a
	// non-empty version is a compare-and-swap against the stored token.
	// message records why the write happened (kept for audit).
	Put(ctx context.Context, key string, value []byte, message, version string) error

	// ListPrefix returns all keys starting with prefix.
	ListPrefix(ctx context.Context, prefix string) ([]string, error)
}
