// Package kvstore provides the key-value persistence abstraction the
// authentication core is built on, together with interchangeable backends:
// an in-memory map, a relational table (PostgreSQL or SQLite), and a hosted
// Redis instance. All backends satisfy identical semantics so that higher
// layers never depend on the physical store.
package kvstore

import "context"

// KeyValueStore is the uniform asynchronous key-value contract.
//
// Semantics shared by every implementation:
//   - Get returns (nil, nil) for a missing key; it never treats a miss as
//     an error.
//   - Set overwrites unconditionally (last writer wins).
//   - SetIfAbsent writes only when the key does not exist yet and reports
//     whether the write happened. The check and the write are atomic; it is
//     the uniqueness primitive behind registration races.
//   - Delete of a missing key is not an error.
//   - DeleteIfExists atomically deletes the key and reports whether it was
//     present. It is the rotation primitive: at most one concurrent caller
//     observes true for the same key.
//   - List returns the keys (not values) matching the given prefix.
//
// Backend failures surface as non-nil errors; callers decide whether to fail
// open (rate limiting) or closed (writes).
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetIfAbsent(ctx context.Context, key string, value []byte) (bool, error)
	Delete(ctx context.Context, key string) error
	DeleteIfExists(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]string, error)

	// Ping reports backend reachability; used at startup and by health checks.
	Ping(ctx context.Context) error
}
