// Package kvstore implements the byte-level key/value repositories that back
// the client's local storage.
//
// Every backend stores opaque values under string keys. Get returns
// (nil, nil) for a key that was never written. Update performs an atomic
// read-modify-write: fn receives the current value (nil when absent) and
// the value it returns replaces it. Returning a nil slice from fn deletes
// the key. An error from fn aborts the update and is returned unchanged.
//
// Available backends:
//
//   - SQLite (modernc.org/sqlite), the default, one file per profile;
//   - PostgreSQL (pgx stdlib driver) for a shared store;
//   - Redis (go-redis) using WATCH/MULTI optimistic transactions;
//   - Memory, a process-local map used by tests and ephemeral sessions.
package kvstore
