// Package storage is the JSON layer over a kvstore.Repository.
//
// Reads never fail: a missing key, undecodable bytes or a backend error all
// yield the caller's default value. Writes report ErrWriteFailure so the
// caller can decide whether to keep going with in-memory state.
package storage
