package storage

import "errors"

// ErrWriteFailure wraps any backend error raised while writing.
var ErrWriteFailure = errors.New("storage write failure")
