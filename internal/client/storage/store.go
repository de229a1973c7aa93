package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/contactbook/internal/client/repositories/kvstore"
	"github.com/dmitrijs2005/contactbook/internal/logging"
	"github.com/dmitrijs2005/contactbook/internal/metrics"
)

type Store struct {
	repo    kvstore.Repository
	log     logging.Logger
	metrics *metrics.Recorder
}

func NewStore(repo kvstore.Repository, log logging.Logger, m *metrics.Recorder) *Store {
	if log == nil {
		log = logging.Nop{}
	}
	return &Store{repo: repo, log: log.With("component", "storage"), metrics: m}
}

// Get decodes the value at key into T. Any failure returns def.
func Get[T any](ctx context.Context, s *Store, key string, def T) T {
	raw, err := s.repo.Get(ctx, key)
	if err != nil {
		s.metrics.StorageError("get")
		s.log.Warn(ctx, "read failed, using default", "key", key, "err", err)
		return def
	}
	if raw == nil {
		return def
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		s.log.Warn(ctx, "corrupt value, using default", "key", key, "err", err)
		return def
	}
	return v
}

// Set encodes v as JSON and writes it under key.
func (s *Store) Set(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return s.writeFailed(ctx, "set", key, err)
	}
	if err := s.repo.Set(ctx, key, raw); err != nil {
		return s.writeFailed(ctx, "set", key, err)
	}
	return nil
}

// Remove deletes key. A missing key is not an error.
func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.repo.Delete(ctx, key); err != nil {
		return s.writeFailed(ctx, "remove", key, err)
	}
	return nil
}

// errAbort carries fn's error through the backend untouched.
type errAbort struct{ err error }

func (e errAbort) Error() string { return e.err.Error() }
func (e errAbort) Unwrap() error { return e.err }

// Update atomically replaces the value at key with fn(current). current is
// def when the key is missing or its value cannot be decoded. An error from
// fn aborts the write and is returned as is; backend failures are reported
// as ErrWriteFailure. The returned value is what was written.
func Update[T any](ctx context.Context, s *Store, key string, def T, fn func(cur T) (T, error)) (T, error) {
	var out T
	err := s.repo.Update(ctx, key, func(raw []byte) ([]byte, error) {
		cur := def
		if raw != nil {
			var v T
			if err := json.Unmarshal(raw, &v); err != nil {
				s.log.Warn(ctx, "corrupt value, updating from default", "key", key, "err", err)
			} else {
				cur = v
			}
		}

		next, err := fn(cur)
		if err != nil {
			return nil, errAbort{err}
		}
		enc, err := json.Marshal(next)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", key, err)
		}
		out = next
		return enc, nil
	})

	var abort errAbort
	if errors.As(err, &abort) {
		return out, abort.err
	}
	if err != nil {
		return out, s.writeFailed(ctx, "update", key, err)
	}
	return out, nil
}

func (s *Store) writeFailed(ctx context.Context, op, key string, err error) error {
	s.metrics.StorageError(op)
	s.log.Warn(ctx, "write failed", "op", op, "key", key, "err", err)
	return fmt.Errorf("%w: %s %s: %w", ErrWriteFailure, op, key, err)
}
