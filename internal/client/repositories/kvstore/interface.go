package kvstore

import (
	"context"
	"errors"
)

// UpdateFunc computes the next value from the current one.
type UpdateFunc func(current []byte) ([]byte, error)

type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Update(ctx context.Context, key string, fn UpdateFunc) error
	Close() error
}

var (
	// ErrConflict is returned when an optimistic update kept losing races.
	ErrConflict = errors.New("kvstore: too many concurrent updates")
	// ErrUnknownDriver is returned by Open for an unsupported driver name.
	ErrUnknownDriver = errors.New("kvstore: unknown storage driver")
	// ErrClosed is returned by the memory backend after Close.
	ErrClosed = errors.New("kvstore: repository closed")
)
