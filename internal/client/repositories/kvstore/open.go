package kvstore

import (
	"context"
	"fmt"
	"time"
)

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

// Options selects and configures a backend.
type Options struct {
	Driver       string
	DSN          string
	RedisAddr    string
	RedisDB      int
	RedisTimeout time.Duration
}

// Open returns the repository for opts.Driver. An empty driver means SQLite.
func Open(ctx context.Context, opts Options) (Repository, error) {
	switch opts.Driver {
	case "", DriverSQLite:
		return OpenSQLite(ctx, opts.DSN)
	case DriverPostgres:
		return OpenPostgres(ctx, opts.DSN)
	case DriverRedis:
		return ConnectRedis(ctx, RedisConfig{Addr: opts.RedisAddr, DB: opts.RedisDB, Timeout: opts.RedisTimeout})
	case DriverMemory:
		return NewMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
	}
}
