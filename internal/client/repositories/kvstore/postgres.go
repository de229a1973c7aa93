package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/contactbook/internal/client/migrations"
	"github.com/dmitrijs2005/contactbook/internal/dbx"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// OpenPostgres connects through the pgx stdlib driver and applies migrations.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresRepository, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := migrations.Up(ctx, db, migrations.Postgres); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewPostgresRepository(db), nil
}

func (r *PostgresRepository) Get(ctx context.Context, key string) ([]byte, error) {
	return pgGet(ctx, r.db, key, false)
}

func (r *PostgresRepository) Set(ctx context.Context, key string, value []byte) error {
	return pgSet(ctx, r.db, key, value)
}

func (r *PostgresRepository) Delete(ctx context.Context, key string) error {
	return pgDelete(ctx, r.db, key)
}

// Update locks the row with SELECT ... FOR UPDATE. A missing key first gets
// a placeholder row, so concurrent first writers also queue on a lock.
func (r *PostgresRepository) Update(ctx context.Context, key string, fn UpdateFunc) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		created, err := pgReserve(ctx, tx, key)
		if err != nil {
			return err
		}
		var cur []byte
		if !created {
			if cur, err = pgGet(ctx, tx, key, true); err != nil {
				return err
			}
		}
		next, err := fn(cur)
		if err != nil {
			return err
		}
		if next == nil {
			return pgDelete(ctx, tx, key)
		}
		return pgSet(ctx, tx, key, next)
	})
}

func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

func pgGet(ctx context.Context, db dbx.DBTX, key string, lock bool) ([]byte, error) {
	q := `SELECT value FROM kv WHERE key = $1`
	if lock {
		q += ` FOR UPDATE`
	}
	var value []byte
	err := db.QueryRowContext(ctx, q, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get kv[%s]: %w", key, err)
	}
	return value, nil
}

// pgReserve inserts a placeholder row for key and reports whether the key
// was absent. The inserted row stays locked until the transaction ends.
func pgReserve(ctx context.Context, db dbx.DBTX, key string) (bool, error) {
	res, err := db.ExecContext(ctx, `INSERT INTO kv (key, value) VALUES ($1, 'null') ON CONFLICT (key) DO NOTHING`, key)
	if err != nil {
		return false, fmt.Errorf("failed to reserve kv[%s]: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to reserve kv[%s]: %w", key, err)
	}
	return n == 1, nil
}

func pgSet(ctx context.Context, db dbx.DBTX, key string, value []byte) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set kv[%s]: %w", key, err)
	}
	return nil
}

func pgDelete(ctx context.Context, db dbx.DBTX, key string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM kv WHERE key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete kv[%s]: %w", key, err)
	}
	return nil
}
