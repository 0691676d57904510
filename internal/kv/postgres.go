package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgTimeout bounds every statement issued by PostgresStore.
const pgTimeout = 10 * time.Second

const pgSchema = `CREATE TABLE IF NOT EXISTS devent_kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore keeps the namespace in a single Postgres table. SetMany runs
// in one transaction, so multi-key writes are atomic.
type PostgresStore struct {
	db    *pgxpool.Pool
	quota int
}

// NewPostgresPool creates and validates a pgxpool connection pool.
// It retries up to 5 times to accommodate databases still starting up.
func NewPostgresPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	poolCfg.MaxConns = 4
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	var pool *pgxpool.Pool
	for attempt := 1; attempt <= 5; attempt++ {
		pool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}
			pool.Close()
		}
		if attempt < 5 {
			time.Sleep(2 * time.Second)
		}
	}
	return nil, fmt.Errorf("connect to postgres: %w", err)
}

// NewPostgresStore wraps pool and creates the backing table if needed.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool, quota int) (*PostgresStore, error) {
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		return nil, fmt.Errorf("create kv table: %w", err)
	}
	return &PostgresStore{db: pool, quota: quota}, nil
}

// Get returns the value stored under key.
func (p *PostgresStore) Get(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), pgTimeout)
	defer cancel()

	var value string
	err := p.db.QueryRow(ctx, `SELECT value FROM devent_kv WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get key: %w", err)
	}
	return value, true, nil
}

// Set stores value under key.
func (p *PostgresStore) Set(key, value string) error {
	return p.SetMany(map[string]string{key: value})
}

// SetMany upserts every value inside one transaction.
func (p *PostgresStore) SetMany(values map[string]string) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), pgTimeout)
	defer cancel()

	tx, err := p.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if p.quota > 0 {
		current, loadErr := loadAll(ctx, tx)
		if loadErr != nil {
			return loadErr
		}
		if err = checkQuota(current, values, p.quota); err != nil {
			return err
		}
	}

	// Fixed key order keeps row locks ordered across concurrent writers.
	for _, k := range sortedKeys(values) {
		_, err = tx.Exec(ctx,
			`INSERT INTO devent_kv (key, value, updated_at) VALUES ($1, $2, now())
			 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
			k, values[k],
		)
		if err != nil {
			return fmt.Errorf("upsert key %s: %w", k, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Remove deletes key.
func (p *PostgresStore) Remove(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), pgTimeout)
	defer cancel()

	if _, err := p.db.Exec(ctx, `DELETE FROM devent_kv WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete key: %w", err)
	}
	return nil
}

func loadAll(ctx context.Context, tx pgx.Tx) (map[string]string, error) {
	rows, err := tx.Query(ctx, `SELECT key, value FROM devent_kv`)
	if err != nil {
		return nil, fmt.Errorf("load namespace: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		values[k] = v
	}
	return values, rows.Err()
}
