package billing

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MemoryKV is an in-memory KV for tests and single-process deployments.
// State is lost on restart.
type MemoryKV struct {
	mu sync.RWMutex
	m  map[string]string
}

var _ KV = (*MemoryKV)(nil)

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{m: make(map[string]string)}
}

func (kv *MemoryKV) Get(ctx context.Context, key string) (string, error) {
	kv.mu.RLock()
	defer kv.mu.RUnlock()
	return kv.m[key], nil
}

func (kv *MemoryKV) Set(ctx context.Context, key, value string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.m[key] = value
	return nil
}

// PostgresKV persists billing state in a single key-value table. The
// caller owns the pool.
type PostgresKV struct {
	pool *pgxpool.Pool
}

var _ KV = (*PostgresKV)(nil)

func NewPostgresKV(pool *pgxpool.Pool) *PostgresKV {
	return &PostgresKV{pool: pool}
}

// Init creates the backing table. Safe to call multiple times.
func (kv *PostgresKV) Init(ctx context.Context) error {
	_, err := kv.pool.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS billing_kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("init billing kv: %w", err)
	}
	return nil
}

func (kv *PostgresKV) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := kv.pool.QueryRow(ctx, `SELECT value FROM billing_kv WHERE key = $1`, key).Scan(&value)
	if err == pgx.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("kv get: %w", err)
	}
	return value, nil
}

func (kv *PostgresKV) Set(ctx context.Context, key, value string) error {
	_, err := kv.pool.Exec(ctx,
		`INSERT INTO billing_kv (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = $2`, key, value)
	if err != nil {
		return fmt.Errorf("kv set: %w", err)
	}
	return nil
}
