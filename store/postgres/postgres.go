// Package postgres implements lectern.Store using PostgreSQL. It backs
// server-side deployments where many devices sync against one shared
// chapter cache.
//
// The Store accepts an externally-owned *pgxpool.Pool via constructor
// injection. The caller creates and closes the pool.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lectern-app/lectern"
)

// Store implements lectern.Store backed by PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var _ lectern.Store = (*Store)(nil)

// New creates a Store using an existing pgxpool.Pool.
// The caller owns the pool and is responsible for closing it.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Init creates all required tables.
// Safe to call multiple times (all statements are idempotent).
func (s *Store) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chapters (
			key TEXT PRIMARY KEY,
			translation TEXT NOT NULL,
			book TEXT NOT NULL,
			chapter INTEGER NOT NULL,
			verses JSONB NOT NULL,
			updated_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS flags (
			key TEXT PRIMARY KEY,
			value BOOLEAN NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS usage (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			date TEXT NOT NULL,
			count INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chapters_book ON chapters(translation, book)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init: %w", err)
		}
	}
	return nil
}

// GetChapter returns the cached verses for ref, or (nil, nil) when absent.
func (s *Store) GetChapter(ctx context.Context, ref lectern.ChapterRef) ([]lectern.Verse, error) {
	var versesJSON []byte
	err := s.pool.QueryRow(ctx, `SELECT verses FROM chapters WHERE key = $1`, ref.Key()).Scan(&versesJSON)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chapter: %w", err)
	}
	var verses []lectern.Verse
	if err := json.Unmarshal(versesJSON, &verses); err != nil {
		// Corrupt row reads as a miss; the caller refetches and overwrites.
		return nil, nil
	}
	return verses, nil
}

// PutChapter replaces the cached verses for ref.
func (s *Store) PutChapter(ctx context.Context, ref lectern.ChapterRef, verses []lectern.Verse) error {
	data, err := json.Marshal(verses)
	if err != nil {
		return fmt.Errorf("marshal verses: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO chapters (key, translation, book, chapter, verses, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (key) DO UPDATE SET verses = $5, updated_at = $6`,
		ref.Key(), string(ref.Translation), ref.Book, ref.Chapter, data, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("put chapter: %w", err)
	}
	return nil
}

// HasChapter reports whether ref is durably cached.
func (s *Store) HasChapter(ctx context.Context, ref lectern.ChapterRef) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx, `SELECT 1 FROM chapters WHERE key = $1`, ref.Key()).Scan(&one)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("has chapter: %w", err)
	}
	return true, nil
}

// SeedChapters writes every entry and sets readyFlag in one transaction.
func (s *Store) SeedChapters(ctx context.Context, entries []lectern.ChapterEntry, readyFlag string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	now := time.Now().Unix()
	for _, e := range entries {
		data, err := json.Marshal(e.Verses)
		if err != nil {
			return fmt.Errorf("marshal verses: %w", err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO chapters (key, translation, book, chapter, verses, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (key) DO UPDATE SET verses = $5, updated_at = $6`,
			e.Ref.Key(), string(e.Ref.Translation), e.Ref.Book, e.Ref.Chapter, data, now,
		)
		if err != nil {
			return fmt.Errorf("seed chapter: %w", err)
		}
	}

	if readyFlag != "" {
		_, err = tx.Exec(ctx,
			`INSERT INTO flags (key, value) VALUES ($1, TRUE)
			 ON CONFLICT (key) DO UPDATE SET value = TRUE`, readyFlag)
		if err != nil {
			return fmt.Errorf("set ready flag: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) GetFlag(ctx context.Context, key string) (bool, error) {
	var value bool
	err := s.pool.QueryRow(ctx, `SELECT value FROM flags WHERE key = $1`, key).Scan(&value)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get flag: %w", err)
	}
	return value, nil
}

func (s *Store) SetFlag(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO flags (key, value) VALUES ($1, TRUE)
		 ON CONFLICT (key) DO UPDATE SET value = TRUE`, key)
	if err != nil {
		return fmt.Errorf("set flag: %w", err)
	}
	return nil
}

func (s *Store) GetUsage(ctx context.Context) (lectern.DailyUsage, error) {
	var u lectern.DailyUsage
	err := s.pool.QueryRow(ctx, `SELECT date, count FROM usage WHERE id = 1`).Scan(&u.Date, &u.Count)
	if err == pgx.ErrNoRows {
		return lectern.DailyUsage{}, nil
	}
	if err != nil {
		return lectern.DailyUsage{}, fmt.Errorf("get usage: %w", err)
	}
	return u, nil
}

func (s *Store) SetUsage(ctx context.Context, u lectern.DailyUsage) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO usage (id, date, count) VALUES (1, $1, $2)
		 ON CONFLICT (id) DO UPDATE SET date = $1, count = $2`,
		u.Date, u.Count,
	)
	if err != nil {
		return fmt.Errorf("set usage: %w", err)
	}
	return nil
}

// Close is a no-op; the pool is owned by the caller.
func (s *Store) Close() error { return nil }
