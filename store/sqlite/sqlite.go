// Package sqlite implements lectern.Store and lectern.JournalStore using
// pure-Go SQLite. Zero CGO required.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lectern-app/lectern"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// StoreOption configures a SQLite Store.
type StoreOption func(*Store)

// WithLogger sets a structured logger for the store.
// When set, the store emits debug logs for every operation including
// timing, row counts, and key parameters. If not set, no logs are emitted.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// Store implements lectern.Store and lectern.JournalStore backed by a
// local SQLite file. Verses and journal payloads are stored as JSON text.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ lectern.Store = (*Store)(nil)
var _ lectern.JournalStore = (*Store)(nil)

// nopLogger is a logger that discards all output.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// New creates a Store using a local SQLite file at dbPath.
// It opens a single shared connection pool with SetMaxOpenConns(1) so that
// all goroutines serialize through one connection, eliminating SQLITE_BUSY
// errors caused by concurrent writers opening independent connections.
func New(dbPath string, opts ...StoreOption) *Store {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		// sql.Open only fails when the driver is not registered; with the
		// blank import above that never happens.
		panic(fmt.Sprintf("sqlite: open driver: %v", err))
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db, logger: nopLogger}
	for _, o := range opts {
		o(s)
	}
	s.logger.Debug("sqlite: store opened", "path", dbPath)
	return s
}

// schemaVersion is the current additive schema revision. Columns and
// tables are only ever added, never renamed or dropped, so an old reader
// can always open a newer file.
const schemaVersion = 2

// Init creates all required tables and applies additive migrations.
func (s *Store) Init(ctx context.Context) error {
	start := time.Now()
	s.logger.Debug("sqlite: init started")
	tables := []string{
		`CREATE TABLE IF NOT EXISTS chapters (
			key TEXT PRIMARY KEY,
			translation TEXT NOT NULL,
			book TEXT NOT NULL,
			chapter INTEGER NOT NULL,
			verses TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS flags (
			key TEXT PRIMARY KEY,
			value INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS usage (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			date TEXT NOT NULL,
			count INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS bookmarks (
			book TEXT NOT NULL,
			chapter INTEGER NOT NULL,
			verse INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (book, chapter, verse)
		)`,
		`CREATE TABLE IF NOT EXISTS highlights (
			book TEXT NOT NULL,
			chapter INTEGER NOT NULL,
			verse INTEGER NOT NULL,
			color TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (book, chapter, verse)
		)`,
		`CREATE TABLE IF NOT EXISTS history (
			book TEXT NOT NULL,
			chapter INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (book, chapter)
		)`,
		`CREATE TABLE IF NOT EXISTS notes (
			ref TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS prayers (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			text TEXT NOT NULL,
			category TEXT NOT NULL,
			answered INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			payload TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS progress (
			date TEXT PRIMARY KEY
		)`,
	}

	for _, ddl := range tables {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	// Additive migrations (best-effort, silent fail if already applied).
	_, _ = s.db.ExecContext(ctx, "ALTER TABLE chapters ADD COLUMN updated_at INTEGER NOT NULL DEFAULT 0")
	_, _ = s.db.ExecContext(ctx, "ALTER TABLE prayers ADD COLUMN answered INTEGER NOT NULL DEFAULT 0")

	// Indexes on frequently queried columns.
	_, _ = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_chapters_book ON chapters(translation, book)`)
	_, _ = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_history_created ON history(created_at)`)

	var version int
	if err := s.db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&version); err == nil && version < schemaVersion {
		_, _ = s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion))
	}

	s.logger.Info("sqlite: init completed", "duration", time.Since(start))
	return nil
}

// --- Chapters ---

// GetChapter returns the cached verses for ref, or (nil, nil) when absent.
func (s *Store) GetChapter(ctx context.Context, ref lectern.ChapterRef) ([]lectern.Verse, error) {
	start := time.Now()
	s.logger.Debug("sqlite: get chapter", "key", ref.Key())

	var versesJSON string
	err := s.db.QueryRowContext(ctx, `SELECT verses FROM chapters WHERE key = ?`, ref.Key()).Scan(&versesJSON)
	if err == sql.ErrNoRows {
		s.logger.Debug("sqlite: get chapter miss", "key", ref.Key(), "duration", time.Since(start))
		return nil, nil
	}
	if err != nil {
		s.logger.Error("sqlite: get chapter failed", "key", ref.Key(), "error", err, "duration", time.Since(start))
		return nil, fmt.Errorf("get chapter: %w", err)
	}

	var verses []lectern.Verse
	if err := json.Unmarshal([]byte(versesJSON), &verses); err != nil {
		// A corrupt row reads as a cache miss so the caller refetches and
		// overwrites it.
		s.logger.Warn("sqlite: get chapter corrupt row", "key", ref.Key(), "error", err)
		return nil, nil
	}
	s.logger.Debug("sqlite: get chapter ok", "key", ref.Key(), "verses", len(verses), "duration", time.Since(start))
	return verses, nil
}

// PutChapter replaces the cached verses for ref.
func (s *Store) PutChapter(ctx context.Context, ref lectern.ChapterRef, verses []lectern.Verse) error {
	start := time.Now()
	s.logger.Debug("sqlite: put chapter", "key", ref.Key(), "verses", len(verses))

	data, err := json.Marshal(verses)
	if err != nil {
		return fmt.Errorf("marshal verses: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO chapters (key, translation, book, chapter, verses, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ref.Key(), string(ref.Translation), ref.Book, ref.Chapter, string(data), time.Now().Unix(),
	)
	if err != nil {
		s.logger.Error("sqlite: put chapter failed", "key", ref.Key(), "error", err, "duration", time.Since(start))
		return fmt.Errorf("put chapter: %w", err)
	}
	s.logger.Debug("sqlite: put chapter ok", "key", ref.Key(), "duration", time.Since(start))
	return nil
}

// HasChapter reports whether ref is durably cached.
func (s *Store) HasChapter(ctx context.Context, ref lectern.ChapterRef) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM chapters WHERE key = ?`, ref.Key()).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("has chapter: %w", err)
	}
	return true, nil
}

// SeedChapters writes every entry and sets readyFlag in one transaction.
// Either everything commits, including the flag, or nothing does.
func (s *Store) SeedChapters(ctx context.Context, entries []lectern.ChapterEntry, readyFlag string) error {
	start := time.Now()
	s.logger.Debug("sqlite: seed chapters", "entries", len(entries), "flag", readyFlag)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().Unix()
	for _, e := range entries {
		data, err := json.Marshal(e.Verses)
		if err != nil {
			return fmt.Errorf("marshal verses: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO chapters (key, translation, book, chapter, verses, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			e.Ref.Key(), string(e.Ref.Translation), e.Ref.Book, e.Ref.Chapter, string(data), now,
		)
		if err != nil {
			s.logger.Error("sqlite: seed chapter failed", "key", e.Ref.Key(), "error", err)
			return fmt.Errorf("seed chapter: %w", err)
		}
	}

	// The flag commits with the chapter writes. A crash before commit
	// leaves it unset so the seed re-runs on next launch.
	if readyFlag != "" {
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO flags (key, value) VALUES (?, 1)`, readyFlag); err != nil {
			return fmt.Errorf("set ready flag: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("sqlite: seed chapters commit failed", "error", err, "duration", time.Since(start))
		return fmt.Errorf("commit tx: %w", err)
	}
	s.logger.Info("sqlite: seed chapters ok", "entries", len(entries), "duration", time.Since(start))
	return nil
}

// --- Flags ---

func (s *Store) GetFlag(ctx context.Context, key string) (bool, error) {
	var value int
	err := s.db.QueryRowContext(ctx, `SELECT value FROM flags WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get flag: %w", err)
	}
	return value != 0, nil
}

func (s *Store) SetFlag(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO flags (key, value) VALUES (?, 1)`, key)
	if err != nil {
		return fmt.Errorf("set flag: %w", err)
	}
	return nil
}

// --- Daily usage counter ---

func (s *Store) GetUsage(ctx context.Context) (lectern.DailyUsage, error) {
	var u lectern.DailyUsage
	err := s.db.QueryRowContext(ctx, `SELECT date, count FROM usage WHERE id = 1`).Scan(&u.Date, &u.Count)
	if err == sql.ErrNoRows {
		return lectern.DailyUsage{}, nil
	}
	if err != nil {
		return lectern.DailyUsage{}, fmt.Errorf("get usage: %w", err)
	}
	return u, nil
}

func (s *Store) SetUsage(ctx context.Context, u lectern.DailyUsage) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO usage (id, date, count) VALUES (1, ?, ?)`,
		u.Date, u.Count,
	)
	if err != nil {
		return fmt.Errorf("set usage: %w", err)
	}
	return nil
}

// --- Bookmarks ---

func (s *Store) Bookmarks(ctx context.Context) ([]lectern.Bookmark, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT book, chapter, verse, created_at FROM bookmarks ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	defer rows.Close()

	var bookmarks []lectern.Bookmark
	for rows.Next() {
		var b lectern.Bookmark
		if err := rows.Scan(&b.Book, &b.Chapter, &b.Verse, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan bookmark: %w", err)
		}
		bookmarks = append(bookmarks, b)
	}
	return bookmarks, rows.Err()
}

// AddBookmark stores b, replacing any bookmark for the same verse.
func (s *Store) AddBookmark(ctx context.Context, b lectern.Bookmark) error {
	start := time.Now()
	s.logger.Debug("sqlite: add bookmark", "book", b.Book, "chapter", b.Chapter, "verse", b.Verse)

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO bookmarks (book, chapter, verse, created_at) VALUES (?, ?, ?, ?)`,
		b.Book, b.Chapter, b.Verse, b.CreatedAt,
	)
	if err != nil {
		s.logger.Error("sqlite: add bookmark failed", "error", err, "duration", time.Since(start))
		return fmt.Errorf("add bookmark: %w", err)
	}
	return nil
}

// --- Highlights ---

func (s *Store) Highlights(ctx context.Context) ([]lectern.Highlight, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT book, chapter, verse, color, created_at FROM highlights ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list highlights: %w", err)
	}
	defer rows.Close()

	var highlights []lectern.Highlight
	for rows.Next() {
		var h lectern.Highlight
		if err := rows.Scan(&h.Book, &h.Chapter, &h.Verse, &h.Color, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan highlight: %w", err)
		}
		highlights = append(highlights, h)
	}
	return highlights, rows.Err()
}

// AddHighlight stores h, replacing any highlight for the same verse.
func (s *Store) AddHighlight(ctx context.Context, h lectern.Highlight) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO highlights (book, chapter, verse, color, created_at) VALUES (?, ?, ?, ?, ?)`,
		h.Book, h.Chapter, h.Verse, h.Color, h.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("add highlight: %w", err)
	}
	return nil
}

// --- History ---

func (s *Store) History(ctx context.Context) ([]lectern.HistoryItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT book, chapter, created_at FROM history ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var items []lectern.HistoryItem
	for rows.Next() {
		var item lectern.HistoryItem
		if err := rows.Scan(&item.Book, &item.Chapter, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// AddHistory records a chapter visit, deduplicated by book+chapter and
// capped at the most recent 50 entries.
func (s *Store) AddHistory(ctx context.Context, item lectern.HistoryItem) error {
	start := time.Now()
	s.logger.Debug("sqlite: add history", "book", item.Book, "chapter", item.Chapter)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO history (book, chapter, created_at) VALUES (?, ?, ?)`,
		item.Book, item.Chapter, item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("add history: %w", err)
	}

	// Trim beyond the cap, oldest first.
	_, err = tx.ExecContext(ctx,
		`DELETE FROM history WHERE (book, chapter) NOT IN (
			SELECT book, chapter FROM history ORDER BY created_at DESC LIMIT ?
		)`, historyLimit,
	)
	if err != nil {
		return fmt.Errorf("trim history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("sqlite: add history commit failed", "error", err, "duration", time.Since(start))
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

const historyLimit = 50

// --- Notes ---

// Note returns the saved note for a verse reference, or "" when none.
func (s *Store) Note(ctx context.Context, ref string) (string, error) {
	var text string
	err := s.db.QueryRowContext(ctx, `SELECT text FROM notes WHERE ref = ?`, ref).Scan(&text)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get note: %w", err)
	}
	return text, nil
}

func (s *Store) SaveNote(ctx context.Context, ref, text string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO notes (ref, text, updated_at) VALUES (?, ?, ?)`,
		ref, text, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("save note: %w", err)
	}
	return nil
}

// --- Prayers ---

func (s *Store) Prayers(ctx context.Context) ([]lectern.PrayerEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, text, category, answered, created_at FROM prayers ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list prayers: %w", err)
	}
	defer rows.Close()

	var prayers []lectern.PrayerEntry
	for rows.Next() {
		var p lectern.PrayerEntry
		var category string
		var answered int
		if err := rows.Scan(&p.ID, &p.Title, &p.Text, &category, &answered, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan prayer: %w", err)
		}
		p.Category = lectern.PrayerCategory(category)
		p.Answered = answered != 0
		prayers = append(prayers, p)
	}
	return prayers, rows.Err()
}

// SavePrayer inserts p, or updates it in place when the ID exists.
// A missing ID gets a generated one.
func (s *Store) SavePrayer(ctx context.Context, p lectern.PrayerEntry) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO prayers (id, title, text, category, answered, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Text, string(p.Category), boolToInt(p.Answered), p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save prayer: %w", err)
	}
	return nil
}

func (s *Store) DeletePrayer(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM prayers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete prayer: %w", err)
	}
	return nil
}

// --- Settings ---

// Settings returns the saved preferences merged over DefaultSettings.
func (s *Store) Settings(ctx context.Context) (lectern.Settings, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM settings WHERE id = 1`).Scan(&payload)
	if err == sql.ErrNoRows {
		return lectern.DefaultSettings(), nil
	}
	if err != nil {
		return lectern.Settings{}, fmt.Errorf("get settings: %w", err)
	}

	settings := lectern.DefaultSettings()
	if err := json.Unmarshal([]byte(payload), &settings); err != nil {
		s.logger.Warn("sqlite: settings corrupt payload", "error", err)
		return lectern.DefaultSettings(), nil
	}
	return settings, nil
}

func (s *Store) SaveSettings(ctx context.Context, settings lectern.Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO settings (id, payload) VALUES (1, ?)`, string(data))
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// --- Progress ---

// MarkDayComplete records a reading day. Repeating a date is a no-op.
func (s *Store) MarkDayComplete(ctx context.Context, date string) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO progress (date) VALUES (?)`, date)
	if err != nil {
		return fmt.Errorf("mark day complete: %w", err)
	}
	return nil
}

// Progress returns recorded reading days in ascending date order.
func (s *Store) Progress(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT date FROM progress ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// DB returns the underlying *sql.DB for sharing with other components.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	s.logger.Debug("sqlite: closing store")
	err := s.db.Close()
	if err != nil {
		s.logger.Error("sqlite: close failed", "error", err)
	}
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
