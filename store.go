package lectern

import "context"

// Store abstracts the persistent chapter cache and its small metadata
// regions. It is a best-effort cache, not a system of record: callers
// treat read/write failures as "not cached" and fall back to the network.
//
// Writes are whole-chapter replacements. A chapter is either absent or
// fully valid, never partial.
type Store interface {
	// --- Chapters ---

	// GetChapter returns the cached verses for ref, or (nil, nil) when
	// the chapter is not cached.
	GetChapter(ctx context.Context, ref ChapterRef) ([]Verse, error)
	// PutChapter replaces the cached verses for ref.
	PutChapter(ctx context.Context, ref ChapterRef, verses []Verse) error
	// HasChapter reports whether ref is durably cached. This, not any
	// in-memory shadow, answers "is this chapter available offline".
	HasChapter(ctx context.Context, ref ChapterRef) (bool, error)
	// SeedChapters writes every entry and sets readyFlag in one atomic
	// transaction. A crash mid-seed leaves the flag unset so the seed
	// re-runs on next launch; re-running is safe because every write is
	// a whole-chapter overwrite.
	SeedChapters(ctx context.Context, entries []ChapterEntry, readyFlag string) error

	// --- Flags ---

	GetFlag(ctx context.Context, key string) (bool, error)
	SetFlag(ctx context.Context, key string) error

	// --- Daily usage counter ---

	GetUsage(ctx context.Context) (DailyUsage, error)
	SetUsage(ctx context.Context, u DailyUsage) error

	// --- Lifecycle ---

	Init(ctx context.Context) error
	Close() error
}

// ReadyFlagKJV marks that the bundled KJV dataset has been fully seeded
// into the store at least once. Set-once; never reset in normal operation.
const ReadyFlagKJV = "kjv_ready"

// Fetcher retrieves chapter text from the remote text API.
type Fetcher interface {
	// FetchChapter returns the normalized verses for ref. It fails with
	// *ErrHTTP after exhausting retries, or ErrEmptyChapter when the API
	// answered with zero verses.
	FetchChapter(ctx context.Context, ref ChapterRef) ([]Verse, error)
}

// Entitlements looks up a user's subscription tier. Pro users bypass the
// daily usage limiter entirely.
type Entitlements interface {
	IsPro(ctx context.Context, userID string) (bool, error)
}
