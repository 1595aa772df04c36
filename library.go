package lectern

import (
	"context"
	"log/slog"
	"sync"
)

// chapterUnavailableText is shown inline in the reader when a chapter
// cannot be served from cache or network. The reader is never left blank.
const chapterUnavailableText = "Chapter unavailable right now. Please check your connection and keep reading."

// Library is the reading core: it answers chapter requests from the
// in-memory shadow, then the persistent store, then the network, writing
// fetched text through both cache layers on the way back.
type Library struct {
	store   Store
	fetcher Fetcher
	mem     *chapterCache
	logger  *slog.Logger

	// baseCtx bounds fire-and-forget work (prefetch). Defaults to a
	// never-cancelled context; callers that unmount can inject their own.
	baseCtx context.Context

	prefetchWG sync.WaitGroup
}

// LibraryOption configures a Library.
type LibraryOption func(*Library)

// LibraryLogger sets the structured logger.
func LibraryLogger(l *slog.Logger) LibraryOption {
	return func(lib *Library) { lib.logger = l }
}

// LibraryBaseContext sets the context bounding background prefetch work.
// Cancelling it abandons in-flight prefetches.
func LibraryBaseContext(ctx context.Context) LibraryOption {
	return func(lib *Library) { lib.baseCtx = ctx }
}

// NewLibrary wires a Library over a persistent store and a fetcher.
func NewLibrary(store Store, fetcher Fetcher, opts ...LibraryOption) *Library {
	lib := &Library{
		store:   store,
		fetcher: fetcher,
		mem:     newChapterCache(),
		logger:  nopLogger,
		baseCtx: context.Background(),
	}
	for _, opt := range opts {
		opt(lib)
	}
	return lib
}

// Chapter returns the verses for ref. It never fails: when the chapter is
// not cached and the network path is exhausted (or answers empty), the
// result is a single synthetic notice verse explaining unavailability.
func (l *Library) Chapter(ctx context.Context, ref ChapterRef) []Verse {
	verses, err := l.fetchOrCache(ctx, ref)
	if err != nil {
		l.logger.Error("chapter unavailable", "ref", ref.Key(), "error", err)
		return []Verse{{Number: 0, Text: chapterUnavailableText, Notice: true}}
	}
	return verses
}

// fetchOrCache is the shared cache-then-network path used by Chapter,
// Prefetch, and DownloadAll. On a network hit the result is written
// through to both cache layers before returning. Storage failures are
// logged and swallowed: a broken cache degrades to "refetch next time".
func (l *Library) fetchOrCache(ctx context.Context, ref ChapterRef) ([]Verse, error) {
	if verses, ok := l.mem.get(ref); ok {
		return verses, nil
	}

	verses, err := l.store.GetChapter(ctx, ref)
	if err != nil {
		l.logger.Warn("chapter store read failed", "ref", ref.Key(), "error", err)
	} else if verses != nil {
		l.mem.set(ref, verses)
		return verses, nil
	}

	verses, err = l.fetcher.FetchChapter(ctx, ref)
	if err != nil {
		return nil, err
	}

	l.mem.set(ref, verses)
	if err := l.store.PutChapter(ctx, ref, verses); err != nil {
		l.logger.Warn("chapter store write failed", "ref", ref.Key(), "error", err)
	}
	return verses, nil
}

// IsChapterOffline reports whether ref is durably cached. Only the
// persistent store is consulted; the in-memory shadow is volatile and
// would overstate availability.
func (l *Library) IsChapterOffline(ctx context.Context, ref ChapterRef) bool {
	ok, err := l.store.HasChapter(ctx, ref)
	if err != nil {
		l.logger.Warn("offline check failed", "ref", ref.Key(), "error", err)
		return false
	}
	return ok
}

// Prefetch opportunistically warms the cache for the chapters adjacent to
// ref: the next chapter when it is within the book's bound, and the
// previous one when it is at least 1. Both run independently in the
// background; failures are absorbed by the fetch path's own handling.
func (l *Library) Prefetch(ref ChapterRef) {
	book, ok := LookupBook(ref.Book)
	if !ok {
		return
	}
	if ref.Chapter < book.Chapters {
		l.prefetchChapter(ChapterRef{Translation: ref.Translation, Book: ref.Book, Chapter: ref.Chapter + 1})
	}
	if ref.Chapter > 1 {
		l.prefetchChapter(ChapterRef{Translation: ref.Translation, Book: ref.Book, Chapter: ref.Chapter - 1})
	}
}

func (l *Library) prefetchChapter(ref ChapterRef) {
	l.prefetchWG.Add(1)
	go func() {
		defer l.prefetchWG.Done()
		if _, err := l.fetchOrCache(l.baseCtx, ref); err != nil {
			l.logger.Debug("prefetch skipped", "ref", ref.Key(), "error", err)
		}
	}()
}
