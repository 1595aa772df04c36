package lectern

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"
)

// Seed phase labels reported by InitializeOffline. Progress is coarse by
// design: two phases, not per-chapter counts.
const (
	PhaseDownloading = "downloading"
	PhaseOptimizing  = "optimizing"
)

// seededChapter is the bundled dataset's wire format: one JSON document
// enumerating many chapters at once. Chapter numbers are strings in the
// dataset file.
type seededChapter struct {
	Book    string  `json:"book"`
	Chapter string  `json:"chapter"`
	Verses  []Verse `json:"verses"`
}

// InitializeOffline seeds the persistent store from a bundled KJV dataset.
// It runs once: when the readiness flag is already set it is a no-op. All
// chapter writes and the flag land in one atomic transaction, so a crash
// mid-seed leaves the flag unset and the seed re-runs on next launch.
//
// Callers must not block startup on this; a failure degrades to on-demand
// fetching and is retried naturally next launch.
func (l *Library) InitializeOffline(ctx context.Context, dataset io.Reader, onPhase func(string)) error {
	ready, err := l.store.GetFlag(ctx, ReadyFlagKJV)
	if err != nil {
		l.logger.Warn("readiness flag read failed", "error", err)
	}
	if ready {
		l.logger.Debug("offline dataset already seeded")
		return nil
	}

	if onPhase != nil {
		onPhase(PhaseDownloading)
	}

	var seeded []seededChapter
	if err := json.NewDecoder(dataset).Decode(&seeded); err != nil {
		return fmt.Errorf("parse bundled dataset: %w", err)
	}

	entries := make([]ChapterEntry, 0, len(seeded))
	for _, c := range seeded {
		n, err := strconv.Atoi(c.Chapter)
		if err != nil || n < 1 || len(c.Verses) == 0 {
			l.logger.Warn("skipping malformed dataset entry", "book", c.Book, "chapter", c.Chapter)
			continue
		}
		entries = append(entries, ChapterEntry{
			Ref:    ChapterRef{Translation: TranslationKJV, Book: c.Book, Chapter: n},
			Verses: c.Verses,
		})
	}

	if onPhase != nil {
		onPhase(PhaseOptimizing)
	}

	start := time.Now()
	if err := l.store.SeedChapters(ctx, entries, ReadyFlagKJV); err != nil {
		return fmt.Errorf("seed chapters: %w", err)
	}
	l.logger.Info("offline dataset seeded", "chapters", len(entries), "duration", time.Since(start))
	return nil
}

// syncYieldEvery is how many chapters DownloadAll processes between short
// pauses that keep the host responsive during a full sync.
const syncYieldEvery = 15

// DownloadAll walks every book and chapter in the catalog through the
// fetch-or-cache path for the given translation, reporting integer
// percent-complete after each chapter. Per-chapter failures are logged
// and skipped; the sweep never aborts early for them, so 100% means
// "100% attempted". Cancelling ctx stops the sweep and returns ctx.Err().
func (l *Library) DownloadAll(ctx context.Context, translation Translation, onProgress func(percent int)) error {
	total := TotalChapters()
	current := 0
	for _, book := range AllBooks() {
		for c := 1; c <= book.Chapters; c++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			ref := ChapterRef{Translation: translation, Book: book.Name, Chapter: c}
			if _, err := l.fetchOrCache(ctx, ref); err != nil {
				l.logger.Warn("full sync: chapter skipped", "ref", ref.Key(), "error", err)
			}
			current++
			if onProgress != nil {
				onProgress(current * 100 / total)
			}
			if current%syncYieldEvery == 0 {
				timer := time.NewTimer(20 * time.Millisecond)
				select {
				case <-ctx.Done():
					timer.Stop()
					return ctx.Err()
				case <-timer.C:
				}
			}
		}
	}
	l.logger.Info("full sync finished", "chapters", current)
	return nil
}
