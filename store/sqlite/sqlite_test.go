package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/lectern-app/lectern"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s := New(filepath.Join(t.TempDir(), "test.db"))
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func kjvRef(book string, chapter int) lectern.ChapterRef {
	return lectern.ChapterRef{Translation: lectern.TranslationKJV, Book: book, Chapter: chapter}
}

func TestInitIdempotent(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "init.db"))
	ctx := context.Background()
	if err := s.Init(ctx); err != nil {
		t.Fatalf("first Init: %v", err)
	}
	if err := s.Init(ctx); err != nil {
		t.Fatalf("second Init: %v", err)
	}
	s.Close()
}

func TestPutAndGetChapter(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	ref := kjvRef("Genesis", 1)
	verses := []lectern.Verse{
		{Number: 1, Text: "In the beginning God created the heaven and the earth."},
		{Number: 2, Text: "And the earth was without form, and void."},
	}
	if err := s.PutChapter(ctx, ref, verses); err != nil {
		t.Fatalf("PutChapter: %v", err)
	}

	got, err := s.GetChapter(ctx, ref)
	if err != nil {
		t.Fatalf("GetChapter: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 verses, got %d", len(got))
	}
	if got[0].Number != 1 || got[0].Text != verses[0].Text {
		t.Errorf("unexpected first verse: %+v", got[0])
	}

	has, err := s.HasChapter(ctx, ref)
	if err != nil {
		t.Fatalf("HasChapter: %v", err)
	}
	if !has {
		t.Error("expected HasChapter true after put")
	}
}

func TestGetChapterMiss(t *testing.T) {
	s := testStore(t)

	got, err := s.GetChapter(context.Background(), kjvRef("Exodus", 5))
	if err != nil {
		t.Fatalf("GetChapter: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil verses on miss, got %v", got)
	}

	has, err := s.HasChapter(context.Background(), kjvRef("Exodus", 5))
	if err != nil {
		t.Fatalf("HasChapter: %v", err)
	}
	if has {
		t.Error("expected HasChapter false for missing chapter")
	}
}

func TestPutChapterOverwrite(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	ref := kjvRef("John", 3)

	first := []lectern.Verse{{Number: 1, Text: "old text"}}
	second := []lectern.Verse{{Number: 1, Text: "new text"}, {Number: 2, Text: "more"}}

	if err := s.PutChapter(ctx, ref, first); err != nil {
		t.Fatalf("PutChapter: %v", err)
	}
	if err := s.PutChapter(ctx, ref, second); err != nil {
		t.Fatalf("PutChapter overwrite: %v", err)
	}

	got, _ := s.GetChapter(ctx, ref)
	if len(got) != 2 || got[0].Text != "new text" {
		t.Errorf("expected overwritten chapter, got %+v", got)
	}
}

func TestSeedChaptersAtomicWithFlag(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	var entries []lectern.ChapterEntry
	for ch := 1; ch <= 3; ch++ {
		entries = append(entries, lectern.ChapterEntry{
			Ref:    kjvRef("Genesis", ch),
			Verses: []lectern.Verse{{Number: 1, Text: fmt.Sprintf("chapter %d verse 1", ch)}},
		})
	}

	if err := s.SeedChapters(ctx, entries, lectern.ReadyFlagKJV); err != nil {
		t.Fatalf("SeedChapters: %v", err)
	}

	ready, err := s.GetFlag(ctx, lectern.ReadyFlagKJV)
	if err != nil {
		t.Fatalf("GetFlag: %v", err)
	}
	if !ready {
		t.Fatal("expected ready flag set after seed")
	}

	for ch := 1; ch <= 3; ch++ {
		has, _ := s.HasChapter(ctx, kjvRef("Genesis", ch))
		if !has {
			t.Errorf("expected Genesis %d cached after seed", ch)
		}
	}
}

func TestSeedChaptersRerunSafe(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	entries := []lectern.ChapterEntry{
		{Ref: kjvRef("Psalms", 23), Verses: []lectern.Verse{{Number: 1, Text: "The LORD is my shepherd"}}},
	}

	if err := s.SeedChapters(ctx, entries, lectern.ReadyFlagKJV); err != nil {
		t.Fatalf("first SeedChapters: %v", err)
	}
	if err := s.SeedChapters(ctx, entries, lectern.ReadyFlagKJV); err != nil {
		t.Fatalf("second SeedChapters: %v", err)
	}

	got, _ := s.GetChapter(ctx, kjvRef("Psalms", 23))
	if len(got) != 1 {
		t.Fatalf("expected 1 verse after re-seed, got %d", len(got))
	}
}

func TestFlags(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	got, err := s.GetFlag(ctx, "missing")
	if err != nil {
		t.Fatalf("GetFlag: %v", err)
	}
	if got {
		t.Error("expected false for missing flag")
	}

	if err := s.SetFlag(ctx, "esv_ready"); err != nil {
		t.Fatalf("SetFlag: %v", err)
	}
	got, _ = s.GetFlag(ctx, "esv_ready")
	if !got {
		t.Error("expected true after SetFlag")
	}
}

func TestUsageRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	// Empty store reads as zero usage, not an error.
	u, err := s.GetUsage(ctx)
	if err != nil {
		t.Fatalf("GetUsage: %v", err)
	}
	if u.Date != "" || u.Count != 0 {
		t.Errorf("expected zero usage, got %+v", u)
	}

	want := lectern.DailyUsage{Date: "2026-08-29", Count: 2}
	if err := s.SetUsage(ctx, want); err != nil {
		t.Fatalf("SetUsage: %v", err)
	}
	u, _ = s.GetUsage(ctx)
	if u != want {
		t.Errorf("expected %+v, got %+v", want, u)
	}

	// Overwrite replaces the single row.
	if err := s.SetUsage(ctx, lectern.DailyUsage{Date: "2026-08-30", Count: 1}); err != nil {
		t.Fatalf("SetUsage overwrite: %v", err)
	}
	u, _ = s.GetUsage(ctx)
	if u.Date != "2026-08-30" || u.Count != 1 {
		t.Errorf("unexpected usage after overwrite: %+v", u)
	}
}

func TestBookmarks(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	b1 := lectern.Bookmark{Book: "John", Chapter: 3, Verse: 16, CreatedAt: 1000}
	b2 := lectern.Bookmark{Book: "Psalms", Chapter: 23, Verse: 1, CreatedAt: 2000}
	for _, b := range []lectern.Bookmark{b1, b2} {
		if err := s.AddBookmark(ctx, b); err != nil {
			t.Fatalf("AddBookmark: %v", err)
		}
	}

	got, err := s.Bookmarks(ctx)
	if err != nil {
		t.Fatalf("Bookmarks: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 bookmarks, got %d", len(got))
	}
	// Newest first.
	if got[0].Book != "Psalms" {
		t.Errorf("expected newest bookmark first, got %+v", got[0])
	}

	// Same verse replaces, not duplicates.
	if err := s.AddBookmark(ctx, lectern.Bookmark{Book: "John", Chapter: 3, Verse: 16, CreatedAt: 3000}); err != nil {
		t.Fatalf("AddBookmark replace: %v", err)
	}
	got, _ = s.Bookmarks(ctx)
	if len(got) != 2 {
		t.Errorf("expected replace for same verse, got %d bookmarks", len(got))
	}
}

func TestHighlights(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	h := lectern.Highlight{Book: "Romans", Chapter: 8, Verse: 28, Color: "yellow", CreatedAt: 1000}
	if err := s.AddHighlight(ctx, h); err != nil {
		t.Fatalf("AddHighlight: %v", err)
	}

	// Re-highlighting the same verse changes the color.
	h.Color = "green"
	h.CreatedAt = 2000
	if err := s.AddHighlight(ctx, h); err != nil {
		t.Fatalf("AddHighlight replace: %v", err)
	}

	got, err := s.Highlights(ctx)
	if err != nil {
		t.Fatalf("Highlights: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 highlight, got %d", len(got))
	}
	if got[0].Color != "green" {
		t.Errorf("expected replaced color 'green', got %q", got[0].Color)
	}
}

func TestHistoryDedupAndCap(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	// Same chapter twice keeps one entry with the latest timestamp.
	s.AddHistory(ctx, lectern.HistoryItem{Book: "Mark", Chapter: 1, CreatedAt: 1000})
	s.AddHistory(ctx, lectern.HistoryItem{Book: "Mark", Chapter: 1, CreatedAt: 2000})

	got, err := s.History(ctx)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected dedup to 1 entry, got %d", len(got))
	}
	if got[0].CreatedAt != 2000 {
		t.Errorf("expected latest timestamp kept, got %d", got[0].CreatedAt)
	}

	// Exceeding the cap drops oldest entries.
	for i := 0; i < historyLimit+10; i++ {
		item := lectern.HistoryItem{Book: "Psalms", Chapter: i + 1, CreatedAt: int64(3000 + i)}
		if err := s.AddHistory(ctx, item); err != nil {
			t.Fatalf("AddHistory %d: %v", i, err)
		}
	}
	got, _ = s.History(ctx)
	if len(got) != historyLimit {
		t.Fatalf("expected history capped at %d, got %d", historyLimit, len(got))
	}
	// Oldest surviving entry should be newer than the dropped ones.
	oldest := got[len(got)-1]
	if oldest.Book == "Mark" {
		t.Error("expected oldest entries dropped by cap")
	}
}

func TestNotes(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	got, err := s.Note(ctx, "John 3:16")
	if err != nil {
		t.Fatalf("Note: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty note for missing ref, got %q", got)
	}

	if err := s.SaveNote(ctx, "John 3:16", "God so loved the world"); err != nil {
		t.Fatalf("SaveNote: %v", err)
	}
	got, _ = s.Note(ctx, "John 3:16")
	if got != "God so loved the world" {
		t.Errorf("unexpected note: %q", got)
	}

	// Saving again replaces.
	if err := s.SaveNote(ctx, "John 3:16", "revised"); err != nil {
		t.Fatalf("SaveNote replace: %v", err)
	}
	got, _ = s.Note(ctx, "John 3:16")
	if got != "revised" {
		t.Errorf("expected replaced note, got %q", got)
	}
}

func TestPrayersCRUD(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	p := lectern.PrayerEntry{Title: "For family", Text: "...", Category: lectern.PrayerFamily, CreatedAt: 1000}
	if err := s.SavePrayer(ctx, p); err != nil {
		t.Fatalf("SavePrayer: %v", err)
	}

	prayers, err := s.Prayers(ctx)
	if err != nil {
		t.Fatalf("Prayers: %v", err)
	}
	if len(prayers) != 1 {
		t.Fatalf("expected 1 prayer, got %d", len(prayers))
	}
	if prayers[0].ID == "" {
		t.Error("expected generated ID for prayer saved without one")
	}
	if prayers[0].Category != lectern.PrayerFamily {
		t.Errorf("unexpected category: %q", prayers[0].Category)
	}

	// Update in place by ID.
	updated := prayers[0]
	updated.Answered = true
	if err := s.SavePrayer(ctx, updated); err != nil {
		t.Fatalf("SavePrayer update: %v", err)
	}
	prayers, _ = s.Prayers(ctx)
	if len(prayers) != 1 || !prayers[0].Answered {
		t.Errorf("expected in-place update, got %+v", prayers)
	}

	if err := s.DeletePrayer(ctx, prayers[0].ID); err != nil {
		t.Fatalf("DeletePrayer: %v", err)
	}
	prayers, _ = s.Prayers(ctx)
	if len(prayers) != 0 {
		t.Fatalf("expected 0 prayers after delete, got %d", len(prayers))
	}
}

func TestSettingsDefaults(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	got, err := s.Settings(ctx)
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	want := lectern.DefaultSettings()
	if got.FontSize != want.FontSize || got.LineHeight != want.LineHeight {
		t.Errorf("expected defaults %+v, got %+v", want, got)
	}

	got.NightMode = true
	got.KidsMode = true
	got.LastRead = &lectern.LastRead{Book: "Luke", Chapter: 2, Verse: 7, CreatedAt: 1000}
	if err := s.SaveSettings(ctx, got); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}

	reloaded, _ := s.Settings(ctx)
	if !reloaded.NightMode || !reloaded.KidsMode {
		t.Errorf("expected saved toggles, got %+v", reloaded)
	}
	if reloaded.LastRead == nil || reloaded.LastRead.Book != "Luke" {
		t.Errorf("expected last read position preserved, got %+v", reloaded.LastRead)
	}
}

func TestProgress(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for _, date := range []string{"2026-08-29", "2026-08-27", "2026-08-28", "2026-08-29"} {
		if err := s.MarkDayComplete(ctx, date); err != nil {
			t.Fatalf("MarkDayComplete: %v", err)
		}
	}

	got, err := s.Progress(ctx)
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 unique days, got %d", len(got))
	}
	// Ascending date order.
	if got[0] != "2026-08-27" || got[2] != "2026-08-29" {
		t.Errorf("expected ascending order, got %v", got)
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reopen.db")
	ctx := context.Background()

	s := New(path)
	if err := s.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	ref := kjvRef("Genesis", 1)
	if err := s.PutChapter(ctx, ref, []lectern.Verse{{Number: 1, Text: "In the beginning"}}); err != nil {
		t.Fatalf("PutChapter: %v", err)
	}
	if err := s.SetFlag(ctx, lectern.ReadyFlagKJV); err != nil {
		t.Fatalf("SetFlag: %v", err)
	}
	s.Close()

	s2 := New(path)
	if err := s2.Init(ctx); err != nil {
		t.Fatalf("reopen Init: %v", err)
	}
	defer s2.Close()

	got, err := s2.GetChapter(ctx, ref)
	if err != nil {
		t.Fatalf("GetChapter after reopen: %v", err)
	}
	if len(got) != 1 || got[0].Text != "In the beginning" {
		t.Errorf("expected persisted chapter, got %+v", got)
	}
	ready, _ := s2.GetFlag(ctx, lectern.ReadyFlagKJV)
	if !ready {
		t.Error("expected persisted ready flag")
	}
}
