package lectern

import (
	"context"
	"time"
)

// Journal record types. These were originally scattered across an ambient
// storage object touched by every view; here they live behind one explicit
// store interface so callers can be tested against in-memory fakes.

type Bookmark struct {
	Book      string `json:"book"`
	Chapter   int    `json:"chapter"`
	Verse     int    `json:"verse"`
	CreatedAt int64  `json:"created_at"`
}

type Highlight struct {
	Book      string `json:"book"`
	Chapter   int    `json:"chapter"`
	Verse     int    `json:"verse"`
	Color     string `json:"color"`
	CreatedAt int64  `json:"created_at"`
}

type HistoryItem struct {
	Book      string `json:"book"`
	Chapter   int    `json:"chapter"`
	CreatedAt int64  `json:"created_at"`
}

type PrayerCategory string

const (
	PrayerFamily PrayerCategory = "Family"
	PrayerHealth PrayerCategory = "Health"
	PrayerChurch PrayerCategory = "Church"
	PrayerGrowth PrayerCategory = "Growth"
	PrayerOther  PrayerCategory = "Other"
)

type PrayerEntry struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Text      string         `json:"text"`
	Category  PrayerCategory `json:"category"`
	Answered  bool           `json:"answered"`
	CreatedAt int64          `json:"created_at"`
}

// Settings is the single per-user preferences record.
type Settings struct {
	FontSize     int       `json:"font_size"`
	LineHeight   float64   `json:"line_height"`
	NightMode    bool      `json:"night_mode"`
	HighContrast bool      `json:"high_contrast"`
	KidsMode     bool      `json:"kids_mode"`
	WarningOK    bool      `json:"historical_warning_accepted"`
	PrivacyOK    bool      `json:"privacy_accepted"`
	LastRead     *LastRead `json:"last_read,omitempty"`
}

type LastRead struct {
	Book      string `json:"book"`
	Chapter   int    `json:"chapter"`
	Verse     int    `json:"verse"`
	CreatedAt int64  `json:"created_at"`
}

// DefaultSettings returns the preferences applied before the user has
// saved anything.
func DefaultSettings() Settings {
	return Settings{FontSize: 18, LineHeight: 1.6}
}

// Streak counts consecutive reading days in days ("2006-01-02", ascending)
// ending today or yesterday. A last reading two or more days ago means the
// streak is broken and the result is 0.
func Streak(days []string, today time.Time) int {
	if len(days) == 0 {
		return 0
	}
	last, err := time.Parse("2006-01-02", days[len(days)-1])
	if err != nil {
		return 0
	}
	anchor := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	gap := int(anchor.Sub(last).Hours() / 24)
	if gap > 1 {
		return 0
	}

	streak := 1
	for i := len(days) - 1; i > 0; i-- {
		cur, err1 := time.Parse("2006-01-02", days[i])
		prev, err2 := time.Parse("2006-01-02", days[i-1])
		if err1 != nil || err2 != nil {
			break
		}
		if int(cur.Sub(prev).Hours()/24) != 1 {
			break
		}
		streak++
	}
	return streak
}

// JournalStore persists per-user study records. One logical record type
// per method pair; all lists return newest first.
type JournalStore interface {
	Bookmarks(ctx context.Context) ([]Bookmark, error)
	// AddBookmark stores b, replacing any bookmark for the same verse.
	AddBookmark(ctx context.Context, b Bookmark) error

	Highlights(ctx context.Context) ([]Highlight, error)
	// AddHighlight stores h, replacing any highlight for the same verse.
	AddHighlight(ctx context.Context, h Highlight) error

	History(ctx context.Context) ([]HistoryItem, error)
	// AddHistory records a chapter visit, deduplicated by book+chapter
	// and capped at the most recent 50 entries.
	AddHistory(ctx context.Context, item HistoryItem) error

	// Note returns the saved note for a verse reference, or "" when none.
	Note(ctx context.Context, ref string) (string, error)
	SaveNote(ctx context.Context, ref, text string) error

	Prayers(ctx context.Context) ([]PrayerEntry, error)
	// SavePrayer inserts p, or updates it in place when the ID exists.
	SavePrayer(ctx context.Context, p PrayerEntry) error
	DeletePrayer(ctx context.Context, id string) error

	// Settings returns the saved preferences merged over DefaultSettings.
	Settings(ctx context.Context) (Settings, error)
	SaveSettings(ctx context.Context, s Settings) error

	// MarkDayComplete records a reading day (idempotent per date).
	MarkDayComplete(ctx context.Context, date string) error
	// Progress returns recorded reading days in ascending date order.
	Progress(ctx context.Context) ([]string, error)
}
