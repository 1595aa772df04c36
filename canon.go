package lectern

import (
	"strings"

	"golang.org/x/text/cases"
)

// Book is one entry of the canonical catalog: a book name and its fixed
// chapter count. The catalog is reference data, not mutable state.
type Book struct {
	Name       string `json:"name"`
	Chapters   int    `json:"chapters"`
	Historical bool   `json:"historical,omitempty"`
}

// CanonicalBooks is the 66-book canon in traditional order.
var CanonicalBooks = []Book{
	{Name: "Genesis", Chapters: 50}, {Name: "Exodus", Chapters: 40}, {Name: "Leviticus", Chapters: 27},
	{Name: "Numbers", Chapters: 36}, {Name: "Deuteronomy", Chapters: 34}, {Name: "Joshua", Chapters: 24},
	{Name: "Judges", Chapters: 21}, {Name: "Ruth", Chapters: 4}, {Name: "1 Samuel", Chapters: 31},
	{Name: "2 Samuel", Chapters: 24}, {Name: "1 Kings", Chapters: 22}, {Name: "2 Kings", Chapters: 25},
	{Name: "1 Chronicles", Chapters: 29}, {Name: "2 Chronicles", Chapters: 36}, {Name: "Ezra", Chapters: 10},
	{Name: "Nehemiah", Chapters: 13}, {Name: "Esther", Chapters: 10}, {Name: "Job", Chapters: 42},
	{Name: "Psalms", Chapters: 150}, {Name: "Proverbs", Chapters: 31}, {Name: "Ecclesiastes", Chapters: 12},
	{Name: "Song of Solomon", Chapters: 8}, {Name: "Isaiah", Chapters: 66}, {Name: "Jeremiah", Chapters: 52},
	{Name: "Lamentations", Chapters: 5}, {Name: "Ezekiel", Chapters: 48}, {Name: "Daniel", Chapters: 12},
	{Name: "Hosea", Chapters: 14}, {Name: "Joel", Chapters: 3}, {Name: "Amos", Chapters: 9},
	{Name: "Obadiah", Chapters: 1}, {Name: "Jonah", Chapters: 4}, {Name: "Micah", Chapters: 7},
	{Name: "Nahum", Chapters: 3}, {Name: "Habakkuk", Chapters: 3}, {Name: "Zephaniah", Chapters: 3},
	{Name: "Haggai", Chapters: 2}, {Name: "Zechariah", Chapters: 14}, {Name: "Malachi", Chapters: 4},
	{Name: "Matthew", Chapters: 28}, {Name: "Mark", Chapters: 16}, {Name: "Luke", Chapters: 24},
	{Name: "John", Chapters: 21}, {Name: "Acts", Chapters: 28}, {Name: "Romans", Chapters: 16},
	{Name: "1 Corinthians", Chapters: 16}, {Name: "2 Corinthians", Chapters: 13}, {Name: "Galatians", Chapters: 6},
	{Name: "Ephesians", Chapters: 6}, {Name: "Philippians", Chapters: 4}, {Name: "Colossians", Chapters: 4},
	{Name: "1 Thessalonians", Chapters: 5}, {Name: "2 Thessalonians", Chapters: 3}, {Name: "1 Timothy", Chapters: 6},
	{Name: "2 Timothy", Chapters: 4}, {Name: "Titus", Chapters: 3}, {Name: "Philemon", Chapters: 1},
	{Name: "Hebrews", Chapters: 13}, {Name: "James", Chapters: 5}, {Name: "1 Peter", Chapters: 5},
	{Name: "2 Peter", Chapters: 3}, {Name: "1 John", Chapters: 5}, {Name: "2 John", Chapters: 1},
	{Name: "3 John", Chapters: 1}, {Name: "Jude", Chapters: 1}, {Name: "Revelation", Chapters: 22},
}

// HistoricalBooks are the seven deuterocanonical/historical books offered
// behind a reader warning.
var HistoricalBooks = []Book{
	{Name: "Tobit", Chapters: 14, Historical: true},
	{Name: "Judith", Chapters: 16, Historical: true},
	{Name: "Wisdom", Chapters: 19, Historical: true},
	{Name: "Sirach", Chapters: 51, Historical: true},
	{Name: "Baruch", Chapters: 6, Historical: true},
	{Name: "1 Maccabees", Chapters: 16, Historical: true},
	{Name: "2 Maccabees", Chapters: 15, Historical: true},
}

// HistoricalIntroductions are one-line summaries shown before a historical
// book is opened for the first time.
var HistoricalIntroductions = map[string]string{
	"Tobit":       "A story of faithfulness and the help of angels.",
	"Judith":      "A narrative of courage and deliverance.",
	"Wisdom":      "Reflections on God's wisdom and righteousness.",
	"Sirach":      "Practical advice for daily living.",
	"Baruch":      "Messages of hope during a time of exile.",
	"1 Maccabees": "History of the fight for religious freedom.",
	"2 Maccabees": "Stories of faith and standing strong in trial.",
}

var (
	foldCaser = cases.Fold()
	bookIndex = buildBookIndex()
)

func buildBookIndex() map[string]Book {
	idx := make(map[string]Book, len(CanonicalBooks)+len(HistoricalBooks))
	for _, b := range AllBooks() {
		idx[foldCaser.String(b.Name)] = b
	}
	return idx
}

// AllBooks returns the full catalog, canonical books first.
func AllBooks() []Book {
	all := make([]Book, 0, len(CanonicalBooks)+len(HistoricalBooks))
	all = append(all, CanonicalBooks...)
	all = append(all, HistoricalBooks...)
	return all
}

// LookupBook finds a catalog entry by name, ignoring case and surrounding
// whitespace. The second result is false when the name is not in the catalog.
func LookupBook(name string) (Book, bool) {
	b, ok := bookIndex[foldCaser.String(strings.TrimSpace(name))]
	return b, ok
}

// ChapterCount returns the chapter bound for a book, or 0 when unknown.
func ChapterCount(book string) int {
	b, ok := LookupBook(book)
	if !ok {
		return 0
	}
	return b.Chapters
}

// TotalChapters is the number of chapters across the whole catalog, used
// by the full-download progress calculation.
func TotalChapters() int {
	var n int
	for _, b := range AllBooks() {
		n += b.Chapters
	}
	return n
}

// IsHistorical reports whether a book belongs to the historical set.
func IsHistorical(book string) bool {
	b, ok := LookupBook(book)
	return ok && b.Historical
}
