package lectern

import "fmt"

// Translation identifies a scripture text edition. The set is closed:
// adding an edition means adding a constant here and support in the
// remote text API.
type Translation string

const (
	TranslationKJV Translation = "KJV"
	TranslationESV Translation = "ESV"
)

// Verse is one verse of chapter text. Number 0 with Notice set marks a
// synthetic placeholder used to surface an error inline in the reader —
// it is not scripture.
type Verse struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
	Notice bool   `json:"is_notice,omitempty"`
}

// ChapterRef uniquely identifies one chapter of one translation.
type ChapterRef struct {
	Translation Translation `json:"translation"`
	Book        string      `json:"book"`
	Chapter     int         `json:"chapter"`
}

// Key serializes the ref to the storage key format "KJV_Genesis_1".
func (r ChapterRef) Key() string {
	return fmt.Sprintf("%s_%s_%d", r.Translation, r.Book, r.Chapter)
}

func (r ChapterRef) String() string {
	return fmt.Sprintf("%s %d (%s)", r.Book, r.Chapter, r.Translation)
}

// ChapterEntry pairs a ref with its verses, used by bulk seed writes.
type ChapterEntry struct {
	Ref    ChapterRef `json:"ref"`
	Verses []Verse    `json:"verses"`
}

// DailyUsage is the persisted AI usage counter. If Date is not today at
// read time the effective count is zero; the reset is written lazily on
// the next successful increment.
type DailyUsage struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Mode selects the study-assistant behavior for a conversation turn.
type Mode string

const (
	ModeChat           Mode = "chat"
	ModeSimplify       Mode = "simplify"
	ModeDeepStudy      Mode = "deep_study"
	ModeCrossReference Mode = "cross_reference"
	ModeWordStudy      Mode = "word_study"
	ModeApply          Mode = "apply"
	ModeContext        Mode = "context"
	ModeDailyPlan      Mode = "daily_plan"
	ModeKids           Mode = "kids"
	ModePrayerHelp     Mode = "prayer_help"
)

// --- LLM protocol types ---

type ChatMessage struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
}

type ChatResponse struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// --- ChatMessage constructors ---

func UserMessage(text string) ChatMessage {
	return ChatMessage{Role: "user", Content: text}
}

func SystemMessage(text string) ChatMessage {
	return ChatMessage{Role: "system", Content: text}
}

func AssistantMessage(text string) ChatMessage {
	return ChatMessage{Role: "assistant", Content: text}
}
