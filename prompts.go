package lectern

import (
	"fmt"
	"strings"
)

// globalBehavior is the fixed system instruction prepended to every
// conversation, parameterized only by the active translation.
const globalBehavior = `You are a Bible study assistant.
Role: Help users understand the Bible (%s translation).
Tone: Bible first, short guidance, simple language.
Strict Rules:
1. Use ONLY simple language.
2. Be extremely brief. Stop as soon as the answer is clear.
3. No long commentary or essays.
4. Bible text is the priority.
5. End every response with a passage link: [link_to_passage book="Book" chapter="1" verses="1"].
6. If the user's intent is unclear, ask for a specific verse to study.`

// kidsAmendment is appended when the active profile belongs to a child.
const kidsAmendment = `IMPORTANT: User is a child. Use very simple words. Short answers. Gentle tone. Hide adult topics.`

// modePrompts are the per-mode instruction templates.
var modePrompts = map[Mode]string{
	ModeChat:           "Provide short pastoral guidance based on Scripture.",
	ModeSimplify:       "Explain this like I am 5 years old. Very short.",
	ModeDeepStudy:      "Provide a brief exegesis of this verse.",
	ModeCrossReference: "List 2-3 closely related verses only.",
	ModeWordStudy:      "Define key original language words briefly.",
	ModeApply:          "Give 1-2 simple practical applications.",
	ModeContext:        "Briefly explain the historical setting.",
	ModeDailyPlan:      "Create a 3-day reading plan in JSON format.",
	ModeKids:           "Tell a very simple story for a child.",
	ModePrayerHelp:     "Write a 2-sentence prayer based on this topic.",
}

// SystemPrompt assembles the full system instruction: global behavior,
// then the mode template, then the child-safety amendment when kidsMode
// is set. Unknown modes fall back to the chat template.
func SystemPrompt(mode Mode, translation Translation, kidsMode bool) string {
	modePrompt, ok := modePrompts[mode]
	if !ok {
		modePrompt = modePrompts[ModeChat]
	}
	var b strings.Builder
	fmt.Fprintf(&b, globalBehavior, translation)
	b.WriteString("\n")
	b.WriteString(modePrompt)
	if kidsMode {
		b.WriteString("\n")
		b.WriteString(kidsAmendment)
	}
	return b.String()
}
