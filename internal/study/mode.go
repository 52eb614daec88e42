package study

import (
	"errors"
	"fmt"
	"strings"
)

// Mode selects the prompt prefix, template set and welcome copy for a turn.
type Mode string

const (
	// ModeExplain asks for simple explanations with examples.
	ModeExplain Mode = "EXPLAIN"
	// ModeSummarize asks for a short bullet summary.
	ModeSummarize Mode = "SUMMARIZE"
	// ModeQuiz asks for a ten-question quiz with an answer key.
	ModeQuiz Mode = "QUIZ"
)

// DefaultMode is the mode selected when nothing else is configured.
const DefaultMode = ModeExplain

var (
	// ErrUnknownMode is returned when a mode name cannot be parsed.
	ErrUnknownMode = errors.New("unknown study mode")
	// ErrTemplateIndex is returned when a template index is out of range.
	ErrTemplateIndex = errors.New("template index out of range")
)

// modeCopy holds the user-facing strings attached to a mode.
type modeCopy struct {
	// label is the selector button text.
	label string
	// prefix is prepended to every user turn sent to the model.
	prefix string
	// headline is shown above the welcome text on an empty conversation.
	headline string
	// welcome is shown when the conversation is empty.
	welcome string
	// placeholder is the hint shown in an empty input box.
	placeholder string
	// templates prefill the input box.
	templates [4]string
}

var catalog = map[Mode]modeCopy{
	ModeExplain: {
		label:       "Explain",
		prefix:      "Explain this topic simply with examples: ",
		headline:    "Let's learn something new.",
		welcome:     "Hi! I'm your Study Buddy. What topic are you stuck on? I can explain it simply with examples.",
		placeholder: "Type your question or topic here...",
		templates: [4]string{
			"Explain ... like I'm 5 years old",
			"How does ... work?",
			"Use an analogy to explain ...",
			"Difference between ... and ...",
		},
	},
	ModeSummarize: {
		label:       "Summarize",
		prefix:      "Summarize the following strictly in max 5 bullet points: ",
		headline:    "Let's summarize your notes.",
		welcome:     "Need to digest a lot of info? Paste your notes here, and I'll give you a clean bullet-point summary (max 5 points).",
		placeholder: "Type your question or topic here...",
		templates: [4]string{
			"Summarize this text in bullet points: ...",
			"Key takeaways from ...",
			"Simplify this concept: ...",
			"Create a study guide for ...",
		},
	},
	ModeQuiz: {
		label:       "Generate Quiz",
		prefix:      "Generate a quiz (6 MCQ, 4 T/F) with an answer key for: ",
		headline:    "Time for a quick quiz!",
		welcome:     "Ready to test your knowledge? Tell me the topic, and I'll generate a comprehensive 10-question quiz for you.",
		placeholder: "Enter a topic to generate a quiz (e.g., Photosynthesis)...",
		templates: [4]string{
			"Generate a quiz on ...",
			"Test my knowledge of ...",
			"Create a hard quiz about ...",
			"Create a comprehensive quiz on ...",
		},
	},
}

// Modes returns every mode in selector order.
func Modes() []Mode {
	return []Mode{ModeExplain, ModeSummarize, ModeQuiz}
}

// ParseMode resolves a mode name or short alias, ignoring case.
func ParseMode(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "explain", "e":
		return ModeExplain, nil
	case "summarize", "summary", "s":
		return ModeSummarize, nil
	case "quiz", "q":
		return ModeQuiz, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, value)
}

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	_, ok := catalog[m]
	return ok
}

// String returns the canonical upper-case mode name.
func (m Mode) String() string {
	return string(m)
}

// Label returns the selector button text.
func (m Mode) Label() string {
	return m.copy().label
}

// Prefix returns the text prepended to every user turn.
func (m Mode) Prefix() string {
	return m.copy().prefix
}

// Prompt builds the outgoing message for a user turn.
func (m Mode) Prompt(input string) string {
	return m.Prefix() + input
}

// Headline returns the empty-state headline.
func (m Mode) Headline() string {
	return m.copy().headline
}

// Welcome returns the empty-state welcome text.
func (m Mode) Welcome() string {
	return m.copy().welcome
}

// Placeholder returns the input hint for the mode.
func (m Mode) Placeholder() string {
	return m.copy().placeholder
}

// Templates returns a copy of the four prompt templates for the mode.
func (m Mode) Templates() []string {
	templates := m.copy().templates
	return templates[:]
}

// Template returns the template at index.
func (m Mode) Template(index int) (string, error) {
	templates := m.copy().templates
	if index < 0 || index >= len(templates) {
		return "", fmt.Errorf("%w: %d", ErrTemplateIndex, index)
	}
	return templates[index], nil
}

// copy looks up the mode strings; unknown modes fall back to the default.
func (m Mode) copy() modeCopy {
	if entry, ok := catalog[m]; ok {
		return entry
	}
	return catalog[DefaultMode]
}
