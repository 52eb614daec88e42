package study

import (
	"errors"
	"testing"

	"github.com/studybuddy/studybuddy/internal/testutil"
)

// TestPrefixes verifies the exact prompt prefix for each mode.
func TestPrefixes(testingHandle *testing.T) {
	cases := map[Mode]string{
		ModeExplain:   "Explain this topic simply with examples: ",
		ModeSummarize: "Summarize the following strictly in max 5 bullet points: ",
		ModeQuiz:      "Generate a quiz (6 MCQ, 4 T/F) with an answer key for: ",
	}
	for mode, want := range cases {
		testutil.RequireEqual(testingHandle, mode.Prefix(), want, "prefix for "+mode.String())
	}
}

// TestPromptQuiz verifies the outgoing prompt for a quiz turn.
func TestPromptQuiz(testingHandle *testing.T) {
	got := ModeQuiz.Prompt("Photosynthesis")
	testutil.RequireEqual(testingHandle, got, "Generate a quiz (6 MCQ, 4 T/F) with an answer key for: Photosynthesis", "quiz prompt")
}

// TestTemplatesPerMode verifies every mode exposes four templates by index.
func TestTemplatesPerMode(testingHandle *testing.T) {
	for _, mode := range Modes() {
		templates := mode.Templates()
		testutil.RequireEqual(testingHandle, len(templates), 4, "template count for "+mode.String())
		for index, want := range templates {
			got, err := mode.Template(index)
			testutil.RequireNoError(testingHandle, err, "template lookup")
			testutil.RequireEqual(testingHandle, got, want, "template text")
		}
	}
}

// TestTemplatesReturnsCopy verifies callers cannot mutate the catalog.
func TestTemplatesReturnsCopy(testingHandle *testing.T) {
	templates := ModeExplain.Templates()
	templates[0] = "changed"

	got, err := ModeExplain.Template(0)
	testutil.RequireNoError(testingHandle, err, "template lookup")
	testutil.RequireEqual(testingHandle, got, "Explain ... like I'm 5 years old", "catalog must not change")
}

// TestTemplateOutOfRange verifies bad indexes return ErrTemplateIndex.
func TestTemplateOutOfRange(testingHandle *testing.T) {
	for _, index := range []int{-1, 4, 10} {
		_, err := ModeQuiz.Template(index)
		testutil.RequireTrue(testingHandle, errors.Is(err, ErrTemplateIndex), "expected ErrTemplateIndex")
	}
}

// TestParseMode verifies names and aliases resolve case-insensitively.
func TestParseMode(testingHandle *testing.T) {
	cases := map[string]Mode{
		"explain":   ModeExplain,
		"EXPLAIN":   ModeExplain,
		" e ":       ModeExplain,
		"Summarize": ModeSummarize,
		"summary":   ModeSummarize,
		"s":         ModeSummarize,
		"quiz":      ModeQuiz,
		"Q":         ModeQuiz,
	}
	for input, want := range cases {
		got, err := ParseMode(input)
		testutil.RequireNoError(testingHandle, err, "parse "+input)
		testutil.RequireEqual(testingHandle, got, want, "parsed mode for "+input)
	}

	_, err := ParseMode("essay")
	testutil.RequireTrue(testingHandle, errors.Is(err, ErrUnknownMode), "expected ErrUnknownMode")
}

// TestUnknownModeFallsBack verifies an invalid mode reads as the default.
func TestUnknownModeFallsBack(testingHandle *testing.T) {
	mode := Mode("ESSAY")
	testutil.RequireTrue(testingHandle, !mode.Valid(), "ESSAY must be invalid")
	testutil.RequireEqual(testingHandle, mode.Prefix(), DefaultMode.Prefix(), "fallback prefix")
}

// TestWelcomeCopy verifies each mode has distinct empty-state copy.
func TestWelcomeCopy(testingHandle *testing.T) {
	seen := map[string]bool{}
	for _, mode := range Modes() {
		welcome := mode.Welcome()
		testutil.RequireTrue(testingHandle, welcome != "", "welcome must not be empty")
		testutil.RequireTrue(testingHandle, !seen[welcome], "welcome must be unique per mode")
		seen[welcome] = true
		testutil.RequireTrue(testingHandle, mode.Headline() != "", "headline must not be empty")
	}
}

// TestSystemInstructionRules verifies the persona carries the mode and regional rules.
func TestSystemInstructionRules(testingHandle *testing.T) {
	for _, needle := range []string{"EXPLAIN", "SUMMARIZE", "QUIZ", "Hari Kemerdekaan", "### Answer Key"} {
		testutil.RequireStringContains(testingHandle, SystemInstruction, needle, "system instruction rule")
	}
}
