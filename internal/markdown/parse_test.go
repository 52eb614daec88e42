package markdown

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/studybuddy/studybuddy/internal/testutil"
)

// TestParseClassifiesLines verifies first-match-wins line classification.
func TestParseClassifiesLines(testingHandle *testing.T) {
	// Arrange a reply that uses every block kind.
	text := strings.Join([]string{
		"# Cells",
		"## Parts",
		"### Answer Key",
		"#### not a heading",
		"  - item **b**",
		"* star",
		"1. First *x*",
		"  2. indented",
		"   ",
		"Plain line",
	}, "\n")

	// Act.
	doc := Parse(text)

	// Assert.
	want := []Block{
		{Kind: Heading, Level: 1, Text: "Cells"},
		{Kind: Heading, Level: 2, Text: "Parts"},
		{Kind: Heading, Level: 3, Text: "Answer Key"},
		{Kind: Paragraph, Spans: []Span{{Style: Plain, Text: "#### not a heading"}}},
		{Kind: Bullet, Spans: []Span{{Style: Plain, Text: "item "}, {Style: Bold, Text: "b"}}},
		{Kind: Bullet, Spans: []Span{{Style: Plain, Text: "star"}}},
		{Kind: Numbered, Spans: []Span{{Style: Plain, Text: "1. First "}, {Style: Italic, Text: "x"}}},
		{Kind: Numbered, Spans: []Span{{Style: Plain, Text: "  2. indented"}}},
		{Kind: Spacer},
		{Kind: Paragraph, Spans: []Span{{Style: Plain, Text: "Plain line"}}},
	}
	testutil.RequireEqual(testingHandle, doc.Blocks, want, "parsed blocks")
}

// TestParseHeadingKeepsMarkers verifies heading text is not inline-parsed.
func TestParseHeadingKeepsMarkers(testingHandle *testing.T) {
	doc := Parse("### **Bold** heading")
	testutil.RequireEqual(testingHandle, doc.Blocks[0].Text, "**Bold** heading", "raw heading text")
}

// TestParseLineCount verifies one block per source line.
func TestParseLineCount(testingHandle *testing.T) {
	doc := Parse("a\n\nb\n")
	testutil.RequireEqual(testingHandle, len(doc.Blocks), 4, "block count")
	testutil.RequireEqual(testingHandle, doc.Blocks[3].Kind, Spacer, "trailing newline is a spacer")
}

// TestParseInline covers bold, italic and literal markers.
func TestParseInline(testingHandle *testing.T) {
	cases := []struct {
		name  string
		input string
		want  []Span
	}{
		{
			name:  "mixed",
			input: "a **b** and *c* d",
			want: []Span{
				{Style: Plain, Text: "a "},
				{Style: Bold, Text: "b"},
				{Style: Plain, Text: " and "},
				{Style: Italic, Text: "c"},
				{Style: Plain, Text: " d"},
			},
		},
		{
			name:  "unterminated bold",
			input: "**unterminated",
			want:  []Span{{Style: Plain, Text: "**unterminated"}},
		},
		{
			name:  "lone markers",
			input: "**",
			want:  []Span{{Style: Plain, Text: "**"}},
		},
		{
			name:  "empty bold dropped",
			input: "x****y",
			want:  []Span{{Style: Plain, Text: "xy"}},
		},
		{
			name:  "two bold runs",
			input: "**A** vs **B**",
			want: []Span{
				{Style: Bold, Text: "A"},
				{Style: Plain, Text: " vs "},
				{Style: Bold, Text: "B"},
			},
		},
		{
			name:  "empty input",
			input: "",
			want:  nil,
		},
	}
	for _, testCase := range cases {
		testingHandle.Run(testCase.name, func(testingHandle *testing.T) {
			testutil.RequireEqual(testingHandle, ParseInline(testCase.input), testCase.want, "spans")
		})
	}
}

// TestPlainTextRoundTrip verifies markers are stripped and text preserved.
func TestPlainTextRoundTrip(testingHandle *testing.T) {
	doc := Parse("### Answer Key\n- **Photosynthesis** makes *glucose*\n1. A\n\nDone")
	got := PlainText(doc)
	testutil.RequireEqual(testingHandle, got, "Answer Key\n  • Photosynthesis makes glucose\n  1. A\n\nDone", "plain rendering")
}

// TestHTMLEscapesAndGroupsLists verifies HTML output.
func TestHTMLEscapesAndGroupsLists(testingHandle *testing.T) {
	doc := Parse("## <Intro>\n- one\n- **two**\nafter & *more*")
	got := HTML(doc)
	testutil.RequireEqual(testingHandle, got,
		"<h2>&lt;Intro&gt;</h2><ul><li>one</li><li><strong>two</strong></li></ul><p>after &amp; <em>more</em></p>",
		"html rendering")
}

// TestTerminalWrapsToWidth verifies wrapped lines respect the width.
func TestTerminalWrapsToWidth(testingHandle *testing.T) {
	renderer := NewTerminalRenderer(24)
	text := "Mitochondria are the **powerhouse** of the cell and produce energy.\n- a bullet item that is long enough to wrap around"

	output := renderer.RenderString(text)

	lines := strings.Split(output, "\n")
	testutil.RequireTrue(testingHandle, len(lines) > 2, "expected wrapping")
	for _, line := range lines {
		testutil.RequireTrue(testingHandle, lipgloss.Width(line) <= 24, "line exceeds width: "+line)
	}
	testutil.RequireStringContains(testingHandle, output, "•", "bullet marker")
	testutil.RequireStringContains(testingHandle, output, "powerhouse", "bold text kept")
	testutil.RequireStringNotContains(testingHandle, output, "**", "bold markers removed")
}

// TestTerminalWithoutWidth verifies zero width disables wrapping.
func TestTerminalWithoutWidth(testingHandle *testing.T) {
	renderer := NewTerminalRenderer(0)
	long := strings.Repeat("word ", 40)
	output := renderer.RenderString(long)
	testutil.RequireEqual(testingHandle, strings.Count(output, "\n"), 0, "single line")
}
