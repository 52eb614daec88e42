// Package markdown parses the small Markdown subset that study replies use
// and renders it for the terminal, plain text and HTML.
package markdown

import (
	"regexp"
	"strings"
)

// BlockKind classifies one source line.
type BlockKind int

const (
	// Paragraph is ordinary inline-formatted text.
	Paragraph BlockKind = iota
	// Heading is a "#", "##" or "###" line; Level holds the depth.
	Heading
	// Bullet is a "- " or "* " list item.
	Bullet
	// Numbered is a "1. " style list item; the marker stays in the spans.
	Numbered
	// Spacer is a blank line.
	Spacer
)

// Style is the inline emphasis of a span.
type Style int

const (
	// Plain text.
	Plain Style = iota
	// Bold text from **...**.
	Bold
	// Italic text from *...*.
	Italic
)

// Span is a run of text with one style.
type Span struct {
	Style Style
	Text  string
}

// Block is one rendered line.
type Block struct {
	// Kind classifies the line.
	Kind BlockKind
	// Level is 1 to 3 for headings and 0 otherwise.
	Level int
	// Text is the heading text; headings are not inline-parsed.
	Text string
	// Spans holds inline content for bullets, numbered items and paragraphs.
	Spans []Span
}

// Document is a parsed reply, one block per source line.
type Document struct {
	Blocks []Block
}

var (
	boldPattern     = regexp.MustCompile(`\*\*.*?\*\*`)
	italicPattern   = regexp.MustCompile(`\*.*?\*`)
	numberedPattern = regexp.MustCompile(`^\d+\.\s`)
)

// headingPrefixes are tried in order; the longest must come first.
var headingPrefixes = []struct {
	prefix string
	level  int
}{
	{"### ", 3},
	{"## ", 2},
	{"# ", 1},
}

// Parse splits text into lines and classifies each one. The first matching
// rule wins: heading, bullet, numbered item, blank, paragraph.
func Parse(text string) Document {
	lines := strings.Split(text, "\n")
	doc := Document{Blocks: make([]Block, 0, len(lines))}
	for _, line := range lines {
		doc.Blocks = append(doc.Blocks, parseLine(line))
	}
	return doc
}

func parseLine(line string) Block {
	for _, heading := range headingPrefixes {
		if strings.HasPrefix(line, heading.prefix) {
			return Block{Kind: Heading, Level: heading.level, Text: strings.TrimPrefix(line, heading.prefix)}
		}
	}

	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ") {
		return Block{Kind: Bullet, Spans: ParseInline(trimmed[2:])}
	}
	if numberedPattern.MatchString(trimmed) {
		return Block{Kind: Numbered, Spans: ParseInline(line)}
	}
	if trimmed == "" {
		return Block{Kind: Spacer}
	}
	return Block{Kind: Paragraph, Spans: ParseInline(line)}
}

// ParseInline splits text into plain, bold and italic spans. Bold runs are
// found first; the remaining text is scanned for italics. Markers without a
// partner stay literal and adjacent plain runs are merged.
func ParseInline(text string) []Span {
	var spans []Span
	for _, part := range splitKeep(boldPattern, text) {
		if len(part) >= 4 && strings.HasPrefix(part, "**") && strings.HasSuffix(part, "**") {
			spans = appendSpan(spans, Span{Style: Bold, Text: part[2 : len(part)-2]})
			continue
		}
		for _, sub := range splitKeep(italicPattern, part) {
			if len(sub) > 2 && strings.HasPrefix(sub, "*") && strings.HasSuffix(sub, "*") {
				spans = appendSpan(spans, Span{Style: Italic, Text: sub[1 : len(sub)-1]})
				continue
			}
			spans = appendSpan(spans, Span{Style: Plain, Text: sub})
		}
	}
	return spans
}

// splitKeep splits text around every match of pattern, keeping the matches.
func splitKeep(pattern *regexp.Regexp, text string) []string {
	matches := pattern.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return []string{text}
	}
	parts := make([]string, 0, 2*len(matches)+1)
	last := 0
	for _, match := range matches {
		parts = append(parts, text[last:match[0]], text[match[0]:match[1]])
		last = match[1]
	}
	return append(parts, text[last:])
}

// appendSpan drops empty spans and merges consecutive plain text.
func appendSpan(spans []Span, span Span) []Span {
	if span.Text == "" {
		return spans
	}
	if span.Style == Plain && len(spans) > 0 && spans[len(spans)-1].Style == Plain {
		spans[len(spans)-1].Text += span.Text
		return spans
	}
	return append(spans, span)
}

// InlineText returns the spans' text without markers.
func InlineText(spans []Span) string {
	var builder strings.Builder
	for _, span := range spans {
		builder.WriteString(span.Text)
	}
	return builder.String()
}
