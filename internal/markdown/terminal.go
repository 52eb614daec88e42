package markdown

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

// Theme holds the lipgloss styles used for terminal output.
type Theme struct {
	// Headings are indexed by level minus one.
	Headings [3]lipgloss.Style
	// Bold styles **strong** spans.
	Bold lipgloss.Style
	// Italic styles *emphasis* spans.
	Italic lipgloss.Style
	// Marker styles the bullet glyph.
	Marker lipgloss.Style
	// Numbered styles numbered list items.
	Numbered lipgloss.Style
}

// DefaultTheme mirrors the indigo palette of the web UI.
func DefaultTheme() Theme {
	return Theme{
		Headings: [3]lipgloss.Style{
			lipgloss.NewStyle().Bold(true).Underline(true).Foreground(lipgloss.AdaptiveColor{Light: "#312E81", Dark: "#C7D2FE"}),
			lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#3730A3", Dark: "#A5B4FC"}),
			lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#4338CA", Dark: "#818CF8"}),
		},
		Bold:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#312E81", Dark: "#E0E7FF"}),
		Italic:   lipgloss.NewStyle().Italic(true),
		Marker:   lipgloss.NewStyle().Foreground(lipgloss.Color("#6366F1")),
		Numbered: lipgloss.NewStyle().Bold(true),
	}
}

// TerminalRenderer renders documents as styled, word-wrapped terminal text.
type TerminalRenderer struct {
	// Theme supplies the styles.
	Theme Theme
	// Width wraps lines when positive.
	Width int
}

// NewTerminalRenderer builds a renderer with the default theme.
func NewTerminalRenderer(width int) *TerminalRenderer {
	return &TerminalRenderer{Theme: DefaultTheme(), Width: width}
}

// RenderString parses and renders text.
func (r *TerminalRenderer) RenderString(text string) string {
	return r.Render(Parse(text))
}

// Render returns one or more output lines per block joined by newlines.
func (r *TerminalRenderer) Render(doc Document) string {
	lines := make([]string, 0, len(doc.Blocks))
	for _, block := range doc.Blocks {
		switch block.Kind {
		case Heading:
			style := r.Theme.Headings[clampLevel(block.Level)-1]
			lines = append(lines, hang(r.wrap(block.Text, 0), "", "", style))
		case Bullet:
			marker := "  " + r.Theme.Marker.Render("•") + " "
			lines = append(lines, hang(r.wrap(r.inline(block.Spans), 4), marker, "    ", lipgloss.NewStyle()))
		case Numbered:
			lines = append(lines, hang(r.wrap(r.inline(block.Spans), 2), "  ", "  ", r.Theme.Numbered))
		case Spacer:
			lines = append(lines, "")
		default:
			lines = append(lines, r.wrap(r.inline(block.Spans), 0))
		}
	}
	return strings.Join(lines, "\n")
}

// inline styles each span.
func (r *TerminalRenderer) inline(spans []Span) string {
	var builder strings.Builder
	for _, span := range spans {
		switch span.Style {
		case Bold:
			builder.WriteString(r.Theme.Bold.Render(span.Text))
		case Italic:
			builder.WriteString(r.Theme.Italic.Render(span.Text))
		default:
			builder.WriteString(span.Text)
		}
	}
	return builder.String()
}

// wrap word-wraps text to the renderer width minus indent.
func (r *TerminalRenderer) wrap(text string, indent int) string {
	limit := r.Width - indent
	if r.Width <= 0 || limit < 8 {
		return text
	}
	return wordwrap.String(text, limit)
}

// hang prefixes the first wrapped line with first and the rest with rest,
// styling each line's content with style.
func hang(text string, first string, rest string, style lipgloss.Style) string {
	lines := strings.Split(text, "\n")
	for index, line := range lines {
		prefix := rest
		if index == 0 {
			prefix = first
		}
		lines[index] = prefix + style.Render(line)
	}
	return strings.Join(lines, "\n")
}

func clampLevel(level int) int {
	if level < 1 {
		return 1
	}
	if level > 3 {
		return 3
	}
	return level
}
