package markdown

import (
	"fmt"
	"html"
	"strings"
)

// PlainText renders doc without styling; headings and emphasis lose their
// markers and bullets use a dot glyph.
func PlainText(doc Document) string {
	lines := make([]string, 0, len(doc.Blocks))
	for _, block := range doc.Blocks {
		switch block.Kind {
		case Heading:
			lines = append(lines, block.Text)
		case Bullet:
			lines = append(lines, "  • "+InlineText(block.Spans))
		case Numbered:
			lines = append(lines, "  "+InlineText(block.Spans))
		case Spacer:
			lines = append(lines, "")
		default:
			lines = append(lines, InlineText(block.Spans))
		}
	}
	return strings.Join(lines, "\n")
}

// HTML renders doc as escaped HTML fragments for the web surface. Consecutive
// bullets share one list.
func HTML(doc Document) string {
	var builder strings.Builder
	inList := false
	for _, block := range doc.Blocks {
		if block.Kind != Bullet && inList {
			builder.WriteString("</ul>")
			inList = false
		}
		switch block.Kind {
		case Heading:
			level := clampLevel(block.Level)
			fmt.Fprintf(&builder, "<h%d>%s</h%d>", level, html.EscapeString(block.Text), level)
		case Bullet:
			if !inList {
				builder.WriteString("<ul>")
				inList = true
			}
			builder.WriteString("<li>" + inlineHTML(block.Spans) + "</li>")
		case Numbered:
			builder.WriteString(`<div class="numbered">` + inlineHTML(block.Spans) + "</div>")
		case Spacer:
			builder.WriteString(`<div class="spacer"></div>`)
		default:
			builder.WriteString("<p>" + inlineHTML(block.Spans) + "</p>")
		}
	}
	if inList {
		builder.WriteString("</ul>")
	}
	return builder.String()
}

func inlineHTML(spans []Span) string {
	var builder strings.Builder
	for _, span := range spans {
		escaped := html.EscapeString(span.Text)
		switch span.Style {
		case Bold:
			builder.WriteString("<strong>" + escaped + "</strong>")
		case Italic:
			builder.WriteString("<em>" + escaped + "</em>")
		default:
			builder.WriteString(escaped)
		}
	}
	return builder.String()
}
