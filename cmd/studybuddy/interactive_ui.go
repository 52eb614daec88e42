package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/studybuddy/studybuddy/internal/conversation"
	"github.com/studybuddy/studybuddy/internal/study"
)

// lineStreamPrinter renders streaming replies for line mode.
type lineStreamPrinter struct {
	// out is the primary output writer for reply text.
	out io.Writer
	// errOut receives apologies and command errors.
	errOut io.Writer
	// written counts reply bytes already printed.
	written int
	// lineOpen tracks whether a streaming line is in progress.
	lineOpen bool
}

// newLineStreamPrinter constructs a printer for line mode.
func newLineStreamPrinter(out io.Writer, errOut io.Writer) *lineStreamPrinter {
	return &lineStreamPrinter{out: out, errOut: errOut}
}

// Reset clears state before a new reply begins.
func (p *lineStreamPrinter) Reset() {
	p.written = 0
	p.lineOpen = false
}

// EnsureNewline terminates a streaming line if one is active.
func (p *lineStreamPrinter) EnsureNewline() {
	if !p.lineOpen {
		return
	}
	fmt.Fprintln(p.out)
	p.lineOpen = false
}

// OnChange prints the part of the in-flight reply not yet shown.
func (p *lineStreamPrinter) OnChange(snapshot conversation.Snapshot) {
	reply, ok := inFlightReply(snapshot)
	if !ok || len(reply.Text) <= p.written {
		return
	}
	fmt.Fprint(p.out, reply.Text[p.written:])
	p.written = len(reply.Text)
	p.lineOpen = true
}

// OnComplete ends the reply; failures print the apology.
func (p *lineStreamPrinter) OnComplete(final conversation.Message) {
	p.EnsureNewline()
	if final.IsError {
		fmt.Fprintln(p.errOut, final.Text)
	}
}

// slashResult is the outcome of a slash command.
type slashResult struct {
	// Output is printed to the user.
	Output string
	// Submit is sent as a prompt when set.
	Submit string
	// Exit ends the session.
	Exit bool
}

// lineHelp lists the line-mode commands.
const lineHelp = `Commands:
  /explain /summarize /quiz   switch mode
  /template N                 put template N (1-4) of the current mode in the draft
  /template N topic           fill ... with topic and send (separate topics with |)
  /new                        start a new session
  /help                       show this help
  /exit                       quit`

// handleSlashCommand applies a slash command to controller. Non-slash input
// is not handled.
func handleSlashCommand(line string, controller *conversation.Controller) (slashResult, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "/") {
		return slashResult{}, false
	}
	parts := strings.Fields(strings.TrimPrefix(trimmed, "/"))
	if len(parts) == 0 {
		return slashResult{}, false
	}

	command := strings.ToLower(parts[0])
	switch command {
	case "help", "?":
		return slashResult{Output: lineHelp}, true
	case "exit", "quit":
		return slashResult{Exit: true}, true
	case "new", "reset":
		if err := controller.NewSession(); err != nil {
			return slashResult{Output: formatInteractiveError(err)}, true
		}
		return slashResult{Output: "Started a new session.\n" + controller.Mode().Welcome()}, true
	case "template", "t":
		if len(parts) < 2 {
			return slashResult{Output: formatTemplates(controller.Mode())}, true
		}
		number, err := strconv.Atoi(parts[1])
		if err != nil {
			return slashResult{Output: formatInteractiveError(study.ErrTemplateIndex)}, true
		}
		template, err := controller.ApplyTemplate(number - 1)
		if err != nil {
			return slashResult{Output: formatInteractiveError(err)}, true
		}
		if len(parts) == 2 {
			return slashResult{Output: fmt.Sprintf("Draft: %s\nType your prompt, or use /template %d <topic> to fill in the ...", template, number)}, true
		}
		return slashResult{Submit: fillTemplate(template, strings.Join(parts[2:], " "))}, true
	}

	mode, err := study.ParseMode(command)
	if err != nil {
		return slashResult{Output: fmt.Sprintf("Unknown command: /%s (try /help)", command)}, true
	}
	if err := controller.SetMode(mode); err != nil {
		return slashResult{Output: formatInteractiveError(err)}, true
	}
	return slashResult{Output: fmt.Sprintf("Mode: %s\n%s", mode.Label(), mode.Welcome())}, true
}

// templatePlaceholder marks where a topic goes in a template.
const templatePlaceholder = "..."

// fillTemplate replaces placeholders in order with the |-separated topics.
// Placeholders beyond the last topic are left as they are.
func fillTemplate(template string, topics string) string {
	var builder strings.Builder
	rest := template
	for _, topic := range strings.Split(topics, "|") {
		index := strings.Index(rest, templatePlaceholder)
		if index < 0 {
			break
		}
		builder.WriteString(rest[:index])
		builder.WriteString(strings.TrimSpace(topic))
		rest = rest[index+len(templatePlaceholder):]
	}
	builder.WriteString(rest)
	return builder.String()
}

// formatTemplates numbers the templates of mode.
func formatTemplates(mode study.Mode) string {
	var builder strings.Builder
	builder.WriteString("Templates:")
	for i, template := range mode.Templates() {
		fmt.Fprintf(&builder, "\n  %d) %s", i+1, template)
	}
	return builder.String()
}

// runLineMode reads one prompt per line until EOF or /exit.
func runLineMode(ctx context.Context, controller *conversation.Controller, in io.Reader, out io.Writer, errOut io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	printer := newLineStreamPrinter(out, errOut)

	mode := controller.Mode()
	fmt.Fprintf(out, "%s\n%s\n%s\n", mode.Headline(), mode.Welcome(), "Type /help for commands.")
	for {
		fmt.Fprintf(out, "\n[%s] > ", controller.Mode())
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		prompt := line
		if result, handled := handleSlashCommand(line, controller); handled {
			if result.Exit {
				return nil
			}
			if result.Output != "" {
				fmt.Fprintln(out, result.Output)
			}
			if result.Submit == "" {
				continue
			}
			prompt = result.Submit
			fmt.Fprintln(out, prompt)
		}

		printer.Reset()
		final, err := controller.Submit(ctx, prompt, printer.OnChange)
		if err != nil {
			fmt.Fprintln(errOut, formatInteractiveError(err))
			continue
		}
		printer.OnComplete(final)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}

// formatInteractiveError turns controller errors into short user messages.
func formatInteractiveError(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, conversation.ErrBusy):
		return "Wait for the current reply to finish."
	case errors.Is(err, conversation.ErrBlankInput):
		return "Type a question or paste some notes first."
	case errors.Is(err, study.ErrTemplateIndex):
		return "Templates are numbered 1 to 4."
	case errors.Is(err, study.ErrUnknownMode):
		return "Modes are explain, summarize and quiz."
	default:
		return err.Error()
	}
}
