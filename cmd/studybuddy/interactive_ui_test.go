package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/studybuddy/studybuddy/internal/conversation"
	"github.com/studybuddy/studybuddy/internal/llm/scripted"
	"github.com/studybuddy/studybuddy/internal/study"
	"github.com/studybuddy/studybuddy/internal/testutil"
)

// TestHandleSlashCommandMode verifies mode commands switch modes.
func TestHandleSlashCommandMode(testingHandle *testing.T) {
	rt, _ := newTestRuntime(study.ModeExplain)

	result, handled := handleSlashCommand("/quiz", rt.controller)

	testutil.RequireTrue(testingHandle, handled, "handled")
	testutil.RequireEqual(testingHandle, rt.controller.Mode(), study.ModeQuiz, "mode")
	testutil.RequireStringContains(testingHandle, result.Output, "Generate Quiz", "label shown")
}

// TestHandleSlashCommandTemplate verifies a bare template only fills the draft.
func TestHandleSlashCommandTemplate(testingHandle *testing.T) {
	rt, provider := newTestRuntime(study.ModeSummarize)

	result, handled := handleSlashCommand("/template 2", rt.controller)
	testutil.RequireTrue(testingHandle, handled, "handled")
	testutil.RequireEqual(testingHandle, result.Submit, "", "nothing sent")
	testutil.RequireEqual(testingHandle, rt.controller.Draft(), study.ModeSummarize.Templates()[1], "draft is the template")
	testutil.RequireStringContains(testingHandle, result.Output, "Key takeaways from ...", "template shown")
	testutil.RequireEqual(testingHandle, len(provider.Messages()), 0, "no prompt sent")

	result, _ = handleSlashCommand("/template 9", rt.controller)
	testutil.RequireEqual(testingHandle, result.Submit, "", "no submit")
	testutil.RequireStringContains(testingHandle, result.Output, "1 to 4", "range hint")

	result, _ = handleSlashCommand("/template", rt.controller)
	testutil.RequireStringContains(testingHandle, result.Output, "4) ", "lists templates")
}

// TestHandleSlashCommandTemplateWithTopic verifies topics replace the placeholders.
func TestHandleSlashCommandTemplateWithTopic(testingHandle *testing.T) {
	rt, _ := newTestRuntime(study.ModeExplain)

	result, _ := handleSlashCommand("/template 1 black holes", rt.controller)
	testutil.RequireEqual(testingHandle, result.Submit, "Explain black holes like I'm 5 years old", "single topic")

	result, _ = handleSlashCommand("/t 4 mitosis | meiosis", rt.controller)
	testutil.RequireEqual(testingHandle, result.Submit, "Difference between mitosis and meiosis", "two topics")
}

// TestFillTemplate covers placeholder substitution edge cases.
func TestFillTemplate(testingHandle *testing.T) {
	testutil.RequireEqual(testingHandle, fillTemplate("Difference between ... and ...", "cells"), "Difference between cells and ...", "extra placeholder kept")
	testutil.RequireEqual(testingHandle, fillTemplate("How does ... work?", "a | b"), "How does a work?", "extra topic ignored")
	testutil.RequireEqual(testingHandle, fillTemplate("No placeholder", "x"), "No placeholder", "unchanged")
}

// TestRunLineModeTemplateSendsFilledPrompt verifies line mode sends the completed template.
func TestRunLineModeTemplateSendsFilledPrompt(testingHandle *testing.T) {
	rt, provider := newTestRuntime(study.ModeExplain, scripted.Turn{Fragments: []string{"ok"}})
	input := strings.NewReader("/template 1\n/template 1 gravity\n")
	var out bytes.Buffer

	err := runLineMode(context.Background(), rt.controller, input, &out, &out)

	testutil.RequireNoError(testingHandle, err, "line mode")
	testutil.RequireEqual(testingHandle, provider.Messages(), []string{
		study.ModeExplain.Prompt("Explain gravity like I'm 5 years old"),
	}, "only the filled template is sent")
}

// TestHandleSlashCommandUnknown verifies unknown commands are reported.
func TestHandleSlashCommandUnknown(testingHandle *testing.T) {
	rt, _ := newTestRuntime(study.ModeExplain)

	result, handled := handleSlashCommand("/nope", rt.controller)
	testutil.RequireTrue(testingHandle, handled, "handled")
	testutil.RequireStringContains(testingHandle, result.Output, "Unknown command: /nope", "output")
}

// TestHandleSlashCommandNonSlash verifies non-slash input is ignored.
func TestHandleSlashCommandNonSlash(testingHandle *testing.T) {
	rt, _ := newTestRuntime(study.ModeExplain)

	_, handled := handleSlashCommand("hello", rt.controller)
	testutil.RequireTrue(testingHandle, !handled, "not handled")
}

// TestHandleSlashCommandNewWhileGenerating verifies /new is refused mid-reply.
func TestHandleSlashCommandNewWhileGenerating(testingHandle *testing.T) {
	rt, _ := newTestRuntime(study.ModeExplain)
	_, err := rt.controller.Begin("atoms")
	testutil.RequireNoError(testingHandle, err, "begin")

	result, _ := handleSlashCommand("/new", rt.controller)

	testutil.RequireStringContains(testingHandle, result.Output, "Wait for the current reply", "busy message")
	testutil.RequireEqual(testingHandle, len(rt.controller.Snapshot().Messages), 2, "conversation kept")
}

// TestRunLineMode drives a quiz turn, a failure and /exit.
func TestRunLineMode(testingHandle *testing.T) {
	// Arrange.
	rt, provider := newTestRuntime(study.ModeExplain,
		scripted.Turn{Fragments: []string{"Q1: ...", " Q2: ..."}},
		scripted.Turn{Fragments: []string{"par"}, Err: errors.New("stream reset")},
	)
	input := strings.NewReader("/quiz\nPhotosynthesis\n\ncells\n/exit\nnever sent\n")
	var out bytes.Buffer
	var errOut bytes.Buffer

	// Act.
	err := runLineMode(context.Background(), rt.controller, input, &out, &errOut)

	// Assert.
	testutil.RequireNoError(testingHandle, err, "line mode")
	testutil.RequireStringContains(testingHandle, out.String(), "Q1: ... Q2: ...\n", "streamed reply")
	testutil.RequireStringContains(testingHandle, errOut.String(), conversation.Apology, "apology")
	testutil.RequireEqual(testingHandle, provider.Messages(), []string{
		study.ModeQuiz.Prompt("Photosynthesis"),
		study.ModeQuiz.Prompt("cells"),
	}, "prompts")
	testutil.RequireEqual(testingHandle, provider.Sessions(), 1, "one session")
}

// TestLineStreamPrinterSuffixes verifies only new text is printed.
func TestLineStreamPrinterSuffixes(testingHandle *testing.T) {
	var out bytes.Buffer
	printer := newLineStreamPrinter(&out, &out)
	snapshot := conversation.Snapshot{
		InFlightID: "m",
		Messages:   []conversation.Message{{ID: "m", Role: conversation.RoleModel, Text: "Hel"}},
	}

	printer.OnChange(snapshot)
	snapshot.Messages[0].Text = "Hello"
	printer.OnChange(snapshot)
	printer.OnChange(snapshot)
	printer.OnComplete(conversation.Message{Text: "Hello"})

	testutil.RequireEqual(testingHandle, out.String(), "Hello\n", "output")
}
