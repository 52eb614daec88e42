package scripted

import (
	"context"
	"errors"
	"testing"

	"github.com/studybuddy/studybuddy/internal/testutil"
)

// TestReplaysTurnsInOrder verifies fragments and trailing errors are replayed.
func TestReplaysTurnsInOrder(testingHandle *testing.T) {
	boom := errors.New("boom")
	provider := NewProvider(WithTurns(
		Turn{Fragments: []string{"a", "b"}},
		Turn{Fragments: []string{"partial"}, Err: boom},
	))
	chat, err := provider.CreateSession(context.Background(), "sys", "model")
	testutil.RequireNoError(testingHandle, err, "create session")

	var first []string
	for fragment, err := range chat.StreamTurn(context.Background(), "one") {
		testutil.RequireNoError(testingHandle, err, "first turn")
		first = append(first, fragment.Text)
	}
	testutil.RequireEqual(testingHandle, first, []string{"a", "b"}, "first turn fragments")

	var gotErr error
	for _, err := range chat.StreamTurn(context.Background(), "two") {
		if err != nil {
			gotErr = err
		}
	}
	testutil.RequireErrorIs(testingHandle, gotErr, boom, "second turn error")

	for _, err := range chat.StreamTurn(context.Background(), "three") {
		gotErr = err
	}
	testutil.RequireErrorIs(testingHandle, gotErr, ErrScriptExhausted, "exhausted script")
	testutil.RequireEqual(testingHandle, provider.Messages(), []string{"one", "two", "three"}, "recorded messages")
	testutil.RequireEqual(testingHandle, provider.SessionArgs(), []SessionArgs{{SystemInstruction: "sys", Model: "model"}}, "session args")
}

// TestDemoEchoesPrompt verifies the offline demo mentions the prompt.
func TestDemoEchoesPrompt(testingHandle *testing.T) {
	provider := NewProvider(WithFallback(Demo().fallback))
	chat, err := provider.CreateSession(context.Background(), "", "")
	testutil.RequireNoError(testingHandle, err, "create session")

	text := ""
	for fragment, err := range chat.StreamTurn(context.Background(), "Photosynthesis") {
		testutil.RequireNoError(testingHandle, err, "demo turn")
		text += fragment.Text
	}
	testutil.RequireStringContains(testingHandle, text, "**Photosynthesis**", "demo reply")
}
