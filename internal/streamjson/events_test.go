package streamjson

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"

	"github.com/studybuddy/studybuddy/internal/testutil"
)

// decodeLines parses every JSONL line into a generic map.
func decodeLines(testingHandle *testing.T, data []byte) []map[string]any {
	testingHandle.Helper()
	var events []map[string]any
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		var event map[string]any
		testutil.RequireNoError(testingHandle, json.Unmarshal(scanner.Bytes(), &event), "decode line")
		events = append(events, event)
	}
	return events
}

// TestEmitterTurnSequence verifies the event order and delta suffixes.
func TestEmitterTurnSequence(testingHandle *testing.T) {
	// Arrange.
	var buffer bytes.Buffer
	emitter := NewEmitter(&buffer, true)

	// Act.
	testutil.RequireNoError(testingHandle, emitter.Init("scripted", "gemini-2.5-flash", "QUIZ"), "init")
	testutil.RequireNoError(testingHandle, emitter.User("Photosynthesis"), "user")
	testutil.RequireNoError(testingHandle, emitter.Partial("Q1: ..."), "first partial")
	testutil.RequireNoError(testingHandle, emitter.Partial("Q1: ... Q2: ..."), "second partial")
	testutil.RequireNoError(testingHandle, emitter.Partial("Q1: ... Q2: ..."), "repeated partial")
	testutil.RequireNoError(testingHandle, emitter.Finish("Q1: ... Q2: ...", false), "finish")

	// Assert.
	events := decodeLines(testingHandle, buffer.Bytes())
	types := make([]string, 0, len(events))
	for _, event := range events {
		types = append(types, event["type"].(string))
		testutil.RequireEqual(testingHandle, event["session_id"], emitter.SessionID(), "session id on every event")
	}
	testutil.RequireEqual(testingHandle, types, []string{"system", "user", "text_delta", "text_delta", "model", "result"}, "event order")
	testutil.RequireEqual(testingHandle, events[2]["text"], "Q1: ...", "first delta")
	testutil.RequireEqual(testingHandle, events[3]["text"], " Q2: ...", "second delta")
	testutil.RequireEqual(testingHandle, events[5]["subtype"], "success", "result subtype")
	testutil.RequireEqual(testingHandle, events[5]["result"], "Q1: ... Q2: ...", "result text")
}

// TestEmitterWithoutPartials verifies deltas are suppressed and errors flagged.
func TestEmitterWithoutPartials(testingHandle *testing.T) {
	var buffer bytes.Buffer
	emitter := NewEmitter(&buffer, false)

	testutil.RequireNoError(testingHandle, emitter.Partial("ignored"), "partial")
	testutil.RequireNoError(testingHandle, emitter.Finish("sorry", true), "finish")

	events := decodeLines(testingHandle, buffer.Bytes())
	testutil.RequireEqual(testingHandle, len(events), 2, "model and result only")
	testutil.RequireEqual(testingHandle, events[0]["error"], true, "model error flag")
	testutil.RequireEqual(testingHandle, events[1]["subtype"], "error", "result subtype")
	testutil.RequireEqual(testingHandle, events[1]["is_error"], true, "result error flag")
}

// TestBuildTextMessage verifies a single text block.
func TestBuildTextMessage(testingHandle *testing.T) {
	message := BuildTextMessage("user", "hello")
	testutil.RequireEqual(testingHandle, message, Message{Role: "user", Content: []ContentBlock{{Type: "text", Text: "hello"}}}, "message")
}
