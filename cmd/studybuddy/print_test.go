package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/studybuddy/studybuddy/internal/agent"
	"github.com/studybuddy/studybuddy/internal/conversation"
	"github.com/studybuddy/studybuddy/internal/llm/scripted"
	"github.com/studybuddy/studybuddy/internal/session"
	"github.com/studybuddy/studybuddy/internal/study"
	"github.com/studybuddy/studybuddy/internal/testutil"
)

// newTestRuntime wires a runtime to a scripted provider.
func newTestRuntime(mode study.Mode, turns ...scripted.Turn) (*runtime, *scripted.Provider) {
	provider := scripted.NewProvider(scripted.WithTurns(turns...))
	store := session.NewStore(provider, study.SystemInstruction, study.DefaultModel)
	return &runtime{
		provider:   provider,
		model:      study.DefaultModel,
		controller: conversation.NewController(agent.NewRunner(store), mode),
	}, provider
}

// TestRunPrintModeText verifies the reply streams to stdout with the mode prefix applied.
func TestRunPrintModeText(testingHandle *testing.T) {
	// Arrange.
	rt, provider := newTestRuntime(study.ModeSummarize, scripted.Turn{Fragments: []string{"- one", "\n- two"}})
	var out bytes.Buffer

	// Act.
	err := runPrintMode(context.Background(), rt, &options{OutputFormat: "text"}, "my notes", &out)

	// Assert.
	testutil.RequireNoError(testingHandle, err, "print mode")
	testutil.RequireEqual(testingHandle, out.String(), "- one\n- two\n", "stdout")
	testutil.RequireEqual(testingHandle, provider.Messages(), []string{study.ModeSummarize.Prompt("my notes")}, "prompt")
}

// TestRunPrintModeTextFailure verifies the apology and a failing exit.
func TestRunPrintModeTextFailure(testingHandle *testing.T) {
	rt, _ := newTestRuntime(study.ModeExplain, scripted.Turn{Err: errors.New("dial tcp: refused")})
	var out bytes.Buffer

	err := runPrintMode(context.Background(), rt, &options{}, "gravity", &out)

	testutil.RequireErrorIs(testingHandle, err, errTurnFailed, "turn failed")
	testutil.RequireEqual(testingHandle, out.String(), conversation.Apology+"\n", "apology printed")
}

// TestRunPrintModeStreamJSON verifies the event sequence with partials.
func TestRunPrintModeStreamJSON(testingHandle *testing.T) {
	rt, _ := newTestRuntime(study.ModeQuiz, scripted.Turn{Fragments: []string{"Q1", " Q2"}})
	var out bytes.Buffer
	opts := &options{Print: true, OutputFormat: "stream-json", IncludePartialMessages: true}

	err := runPrintMode(context.Background(), rt, opts, "Photosynthesis", &out)

	testutil.RequireNoError(testingHandle, err, "stream-json")
	types := []string{}
	var last map[string]any
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		var event map[string]any
		testutil.RequireNoError(testingHandle, json.Unmarshal(scanner.Bytes(), &event), "decode event")
		types = append(types, event["type"].(string))
		last = event
	}
	testutil.RequireEqual(testingHandle, types, []string{"system", "user", "text_delta", "text_delta", "model", "result"}, "event types")
	testutil.RequireEqual(testingHandle, last["result"], "Q1 Q2", "result text")
}

// TestInFlightReply finds the streaming reply only while generating.
func TestInFlightReply(testingHandle *testing.T) {
	rt, _ := newTestRuntime(study.ModeExplain)
	_, ok := inFlightReply(rt.controller.Snapshot())
	testutil.RequireTrue(testingHandle, !ok, "idle has no reply")

	turn, err := rt.controller.Begin("atoms")
	testutil.RequireNoError(testingHandle, err, "begin")
	reply, ok := inFlightReply(rt.controller.Snapshot())
	testutil.RequireTrue(testingHandle, ok, "reply found")
	testutil.RequireEqual(testingHandle, reply.ID, turn.ModelID, "reply id")
}
