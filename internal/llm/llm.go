// Package llm defines the boundary between StudyBuddy and a hosted chat model.
package llm

import (
	"context"
	"iter"
)

// Fragment is one incremental piece of a streamed reply.
type Fragment struct {
	// Text is the newly generated text; it may be empty.
	Text string
}

// Chat is a live remote session that keeps turn history on the provider side.
type Chat interface {
	// StreamTurn sends message as the next user turn and yields reply fragments
	// in arrival order. A yielded error ends the turn.
	StreamTurn(ctx context.Context, message string) iter.Seq2[Fragment, error]
}

// Provider creates remote chat sessions.
type Provider interface {
	// Name identifies the backend in logs and the doctor command.
	Name() string
	// CreateSession opens a chat configured with the system instruction and model.
	CreateSession(ctx context.Context, systemInstruction string, model string) (Chat, error)
}
