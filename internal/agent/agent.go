// Package agent streams one study turn through the live session.
package agent

import (
	"errors"
	"time"

	"github.com/studybuddy/studybuddy/internal/session"
)

// ErrNoSessions is returned when a Runner has no session store.
var ErrNoSessions = errors.New("session store is required")

// TextHandler receives the accumulated reply after every non-empty fragment.
// Returning an error aborts the turn.
type TextHandler func(accumulated string) error

// RunResult captures the outcome of a single user turn.
type RunResult struct {
	// Text is the full reply.
	Text string
	// Fragments counts the non-empty fragments received.
	Fragments int
	// Duration is the wall time of the turn.
	Duration time.Duration
}

// Runner sends prompts through the session store.
type Runner struct {
	// Sessions provides the live chat.
	Sessions *session.Store
}

// NewRunner builds a runner over store.
func NewRunner(store *session.Store) *Runner {
	return &Runner{Sessions: store}
}
