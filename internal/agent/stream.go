package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/studybuddy/studybuddy/internal/observability"
	"github.com/studybuddy/studybuddy/internal/study"
)

// RunStream sends the mode-prefixed prompt and reports the growing reply.
// On error onText has already seen whatever text arrived before the failure.
func (r *Runner) RunStream(
	ctx context.Context,
	prompt string,
	mode study.Mode,
	onText TextHandler,
) (*RunResult, error) {
	if r.Sessions == nil {
		return nil, ErrNoSessions
	}

	log := observability.LoggerFromContext(ctx).With("mode", mode.String())
	chat, err := r.Sessions.Ensure(ctx)
	if err != nil {
		log.Error("turn failed", "stage", "session", "error", err)
		return nil, err
	}

	startTime := time.Now()
	log.Debug("turn started", "prompt_chars", len(prompt))

	var accumulated strings.Builder
	fragments := 0
	for fragment, err := range chat.StreamTurn(ctx, mode.Prompt(prompt)) {
		if err != nil {
			log.Error("turn failed",
				"stage", "stream",
				"fragments", fragments,
				"error", err,
			)
			return nil, fmt.Errorf("stream turn: %w", err)
		}
		if fragment.Text == "" {
			continue
		}
		accumulated.WriteString(fragment.Text)
		fragments++
		if onText != nil {
			if err := onText(accumulated.String()); err != nil {
				return nil, fmt.Errorf("text callback: %w", err)
			}
		}
	}

	result := &RunResult{
		Text:      accumulated.String(),
		Fragments: fragments,
		Duration:  time.Since(startTime),
	}
	log.Info("turn finished",
		"fragments", result.Fragments,
		"chars", len(result.Text),
		"elapsed_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}

// Snapshot is one update of a streamed turn.
type Snapshot struct {
	// Text is the accumulated reply so far, or the full reply when Done.
	Text string
	// Done marks the final snapshot.
	Done bool
	// Err is set on the final snapshot of a failed turn.
	Err error
}

// Snapshots runs RunStream in a goroutine and delivers each accumulation on
// the returned channel. The last value has Done set; the channel then closes.
// Cancelling ctx stops delivery.
func (r *Runner) Snapshots(ctx context.Context, prompt string, mode study.Mode) <-chan Snapshot {
	out := make(chan Snapshot)
	send := func(snapshot Snapshot) error {
		select {
		case out <- snapshot:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	go func() {
		defer close(out)
		result, err := r.RunStream(ctx, prompt, mode, func(accumulated string) error {
			return send(Snapshot{Text: accumulated})
		})
		if err != nil {
			_ = send(Snapshot{Done: true, Err: err})
			return
		}
		_ = send(Snapshot{Text: result.Text, Done: true})
	}()
	return out
}
