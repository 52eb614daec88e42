package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/studybuddy/studybuddy/internal/agent"
	"github.com/studybuddy/studybuddy/internal/observability"
	"github.com/studybuddy/studybuddy/internal/study"
)

var (
	// ErrBusy is returned when an operation needs Idle but a reply is streaming.
	ErrBusy = errors.New("a reply is still being generated")
	// ErrBlankInput is returned when the submitted text is empty or whitespace.
	ErrBlankInput = errors.New("input is blank")

	errStreamClosed = errors.New("reply stream closed before completion")
)

// Snapshot is a consistent copy of the controller state for rendering.
type Snapshot struct {
	// Mode is the selected study mode.
	Mode study.Mode `json:"mode"`
	// State is idle or generating.
	State State `json:"state"`
	// Draft is the current input text.
	Draft string `json:"draft"`
	// Messages is the conversation in display order.
	Messages []Message `json:"messages"`
	// InFlightID is the streaming model message, empty when idle.
	InFlightID string `json:"in_flight_id,omitempty"`
}

// Turn identifies the messages created by Begin.
type Turn struct {
	// User is the submitted message.
	User Message
	// ModelID is the placeholder reply that will stream.
	ModelID string
	// Mode is the mode captured at submission.
	Mode study.Mode
}

// ChangeFunc observes every state change made by Submit.
type ChangeFunc func(Snapshot)

// Controller owns the mode, draft, conversation and turn state.
type Controller struct {
	// runner streams turns through the session store.
	runner *agent.Runner
	// now stamps new messages.
	now func() time.Time
	// mu guards every field below.
	mu sync.Mutex
	// mode selects prefix, templates and welcome text.
	mode study.Mode
	// draft is the input box text.
	draft string
	// state is Idle or Generating.
	state State
	// conversation is the visible message list.
	conversation Conversation
	// inFlight is the id of the streaming reply.
	inFlight string
}

// NewController builds an idle controller in mode.
func NewController(runner *agent.Runner, mode study.Mode) *Controller {
	if !mode.Valid() {
		mode = study.DefaultMode
	}
	return &Controller{runner: runner, now: time.Now, mode: mode}
}

// Mode returns the selected mode.
func (c *Controller) Mode() study.Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// SetMode switches modes; the conversation and session are untouched.
func (c *Controller) SetMode(mode study.Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %q", study.ErrUnknownMode, mode)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = mode
	return nil
}

// Draft returns the input text.
func (c *Controller) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// SetDraft replaces the input text.
func (c *Controller) SetDraft(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = text
}

// ApplyTemplate sets the draft to template index of the current mode.
func (c *Controller) ApplyTemplate(index int) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	template, err := c.mode.Template(index)
	if err != nil {
		return "", err
	}
	c.draft = template
	return template, nil
}

// State returns Idle or Generating.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CanSubmit reports whether the draft could be sent now.
func (c *Controller) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == Idle && strings.TrimSpace(c.draft) != ""
}

// Begin appends the user message and an empty reply, clears the draft and
// enters Generating.
func (c *Controller) Begin(text string) (Turn, error) {
	if strings.TrimSpace(text) == "" {
		return Turn{}, ErrBlankInput
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Generating {
		return Turn{}, ErrBusy
	}

	now := c.now()
	user := newMessage(RoleUser, text, now)
	model := newMessage(RoleModel, "", now)
	c.conversation.append(user, model)
	c.draft = ""
	c.state = Generating
	c.inFlight = model.ID
	return Turn{User: user, ModelID: model.ID, Mode: c.mode}, nil
}

// Update replaces the in-flight reply text. Updates for any other id, or
// after the turn ended, are dropped and report false.
func (c *Controller) Update(id string, text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isInFlight(id) {
		return false
	}
	return c.conversation.replace(id, text, false)
}

// Complete fixes the reply text and returns to Idle.
func (c *Controller) Complete(id string, text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isInFlight(id) {
		return false
	}
	c.conversation.replace(id, text, false)
	c.finish()
	return true
}

// Fail replaces the reply with the apology, flags it and returns to Idle.
// Partial text is discarded.
func (c *Controller) Fail(id string, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isInFlight(id) {
		return false
	}
	c.conversation.replace(id, Apology, true)
	c.finish()
	return true
}

// Submit runs one full turn: Begin, stream, then Complete or Fail. Stream
// failures become the apology message and are not returned; only ErrBlankInput
// and ErrBusy are, plus agent.ErrNoSessions when the controller has no runner.
// onChange, when set, sees every change.
func (c *Controller) Submit(ctx context.Context, text string, onChange ChangeFunc) (Message, error) {
	if c.runner == nil {
		return Message{}, agent.ErrNoSessions
	}
	turn, err := c.Begin(text)
	if err != nil {
		return Message{}, err
	}
	if observability.RequestID(ctx) == "" {
		ctx = observability.WithRequestID(ctx, observability.NewRequestID())
	}
	notify := func() {
		if onChange != nil {
			onChange(c.Snapshot())
		}
	}
	notify()

	var final agent.Snapshot
	for snapshot := range c.runner.Snapshots(ctx, text, turn.Mode) {
		if snapshot.Done {
			final = snapshot
			continue
		}
		if c.Update(turn.ModelID, snapshot.Text) {
			notify()
		}
	}
	if !final.Done {
		// The channel only closes early when ctx is cancelled.
		final.Err = ctx.Err()
		if final.Err == nil {
			final.Err = errStreamClosed
		}
	}
	if final.Err != nil {
		observability.LoggerFromContext(ctx).Warn("turn replaced with apology",
			"message_id", turn.ModelID,
			"error", final.Err,
		)
		c.Fail(turn.ModelID, final.Err)
	} else {
		c.Complete(turn.ModelID, final.Text)
	}
	notify()

	c.mu.Lock()
	defer c.mu.Unlock()
	message, _ := c.conversation.Find(turn.ModelID)
	return message, nil
}

// NewSession clears the conversation and discards the remote session. It is
// rejected with ErrBusy while a reply is streaming.
func (c *Controller) NewSession() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Generating {
		return ErrBusy
	}
	c.conversation.clear()
	if c.runner != nil && c.runner.Sessions != nil {
		c.runner.Sessions.Invalidate()
	}
	return nil
}

// Snapshot copies the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Mode:       c.mode,
		State:      c.state,
		Draft:      c.draft,
		Messages:   c.conversation.Messages(),
		InFlightID: c.inFlight,
	}
}

func (c *Controller) isInFlight(id string) bool {
	return c.state == Generating && id != "" && id == c.inFlight
}

func (c *Controller) finish() {
	c.state = Idle
	c.inFlight = ""
}
