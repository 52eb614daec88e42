package streamjson

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// Message represents the high-level message payload used in stream-json events.
type Message struct {
	// Role is user or model.
	Role string `json:"role"`
	// Content is a list of content blocks.
	Content []ContentBlock `json:"content"`
}

// ContentBlock is a single piece of message content.
type ContentBlock struct {
	// Type is always "text".
	Type string `json:"type"`
	// Text carries the block text.
	Text string `json:"text"`
}

// SystemEvent announces the session configuration before any turn.
type SystemEvent struct {
	// Type is always "system".
	Type string `json:"type"`
	// Subtype is "init".
	Subtype string `json:"subtype"`
	// Provider names the backend.
	Provider string `json:"provider"`
	// Model is the model identifier.
	Model string `json:"model"`
	// Mode is the study mode of the turn.
	Mode string `json:"mode"`
	// SessionID scopes the event to a session.
	SessionID string `json:"session_id"`
	// UUID uniquely identifies the event.
	UUID string `json:"uuid"`
}

// UserEvent echoes the submitted prompt.
type UserEvent struct {
	// Type is always "user".
	Type string `json:"type"`
	// Message carries the user message payload.
	Message Message `json:"message"`
	// SessionID scopes the event to a session.
	SessionID string `json:"session_id"`
	// UUID uniquely identifies the event.
	UUID string `json:"uuid"`
}

// DeltaEvent carries newly streamed reply text.
type DeltaEvent struct {
	// Type is always "text_delta".
	Type string `json:"type"`
	// Text is the text added since the previous delta.
	Text string `json:"text"`
	// SessionID scopes the event to a session.
	SessionID string `json:"session_id"`
}

// ModelEvent carries the finished reply.
type ModelEvent struct {
	// Type is always "model".
	Type string `json:"type"`
	// Message carries the reply payload.
	Message Message `json:"message"`
	// SessionID scopes the event to a session.
	SessionID string `json:"session_id"`
	// UUID uniquely identifies the event.
	UUID string `json:"uuid"`
	// Error marks the apology placeholder of a failed turn.
	Error bool `json:"error,omitempty"`
}

// ResultEvent represents the terminal stream-json result.
type ResultEvent struct {
	// Type is always "result".
	Type string `json:"type"`
	// Subtype is "success" or "error".
	Subtype string `json:"subtype"`
	// IsError reports whether the turn failed.
	IsError bool `json:"is_error"`
	// DurationMS is the total runtime in milliseconds.
	DurationMS int64 `json:"duration_ms"`
	// Result contains the final reply text.
	Result string `json:"result"`
	// SessionID scopes the event to a session.
	SessionID string `json:"session_id"`
	// UUID uniquely identifies the event.
	UUID string `json:"uuid"`
}

// Writer emits stream-json events as JSON Lines.
type Writer struct {
	writer io.Writer
}

// NewWriter constructs a stream-json writer.
func NewWriter(writer io.Writer) *Writer {
	return &Writer{writer: writer}
}

// Write emits a single event as a JSON line.
func (w *Writer) Write(event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal stream-json event: %w", err)
	}
	if _, err := w.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write stream-json event: %w", err)
	}
	return nil
}

// NewUUID returns a new UUID string for stream-json events.
func NewUUID() string {
	return uuid.NewString()
}

// BuildTextMessage constructs a message containing a single text block.
func BuildTextMessage(role string, text string) Message {
	return Message{
		Role:    role,
		Content: []ContentBlock{{Type: "text", Text: text}},
	}
}

// Emitter writes the events of one print-mode turn.
type Emitter struct {
	// writer emits JSONL events.
	writer *Writer
	// sessionID scopes every event.
	sessionID string
	// includePartials enables text_delta events.
	includePartials bool
	// sent is the length of accumulated text already emitted as deltas.
	sent int
	// started records when Init was called.
	started time.Time
}

// NewEmitter builds an emitter with a fresh session id.
func NewEmitter(writer io.Writer, includePartials bool) *Emitter {
	return &Emitter{
		writer:          NewWriter(writer),
		sessionID:       NewUUID(),
		includePartials: includePartials,
		started:         time.Now(),
	}
}

// SessionID returns the id stamped on every event.
func (e *Emitter) SessionID() string {
	return e.sessionID
}

// Init writes the system init event.
func (e *Emitter) Init(provider string, model string, mode string) error {
	e.started = time.Now()
	return e.writer.Write(SystemEvent{
		Type:      "system",
		Subtype:   "init",
		Provider:  provider,
		Model:     model,
		Mode:      mode,
		SessionID: e.sessionID,
		UUID:      NewUUID(),
	})
}

// User writes the submitted prompt.
func (e *Emitter) User(text string) error {
	return e.writer.Write(UserEvent{
		Type:      "user",
		Message:   BuildTextMessage("user", text),
		SessionID: e.sessionID,
		UUID:      NewUUID(),
	})
}

// Partial writes the suffix of accumulated not yet emitted.
func (e *Emitter) Partial(accumulated string) error {
	if !e.includePartials || len(accumulated) <= e.sent {
		return nil
	}
	delta := accumulated[e.sent:]
	e.sent = len(accumulated)
	return e.writer.Write(DeltaEvent{Type: "text_delta", Text: delta, SessionID: e.sessionID})
}

// Finish writes the reply and the result events.
func (e *Emitter) Finish(text string, isError bool) error {
	if err := e.writer.Write(ModelEvent{
		Type:      "model",
		Message:   BuildTextMessage("model", text),
		SessionID: e.sessionID,
		UUID:      NewUUID(),
		Error:     isError,
	}); err != nil {
		return err
	}
	subtype := "success"
	if isError {
		subtype = "error"
	}
	return e.writer.Write(ResultEvent{
		Type:       "result",
		Subtype:    subtype,
		IsError:    isError,
		DurationMS: time.Since(e.started).Milliseconds(),
		Result:     text,
		SessionID:  e.sessionID,
		UUID:       NewUUID(),
	})
}
