package openai

import (
	"context"
	"errors"
	"iter"
	"sync"
	"time"

	"github.com/studybuddy/studybuddy/internal/llm"
)

// errStopped aborts a stream when the consumer stops ranging.
var errStopped = errors.New("stream consumer stopped")

// Provider opens chat sessions against an OpenAI-compatible gateway.
type Provider struct {
	// client performs the HTTP calls for every session.
	client *Client
}

// NewProvider builds a provider for the gateway at baseURL. headerTimeout is
// passed to NewClient.
func NewProvider(baseURL string, apiKey string, headerTimeout time.Duration) *Provider {
	return &Provider{client: NewClient(baseURL, apiKey, headerTimeout)}
}

// Name identifies the backend.
func (p *Provider) Name() string {
	return "openai"
}

// CreateSession starts a local history seeded with the system instruction.
// The gateway is stateless, so no request is made here.
func (p *Provider) CreateSession(_ context.Context, systemInstruction string, model string) (llm.Chat, error) {
	history := []Message{}
	if systemInstruction != "" {
		history = append(history, Message{Role: RoleSystem, Content: systemInstruction})
	}
	return &Session{client: p.client, model: model, history: history}, nil
}

// Session replays the accumulated turns on every request.
type Session struct {
	// client performs the streaming requests.
	client *Client
	// model is sent with every request.
	model string
	// mu guards history.
	mu sync.Mutex
	// history holds the system message and completed turns.
	history []Message
}

// History returns a copy of the recorded messages.
func (s *Session) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.history...)
}

// StreamTurn sends message with the prior history and yields content deltas.
// Only completed turns are appended to the history.
func (s *Session) StreamTurn(ctx context.Context, message string) iter.Seq2[llm.Fragment, error] {
	return func(yield func(llm.Fragment, error) bool) {
		s.mu.Lock()
		messages := append(append([]Message(nil), s.history...), Message{Role: RoleUser, Content: message})
		s.mu.Unlock()

		accumulator := NewStreamAccumulator()
		request := &ChatRequest{Model: s.model, Messages: messages}
		_, err := s.client.ChatCompletionsStream(ctx, request, func(event StreamResponse) error {
			accumulator.Apply(event)
			if !yield(llm.Fragment{Text: event.Text()}, nil) {
				return errStopped
			}
			return nil
		})
		if errors.Is(err, errStopped) {
			return
		}
		if err != nil {
			yield(llm.Fragment{}, err)
			return
		}

		s.mu.Lock()
		s.history = append(s.history, Message{Role: RoleUser, Content: message}, accumulator.Message())
		s.mu.Unlock()
	}
}
