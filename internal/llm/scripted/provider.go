// Package scripted replays canned replies through the llm boundary.
package scripted

import (
	"context"
	"errors"
	"iter"
	"strings"
	"sync"
	"time"

	"github.com/studybuddy/studybuddy/internal/llm"
)

// ErrScriptExhausted is returned when a chat receives more turns than scripted.
var ErrScriptExhausted = errors.New("scripted replies exhausted")

// Turn describes one scripted reply.
type Turn struct {
	// Fragments are yielded in order.
	Fragments []string
	// Err, when set, is yielded after the fragments.
	Err error
}

// Provider hands out chats that replay the same script.
type Provider struct {
	// mu guards every field below.
	mu sync.Mutex
	// turns is consumed one entry per StreamTurn across all chats.
	turns []Turn
	// fallback answers turns once the script runs out; nil means fail.
	fallback func(message string) Turn
	// delay is slept before each fragment.
	delay time.Duration
	// createErr fails CreateSession when set.
	createErr error
	// sessions counts CreateSession calls.
	sessions int
	// sessionArgs records the instruction and model of each session.
	sessionArgs []SessionArgs
	// messages records every message sent.
	messages []string
}

// SessionArgs records how a session was created.
type SessionArgs struct {
	SystemInstruction string
	Model             string
}

// Option configures a Provider.
type Option func(*Provider)

// WithTurns queues replies.
func WithTurns(turns ...Turn) Option {
	return func(p *Provider) {
		p.turns = append(p.turns, turns...)
	}
}

// WithFallback answers unscripted turns.
func WithFallback(fallback func(message string) Turn) Option {
	return func(p *Provider) {
		p.fallback = fallback
	}
}

// WithDelay paces fragment delivery.
func WithDelay(delay time.Duration) Option {
	return func(p *Provider) {
		p.delay = delay
	}
}

// WithCreateError makes CreateSession fail.
func WithCreateError(err error) Option {
	return func(p *Provider) {
		p.createErr = err
	}
}

// NewProvider builds a scripted provider.
func NewProvider(opts ...Option) *Provider {
	provider := &Provider{}
	for _, opt := range opts {
		opt(provider)
	}
	return provider
}

// Demo returns a provider that echoes the prompt back as a short Markdown
// reply, paced like a real stream.
func Demo() *Provider {
	return NewProvider(
		WithDelay(40*time.Millisecond),
		WithFallback(func(message string) Turn {
			return Turn{Fragments: []string{
				"### Offline demo\n",
				"You asked: **" + strings.TrimSpace(message) + "**\n",
				"- This reply is *scripted*.\n",
				"- Configure a provider for real answers.",
			}}
		}),
	)
}

// Name identifies the backend.
func (p *Provider) Name() string {
	return "scripted"
}

// CreateSession records the call and returns a replaying chat.
func (p *Provider) CreateSession(_ context.Context, systemInstruction string, model string) (llm.Chat, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.createErr != nil {
		return nil, p.createErr
	}
	p.sessions++
	p.sessionArgs = append(p.sessionArgs, SessionArgs{SystemInstruction: systemInstruction, Model: model})
	return &chat{provider: p}, nil
}

// Sessions reports how many sessions were created.
func (p *Provider) Sessions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessions
}

// SessionArgs returns the arguments of every CreateSession call.
func (p *Provider) SessionArgs() []SessionArgs {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]SessionArgs(nil), p.sessionArgs...)
}

// Messages returns every message sent so far.
func (p *Provider) Messages() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.messages...)
}

// next pops the next scripted turn for message.
func (p *Provider) next(message string) (Turn, time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, message)
	if len(p.turns) > 0 {
		turn := p.turns[0]
		p.turns = p.turns[1:]
		return turn, p.delay
	}
	if p.fallback != nil {
		return p.fallback(message), p.delay
	}
	return Turn{Err: ErrScriptExhausted}, p.delay
}

type chat struct {
	provider *Provider
}

func (c *chat) StreamTurn(ctx context.Context, message string) iter.Seq2[llm.Fragment, error] {
	return func(yield func(llm.Fragment, error) bool) {
		turn, delay := c.provider.next(message)
		for _, text := range turn.Fragments {
			if delay > 0 {
				select {
				case <-ctx.Done():
					yield(llm.Fragment{}, ctx.Err())
					return
				case <-time.After(delay):
				}
			}
			if !yield(llm.Fragment{Text: text}, nil) {
				return
			}
		}
		if turn.Err != nil {
			yield(llm.Fragment{}, turn.Err)
		}
	}
}
