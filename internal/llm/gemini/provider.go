// Package gemini adapts Google's genai chat sessions to the llm boundary.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"time"

	"google.golang.org/genai"

	"github.com/studybuddy/studybuddy/internal/llm"
)

// Options configure the genai client.
type Options struct {
	// APIKey authenticates against the Gemini API backend.
	APIKey string
	// Project selects the Vertex AI backend when set.
	Project string
	// Location is the Vertex AI region.
	Location string
	// HeaderTimeout bounds the wait for response headers; zero disables it.
	// Streamed bodies have no deadline.
	HeaderTimeout time.Duration
}

// Provider opens Gemini chat sessions.
type Provider struct {
	// client is shared by every session created through the provider.
	client *genai.Client
	// backend records which API the client talks to.
	backend genai.Backend
}

// NewProvider builds a genai client for the Gemini API or Vertex AI.
func NewProvider(ctx context.Context, opts Options) (*Provider, error) {
	cfg := &genai.ClientConfig{}
	if opts.Project != "" {
		cfg.Backend = genai.BackendVertexAI
		cfg.Project = opts.Project
		cfg.Location = opts.Location
	} else {
		if opts.APIKey == "" {
			return nil, errors.New("gemini api key is required")
		}
		cfg.Backend = genai.BackendGeminiAPI
		cfg.APIKey = opts.APIKey
	}
	if opts.HeaderTimeout > 0 {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.ResponseHeaderTimeout = opts.HeaderTimeout
		cfg.HTTPClient = &http.Client{Transport: transport}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Provider{client: client, backend: cfg.Backend}, nil
}

// Name reports the backend in use.
func (p *Provider) Name() string {
	if p.backend == genai.BackendVertexAI {
		return "gemini-vertex"
	}
	return "gemini"
}

// CreateSession opens a remote chat with the system instruction attached.
func (p *Provider) CreateSession(ctx context.Context, systemInstruction string, model string) (llm.Chat, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
	}
	chat, err := p.client.Chats.Create(ctx, model, config, nil)
	if err != nil {
		return nil, fmt.Errorf("create gemini chat: %w", err)
	}
	return &session{chat: chat}, nil
}

// session wraps a genai chat; history lives inside the SDK chat value.
type session struct {
	chat *genai.Chat
}

// StreamTurn forwards each streamed response's text as one fragment.
func (s *session) StreamTurn(ctx context.Context, message string) iter.Seq2[llm.Fragment, error] {
	return func(yield func(llm.Fragment, error) bool) {
		for resp, err := range s.chat.SendMessageStream(ctx, genai.Part{Text: message}) {
			if err != nil {
				yield(llm.Fragment{}, fmt.Errorf("gemini stream: %w", err))
				return
			}
			if !yield(llm.Fragment{Text: resp.Text()}, nil) {
				return
			}
		}
	}
}
