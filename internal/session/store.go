// Package session owns the single lazily created remote chat.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/studybuddy/studybuddy/internal/llm"
	"github.com/studybuddy/studybuddy/internal/observability"
)

// Store holds at most one live chat and recreates it on demand.
type Store struct {
	// provider creates remote chats.
	provider llm.Provider
	// systemInstruction configures every chat.
	systemInstruction string
	// model is the model identifier passed to the provider.
	model string
	// mu guards chat and generation.
	mu sync.Mutex
	// chat is the live handle, nil when absent.
	chat llm.Chat
	// generation identifies the live chat in logs.
	generation string
}

// NewStore builds an empty store.
func NewStore(provider llm.Provider, systemInstruction string, model string) *Store {
	return &Store{
		provider:          provider,
		systemInstruction: systemInstruction,
		model:             model,
	}
}

// Model returns the configured model identifier.
func (s *Store) Model() string {
	return s.model
}

// Current returns the live chat and its generation id, or nil when absent.
func (s *Store) Current() (llm.Chat, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chat, s.generation
}

// Ensure returns the live chat, creating it first when absent.
func (s *Store) Ensure(ctx context.Context) (llm.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chat != nil {
		return s.chat, nil
	}
	if s.provider == nil {
		return nil, errors.New("llm provider is required")
	}

	chat, err := s.provider.CreateSession(ctx, s.systemInstruction, s.model)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.chat = chat
	s.generation = uuid.NewString()
	observability.LoggerFromContext(ctx).Info("session created",
		"generation", s.generation,
		"provider", s.provider.Name(),
		"model", s.model,
	)
	return chat, nil
}

// Invalidate drops the live chat. Repeated calls are no-ops.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chat == nil {
		return
	}
	observability.Logger().Info("session invalidated", "generation", s.generation)
	s.chat = nil
	s.generation = ""
}
