package openai

import (
	"strings"
)

// StreamAccumulator builds a full assistant message from streaming deltas.
type StreamAccumulator struct {
	// contentBuilder accumulates streamed text content.
	contentBuilder strings.Builder
	// finishReason stores the latest finish reason.
	finishReason string
	// usage stores token usage when provided.
	usage Usage
	// hasUsage reports whether usage was supplied.
	hasUsage bool
	// model records the model identifier.
	model string
	// id captures the request id.
	id string
}

// NewStreamAccumulator creates a new accumulator for a streaming response.
func NewStreamAccumulator() *StreamAccumulator {
	return &StreamAccumulator{}
}

// Apply ingests a streaming event and updates the accumulator state.
func (acc *StreamAccumulator) Apply(event StreamResponse) {
	if acc.id == "" && event.ID != "" {
		acc.id = event.ID
	}
	if acc.model == "" && event.Model != "" {
		acc.model = event.Model
	}
	if event.Usage != nil {
		acc.usage = *event.Usage
		acc.hasUsage = true
	}
	for _, choice := range event.Choices {
		if choice.Index != 0 {
			continue
		}
		acc.contentBuilder.WriteString(choice.Delta.Content)
		if choice.FinishReason != nil {
			acc.finishReason = *choice.FinishReason
		}
	}
}

// Text returns the text accumulated so far.
func (acc *StreamAccumulator) Text() string {
	return acc.contentBuilder.String()
}

// Message returns the aggregated assistant message.
func (acc *StreamAccumulator) Message() Message {
	return Message{Role: RoleAssistant, Content: acc.contentBuilder.String()}
}

// FinishReason returns the most recent finish reason.
func (acc *StreamAccumulator) FinishReason() string {
	return acc.finishReason
}

// Usage returns the final usage and whether it was provided.
func (acc *StreamAccumulator) Usage() (Usage, bool) {
	return acc.usage, acc.hasUsage
}

// Model returns the model identifier, if present.
func (acc *StreamAccumulator) Model() string {
	return acc.model
}

// ID returns the stream request id, if present.
func (acc *StreamAccumulator) ID() string {
	return acc.id
}
