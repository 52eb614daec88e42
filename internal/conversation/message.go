// Package conversation holds the visible chat and drives one turn at a time.
package conversation

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies who authored a message.
type Role string

const (
	// RoleUser marks a message typed by the student.
	RoleUser Role = "user"
	// RoleModel marks a reply from the assistant.
	RoleModel Role = "model"
)

// Apology replaces the reply text when a turn fails.
const Apology = "I'm having trouble connecting right now. Please try again."

// Message is one chat bubble.
type Message struct {
	// ID is a time-ordered UUIDv7.
	ID string `json:"id"`
	// Role is user or model.
	Role Role `json:"role"`
	// Text grows while a model reply streams and is fixed afterwards.
	Text string `json:"text"`
	// Timestamp is the creation time in unix milliseconds.
	Timestamp int64 `json:"timestamp"`
	// IsError marks a reply that failed.
	IsError bool `json:"is_error"`
}

// Time returns Timestamp as a time.Time.
func (m Message) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}

// newMessageID returns a UUIDv7, falling back to v4 if the clock source fails.
func newMessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func newMessage(role Role, text string, now time.Time) Message {
	return Message{
		ID:        newMessageID(),
		Role:      role,
		Text:      text,
		Timestamp: now.UnixMilli(),
	}
}
