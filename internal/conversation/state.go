package conversation

import "fmt"

// State tracks whether a reply is streaming.
type State int

const (
	// Idle accepts a new submission.
	Idle State = iota
	// Generating has exactly one model message in flight.
	Generating
)

// String returns the lower-case state name.
func (s State) String() string {
	if s == Generating {
		return "generating"
	}
	return "idle"
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name written by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*s = Idle
	case "generating":
		*s = Generating
	default:
		return fmt.Errorf("unknown state %q", text)
	}
	return nil
}
