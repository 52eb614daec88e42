package server

import (
	"html"

	"github.com/studybuddy/studybuddy/internal/conversation"
	"github.com/studybuddy/studybuddy/internal/markdown"
	"github.com/studybuddy/studybuddy/internal/study"
)

// messageView is a message plus its HTML and plain-text renderings.
type messageView struct {
	ID        string            `json:"id"`
	Role      conversation.Role `json:"role"`
	Text      string            `json:"text"`
	HTML      string            `json:"html"`
	Plain     string            `json:"plain"`
	Timestamp int64             `json:"timestamp"`
	IsError   bool              `json:"is_error"`
}

// conversationView is the JSON shape of a controller snapshot.
type conversationView struct {
	Mode     study.Mode         `json:"mode"`
	State    conversation.State `json:"state"`
	Welcome  string             `json:"welcome,omitempty"`
	Headline string             `json:"headline,omitempty"`
	Messages []messageView      `json:"messages"`
}

// modeView describes one selectable mode.
type modeView struct {
	Mode        study.Mode `json:"mode"`
	Label       string     `json:"label"`
	Prefix      string     `json:"prefix"`
	Headline    string     `json:"headline"`
	Welcome     string     `json:"welcome"`
	Placeholder string     `json:"placeholder"`
	Templates   []string   `json:"templates"`
}

// newMessageView renders model replies as Markdown and escapes user text.
func newMessageView(message conversation.Message) messageView {
	rendered := html.EscapeString(message.Text)
	plain := message.Text
	if message.Role == conversation.RoleModel && !message.IsError {
		doc := markdown.Parse(message.Text)
		rendered = markdown.HTML(doc)
		plain = markdown.PlainText(doc)
	}
	return messageView{
		ID:        message.ID,
		Role:      message.Role,
		Text:      message.Text,
		HTML:      rendered,
		Plain:     plain,
		Timestamp: message.Timestamp,
		IsError:   message.IsError,
	}
}

// newConversationView adds the empty-state copy when there are no messages.
func newConversationView(snapshot conversation.Snapshot) conversationView {
	view := conversationView{
		Mode:     snapshot.Mode,
		State:    snapshot.State,
		Messages: make([]messageView, 0, len(snapshot.Messages)),
	}
	for _, message := range snapshot.Messages {
		view.Messages = append(view.Messages, newMessageView(message))
	}
	if len(view.Messages) == 0 {
		view.Headline = snapshot.Mode.Headline()
		view.Welcome = snapshot.Mode.Welcome()
	}
	return view
}

func newModeViews() []modeView {
	modes := study.Modes()
	views := make([]modeView, 0, len(modes))
	for _, mode := range modes {
		views = append(views, modeView{
			Mode:        mode,
			Label:       mode.Label(),
			Prefix:      mode.Prefix(),
			Headline:    mode.Headline(),
			Welcome:     mode.Welcome(),
			Placeholder: mode.Placeholder(),
			Templates:   mode.Templates(),
		})
	}
	return views
}
