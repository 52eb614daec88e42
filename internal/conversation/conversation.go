package conversation

// Conversation is the ordered message list. Messages are only appended;
// replace edits the text of an existing message in place.
type Conversation struct {
	messages []Message
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	return len(c.messages)
}

// Messages returns a copy in display order.
func (c *Conversation) Messages() []Message {
	return append([]Message(nil), c.messages...)
}

// Find returns the message with id.
func (c *Conversation) Find(id string) (Message, bool) {
	if index := c.index(id); index >= 0 {
		return c.messages[index], true
	}
	return Message{}, false
}

func (c *Conversation) append(messages ...Message) {
	c.messages = append(c.messages, messages...)
}

// replace sets the text and error flag of message id.
func (c *Conversation) replace(id string, text string, isError bool) bool {
	index := c.index(id)
	if index < 0 {
		return false
	}
	c.messages[index].Text = text
	c.messages[index].IsError = isError
	return true
}

func (c *Conversation) clear() {
	c.messages = nil
}

// index scans from the end since the in-flight message is always last.
func (c *Conversation) index(id string) int {
	for index := len(c.messages) - 1; index >= 0; index-- {
		if c.messages[index].ID == id {
			return index
		}
	}
	return -1
}
