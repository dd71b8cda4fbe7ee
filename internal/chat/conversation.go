package chat

import "dial-chat/internal/llm"

// Conversation is the ordered transcript of one session. Insertion order is
// the order sent to the endpoint.
type Conversation struct {
	messages []llm.Message
}

func NewConversation() *Conversation {
	return &Conversation{}
}

func (c *Conversation) Add(message llm.Message) {
	c.messages = append(c.messages, message)
}

// Messages returns a copy of the transcript.
func (c *Conversation) Messages() []llm.Message {
	out := make([]llm.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Conversation) Len() int {
	return len(c.messages)
}
