// Package query holds the conversation model and the streaming natural
// language query engine over a selected slice of the timeline.
package query

import "github.com/google/uuid"

// Role tags a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in a conversation.
type Message struct {
	ID      string
	Role    Role
	Content string
}

// Conversation is the committed message history. The answer currently being
// streamed lives in an Accumulator and is only committed here once its stream
// ends or is cancelled, so history entries are never mutated in place.
type Conversation struct {
	messages []Message
}

// Append adds a message and returns it.
func (c *Conversation) Append(role Role, content string) Message {
	msg := Message{ID: uuid.NewString(), Role: role, Content: content}
	c.messages = append(c.messages, msg)
	return msg
}

// Messages returns the committed history.
func (c *Conversation) Messages() []Message {
	return c.messages
}

// Len returns the number of committed messages.
func (c *Conversation) Len() int { return len(c.messages) }

// Reset discards the whole conversation.
func (c *Conversation) Reset() {
	c.messages = nil
}

// Commit appends the accumulator's answer as an assistant message. Partial
// answers are committed as-is; nothing is rolled back. Empty accumulators are
// dropped.
func (c *Conversation) Commit(acc *Accumulator) {
	if acc == nil || acc.Text() == "" {
		return
	}
	c.messages = append(c.messages, Message{
		ID:      acc.ID,
		Role:    RoleAssistant,
		Content: acc.Text(),
	})
}

// Render returns the history plus the live answer, when one exists. The live
// answer always renders as a single trailing assistant message.
func (c *Conversation) Render(acc *Accumulator) []Message {
	if acc == nil || acc.Text() == "" {
		return c.messages
	}
	out := make([]Message, 0, len(c.messages)+1)
	out = append(out, c.messages...)
	out = append(out, Message{ID: acc.ID, Role: RoleAssistant, Content: acc.Text()})
	return out
}

// Accumulator collects the single live assistant answer. Each delta replaces
// the rendered content with the cumulative concatenation so far, so the text
// grows monotonically.
type Accumulator struct {
	ID   string
	text string
}

// NewAccumulator creates an empty accumulator with a fresh message ID.
func NewAccumulator() *Accumulator {
	return &Accumulator{ID: uuid.NewString()}
}

// Apply appends a delta and returns the cumulative text.
func (a *Accumulator) Apply(delta string) string {
	a.text += delta
	return a.text
}

// Text returns the cumulative text so far.
func (a *Accumulator) Text() string { return a.text }
