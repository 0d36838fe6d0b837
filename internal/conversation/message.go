// ABOUTME: Conversation data model: messages, tool calls, and their invariants
// ABOUTME: A conversation is an ordered slice of messages with at most one streaming

package conversation

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// ToolStatus is the lifecycle state of a tool call.
type ToolStatus string

const (
	ToolPending   ToolStatus = "pending"
	ToolRunning   ToolStatus = "running"
	ToolCompleted ToolStatus = "completed"
	ToolError     ToolStatus = "error"
)

// ToolCall mirrors one tool invocation requested by the model.
type ToolCall struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Input  map[string]any  `json:"input"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
	Status ToolStatus      `json:"status"`
}

// Message is one entry of a conversation.
type Message struct {
	ID          string     `json:"id"`
	Role        Role       `json:"role"`
	Content     string     `json:"content"`
	Timestamp   time.Time  `json:"timestamp"`
	Thinking    *string    `json:"thinking,omitempty"`
	ToolCalls   []ToolCall `json:"toolCalls"`
	IsStreaming bool       `json:"isStreaming"`
}

// NewUserMessage creates a settled user message.
func NewUserMessage(text string, now time.Time) Message {
	return Message{
		ID:        uuid.New().String(),
		Role:      RoleUser,
		Content:   text,
		Timestamp: now,
		ToolCalls: []ToolCall{},
	}
}

// NewPlaceholder creates the empty streaming assistant message that receives
// the deltas of a response.
func NewPlaceholder(now time.Time) Message {
	return Message{
		ID:          uuid.New().String(),
		Role:        RoleAssistant,
		Timestamp:   now,
		ToolCalls:   []ToolCall{},
		IsStreaming: true,
	}
}

// HasContent reports whether any delta or tool event has touched the message.
func (m Message) HasContent() bool {
	return m.Content != "" || m.Thinking != nil || len(m.ToolCalls) > 0
}

// toolCallIndex returns the index of the most recent tool call with id, or -1.
func (m Message) toolCallIndex(id string) int {
	for i := len(m.ToolCalls) - 1; i >= 0; i-- {
		if m.ToolCalls[i].ID == id {
			return i
		}
	}
	return -1
}

// clone copies the parts of m that the reducer mutates in place.
func (m Message) clone() Message {
	m.ToolCalls = slices.Clone(m.ToolCalls)
	if m.ToolCalls == nil {
		m.ToolCalls = []ToolCall{}
	}
	return m
}

// Conversation is an ordered list of messages.
type Conversation []Message

// Last returns the final message, if any.
func (c Conversation) Last() (Message, bool) {
	if len(c) == 0 {
		return Message{}, false
	}
	return c[len(c)-1], true
}

// Streaming returns the index of the streaming message, if there is one.
func (c Conversation) Streaming() (int, bool) {
	for i, m := range c {
		if m.IsStreaming {
			return i, true
		}
	}
	return -1, false
}

// Settled returns the messages whose streaming has finished.
func (c Conversation) Settled() Conversation {
	out := make(Conversation, 0, len(c))
	for _, m := range c {
		if !m.IsStreaming {
			out = append(out, m)
		}
	}
	return out
}

// ErrInvariant is returned by Validate for a malformed conversation.
var ErrInvariant = errors.New("conversation invariant violated")

// Validate checks that at most one message is streaming and that, if one is,
// it is the last message and authored by the assistant.
func (c Conversation) Validate() error {
	streaming := 0
	for i, m := range c {
		if !m.Role.Valid() {
			return fmt.Errorf("%w: message %d has role %q", ErrInvariant, i, m.Role)
		}
		if !m.IsStreaming {
			continue
		}
		streaming++
		if streaming > 1 {
			return fmt.Errorf("%w: more than one streaming message", ErrInvariant)
		}
		if i != len(c)-1 {
			return fmt.Errorf("%w: streaming message %d is not last", ErrInvariant, i)
		}
		if m.Role != RoleAssistant {
			return fmt.Errorf("%w: streaming message has role %q", ErrInvariant, m.Role)
		}
	}
	return nil
}
