// ABOUTME: Pure reducer applying stream events to a conversation snapshot
// ABOUTME: Only the last (assistant) message is ever replaced; earlier messages are shared

package conversation

import (
	"github.com/curphey/fpl-sub000/internal/stream"
)

// Outcome describes what Reduce did with an event.
type Outcome int

const (
	// Applied means the event changed the last message.
	Applied Outcome = iota
	// NoAssistant means the conversation was empty or did not end with an
	// assistant message.
	NoAssistant
	// MissingToolCall means a tool event carried no tool call payload.
	MissingToolCall
	// UnknownToolCall means a tool_use_end referenced an id not present in
	// the last message.
	UnknownToolCall
	// SettledToolCall means a tool_use_end referenced a call that already
	// ended. A repeated id matches its most recent call.
	SettledToolCall
	// UnknownEvent means the event type is not part of the protocol.
	UnknownEvent
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case NoAssistant:
		return "no_assistant"
	case MissingToolCall:
		return "missing_tool_call"
	case UnknownToolCall:
		return "unknown_tool_call"
	case SettledToolCall:
		return "settled_tool_call"
	case UnknownEvent:
		return "unknown_event"
	default:
		return "unknown"
	}
}

// Apply returns the conversation that results from applying ev to conv.
// Events that cannot be applied leave conv unchanged.
func Apply(conv Conversation, ev stream.Event) Conversation {
	next, _ := Reduce(conv, ev)
	return next
}

// Reduce is Apply that also reports why an event was or was not applied.
// It never mutates conv. Events that arrive after done or error are still
// applied.
func Reduce(conv Conversation, ev stream.Event) (Conversation, Outcome) {
	last, ok := conv.Last()
	if !ok || last.Role != RoleAssistant {
		return conv, NoAssistant
	}
	msg := last.clone()

	switch ev.Type {
	case stream.EventTextDelta:
		msg.Content += ev.Content

	case stream.EventThinkingDelta:
		thinking := ev.Content
		if msg.Thinking != nil {
			thinking = *msg.Thinking + ev.Content
		}
		msg.Thinking = &thinking

	case stream.EventToolUseStart:
		if ev.ToolCall == nil {
			return conv, MissingToolCall
		}
		msg.ToolCalls = append(msg.ToolCalls, ToolCall{
			ID:     ev.ToolCall.ID,
			Name:   ev.ToolCall.Name,
			Input:  map[string]any{},
			Status: ToolRunning,
		})

	case stream.EventToolUseEnd:
		if ev.ToolCall == nil {
			return conv, MissingToolCall
		}
		i := msg.toolCallIndex(ev.ToolCall.ID)
		if i < 0 {
			return conv, UnknownToolCall
		}
		call := &msg.ToolCalls[i]
		if call.Status != ToolRunning && call.Status != ToolPending {
			return conv, SettledToolCall
		}
		call.Input = ev.ToolCall.Input
		if call.Input == nil {
			call.Input = map[string]any{}
		}
		call.Result = ev.ToolCall.Result
		call.Error = ev.ToolCall.Error
		if call.Error != "" {
			call.Status = ToolError
		} else {
			call.Status = ToolCompleted
		}

	case stream.EventError:
		msg.Content = ErrorText(ev.Content)
		msg.IsStreaming = false

	case stream.EventDone:
		msg.IsStreaming = false

	default:
		return conv, UnknownEvent
	}

	return replaceLast(conv, msg), Applied
}

// ErrorText is the message shown in place of an assistant reply that failed.
func ErrorText(cause string) string {
	if cause == "" {
		return "Sorry, something went wrong. Please try again."
	}
	return "Sorry, something went wrong: " + cause
}

// replaceLast returns a new conversation sharing all but the last element of conv.
func replaceLast(conv Conversation, msg Message) Conversation {
	next := make(Conversation, len(conv))
	copy(next, conv[:len(conv)-1])
	next[len(next)-1] = msg
	return next
}
