// ABOUTME: Wire-level stream events exchanged between the chat backend and clients
// ABOUTME: Defines the tagged event union and constructors for each event kind

package stream

import "encoding/json"

// EventType identifies the kind of a stream event.
type EventType string

const (
	EventTextDelta     EventType = "text_delta"
	EventThinkingDelta EventType = "thinking_delta"
	EventToolUseStart  EventType = "tool_use_start"
	EventToolUseEnd    EventType = "tool_use_end"
	EventError         EventType = "error"
	EventDone          EventType = "done"
)

// EventTypes returns every known event type in protocol order.
func EventTypes() []EventType {
	return []EventType{
		EventTextDelta,
		EventThinkingDelta,
		EventToolUseStart,
		EventToolUseEnd,
		EventError,
		EventDone,
	}
}

// Known reports whether t is one of the protocol event types.
func (t EventType) Known() bool {
	for _, known := range EventTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// ToolCallPayload is the partial tool call carried by tool_use_start and
// tool_use_end events. Start events carry only ID and Name.
type ToolCallPayload struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Input  map[string]any  `json:"input,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Event is one decoded frame of the chat stream.
type Event struct {
	Type     EventType        `json:"type"`
	Content  string           `json:"content,omitempty"`
	ToolCall *ToolCallPayload `json:"toolCall,omitempty"`
}

// TextDelta returns a text_delta event.
func TextDelta(text string) Event {
	return Event{Type: EventTextDelta, Content: text}
}

// ThinkingDelta returns a thinking_delta event.
func ThinkingDelta(text string) Event {
	return Event{Type: EventThinkingDelta, Content: text}
}

// ToolUseStart returns a tool_use_start event for the given call.
func ToolUseStart(id, name string) Event {
	return Event{Type: EventToolUseStart, ToolCall: &ToolCallPayload{ID: id, Name: name}}
}

// ToolUseEnd returns a tool_use_end event. errText is empty on success.
func ToolUseEnd(id, name string, input map[string]any, result json.RawMessage, errText string) Event {
	return Event{
		Type: EventToolUseEnd,
		ToolCall: &ToolCallPayload{
			ID:     id,
			Name:   name,
			Input:  input,
			Result: result,
			Error:  errText,
		},
	}
}

// Error returns an error event carrying a description of the failure.
func Error(message string) Event {
	return Event{Type: EventError, Content: message}
}

// Done returns the terminal done event.
func Done() Event {
	return Event{Type: EventDone}
}
