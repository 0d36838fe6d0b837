// ABOUTME: Vendor-neutral model types: turns, messages, tool uses and results
// ABOUTME: Model streams one assistant turn and reports the tools it requested

package agent

import (
	"context"
	"fmt"

	"github.com/curphey/fpl-sub000/internal/packs"
	"github.com/curphey/fpl-sub000/internal/stream"
)

// Role of a model message.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ToolUse is a tool invocation requested by the model.
type ToolUse struct {
	ID    string
	Name  string
	Input map[string]any
}

// ToolOutput is the result of a tool use, returned to the model.
type ToolOutput struct {
	ToolUseID string
	Content   string
	IsError   bool
}

// ThinkingBlock is a signed block of extended thinking. It must be sent back
// unchanged when the turn that produced it used tools.
type ThinkingBlock struct {
	Thinking  string
	Signature string
}

// Message is one entry of the model-facing transcript.
type Message struct {
	Role        string
	Text        string
	Thinking    []ThinkingBlock
	ToolUses    []ToolUse
	ToolOutputs []ToolOutput
}

// Turn is everything the model needs to produce the next assistant message.
type Turn struct {
	System   string
	Messages []Message
	Tools    []packs.ToolDefinition
	// Thinking enables extended thinking for this turn.
	Thinking bool
	// APIKey overrides the model's configured key when set.
	APIKey string
}

// TurnResult is the completed assistant message of a turn.
type TurnResult struct {
	Message    Message
	StopReason string
}

// Emit receives the deltas of a turn as they arrive.
type Emit func(stream.Event) error

// Model produces one assistant turn, emitting text and thinking deltas as
// they stream in.
type Model interface {
	Stream(ctx context.Context, turn Turn, emit Emit) (*TurnResult, error)
}

// ModelError is a model failure with a message safe to show the user.
type ModelError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *ModelError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("model request failed (%d): %s", e.StatusCode, e.Message)
	}
	return "model request failed: " + e.Message
}

func (e *ModelError) Unwrap() error {
	return e.Err
}
