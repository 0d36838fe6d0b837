// ABOUTME: Tool definitions, handlers and results for in-process tool packs
// ABOUTME: Results carry either a JSON value or an error string, never both

package packs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/curphey/fpl-sub000/internal/fpl"
)

// Property describes one field of a tool's input object.
type Property struct {
	Type        string    `json:"type"`
	Description string    `json:"description,omitempty"`
	Enum        []string  `json:"enum,omitempty"`
	Items       *Property `json:"items,omitempty"`
	MinItems    int       `json:"minItems,omitempty"`
}

// Schema is the JSON-schema subset used for tool inputs. Type is always "object".
type Schema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// Object builds an object schema from its properties and required names.
func Object(props map[string]Property, required ...string) Schema {
	if props == nil {
		props = map[string]Property{}
	}
	return Schema{Type: "object", Properties: props, Required: required}
}

// ToolDefinition is the catalogue entry presented to the model.
type ToolDefinition struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema Schema `json:"input_schema"`
}

// ToolContext is the read-only data a handler may consult.
type ToolContext struct {
	// Data is the reference data snapshot shared by every call of a turn.
	Data *fpl.Snapshot
	// ManagerID identifies the caller's FPL team, when known.
	ManagerID *int
}

// ToolHandler executes a built-in tool. A returned error becomes the
// tool result's error string; the value is marshalled to JSON otherwise.
type ToolHandler func(ctx context.Context, tc ToolContext, input map[string]any) (any, error)

// BuiltinTool is a tool that executes in-process.
type BuiltinTool struct {
	Definition ToolDefinition
	Handler    ToolHandler
}

// BuiltinPack is a collection of built-in tools with a pack ID.
type BuiltinPack struct {
	ID    string
	Tools []*BuiltinTool
}

// builtinEntry stores a builtin tool with its pack ID for registry lookup.
type builtinEntry struct {
	Tool   *BuiltinTool
	PackID string
}

// Call is one tool invocation requested by the model.
type Call struct {
	ID    string
	Name  string
	Input map[string]any
}

// Result is the outcome of a tool invocation.
type Result struct {
	Value json.RawMessage
	Error string
}

// Failed reports whether the call produced an error.
func (r Result) Failed() bool {
	return r.Error != ""
}

// MarshalJSON renders the result as the model sees it: the value itself, or
// {"error": "..."} on failure.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Failed() {
		return json.Marshal(map[string]string{"error": r.Error})
	}
	if len(r.Value) == 0 {
		return []byte("null"), nil
	}
	return r.Value, nil
}

// Errorf builds a handler error of the form "<description>: <cause>".
func Errorf(description string, cause error) error {
	return fmt.Errorf("%s: %w", description, cause)
}

// Decode converts a tool input map into the handler's input struct.
func Decode(input map[string]any, dst any) error {
	raw, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("invalid input: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("invalid input: %w", err)
	}
	return nil
}
