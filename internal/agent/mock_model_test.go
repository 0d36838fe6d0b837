// ABOUTME: Scripted Model for runner tests
// ABOUTME: Each call plays the next scripted step and records the Turn it saw

package agent

import (
	"context"
	"fmt"
	"sync"
)

type step func(turn Turn, emit Emit) (*TurnResult, error)

type scriptedModel struct {
	mu    sync.Mutex
	steps []step
	turns []Turn
}

func script(steps ...step) *scriptedModel {
	return &scriptedModel{steps: steps}
}

func (m *scriptedModel) Stream(_ context.Context, turn Turn, emit Emit) (*TurnResult, error) {
	m.mu.Lock()
	i := len(m.turns)
	m.turns = append(m.turns, turn)
	m.mu.Unlock()
	if i >= len(m.steps) {
		return nil, fmt.Errorf("unscripted turn %d", i+1)
	}
	return m.steps[i](turn, emit)
}

func (m *scriptedModel) seen() []Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Turn(nil), m.turns...)
}

// reply streams text and finishes without tools.
func reply(chunks ...string) step {
	return func(_ Turn, emit Emit) (*TurnResult, error) {
		text := ""
		for _, c := range chunks {
			if err := emit(textDelta(c)); err != nil {
				return nil, err
			}
			text += c
		}
		return &TurnResult{Message: Message{Role: RoleAssistant, Text: text}, StopReason: "end_turn"}, nil
	}
}

// useTools streams text and requests uses.
func useTools(text string, uses ...ToolUse) step {
	return func(_ Turn, emit Emit) (*TurnResult, error) {
		if text != "" {
			if err := emit(textDelta(text)); err != nil {
				return nil, err
			}
		}
		return &TurnResult{Message: Message{Role: RoleAssistant, Text: text, ToolUses: uses}, StopReason: "tool_use"}, nil
	}
}

func fail(err error) step {
	return func(Turn, Emit) (*TurnResult, error) { return nil, err }
}
