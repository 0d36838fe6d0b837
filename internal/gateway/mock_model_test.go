// ABOUTME: Fake Model used by gateway handler tests
// ABOUTME: Replays fixed events and optional tool uses, recording each Turn

package gateway

import (
	"context"
	"sync"

	"github.com/curphey/fpl-sub000/internal/agent"
	"github.com/curphey/fpl-sub000/internal/stream"
)

type fakeTurn struct {
	events []stream.Event
	uses   []agent.ToolUse
	err    error
}

type fakeModel struct {
	mu    sync.Mutex
	plays []fakeTurn
	turns []agent.Turn
	// block, when set, holds each turn until ctx ends.
	block bool
}

func (m *fakeModel) Stream(ctx context.Context, turn agent.Turn, emit agent.Emit) (*agent.TurnResult, error) {
	m.mu.Lock()
	i := len(m.turns)
	m.turns = append(m.turns, turn)
	m.mu.Unlock()

	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	if i >= len(m.plays) {
		return &agent.TurnResult{Message: agent.Message{Role: agent.RoleAssistant}}, nil
	}
	play := m.plays[i]
	for _, ev := range play.events {
		if err := emit(ev); err != nil {
			return nil, err
		}
	}
	if play.err != nil {
		return nil, play.err
	}
	return &agent.TurnResult{
		Message: agent.Message{Role: agent.RoleAssistant, ToolUses: play.uses},
	}, nil
}

func (m *fakeModel) seen() []agent.Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]agent.Turn(nil), m.turns...)
}
