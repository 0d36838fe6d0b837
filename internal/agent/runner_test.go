// ABOUTME: Tests for the Runner model/tool loop
// ABOUTME: Checks event order, tool round-trips, thinking filter, failures and limits

package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curphey/fpl-sub000/internal/fpl"
	"github.com/curphey/fpl-sub000/internal/fpl/fpltest"
	"github.com/curphey/fpl-sub000/internal/packs"
	"github.com/curphey/fpl-sub000/internal/stream"
)

func textDelta(s string) stream.Event { return stream.TextDelta(s) }

func testRegistry(t *testing.T) *packs.Registry {
	t.Helper()
	reg := packs.NewRegistry(nil)
	reg.MustRegister(&packs.BuiltinPack{
		ID: "test",
		Tools: []*packs.BuiltinTool{
			{
				Definition: packs.ToolDefinition{Name: "echo", Description: "echoes input", InputSchema: packs.Object(nil)},
				Handler: func(_ context.Context, _ packs.ToolContext, input map[string]any) (any, error) {
					if d, ok := input["delay_ms"].(float64); ok {
						time.Sleep(time.Duration(d) * time.Millisecond)
					}
					return input, nil
				},
			},
			{
				Definition: packs.ToolDefinition{Name: "fail", Description: "always fails", InputSchema: packs.Object(nil)},
				Handler: func(context.Context, packs.ToolContext, map[string]any) (any, error) {
					return nil, errors.New("upstream unavailable")
				},
			},
			{
				Definition: packs.ToolDefinition{Name: "gameweek", Description: "reports the data gameweek", InputSchema: packs.Object(nil)},
				Handler: func(_ context.Context, tc packs.ToolContext, _ map[string]any) (any, error) {
					if tc.Data == nil {
						return nil, errors.New("no data")
					}
					return map[string]int{"gameweek": tc.Data.PlanningGameweek()}, nil
				},
			},
		},
	})
	return reg
}

type recorder struct {
	events []stream.Event
	failAt int
}

func (r *recorder) emit(ev stream.Event) error {
	if r.failAt > 0 && len(r.events)+1 == r.failAt {
		return errors.New("client went away")
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) types() []stream.EventType {
	out := make([]stream.EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

type staticData struct {
	snap *fpl.Snapshot
	err  error
}

func (s staticData) Snapshot(context.Context) (*fpl.Snapshot, error) { return s.snap, s.err }

func newRunner(t *testing.T, model Model, cfg RunnerConfig) *Runner {
	t.Helper()
	reg := testRegistry(t)
	cfg.Model = model
	cfg.Registry = reg
	cfg.Dispatcher = packs.NewDispatcher(packs.DispatcherConfig{Registry: reg, Timeout: time.Second})
	return NewRunner(cfg)
}

func userRequest(text string) Request {
	return Request{Messages: []ChatMessage{{Role: RoleUser, Content: text}}}
}

func TestRunner_TextOnly(t *testing.T) {
	model := script(reply("Hello", " there"))
	r := newRunner(t, model, RunnerConfig{})
	rec := &recorder{}

	require.NoError(t, r.Run(t.Context(), userRequest("hi"), rec.emit))

	assert.Equal(t, []stream.EventType{stream.EventTextDelta, stream.EventTextDelta, stream.EventDone}, rec.types())
	turns := model.seen()
	require.Len(t, turns, 1)
	assert.Equal(t, []Message{{Role: RoleUser, Text: "hi"}}, turns[0].Messages)
	assert.Len(t, turns[0].Tools, 3)
	assert.Contains(t, turns[0].System, "Fantasy Premier League")
}

func TestRunner_ToolRound(t *testing.T) {
	model := script(
		useTools("Checking.",
			ToolUse{ID: "a", Name: "echo", Input: map[string]any{"v": 1.0}},
			ToolUse{ID: "b", Name: "fail", Input: map[string]any{}},
			ToolUse{ID: "c", Name: "nope", Input: map[string]any{}},
		),
		reply("All done."),
	)
	r := newRunner(t, model, RunnerConfig{})
	rec := &recorder{}

	require.NoError(t, r.Run(t.Context(), userRequest("go"), rec.emit))

	assert.Equal(t, []stream.EventType{
		stream.EventTextDelta,
		stream.EventToolUseStart, stream.EventToolUseStart, stream.EventToolUseStart,
		stream.EventToolUseEnd, stream.EventToolUseEnd, stream.EventToolUseEnd,
		stream.EventTextDelta,
		stream.EventDone,
	}, rec.types())

	endA := rec.events[4].ToolCall
	require.NotNil(t, endA)
	assert.Equal(t, "a", endA.ID)
	assert.JSONEq(t, `{"v":1}`, string(endA.Result))
	assert.Empty(t, endA.Error)

	endB := rec.events[5].ToolCall
	assert.Equal(t, "b", endB.ID)
	assert.Equal(t, "upstream unavailable", endB.Error)

	endC := rec.events[6].ToolCall
	assert.Equal(t, "Unknown tool: nope", endC.Error)

	turns := model.seen()
	require.Len(t, turns, 2)
	second := turns[1].Messages
	require.Len(t, second, 3)
	assert.Equal(t, RoleAssistant, second[1].Role)
	assert.Len(t, second[1].ToolUses, 3)
	outputs := second[2].ToolOutputs
	require.Len(t, outputs, 3)
	assert.Equal(t, ToolOutput{ToolUseID: "a", Content: `{"v":1}`}, outputs[0])
	assert.Equal(t, ToolOutput{ToolUseID: "b", Content: `{"error":"upstream unavailable"}`, IsError: true}, outputs[1])
	assert.True(t, outputs[2].IsError)
}

func TestRunner_ToolEndsKeepRequestOrder(t *testing.T) {
	model := script(
		useTools("",
			ToolUse{ID: "slow", Name: "echo", Input: map[string]any{"delay_ms": 50.0}},
			ToolUse{ID: "fast", Name: "echo", Input: map[string]any{}},
		),
		reply("ok"),
	)
	r := newRunner(t, model, RunnerConfig{})
	rec := &recorder{}
	require.NoError(t, r.Run(t.Context(), userRequest("go"), rec.emit))

	var ends []string
	for _, ev := range rec.events {
		if ev.Type == stream.EventToolUseEnd {
			ends = append(ends, ev.ToolCall.ID)
		}
	}
	assert.Equal(t, []string{"slow", "fast"}, ends)
}

func TestRunner_ThinkingFilter(t *testing.T) {
	thinking := func(_ Turn, emit Emit) (*TurnResult, error) {
		if err := emit(stream.ThinkingDelta("hmm")); err != nil {
			return nil, err
		}
		if err := emit(stream.TextDelta("answer")); err != nil {
			return nil, err
		}
		return &TurnResult{Message: Message{Role: RoleAssistant, Text: "answer"}}, nil
	}

	t.Run("hidden", func(t *testing.T) {
		model := script(thinking)
		rec := &recorder{}
		require.NoError(t, newRunner(t, model, RunnerConfig{}).Run(t.Context(), userRequest("q"), rec.emit))
		assert.Equal(t, []stream.EventType{stream.EventTextDelta, stream.EventDone}, rec.types())
		assert.False(t, model.seen()[0].Thinking)
	})

	t.Run("shown", func(t *testing.T) {
		model := script(thinking)
		rec := &recorder{}
		req := userRequest("q")
		req.ShowThinking = true
		require.NoError(t, newRunner(t, model, RunnerConfig{}).Run(t.Context(), req, rec.emit))
		assert.Equal(t, []stream.EventType{stream.EventThinkingDelta, stream.EventTextDelta, stream.EventDone}, rec.types())
		assert.True(t, model.seen()[0].Thinking)
	})
}

func TestRunner_ModelErrorBecomesErrorEvent(t *testing.T) {
	model := script(fail(&ModelError{StatusCode: 429, Message: "rate limited by the model provider"}))
	rec := &recorder{}

	require.NoError(t, newRunner(t, model, RunnerConfig{}).Run(t.Context(), userRequest("q"), rec.emit))
	require.Len(t, rec.events, 1)
	assert.Equal(t, stream.EventError, rec.events[0].Type)
	assert.Equal(t, "rate limited by the model provider", rec.events[0].Content)
}

func TestRunner_UnknownModelErrorIsGeneric(t *testing.T) {
	model := script(fail(errors.New("boom: secret details")))
	rec := &recorder{}

	require.NoError(t, newRunner(t, model, RunnerConfig{}).Run(t.Context(), userRequest("q"), rec.emit))
	require.Len(t, rec.events, 1)
	assert.Equal(t, "the model request failed", rec.events[0].Content)
}

func TestRunner_MaxTurns(t *testing.T) {
	loop := useTools("", ToolUse{ID: "x", Name: "echo", Input: map[string]any{}})
	model := script(loop, loop, loop)
	rec := &recorder{}

	require.NoError(t, newRunner(t, model, RunnerConfig{MaxTurns: 2}).Run(t.Context(), userRequest("q"), rec.emit))
	assert.Len(t, model.seen(), 2)
	last := rec.events[len(rec.events)-1]
	assert.Equal(t, stream.EventDone, last.Type)
	assert.Contains(t, rec.events[len(rec.events)-2].Content, "Stopped after too many tool calls")
}

func TestRunner_EmitFailureAborts(t *testing.T) {
	model := script(reply("a", "b", "c"))
	rec := &recorder{failAt: 2}

	err := newRunner(t, model, RunnerConfig{}).Run(t.Context(), userRequest("q"), rec.emit)
	assert.EqualError(t, err, "client went away")
	assert.Len(t, rec.events, 1)
}

func TestRunner_DataSource(t *testing.T) {
	call := useTools("", ToolUse{ID: "g", Name: "gameweek", Input: map[string]any{}})

	t.Run("available", func(t *testing.T) {
		model := script(call, reply("ok"))
		rec := &recorder{}
		manager := 77
		req := userRequest("q")
		req.ManagerID = &manager
		r := newRunner(t, model, RunnerConfig{Data: staticData{snap: fpltest.Snapshot()}})

		require.NoError(t, r.Run(t.Context(), req, rec.emit))
		assert.JSONEq(t, `{"gameweek":6}`, string(rec.events[1].ToolCall.Result))
		system := model.seen()[0].System
		assert.Contains(t, system, "gameweek 6")
		assert.Contains(t, system, "manager id is 77")
	})

	t.Run("unavailable", func(t *testing.T) {
		model := script(call, reply("ok"))
		rec := &recorder{}
		r := newRunner(t, model, RunnerConfig{Data: staticData{err: errors.New("fpl down")}})

		require.NoError(t, r.Run(t.Context(), userRequest("q"), rec.emit))
		assert.Equal(t, "no data", rec.events[1].ToolCall.Error)
	})
}

func TestRequest_Validate(t *testing.T) {
	zero := 0
	tests := []struct {
		name string
		req  Request
		ok   bool
	}{
		{"valid", userRequest("hi"), true},
		{"no messages", Request{}, false},
		{"bad role", Request{Messages: []ChatMessage{{Role: "system", Content: "x"}, {Role: RoleUser, Content: "hi"}}}, false},
		{"last from assistant", Request{Messages: []ChatMessage{{Role: RoleUser, Content: "hi"}, {Role: RoleAssistant, Content: "yo"}}}, false},
		{"blank last", userRequest("  "), false},
		{"bad manager", Request{Messages: []ChatMessage{{Role: RoleUser, Content: "hi"}}, ManagerID: &zero}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidRequest)
			}
		})
	}
}

func TestRequest_JSON(t *testing.T) {
	var req Request
	require.NoError(t, json.Unmarshal([]byte(`{"messages":[{"role":"user","content":"hi"}],"managerId":12,"showThinking":true}`), &req))
	require.NotNil(t, req.ManagerID)
	assert.Equal(t, 12, *req.ManagerID)
	assert.True(t, req.ShowThinking)
}
