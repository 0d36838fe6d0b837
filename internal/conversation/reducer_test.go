// ABOUTME: Tests for the conversation reducer
// ABOUTME: Covers every event arm, no-op cases, structural sharing and purity

package conversation

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curphey/fpl-sub000/internal/stream"
)

var testNow = time.Date(2025, 8, 16, 11, 30, 0, 0, time.UTC)

func freshConversation() Conversation {
	return Conversation{
		NewUserMessage("who should I captain?", testNow),
		NewPlaceholder(testNow),
	}
}

func applyAll(conv Conversation, events ...stream.Event) Conversation {
	for _, ev := range events {
		conv = Apply(conv, ev)
	}
	return conv
}

func TestApply_TextDeltasThenDone(t *testing.T) {
	conv := applyAll(freshConversation(),
		stream.TextDelta("Hel"),
		stream.TextDelta("lo"),
		stream.Done(),
	)

	last, ok := conv.Last()
	require.True(t, ok)
	assert.Equal(t, "Hello", last.Content)
	assert.False(t, last.IsStreaming)
	assert.Len(t, conv, 2)
}

func TestApply_ToolLifecycle(t *testing.T) {
	conv := applyAll(freshConversation(),
		stream.ToolUseStart("t1", "search"),
	)

	last, _ := conv.Last()
	require.Len(t, last.ToolCalls, 1)
	assert.Equal(t, ToolRunning, last.ToolCalls[0].Status)
	assert.Equal(t, map[string]any{}, last.ToolCalls[0].Input)

	conv = Apply(conv, stream.Event{
		Type: stream.EventToolUseEnd,
		ToolCall: &stream.ToolCallPayload{
			ID:     "t1",
			Result: json.RawMessage(`[1,2,3]`),
		},
	})

	last, _ = conv.Last()
	require.Len(t, last.ToolCalls, 1)
	call := last.ToolCalls[0]
	assert.Equal(t, "t1", call.ID)
	assert.Equal(t, "search", call.Name)
	assert.Equal(t, ToolCompleted, call.Status)
	assert.JSONEq(t, `[1,2,3]`, string(call.Result))
	assert.Equal(t, map[string]any{}, call.Input)
	assert.True(t, last.IsStreaming)
}

func TestApply_ToolEndWithError(t *testing.T) {
	conv := applyAll(freshConversation(),
		stream.ToolUseStart("t1", "get_my_team"),
		stream.ToolUseEnd("t1", "get_my_team", map[string]any{"gw": float64(3)}, nil, "failed to fetch team: timeout"),
	)

	last, _ := conv.Last()
	require.Len(t, last.ToolCalls, 1)
	assert.Equal(t, ToolError, last.ToolCalls[0].Status)
	assert.Equal(t, "failed to fetch team: timeout", last.ToolCalls[0].Error)
	assert.Equal(t, map[string]any{"gw": float64(3)}, last.ToolCalls[0].Input)
}

func TestReduce_NoOps(t *testing.T) {
	started := Apply(freshConversation(), stream.ToolUseStart("t1", "search"))
	ended := Apply(started, stream.ToolUseEnd("t1", "search", nil, json.RawMessage(`1`), ""))

	tests := []struct {
		name    string
		conv    Conversation
		event   stream.Event
		outcome Outcome
	}{
		{
			name:    "empty conversation",
			conv:    Conversation{},
			event:   stream.TextDelta("x"),
			outcome: NoAssistant,
		},
		{
			name:    "last message from user",
			conv:    Conversation{NewUserMessage("hi", testNow)},
			event:   stream.TextDelta("x"),
			outcome: NoAssistant,
		},
		{
			name:    "tool end with unknown id",
			conv:    started,
			event:   stream.ToolUseEnd("nope", "search", nil, json.RawMessage(`1`), ""),
			outcome: UnknownToolCall,
		},
		{
			name:    "second tool end for a settled call",
			conv:    ended,
			event:   stream.ToolUseEnd("t1", "search", nil, nil, "late failure"),
			outcome: SettledToolCall,
		},
		{
			name:    "tool start without payload",
			conv:    started,
			event:   stream.Event{Type: stream.EventToolUseStart},
			outcome: MissingToolCall,
		},
		{
			name:    "unknown event type",
			conv:    started,
			event:   stream.Event{Type: "heartbeat"},
			outcome: UnknownEvent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := cloneConversation(tt.conv)
			got, outcome := Reduce(tt.conv, tt.event)
			assert.Equal(t, tt.outcome, outcome)
			assert.Equal(t, before, got)
			assert.Equal(t, before, tt.conv)
		})
	}
}

func TestApply_ThinkingCreatedThenAppended(t *testing.T) {
	conv := freshConversation()
	last, _ := conv.Last()
	assert.Nil(t, last.Thinking)

	conv = applyAll(conv, stream.ThinkingDelta("Salah has "), stream.ThinkingDelta("a home fixture"))
	last, _ = conv.Last()
	require.NotNil(t, last.Thinking)
	assert.Equal(t, "Salah has a home fixture", *last.Thinking)
	assert.Empty(t, last.Content)
}

func TestApply_ErrorOverwritesContent(t *testing.T) {
	conv := applyAll(freshConversation(),
		stream.TextDelta("partial answer"),
		stream.Error("upstream overloaded"),
	)

	last, _ := conv.Last()
	assert.Equal(t, ErrorText("upstream overloaded"), last.Content)
	assert.False(t, last.IsStreaming)
}

func TestApply_EventsAfterDoneStillApplied(t *testing.T) {
	conv := applyAll(freshConversation(),
		stream.TextDelta("Hello"),
		stream.Done(),
		stream.TextDelta(" again"),
	)

	last, _ := conv.Last()
	assert.Equal(t, "Hello again", last.Content)
	assert.False(t, last.IsStreaming)
}

func TestApply_StructuralSharing(t *testing.T) {
	conv := Conversation{
		NewUserMessage("first", testNow),
		{ID: "a1", Role: RoleAssistant, Content: "earlier reply", ToolCalls: []ToolCall{}},
		NewUserMessage("second", testNow),
		NewPlaceholder(testNow),
	}
	conv = Apply(conv, stream.ToolUseStart("t1", "search"))
	before := cloneConversation(conv)

	next := Apply(conv, stream.ToolUseEnd("t1", "search", nil, json.RawMessage(`"ok"`), ""))

	assert.Equal(t, before, conv, "input conversation must not be mutated")
	assert.Equal(t, conv[:3], next[:3])
	assert.NotEqual(t, conv[3], next[3])
	assert.Equal(t, ToolRunning, conv[3].ToolCalls[0].Status)
	assert.Equal(t, ToolCompleted, next[3].ToolCalls[0].Status)
}

func TestApply_Deterministic(t *testing.T) {
	conv := freshConversation()
	ev := stream.TextDelta("same")
	assert.Equal(t, Apply(conv, ev), Apply(conv, ev))
}

func TestApply_EveryEventTypeHandled(t *testing.T) {
	for _, typ := range stream.EventTypes() {
		t.Run(string(typ), func(t *testing.T) {
			conv := Apply(freshConversation(), stream.ToolUseStart("t0", "search"))
			ev := stream.Event{Type: typ, Content: "x", ToolCall: &stream.ToolCallPayload{ID: "t0", Name: "search"}}
			if typ == stream.EventToolUseStart {
				ev.ToolCall.ID = "t1"
			}
			_, outcome := Reduce(conv, ev)
			assert.Equal(t, Applied, outcome)
		})
	}
}

func TestErrorText(t *testing.T) {
	assert.Equal(t, "Sorry, something went wrong: boom", ErrorText("boom"))
	assert.Equal(t, "Sorry, something went wrong. Please try again.", ErrorText(""))
}

func TestValidate(t *testing.T) {
	user := NewUserMessage("hi", testNow)
	streaming := NewPlaceholder(testNow)

	assert.NoError(t, Conversation{}.Validate())
	assert.NoError(t, Conversation{user, streaming}.Validate())

	err := Conversation{streaming, user}.Validate()
	assert.ErrorIs(t, err, ErrInvariant)

	err = Conversation{user, streaming, streaming}.Validate()
	assert.ErrorIs(t, err, ErrInvariant)

	bad := user
	bad.IsStreaming = true
	err = Conversation{bad}.Validate()
	assert.ErrorIs(t, err, ErrInvariant)
}

func TestSettledAndStreaming(t *testing.T) {
	conv := freshConversation()
	i, ok := conv.Streaming()
	assert.True(t, ok)
	assert.Equal(t, 1, i)
	assert.Len(t, conv.Settled(), 1)

	conv = Apply(conv, stream.Done())
	_, ok = conv.Streaming()
	assert.False(t, ok)
	assert.Len(t, conv.Settled(), 2)
}

func cloneConversation(c Conversation) Conversation {
	out := make(Conversation, len(c))
	for i, m := range c {
		out[i] = m.clone()
	}
	return out
}

func TestApply_RepeatedToolIDAppendsNewCall(t *testing.T) {
	conv := applyAll(freshConversation(),
		stream.ToolUseStart("t1", "search"),
		stream.ToolUseEnd("t1", "search", nil, json.RawMessage(`[1]`), ""),
		stream.ToolUseStart("t1", "search"),
	)

	last, _ := conv.Last()
	require.Len(t, last.ToolCalls, 2)
	assert.Equal(t, ToolCompleted, last.ToolCalls[0].Status)
	assert.Equal(t, ToolRunning, last.ToolCalls[1].Status)

	conv = Apply(conv, stream.ToolUseEnd("t1", "search", nil, json.RawMessage(`[2]`), ""))

	last, _ = conv.Last()
	require.Len(t, last.ToolCalls, 2)
	for _, tc := range last.ToolCalls {
		assert.Equal(t, ToolCompleted, tc.Status)
	}
	assert.JSONEq(t, `[1]`, string(last.ToolCalls[0].Result))
	assert.JSONEq(t, `[2]`, string(last.ToolCalls[1].Result))
}
