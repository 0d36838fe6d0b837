// ABOUTME: Tests for incremental snapshot rendering
// ABOUTME: Feeds hand-built snapshots and checks the exact terminal output

package main

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/curphey/fpl-sub000/internal/conversation"
)

func init() {
	color.NoColor = true
}

func snap(seq uint64, msgs ...conversation.Message) conversation.Snapshot {
	return conversation.Snapshot{Messages: msgs, Seq: seq}
}

func user(text string) conversation.Message {
	return conversation.Message{ID: "u", Role: conversation.RoleUser, Content: text}
}

func reply(id, text string, calls ...conversation.ToolCall) conversation.Message {
	return conversation.Message{ID: id, Role: conversation.RoleAssistant, Content: text, ToolCalls: calls, IsStreaming: true}
}

func TestRenderer_PrintsDeltas(t *testing.T) {
	var buf bytes.Buffer
	r := newRenderer(&buf, false)

	r.render(snap(1, user("hi"), reply("a", "")))
	r.render(snap(2, user("hi"), reply("a", "Hel")))
	r.render(snap(3, user("hi"), reply("a", "Hello")))
	// stale snapshot is ignored
	r.render(snap(2, user("hi"), reply("a", "Hel")))

	assert.Equal(t, "Hello", buf.String())
}

func TestRenderer_ToolProgress(t *testing.T) {
	var buf bytes.Buffer
	r := newRenderer(&buf, false)

	running := conversation.ToolCall{ID: "t1", Name: "get_fixtures", Status: conversation.ToolRunning}
	done := running
	done.Status = conversation.ToolCompleted

	r.render(snap(1, reply("a", "", running)))
	r.render(snap(2, reply("a", "", running)))
	r.render(snap(3, reply("a", "Easy run.", done)))

	assert.Equal(t, "\n  ⚙ get_fixtures…\n  ✓ get_fixtures\nEasy run.", buf.String())
}

func TestRenderer_ErrorReplacesText(t *testing.T) {
	var buf bytes.Buffer
	r := newRenderer(&buf, false)

	r.render(snap(1, reply("a", "Partial")))
	r.render(snap(2, reply("a", conversation.ErrorText("rate limited"))))

	assert.Equal(t, "Partial\nSorry, something went wrong: rate limited", buf.String())
}

func TestRenderer_ThinkingOnlyWhenShown(t *testing.T) {
	thinking := "hmm"
	msg := reply("a", "Yes")
	msg.Thinking = &thinking

	var hidden, shown bytes.Buffer
	newRenderer(&hidden, false).render(snap(1, msg))
	newRenderer(&shown, true).render(snap(1, msg))

	assert.Equal(t, "Yes", hidden.String())
	assert.Equal(t, "hmmYes", shown.String())
}

func TestRenderer_ResetSkipsOlderSnapshots(t *testing.T) {
	var buf bytes.Buffer
	r := newRenderer(&buf, false)

	r.reset(5)
	r.render(snap(5, user("old"), reply("old", "previous answer")))
	r.render(snap(6, user("new"), reply("b", "Fresh")))

	assert.Equal(t, "Fresh", buf.String())
}
