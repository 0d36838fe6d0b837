// ABOUTME: Tests for the request Controller
// ABOUTME: Covers streaming, single-flight, cancellation, failures and persistence

package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curphey/fpl-sub000/internal/conversation"
	"github.com/curphey/fpl-sub000/internal/history"
	"github.com/curphey/fpl-sub000/internal/store"
	"github.com/curphey/fpl-sub000/internal/stream"
)

var testNow = time.Date(2025, 8, 16, 11, 30, 0, 0, time.UTC)

func newController(t *testing.T, transport Transport, opts Options) *Controller {
	t.Helper()
	opts.Now = func() time.Time { return testNow }
	c := New("c1", transport, opts)
	t.Cleanup(c.Close)
	return c
}

func eventually(t *testing.T, c *Controller, cond func(conversation.Snapshot) bool) {
	t.Helper()
	require.Eventually(t, func() bool { return cond(c.Snapshot()) }, 2*time.Second, 5*time.Millisecond)
}

func lastContent(want string) func(conversation.Snapshot) bool {
	return func(s conversation.Snapshot) bool {
		last, ok := s.Messages.Last()
		return ok && last.Content == want
	}
}

func TestController_StreamsReply(t *testing.T) {
	tr := newPipeTransport()
	c := newController(t, tr, Options{})

	require.NoError(t, c.Send(t.Context(), "who should I captain?"))
	assert.Equal(t, conversation.StateSending, c.State())

	s := tr.next(t)
	assert.Equal(t, []ChatMessage{{Role: "user", Content: "who should I captain?"}}, s.req.Messages)

	snap := c.Snapshot()
	require.Len(t, snap.Messages, 2)
	assert.True(t, snap.Messages[1].IsStreaming)
	assert.Empty(t, snap.Messages[1].Content)

	s.send(t,
		stream.ThinkingDelta("checking fixtures"),
		stream.ToolUseStart("t1", "get_captain_picks"),
		stream.ToolUseEnd("t1", "get_captain_picks", map[string]any{"limit": 3.0}, json.RawMessage(`[{"name":"Salah"}]`), ""),
		stream.TextDelta("Captain "),
		stream.TextDelta("Salah."),
		stream.Done(),
	)
	s.finish()
	c.Wait()

	snap = c.Snapshot()
	assert.Equal(t, conversation.StateIdle, snap.State)
	assert.NoError(t, snap.Err)
	require.Len(t, snap.Messages, 2)
	reply := snap.Messages[1]
	assert.Equal(t, "Captain Salah.", reply.Content)
	assert.False(t, reply.IsStreaming)
	require.NotNil(t, reply.Thinking)
	assert.Equal(t, "checking fixtures", *reply.Thinking)
	require.Len(t, reply.ToolCalls, 1)
	assert.Equal(t, conversation.ToolCompleted, reply.ToolCalls[0].Status)
	assert.NoError(t, snap.Messages.Validate())
}

func TestController_CompletesWithoutDone(t *testing.T) {
	tr := newPipeTransport()
	c := newController(t, tr, Options{})

	require.NoError(t, c.Send(t.Context(), "hi"))
	s := tr.next(t)
	s.send(t, stream.TextDelta("hello"))
	s.finish()
	c.Wait()

	snap := c.Snapshot()
	assert.Equal(t, conversation.StateIdle, snap.State)
	last, _ := snap.Messages.Last()
	assert.Equal(t, "hello", last.Content)
	assert.False(t, last.IsStreaming)
}

func TestController_CancelBeforeContentRemovesPlaceholder(t *testing.T) {
	tr := newPipeTransport()
	c := newController(t, tr, Options{})

	require.NoError(t, c.Send(t.Context(), "hi"))
	s := tr.next(t)
	c.Cancel()
	c.Wait()

	snap := c.Snapshot()
	assert.Equal(t, conversation.StateIdle, snap.State)
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, conversation.RoleUser, snap.Messages[0].Role)
	assert.Equal(t, "hi", snap.Messages[0].Content)

	_, err := s.w.Write([]byte("data: {}\n\n"))
	assert.ErrorIs(t, err, io.ErrClosedPipe, "transport is closed on cancel")
}

func TestController_CancelKeepsPartialContent(t *testing.T) {
	tr := newPipeTransport()
	c := newController(t, tr, Options{})

	require.NoError(t, c.Send(t.Context(), "hi"))
	s := tr.next(t)
	s.send(t, stream.TextDelta("partial"))
	eventually(t, c, lastContent("partial"))

	c.Cancel()
	c.Wait()

	snap := c.Snapshot()
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, "partial", snap.Messages[1].Content)
	assert.False(t, snap.Messages[1].IsStreaming)
	assert.Equal(t, conversation.StateIdle, snap.State)
}

func TestController_ContextCancelStopsRequest(t *testing.T) {
	tr := newPipeTransport()
	c := newController(t, tr, Options{})

	ctx, cancel := context.WithCancel(t.Context())
	require.NoError(t, c.Send(ctx, "hi"))
	tr.next(t)
	cancel()
	c.Wait()

	assert.Len(t, c.Snapshot().Messages, 1)
}

func TestController_NewestSendWins(t *testing.T) {
	tr := newPipeTransport()
	c := newController(t, tr, Options{})

	require.NoError(t, c.Send(t.Context(), "first"))
	first := tr.next(t)

	require.NoError(t, c.Send(t.Context(), "second"))
	second := tr.next(t)

	_, err := first.w.Write([]byte("data: {}\n\n"))
	assert.ErrorIs(t, err, io.ErrClosedPipe, "superseded transport is closed")

	snap := c.Snapshot()
	require.Len(t, snap.Messages, 3)
	assert.Equal(t, "first", snap.Messages[0].Content)
	assert.Equal(t, "second", snap.Messages[1].Content)
	assert.True(t, snap.Messages[2].IsStreaming)

	assert.Equal(t, []ChatMessage{
		{Role: "user", Content: "first"},
		{Role: "user", Content: "second"},
	}, second.req.Messages)

	second.send(t, stream.TextDelta("answer"), stream.Done())
	second.finish()
	c.Wait()

	snap = c.Snapshot()
	streaming := 0
	assistants := 0
	for _, m := range snap.Messages {
		if m.IsStreaming {
			streaming++
		}
		if m.Role == conversation.RoleAssistant {
			assistants++
		}
	}
	assert.Zero(t, streaming)
	assert.Equal(t, 1, assistants)
	assert.NoError(t, snap.Messages.Validate())
}

func TestController_SupersededPartialReplyIsKept(t *testing.T) {
	tr := newPipeTransport()
	c := newController(t, tr, Options{})

	require.NoError(t, c.Send(t.Context(), "first"))
	first := tr.next(t)
	first.send(t, stream.TextDelta("half an ans"))
	eventually(t, c, lastContent("half an ans"))

	require.NoError(t, c.Send(t.Context(), "second"))
	second := tr.next(t)

	snap := c.Snapshot()
	require.Len(t, snap.Messages, 4)
	assert.False(t, snap.Messages[1].IsStreaming)
	assert.Equal(t, "half an ans", snap.Messages[1].Content)
	assert.Equal(t, []ChatMessage{
		{Role: "user", Content: "first"},
		{Role: "assistant", Content: "half an ans"},
		{Role: "user", Content: "second"},
	}, second.req.Messages)
}

func TestController_TransportStatusError(t *testing.T) {
	tr := newPipeTransport()
	tr.err = &StatusError{StatusCode: 429, Message: "rate limited"}
	c := newController(t, tr, Options{})

	require.NoError(t, c.Send(t.Context(), "hi"))
	c.Wait()

	snap := c.Snapshot()
	assert.Equal(t, conversation.StateIdleWithError, snap.State)
	var se *StatusError
	require.ErrorAs(t, snap.Err, &se)
	assert.Equal(t, 429, se.StatusCode)
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, "Sorry, something went wrong: rate limited", snap.Messages[1].Content)
	assert.False(t, snap.Messages[1].IsStreaming)
}

func TestController_TransportError(t *testing.T) {
	tr := newPipeTransport()
	tr.err = errors.New("connection refused")
	c := newController(t, tr, Options{})

	require.NoError(t, c.Send(t.Context(), "hi"))
	c.Wait()

	snap := c.Snapshot()
	assert.Equal(t, conversation.StateIdleWithError, snap.State)
	assert.Equal(t, "Sorry, something went wrong: connection refused", snap.Messages[1].Content)
}

func TestController_InBandErrorEvent(t *testing.T) {
	tr := newPipeTransport()
	c := newController(t, tr, Options{})

	require.NoError(t, c.Send(t.Context(), "hi"))
	s := tr.next(t)
	s.send(t, stream.TextDelta("Let me"), stream.Error("model overloaded"))
	s.finish()
	c.Wait()

	snap := c.Snapshot()
	assert.Equal(t, conversation.StateIdleWithError, snap.State)
	assert.NoError(t, snap.Err)
	assert.Equal(t, "Sorry, something went wrong: model overloaded", snap.Messages[1].Content)
}

func TestController_MalformedFramesAreSkipped(t *testing.T) {
	tr := newPipeTransport()
	c := newController(t, tr, Options{})

	require.NoError(t, c.Send(t.Context(), "hi"))
	s := tr.next(t)
	_, err := s.w.Write([]byte("data: {not json}\n\n"))
	require.NoError(t, err)
	s.send(t, stream.ToolUseEnd("ghost", "x", nil, nil, ""), stream.TextDelta("ok"))
	s.finish()
	c.Wait()

	last, _ := c.Snapshot().Messages.Last()
	assert.Equal(t, "ok", last.Content)
	assert.Empty(t, last.ToolCalls)
}

func TestController_PublishesSnapshots(t *testing.T) {
	tr := newPipeTransport()
	c := newController(t, tr, Options{})
	snaps, stop := c.Subscribe(t.Context())
	defer stop()

	require.NoError(t, c.Send(t.Context(), "hi"))
	s := tr.next(t)
	s.send(t, stream.TextDelta("a"), stream.TextDelta("b"))
	s.finish()
	c.Wait()

	var seen []conversation.Snapshot
	for len(seen) == 0 || seen[len(seen)-1].State == conversation.StateSending {
		select {
		case snap := <-snaps:
			seen = append(seen, snap)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for snapshots")
		}
	}

	for i := 1; i < len(seen); i++ {
		assert.Greater(t, seen[i].Seq, seen[i-1].Seq)
	}
	final := seen[len(seen)-1]
	assert.Equal(t, conversation.StateIdle, final.State)
	assert.Equal(t, "ab", final.Messages[1].Content)
}

func TestController_SavesOnlyAfterSettle(t *testing.T) {
	kv := store.NewMemoryStore(0)
	hist := history.New(kv, "c1", history.Options{})
	tr := newPipeTransport()
	c := newController(t, tr, Options{History: hist})

	require.NoError(t, c.Send(t.Context(), "hi"))
	s := tr.next(t)
	s.send(t, stream.TextDelta("streaming"))
	eventually(t, c, lastContent("streaming"))
	assert.Zero(t, kv.SetCalls(), "nothing is saved mid-stream")

	s.send(t, stream.Done())
	s.finish()
	c.Wait()
	assert.Equal(t, 1, kv.SetCalls())

	restored := hist.Load(t.Context())
	require.Len(t, restored, 2)
	assert.Equal(t, "streaming", restored[1].Content)
}

func TestController_LoadRestoresOnce(t *testing.T) {
	kv := store.NewMemoryStore(0)
	hist := history.New(kv, "c1", history.Options{})
	require.True(t, hist.Save(t.Context(), conversation.Conversation{
		conversation.NewUserMessage("earlier", testNow),
		{ID: "a1", Role: conversation.RoleAssistant, Content: "reply", Timestamp: testNow},
	}))

	tr := newPipeTransport()
	c := newController(t, tr, Options{History: hist})
	c.Load(t.Context())
	require.Len(t, c.Snapshot().Messages, 2)

	require.NoError(t, c.Send(t.Context(), "next"))
	s := tr.next(t)
	assert.Len(t, s.req.Messages, 3)
	s.finish()
	c.Wait()

	c.Load(t.Context())
	assert.Len(t, c.Snapshot().Messages, 4, "a second Load does not overwrite")
}

func TestController_Reset(t *testing.T) {
	kv := store.NewMemoryStore(0)
	hist := history.New(kv, "c1", history.Options{})
	tr := newPipeTransport()
	c := newController(t, tr, Options{History: hist})

	require.NoError(t, c.Send(t.Context(), "hi"))
	s := tr.next(t)
	s.send(t, stream.TextDelta("hello"))
	s.finish()
	c.Wait()
	require.True(t, hist.Exists(t.Context()))

	c.Reset(t.Context())
	assert.Empty(t, c.Snapshot().Messages)
	assert.Equal(t, conversation.StateIdle, c.State())
	assert.False(t, hist.Exists(t.Context()))
}

func TestController_SendValidation(t *testing.T) {
	c := New("c1", newPipeTransport(), Options{})

	assert.ErrorIs(t, c.Send(t.Context(), "   "), ErrEmptyMessage)

	c.Close()
	assert.ErrorIs(t, c.Send(t.Context(), "hi"), ErrClosed)
}

func TestController_RequestOptions(t *testing.T) {
	tr := newPipeTransport()
	manager := 1234
	c := newController(t, tr, Options{ManagerID: &manager, ShowThinking: true, APIKey: "sk-test"})

	require.NoError(t, c.Send(t.Context(), "hi"))
	s := tr.next(t)
	require.NotNil(t, s.req.ManagerID)
	assert.Equal(t, 1234, *s.req.ManagerID)
	assert.True(t, s.req.ShowThinking)
	assert.Equal(t, "sk-test", s.req.APIKey)
	s.finish()
	c.Wait()
}
