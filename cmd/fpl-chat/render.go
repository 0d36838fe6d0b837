// ABOUTME: Incremental terminal rendering of conversation snapshots
// ABOUTME: Prints only what changed since the last snapshot of the reply

package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/curphey/fpl-sub000/internal/conversation"
)

// errorPrefix starts every in-bubble error text.
const errorPrefix = "Sorry, something went wrong"

// renderer writes the growing assistant reply to a terminal. Snapshots may
// arrive from several goroutines and out of order; older ones are ignored.
type renderer struct {
	mu           sync.Mutex
	w            io.Writer
	showThinking bool

	lastSeq   uint64
	messageID string
	text      string
	thinking  string
	tools     map[string]conversation.ToolStatus
}

func newRenderer(w io.Writer, showThinking bool) *renderer {
	return &renderer{w: w, showThinking: showThinking}
}

// reset forgets the current reply and ignores snapshots up to seq.
func (r *renderer) reset(seq uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastSeq = max(r.lastSeq, seq)
	r.messageID = ""
	r.text = ""
	r.thinking = ""
	r.tools = nil
}

// render prints the difference between snap's last assistant message and
// what has already been printed.
func (r *renderer) render(snap conversation.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if snap.Seq <= r.lastSeq {
		return
	}
	r.lastSeq = snap.Seq

	msg, ok := snap.Messages.Last()
	if !ok || msg.Role != conversation.RoleAssistant {
		return
	}
	if msg.ID != r.messageID {
		r.messageID = msg.ID
		r.text = ""
		r.thinking = ""
		r.tools = make(map[string]conversation.ToolStatus)
	}

	if r.showThinking && msg.Thinking != nil {
		r.thinking = r.printDelta(r.thinking, *msg.Thinking, color.New(color.FgHiBlack))
	}

	for _, tc := range msg.ToolCalls {
		if r.tools[tc.ID] == tc.Status {
			continue
		}
		r.tools[tc.ID] = tc.Status
		r.printTool(tc)
	}

	if strings.HasPrefix(msg.Content, errorPrefix) {
		if msg.Content != r.text {
			if r.text != "" {
				fmt.Fprintln(r.w)
			}
			color.New(color.FgRed).Fprint(r.w, msg.Content)
			r.text = msg.Content
		}
		return
	}
	r.text = r.printDelta(r.text, msg.Content, nil)
}

// printDelta prints the part of next not yet printed and returns next.
// When next does not extend printed the whole value is reprinted.
func (r *renderer) printDelta(printed, next string, c *color.Color) string {
	if next == printed {
		return printed
	}
	delta := next
	if strings.HasPrefix(next, printed) {
		delta = next[len(printed):]
	} else if printed != "" {
		fmt.Fprintln(r.w)
	}
	if c != nil {
		c.Fprint(r.w, delta)
	} else {
		fmt.Fprint(r.w, delta)
	}
	return next
}

func (r *renderer) printTool(tc conversation.ToolCall) {
	switch tc.Status {
	case conversation.ToolPending, conversation.ToolRunning:
		color.New(color.FgYellow).Fprintf(r.w, "\n  ⚙ %s…\n", tc.Name)
	case conversation.ToolCompleted:
		color.New(color.FgGreen).Fprintf(r.w, "  ✓ %s\n", tc.Name)
	case conversation.ToolError:
		color.New(color.FgRed).Fprintf(r.w, "  ✗ %s: %s\n", tc.Name, tc.Error)
	}
}
