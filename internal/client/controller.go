// ABOUTME: Controller owns one conversation and runs its requests single-flight
// ABOUTME: Folds streamed events through the reducer and publishes snapshots

package client

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/curphey/fpl-sub000/internal/conversation"
	"github.com/curphey/fpl-sub000/internal/stream"
)

var (
	// ErrClosed is returned by Send after Close.
	ErrClosed = errors.New("controller closed")
	// ErrEmptyMessage is returned by Send for blank text.
	ErrEmptyMessage = errors.New("message is empty")
)

// History is the persistence the controller needs. *history.Store satisfies it.
type History interface {
	Load(ctx context.Context) conversation.Conversation
	Save(ctx context.Context, conv conversation.Conversation) bool
	Clear(ctx context.Context)
}

// Options configures a Controller.
type Options struct {
	// History persists the conversation after every settled request. Optional.
	History History
	// Broadcaster receives every snapshot. A private one is created when nil.
	Broadcaster *conversation.Broadcaster
	Logger      *slog.Logger
	Now         func() time.Time

	ManagerID    *int
	ShowThinking bool
	APIKey       string
}

// request is one in-flight send.
type request struct {
	cancel        context.CancelFunc
	done          chan struct{}
	placeholderID string
	failed        bool
	settled       bool
}

// Controller is the single writer of one conversation.
type Controller struct {
	id        string
	transport Transport
	opts      Options
	bc        *conversation.Broadcaster
	ownsBC    bool
	logger    *slog.Logger

	// sendMu serializes Send, Reset and Close so superseding is atomic.
	sendMu sync.Mutex

	mu       sync.Mutex
	conv     conversation.Conversation
	state    conversation.State
	err      error
	seq      uint64
	loaded   bool
	closed   bool
	current  *request
}

// New creates a controller for conversationID.
func New(conversationID string, transport Transport, opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	c := &Controller{
		id:        conversationID,
		transport: transport,
		opts:      opts,
		bc:        opts.Broadcaster,
		conv:      conversation.Conversation{},
		logger:    opts.Logger.With("component", "controller", "conversation_id", conversationID),
	}
	if c.bc == nil {
		c.bc = conversation.NewBroadcaster(opts.Logger)
		c.ownsBC = true
	}
	return c
}

// ID returns the conversation id.
func (c *Controller) ID() string {
	return c.id
}

// Load restores the conversation from history. It only has an effect the
// first time it is called and only while the conversation is still empty.
func (c *Controller) Load(ctx context.Context) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	c.mu.Lock()
	if c.loaded || c.opts.History == nil {
		c.loaded = true
		c.mu.Unlock()
		return
	}
	c.loaded = true
	empty := len(c.conv) == 0
	c.mu.Unlock()
	if !empty {
		return
	}

	msgs := c.opts.History.Load(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.conv = msgs
	c.logger.Info("restored history", "messages", len(msgs))
	c.publishLocked()
}

// Send appends text as a user message and starts streaming the reply. Any
// request already in flight is cancelled and drained first. Send returns
// once the new request has started; cancelling ctx cancels the request.
func (c *Controller) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	c.drain()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.loaded = true

	now := c.opts.Now()
	user := conversation.NewUserMessage(text, now)
	placeholder := conversation.NewPlaceholder(now)
	c.conv = append(slices.Clip(c.conv), user)
	req := c.buildRequest()
	c.conv = append(c.conv, placeholder)
	c.state = conversation.StateSending
	c.err = nil

	reqCtx, cancel := context.WithCancel(ctx)
	r := &request{
		cancel:        cancel,
		done:          make(chan struct{}),
		placeholderID: placeholder.ID,
	}
	c.current = r
	c.publishLocked()

	c.logger.Info("sending message", "messages", len(req.Messages))
	go c.run(reqCtx, r, req)
	return nil
}

// Cancel stops the request in flight, if any. It does not wait.
func (c *Controller) Cancel() {
	c.mu.Lock()
	r := c.current
	c.mu.Unlock()
	if r != nil {
		r.cancel()
	}
}

// Wait blocks until the most recent request, if any, has settled and been
// saved.
func (c *Controller) Wait() {
	c.mu.Lock()
	r := c.current
	c.mu.Unlock()
	if r != nil {
		<-r.done
	}
}

// Reset cancels any request and empties the conversation and its history.
func (c *Controller) Reset(ctx context.Context) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	c.drain()
	if c.opts.History != nil {
		c.opts.History.Clear(ctx)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.conv = conversation.Conversation{}
	c.state = conversation.StateIdle
	c.err = nil
	c.logger.Info("conversation reset")
	c.publishLocked()
}

// Close cancels any request and stops accepting new ones.
func (c *Controller) Close() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	c.drain()
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	if c.ownsBC {
		c.bc.Close()
	}
}

// Snapshot returns the current state of the conversation.
func (c *Controller) Snapshot() conversation.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// State returns the request lifecycle state.
func (c *Controller) State() conversation.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe streams every snapshot published after the call until ctx is
// done or stop is called. Use Snapshot for the state at subscription time.
func (c *Controller) Subscribe(ctx context.Context) (<-chan conversation.Snapshot, func()) {
	ch, subID := c.bc.Subscribe(ctx, c.id)
	return ch, func() { c.bc.Unsubscribe(c.id, subID) }
}

// drain cancels the request in flight and waits for it to settle.
// Callers hold sendMu.
func (c *Controller) drain() {
	c.mu.Lock()
	r := c.current
	c.mu.Unlock()
	if r == nil {
		return
	}
	r.cancel()
	<-r.done
}

// buildRequest turns the settled conversation into the wire request.
// Callers hold mu.
func (c *Controller) buildRequest() ChatRequest {
	req := ChatRequest{
		Messages:     make([]ChatMessage, 0, len(c.conv)),
		ManagerID:    c.opts.ManagerID,
		ShowThinking: c.opts.ShowThinking,
		APIKey:       c.opts.APIKey,
	}
	for _, m := range c.conv {
		if m.IsStreaming || m.Content == "" {
			continue
		}
		req.Messages = append(req.Messages, ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	return req
}

func (c *Controller) run(ctx context.Context, r *request, req ChatRequest) {
	defer close(r.done)
	defer r.cancel()

	body, err := c.transport.Open(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			c.settle(ctx, r, nil)
			return
		}
		c.settle(ctx, r, err)
		return
	}
	defer body.Close()
	stop := context.AfterFunc(ctx, func() { body.Close() })
	defer stop()

	for ev, err := range stream.Parse(body) {
		if ctx.Err() != nil {
			break
		}
		if err != nil {
			c.settle(ctx, r, err)
			return
		}
		c.apply(r, ev)
	}
	c.settle(ctx, r, nil)
}

// apply folds one event into the conversation and publishes the result.
func (c *Controller) apply(r *request, ev stream.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != r || r.settled {
		return
	}

	next, outcome := conversation.Reduce(c.conv, ev)
	if outcome != conversation.Applied {
		c.logger.Debug("ignored stream event", "type", ev.Type, "outcome", outcome.String())
		return
	}
	if ev.Type == stream.EventError {
		r.failed = true
	}
	c.conv = next
	c.publishLocked()
}

// settle ends a request. A nil cause with a cancelled context is a
// cancellation; a non-nil cause is a transport failure.
func (c *Controller) settle(ctx context.Context, r *request, cause error) {
	c.mu.Lock()
	if c.current != r || r.settled {
		c.mu.Unlock()
		return
	}
	r.settled = true

	i := slices.IndexFunc(c.conv, func(m conversation.Message) bool { return m.ID == r.placeholderID })
	cancelled := cause == nil && ctx.Err() != nil

	switch {
	case i < 0:
	case cause != nil:
		c.conv = c.failAt(i, cause)
		c.state = conversation.StateIdleWithError
		c.err = cause
		c.logger.Warn("request failed", "error", cause)
	case cancelled && c.conv[i].IsStreaming && !c.conv[i].HasContent():
		c.conv = slices.Delete(slices.Clone(c.conv), i, i+1)
		c.logger.Info("request cancelled before any content")
	default:
		if c.conv[i].IsStreaming {
			next := slices.Clone(c.conv)
			next[i].IsStreaming = false
			c.conv = next
		}
		if cancelled {
			c.logger.Info("request cancelled with partial content")
		}
	}

	if cause == nil {
		c.state = conversation.StateIdle
		if r.failed && !cancelled {
			c.state = conversation.StateIdleWithError
		}
	}
	c.publishLocked()
	conv := c.conv
	c.mu.Unlock()

	if c.opts.History != nil {
		// The request context may already be cancelled; saving must still happen.
		c.opts.History.Save(context.WithoutCancel(ctx), conv)
	}
}

// failAt overwrites message i with the error text for cause. Callers hold mu.
func (c *Controller) failAt(i int, cause error) conversation.Conversation {
	msg := cause.Error()
	var se *StatusError
	if errors.As(cause, &se) && se.Message != "" {
		msg = se.Message
	}
	next := slices.Clone(c.conv)
	next[i].Content = conversation.ErrorText(msg)
	next[i].IsStreaming = false
	return next
}

func (c *Controller) snapshotLocked() conversation.Snapshot {
	return conversation.Snapshot{
		ConversationID: c.id,
		Messages:       slices.Clip(c.conv),
		State:          c.state,
		Err:            c.err,
		Seq:            c.seq,
	}
}

// publishLocked bumps the sequence number and broadcasts. Callers hold mu.
func (c *Controller) publishLocked() {
	c.seq++
	c.bc.Publish(c.snapshotLocked())
}
