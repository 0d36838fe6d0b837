// ABOUTME: Runner drives the model/tool loop for one chat request
// ABOUTME: Emits stream events in order while tools run concurrently per round

package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/curphey/fpl-sub000/internal/fpl"
	"github.com/curphey/fpl-sub000/internal/packs"
	"github.com/curphey/fpl-sub000/internal/stream"
)

// DefaultMaxTurns bounds the number of model calls per request.
const DefaultMaxTurns = 8

// DefaultSystemPrompt frames the assistant.
const DefaultSystemPrompt = `You are an expert Fantasy Premier League assistant.
Use the available tools to look up current player, fixture and manager data
instead of guessing. Prices are in millions of pounds. Keep answers concise
and explain the reasoning behind recommendations.`

// ErrInvalidRequest is returned by Validate.
var ErrInvalidRequest = errors.New("invalid chat request")

// ChatMessage is one prior turn posted by the client.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the body of POST /api/chat.
type Request struct {
	Messages     []ChatMessage `json:"messages"`
	ManagerID    *int          `json:"managerId,omitempty"`
	ShowThinking bool          `json:"showThinking,omitempty"`
	APIKey       string        `json:"apiKey,omitempty"`
}

// Validate checks the request shape: at least one message, known roles,
// and a final user message.
func (r Request) Validate() error {
	if len(r.Messages) == 0 {
		return fmt.Errorf("%w: messages required", ErrInvalidRequest)
	}
	for i, m := range r.Messages {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			return fmt.Errorf("%w: message %d has invalid role %q", ErrInvalidRequest, i, m.Role)
		}
	}
	last := r.Messages[len(r.Messages)-1]
	if last.Role != RoleUser {
		return fmt.Errorf("%w: last message must be from the user", ErrInvalidRequest)
	}
	if strings.TrimSpace(last.Content) == "" {
		return fmt.Errorf("%w: last message is empty", ErrInvalidRequest)
	}
	if r.ManagerID != nil && *r.ManagerID <= 0 {
		return fmt.Errorf("%w: managerId must be positive", ErrInvalidRequest)
	}
	return nil
}

// DataSource supplies the reference data snapshot tools read from.
type DataSource interface {
	Snapshot(ctx context.Context) (*fpl.Snapshot, error)
}

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	Model      Model
	Registry   *packs.Registry
	Dispatcher *packs.Dispatcher
	// Data is optional; without it data tools report that no data is loaded.
	Data     DataSource
	System   string
	MaxTurns int
	Logger   *slog.Logger
}

// Runner executes chat requests.
type Runner struct {
	model      Model
	registry   *packs.Registry
	dispatcher *packs.Dispatcher
	data       DataSource
	system     string
	maxTurns   int
	logger     *slog.Logger
}

// NewRunner creates a Runner.
func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.System == "" {
		cfg.System = DefaultSystemPrompt
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = DefaultMaxTurns
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Runner{
		model:      cfg.Model,
		registry:   cfg.Registry,
		dispatcher: cfg.Dispatcher,
		data:       cfg.Data,
		system:     cfg.System,
		maxTurns:   cfg.MaxTurns,
		logger:     cfg.Logger.With("component", "runner"),
	}
}

// Run answers req, writing events to emit. Model failures are reported as an
// error event and Run returns nil; a non-nil return means emit failed or ctx
// ended, and the stream should be abandoned.
func (r *Runner) Run(ctx context.Context, req Request, emit Emit) error {
	tc := packs.ToolContext{ManagerID: req.ManagerID}
	system := r.system
	if r.data != nil {
		snap, err := r.data.Snapshot(ctx)
		if err != nil {
			r.logger.Warn("reference data unavailable", "error", err)
		} else {
			tc.Data = snap
			system += fmt.Sprintf("\n\nThe next gameweek to plan for is gameweek %d.", snap.PlanningGameweek())
		}
	}
	if req.ManagerID != nil {
		system += fmt.Sprintf("\nThe user's FPL manager id is %d.", *req.ManagerID)
	}

	var emitErr error
	out := func(ev stream.Event) error {
		if ev.Type == stream.EventThinkingDelta && !req.ShowThinking {
			return nil
		}
		if err := emit(ev); err != nil {
			emitErr = err
			return err
		}
		return nil
	}

	msgs := make([]Message, 0, len(req.Messages)+2*r.maxTurns)
	for _, m := range req.Messages {
		msgs = append(msgs, Message{Role: m.Role, Text: m.Content})
	}

	var tools []packs.ToolDefinition
	if r.registry != nil {
		tools = r.registry.List()
	}

	for turn := 1; turn <= r.maxTurns; turn++ {
		res, err := r.model.Stream(ctx, Turn{
			System:   system,
			Messages: msgs,
			Tools:    tools,
			Thinking: req.ShowThinking,
			APIKey:   req.APIKey,
		}, out)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if emitErr != nil {
				return emitErr
			}
			r.logger.Warn("turn failed", "turn", turn, "error", err)
			return emit(stream.Error(userMessage(err)))
		}

		msgs = append(msgs, res.Message)
		uses := res.Message.ToolUses
		if len(uses) == 0 {
			r.logger.Info("request complete", "turns", turn)
			return emit(stream.Done())
		}

		outputs, err := r.runTools(ctx, uses, tc, emit)
		if err != nil {
			return err
		}
		msgs = append(msgs, Message{Role: RoleUser, ToolOutputs: outputs})
	}

	r.logger.Warn("tool round limit reached", "max_turns", r.maxTurns)
	if err := emit(stream.TextDelta("\n\n(Stopped after too many tool calls.)")); err != nil {
		return err
	}
	return emit(stream.Done())
}

// runTools announces, executes and reports one round of tool uses. Starts
// are emitted in request order before dispatch; ends in the same order after.
func (r *Runner) runTools(ctx context.Context, uses []ToolUse, tc packs.ToolContext, emit Emit) ([]ToolOutput, error) {
	calls := make([]packs.Call, len(uses))
	for i, u := range uses {
		if err := emit(stream.ToolUseStart(u.ID, u.Name)); err != nil {
			return nil, err
		}
		calls[i] = packs.Call{ID: u.ID, Name: u.Name, Input: u.Input}
	}

	results := r.dispatcher.ExecuteAll(ctx, calls, tc)

	outputs := make([]ToolOutput, len(uses))
	for i, u := range uses {
		res := results[i]
		if err := emit(stream.ToolUseEnd(u.ID, u.Name, u.Input, res.Value, res.Error)); err != nil {
			return nil, err
		}
		content, err := res.MarshalJSON()
		if err != nil {
			content = []byte(`{"error":"unencodable result"}`)
		}
		outputs[i] = ToolOutput{ToolUseID: u.ID, Content: string(content), IsError: res.Failed()}
	}
	return outputs, nil
}

// userMessage is the error text shown for a failed model call.
func userMessage(err error) string {
	var me *ModelError
	if errors.As(err, &me) && me.Message != "" {
		return me.Message
	}
	return "the model request failed"
}
