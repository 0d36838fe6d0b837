// ABOUTME: AnthropicModel streams assistant turns from the Anthropic Messages API
// ABOUTME: Rebuilds text, thinking and tool-use blocks from the raw stream events

package agent

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"

	"github.com/curphey/fpl-sub000/internal/packs"
	"github.com/curphey/fpl-sub000/internal/stream"
)

// Defaults for AnthropicConfig.
const (
	DefaultModel     = string(anthropic.ModelClaudeSonnet4_5_20250929)
	DefaultMaxTokens = 4096
)

// AnthropicConfig configures an AnthropicModel.
type AnthropicConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	// MaxTokens bounds each turn's output.
	MaxTokens int64
	// ThinkingBudget enables extended thinking when positive and the turn
	// asks for it. It must be below MaxTokens.
	ThinkingBudget int64
	MaxRetries     int
	HTTPClient     *http.Client
	Logger         *slog.Logger
}

// AnthropicModel implements Model using anthropic-sdk-go.
type AnthropicModel struct {
	client         anthropic.Client
	model          anthropic.Model
	maxTokens      int64
	thinkingBudget int64
	hasKey         bool
	logger         *slog.Logger
}

// NewAnthropicModel creates a model client. An empty API key is allowed when
// every request supplies its own.
func NewAnthropicModel(cfg AnthropicConfig) *AnthropicModel {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.ThinkingBudget >= cfg.MaxTokens {
		cfg.ThinkingBudget = cfg.MaxTokens / 2
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	opts := []option.RequestOption{option.WithMaxRetries(cfg.MaxRetries)}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &AnthropicModel{
		client:         anthropic.NewClient(opts...),
		model:          anthropic.Model(cfg.Model),
		maxTokens:      cfg.MaxTokens,
		thinkingBudget: cfg.ThinkingBudget,
		hasKey:         cfg.APIKey != "",
		logger:         cfg.Logger.With("component", "anthropic", "model", cfg.Model),
	}
}

// Stream implements Model.
func (m *AnthropicModel) Stream(ctx context.Context, turn Turn, emit Emit) (*TurnResult, error) {
	var reqOpts []option.RequestOption
	if turn.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(turn.APIKey))
	} else if !m.hasKey {
		return nil, &ModelError{StatusCode: http.StatusUnauthorized, Message: "no API key configured"}
	}

	params := anthropic.MessageNewParams{
		Model:     m.model,
		MaxTokens: m.maxTokens,
		Messages:  messageParams(turn.Messages),
	}
	if turn.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: turn.System}}
	}
	if len(turn.Tools) > 0 {
		params.Tools = toolParams(turn.Tools)
	}
	if turn.Thinking && m.thinkingBudget > 0 {
		params.Thinking = anthropic.ThinkingConfigParamOfEnabled(m.thinkingBudget)
	}

	m.logger.Debug("→ streaming turn",
		"messages", len(params.Messages),
		"tools", len(params.Tools),
		"thinking", turn.Thinking)

	s := m.client.Messages.NewStreaming(ctx, params, reqOpts...)
	defer s.Close()

	var acc blockAccumulator
	var stopReason string
	for s.Next() {
		switch ev := s.Current().AsAny().(type) {
		case anthropic.ContentBlockStartEvent:
			switch b := ev.ContentBlock.AsAny().(type) {
			case anthropic.ToolUseBlock:
				acc.start(ev.Index, blockToolUse, b.ID, b.Name)
			case anthropic.ThinkingBlock:
				acc.start(ev.Index, blockThinking, "", "")
			default:
				acc.start(ev.Index, blockText, "", "")
			}

		case anthropic.ContentBlockDeltaEvent:
			b := acc.get(ev.Index)
			switch d := ev.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				b.text.WriteString(d.Text)
				if err := emit(stream.TextDelta(d.Text)); err != nil {
					return nil, err
				}
			case anthropic.ThinkingDelta:
				b.text.WriteString(d.Thinking)
				if err := emit(stream.ThinkingDelta(d.Thinking)); err != nil {
					return nil, err
				}
			case anthropic.SignatureDelta:
				b.signature += d.Signature
			case anthropic.InputJSONDelta:
				b.input.WriteString(d.PartialJSON)
			}

		case anthropic.MessageDeltaEvent:
			stopReason = string(ev.Delta.StopReason)
		}
	}
	if err := s.Err(); err != nil {
		return nil, m.describe(ctx, err)
	}

	msg, err := acc.message()
	if err != nil {
		return nil, &ModelError{Message: "model returned malformed tool input", Err: err}
	}
	m.logger.Debug("← turn complete",
		"stop_reason", stopReason,
		"text_bytes", len(msg.Text),
		"tool_uses", len(msg.ToolUses))
	return &TurnResult{Message: msg, StopReason: stopReason}, nil
}

// describe maps SDK errors to user-safe ModelErrors.
func (m *AnthropicModel) describe(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		m.logger.Warn("model request failed", "status", apiErr.StatusCode, "error", err)
		return &ModelError{StatusCode: apiErr.StatusCode, Message: statusMessage(apiErr.StatusCode), Err: err}
	}
	m.logger.Warn("model request failed", "error", err)
	return &ModelError{Message: "could not reach the model", Err: err}
}

func statusMessage(code int) string {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return "invalid API key"
	case code == http.StatusTooManyRequests:
		return "rate limited by the model provider"
	case code == 529 || code >= 500:
		return "the model is overloaded, try again shortly"
	default:
		return strings.ToLower(http.StatusText(code))
	}
}

type blockKind int

const (
	blockText blockKind = iota
	blockThinking
	blockToolUse
)

type block struct {
	kind      blockKind
	id        string
	name      string
	signature string
	text      strings.Builder
	input     strings.Builder
}

// blockAccumulator collects content blocks by stream index.
type blockAccumulator struct {
	blocks []*block
	index  []int64
}

func (a *blockAccumulator) start(i int64, kind blockKind, id, name string) {
	a.blocks = append(a.blocks, &block{kind: kind, id: id, name: name})
	a.index = append(a.index, i)
}

func (a *blockAccumulator) get(i int64) *block {
	if n := slices.Index(a.index, i); n >= 0 {
		return a.blocks[n]
	}
	a.start(i, blockText, "", "")
	return a.blocks[len(a.blocks)-1]
}

func (a *blockAccumulator) message() (Message, error) {
	msg := Message{Role: RoleAssistant}
	var text strings.Builder
	for _, b := range a.blocks {
		switch b.kind {
		case blockText:
			text.WriteString(b.text.String())
		case blockThinking:
			msg.Thinking = append(msg.Thinking, ThinkingBlock{Thinking: b.text.String(), Signature: b.signature})
		case blockToolUse:
			input := map[string]any{}
			if raw := strings.TrimSpace(b.input.String()); raw != "" {
				if err := json.Unmarshal([]byte(raw), &input); err != nil {
					return Message{}, err
				}
			}
			id := b.id
			if id == "" {
				id = "toolu_" + uuid.New().String()
			}
			msg.ToolUses = append(msg.ToolUses, ToolUse{ID: id, Name: b.name, Input: input})
		}
	}
	msg.Text = text.String()
	return msg, nil
}

// messageParams converts the transcript to SDK params, skipping messages
// with nothing to send.
func messageParams(msgs []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		var blocks []anthropic.ContentBlockParamUnion
		switch m.Role {
		case RoleAssistant:
			for _, t := range m.Thinking {
				blocks = append(blocks, anthropic.NewThinkingBlock(t.Signature, t.Thinking))
			}
			if m.Text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Text))
			}
			for _, u := range m.ToolUses {
				blocks = append(blocks, anthropic.NewToolUseBlock(u.ID, u.Input, u.Name))
			}
			if len(blocks) > 0 {
				out = append(out, anthropic.NewAssistantMessage(blocks...))
			}
		default:
			for _, o := range m.ToolOutputs {
				blocks = append(blocks, anthropic.NewToolResultBlock(o.ToolUseID, o.Content, o.IsError))
			}
			if m.Text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Text))
			}
			if len(blocks) > 0 {
				out = append(out, anthropic.NewUserMessage(blocks...))
			}
		}
	}
	return out
}

// toolParams converts the registry catalogue to SDK tool definitions.
func toolParams(defs []packs.ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, len(defs))
	for i, def := range defs {
		schema := anthropic.ToolInputSchemaParam{
			Properties: def.InputSchema.Properties,
		}
		if len(def.InputSchema.Required) > 0 {
			schema.Required = def.InputSchema.Required
		}
		out[i] = anthropic.ToolUnionParamOfTool(schema, def.Name)
		if def.Description != "" {
			out[i].OfTool.Description = anthropic.String(def.Description)
		}
	}
	return out
}
