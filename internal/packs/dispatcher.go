// ABOUTME: Dispatches tool calls to built-in handlers and converts failures into results
// ABOUTME: Execute always returns a Result; ExecuteAll runs independent calls concurrently

package packs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultTimeout is the default timeout for tool execution.
const DefaultTimeout = 30 * time.Second

// DefaultConcurrency bounds how many calls ExecuteAll runs at once.
const DefaultConcurrency = 4

// Dispatcher executes tool calls against a Registry.
type Dispatcher struct {
	registry    *Registry
	logger      *slog.Logger
	timeout     time.Duration
	concurrency int
	metrics     *Metrics
}

// DispatcherConfig contains configuration options for the Dispatcher.
type DispatcherConfig struct {
	Registry    *Registry
	Logger      *slog.Logger
	Timeout     time.Duration
	Concurrency int
	Metrics     *Metrics
}

// NewDispatcher creates a new Dispatcher with the given configuration.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		registry:    cfg.Registry,
		logger:      logger.With("component", "dispatcher"),
		timeout:     timeout,
		concurrency: concurrency,
		metrics:     cfg.Metrics,
	}
}

// Execute runs one tool call. Unknown tools, invalid input, handler errors,
// timeouts and panics are all reported in Result.Error.
func (d *Dispatcher) Execute(ctx context.Context, name string, input map[string]any, tc ToolContext) Result {
	builtin := d.registry.Get(name)
	if builtin == nil {
		d.logger.Debug("tool not found in registry", "tool_name", name)
		d.metrics.observe(unknownToolLabel, outcomeUnknown, 0)
		return Result{Error: "Unknown tool: " + name}
	}
	if input == nil {
		input = map[string]any{}
	}

	d.logger.Info("→ dispatching to builtin", "tool_name", name)

	start := time.Now()
	result, outcome := d.run(ctx, builtin, input, tc)
	elapsed := time.Since(start)
	d.metrics.observe(name, outcome, elapsed)

	if result.Failed() {
		d.logger.Warn("builtin tool error",
			"tool_name", name,
			"error", result.Error,
			"duration", elapsed,
		)
		return result
	}

	d.logger.Info("← builtin responded",
		"tool_name", name,
		"duration", elapsed,
	)
	return result
}

func (d *Dispatcher) run(ctx context.Context, builtin *BuiltinTool, input map[string]any, tc ToolContext) (result Result, outcome string) {
	defer func() {
		if p := recover(); p != nil {
			result = Result{Error: fmt.Sprintf("tool %s failed: %v", builtin.Definition.Name, p)}
			outcome = outcomePanic
		}
	}()

	if err := checkRequired(builtin.Definition.InputSchema, input); err != nil {
		return Result{Error: err.Error()}, outcomeError
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	value, err := builtin.Handler(ctx, tc, input)
	if err != nil {
		return Result{Error: err.Error()}, outcomeError
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return Result{Error: fmt.Sprintf("encoding result: %v", err)}, outcomeError
	}
	return Result{Value: raw}, outcomeOK
}

// ExecuteAll runs independent calls concurrently and returns their results
// in the order of calls.
func (d *Dispatcher) ExecuteAll(ctx context.Context, calls []Call, tc ToolContext) []Result {
	results := make([]Result, len(calls))

	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for i, call := range calls {
		g.Go(func() error {
			results[i] = d.Execute(ctx, call.Name, call.Input, tc)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// checkRequired verifies every required property of schema is present in input.
func checkRequired(schema Schema, input map[string]any) error {
	for _, field := range schema.Required {
		if v, ok := input[field]; !ok || v == nil {
			return fmt.Errorf("invalid input: missing required field %q", field)
		}
	}
	return nil
}
