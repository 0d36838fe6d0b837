// ABOUTME: Thread-safe registry of built-in tool packs and their tools
// ABOUTME: Preserves registration order and rejects duplicate tool names

package packs

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrToolCollision indicates a tool name already exists from another pack.
var ErrToolCollision = errors.New("tool name collision")

// ErrPackAlreadyRegistered indicates a pack with the same ID is already registered.
var ErrPackAlreadyRegistered = errors.New("pack already registered")

// Registry maintains the catalogue of built-in tools.
type Registry struct {
	mu       sync.RWMutex
	builtins map[string]*builtinEntry // tool name -> entry
	order    []string                 // tool names in registration order
	packs    []string                 // pack IDs in registration order
	logger   *slog.Logger
}

// NewRegistry creates a new Registry instance. Pass nil logger for default.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		builtins: make(map[string]*builtinEntry),
		logger:   logger.With("component", "registry"),
	}
}

// RegisterBuiltinPack registers a pack of built-in tools. Nothing is
// registered if any tool name collides, within the pack or with an
// existing tool.
func (r *Registry) RegisterBuiltinPack(pack *BuiltinPack) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.packs {
		if id == pack.ID {
			return fmt.Errorf("%w: %s", ErrPackAlreadyRegistered, pack.ID)
		}
	}

	seen := make(map[string]struct{}, len(pack.Tools))
	for _, tool := range pack.Tools {
		name := tool.Definition.Name
		if entry, exists := r.builtins[name]; exists {
			return fmt.Errorf("%w: tool '%s' already registered by pack '%s'", ErrToolCollision, name, entry.PackID)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: tool '%s' appears twice in pack '%s'", ErrToolCollision, name, pack.ID)
		}
		seen[name] = struct{}{}
	}

	for _, tool := range pack.Tools {
		r.builtins[tool.Definition.Name] = &builtinEntry{Tool: tool, PackID: pack.ID}
		r.order = append(r.order, tool.Definition.Name)
	}
	r.packs = append(r.packs, pack.ID)

	r.logger.Info("=== BUILTIN PACK REGISTERED ===",
		"pack_id", pack.ID,
		"tool_count", len(pack.Tools),
		"total_tools", len(r.order),
	)

	return nil
}

// MustRegister registers every pack and panics on the first failure.
// Duplicate tool names are a startup error.
func (r *Registry) MustRegister(packs ...*BuiltinPack) {
	for _, p := range packs {
		if err := r.RegisterBuiltinPack(p); err != nil {
			panic(fmt.Sprintf("registering pack %s: %v", p.ID, err))
		}
	}
}

// Get returns a builtin tool by name, or nil if not found.
func (r *Registry) Get(name string) *BuiltinTool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if entry, ok := r.builtins[name]; ok {
		return entry.Tool
	}
	return nil
}

// Has reports whether a tool with the given name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.builtins[name]
	return ok
}

// List returns every tool definition in registration order.
func (r *Registry) List() []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.builtins[name].Tool.Definition)
	}
	return defs
}

// PackInfo contains information about a registered pack for display.
type PackInfo struct {
	ID        string
	ToolNames []string
}

// Packs returns the registered packs and their tool names in registration order.
func (r *Registry) Packs() []PackInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]PackInfo, 0, len(r.packs))
	index := make(map[string]int, len(r.packs))
	for _, id := range r.packs {
		index[id] = len(result)
		result = append(result, PackInfo{ID: id})
	}
	for _, name := range r.order {
		i := index[r.builtins[name].PackID]
		result[i].ToolNames = append(result[i].ToolNames, name)
	}
	return result
}
