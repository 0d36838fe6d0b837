// ABOUTME: Tests for the tool registry
// ABOUTME: Covers ordering, collision detection and startup-fatal registration

package packs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoHandler(_ context.Context, _ ToolContext, input map[string]any) (any, error) {
	return input, nil
}

func testTool(name string, required ...string) *BuiltinTool {
	props := map[string]Property{}
	for _, r := range required {
		props[r] = Property{Type: "string"}
	}
	return &BuiltinTool{
		Definition: ToolDefinition{
			Name:        name,
			Description: name + " description",
			InputSchema: Object(props, required...),
		},
		Handler: echoHandler,
	}
}

func testPack(id string, tools ...*BuiltinTool) *BuiltinPack {
	return &BuiltinPack{ID: id, Tools: tools}
}

func TestRegistry_ListPreservesRegistrationOrder(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.RegisterBuiltinPack(testPack("p1", testTool("zeta"), testTool("alpha"))))
	require.NoError(t, r.RegisterBuiltinPack(testPack("p2", testTool("mid"))))

	var names []string
	for _, def := range r.List() {
		names = append(names, def.Name)
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, names)

	for range 5 {
		assert.Equal(t, r.List(), r.List(), "list must be stable")
	}
}

func TestRegistry_Collisions(t *testing.T) {
	t.Run("across packs", func(t *testing.T) {
		r := NewRegistry(nil)
		require.NoError(t, r.RegisterBuiltinPack(testPack("p1", testTool("search"))))

		err := r.RegisterBuiltinPack(testPack("p2", testTool("other"), testTool("search")))
		require.ErrorIs(t, err, ErrToolCollision)
		assert.Contains(t, err.Error(), "p1")
		assert.False(t, r.Has("other"), "a rejected pack registers nothing")
	})

	t.Run("within a pack", func(t *testing.T) {
		r := NewRegistry(nil)
		err := r.RegisterBuiltinPack(testPack("p1", testTool("dup"), testTool("dup")))
		require.ErrorIs(t, err, ErrToolCollision)
		assert.Empty(t, r.List())
	})

	t.Run("same pack twice", func(t *testing.T) {
		r := NewRegistry(nil)
		require.NoError(t, r.RegisterBuiltinPack(testPack("p1", testTool("a"))))
		err := r.RegisterBuiltinPack(testPack("p1", testTool("b")))
		require.ErrorIs(t, err, ErrPackAlreadyRegistered)
	})
}

func TestRegistry_MustRegisterPanicsOnDuplicate(t *testing.T) {
	r := NewRegistry(nil)
	assert.Panics(t, func() {
		r.MustRegister(testPack("p1", testTool("x")), testPack("p2", testTool("x")))
	})
	assert.NotPanics(t, func() {
		NewRegistry(nil).MustRegister(testPack("p1", testTool("x")), testPack("p2", testTool("y")))
	})
}

func TestRegistry_GetAndPacks(t *testing.T) {
	r := NewRegistry(nil)
	r.MustRegister(testPack("p1", testTool("a"), testTool("b")), testPack("p2", testTool("c")))

	require.NotNil(t, r.Get("b"))
	assert.Equal(t, "b", r.Get("b").Definition.Name)
	assert.Nil(t, r.Get("missing"))

	assert.Equal(t, []PackInfo{
		{ID: "p1", ToolNames: []string{"a", "b"}},
		{ID: "p2", ToolNames: []string{"c"}},
	}, r.Packs())
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry(nil)
	var wg sync.WaitGroup

	for i := range 10 {
		wg.Go(func() {
			_ = r.RegisterBuiltinPack(testPack(fmt.Sprintf("p%d", i), testTool(fmt.Sprintf("tool-%d", i))))
		})
		wg.Go(func() {
			_ = r.List()
			_ = r.Has("tool-0")
		})
	}
	wg.Wait()

	assert.Len(t, r.List(), 10)
}

func TestToolDefinition_JSONShape(t *testing.T) {
	def := testTool("get_player", "player_id").Definition
	raw, err := json.Marshal(def)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"name": "get_player",
		"description": "get_player description",
		"input_schema": {
			"type": "object",
			"properties": {"player_id": {"type": "string"}},
			"required": ["player_id"]
		}
	}`, string(raw))
}
