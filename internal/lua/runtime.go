// Package lua runs Lua scripts against the light registry.
package lua

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/lightstate/internal/registry"
)

// Runtime is a Lua VM with the light and log modules preloaded.
// A Runtime is not safe for concurrent use.
type Runtime struct {
	L *lua.LState
}

// NewRuntime creates a VM bound to the registry.
func NewRuntime(lights *registry.Registry) *Runtime {
	L := lua.NewState()

	lm := &lightModule{lights: lights}
	L.PreloadModule("light", lm.loader)
	L.PreloadModule("log", logLoader)

	return &Runtime{L: L}
}

// Close releases the VM.
func (r *Runtime) Close() {
	r.L.Close()
}

// RunFile executes a script file. The context cancels a running script.
func (r *Runtime) RunFile(ctx context.Context, path string) error {
	log.Info().Str("path", path).Msg("Running Lua script")

	r.L.SetContext(ctx)
	if err := r.L.DoFile(path); err != nil {
		return fmt.Errorf("failed to execute Lua script: %w", err)
	}

	log.Info().Str("path", path).Msg("Lua script finished")
	return nil
}

// RunString executes a script given as source.
func (r *Runtime) RunString(ctx context.Context, source string) error {
	r.L.SetContext(ctx)
	if err := r.L.DoString(source); err != nil {
		return fmt.Errorf("failed to execute Lua script: %w", err)
	}
	return nil
}
