package tools

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Executor runs a tool with already-parsed arguments and returns a JSON-serialisable result.
type Executor func(ctx context.Context, args any) (any, error)

// ErrUnknownTool is matched by errors.Is for lookups of unregistered tools.
var ErrUnknownTool = errors.New("unknown tool")

// UnknownToolError carries the name the model asked for.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return "Unknown tool: " + e.Name
}

// Is lets errors.Is(err, ErrUnknownTool) match.
func (e *UnknownToolError) Is(target error) bool {
	return target == ErrUnknownTool
}

// Tool pairs a definition with its executor.
type Tool struct {
	Definition ToolDefinition
	Exec       Executor
}

// Registry maps tool names to definitions and executors.
// It is populated at startup, sealed, and then only read.
//
//nolint:govet // fieldalignment: Logical grouping preferred over memory optimization
type Registry struct {
	mu     sync.RWMutex
	sealed bool
	order  []string
	tools  map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Registering after Seal or registering a name twice is an error.
func (r *Registry) Register(def *ToolDefinition, exec Executor) error {
	if def == nil || def.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if exec == nil {
		return fmt.Errorf("tool %s has no executor", def.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("tool registry sealed - cannot register tool '%s'", def.Name)
	}
	if _, exists := r.tools[def.Name]; exists {
		return fmt.Errorf("tool %s already registered", def.Name)
	}
	r.tools[def.Name] = Tool{Definition: *def, Exec: exec}
	r.order = append(r.order, def.Name)
	return nil
}

// Seal prevents further registrations.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// Lookup returns the tool registered under name, or an *UnknownToolError.
func (r *Registry) Lookup(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	if !ok {
		return Tool{}, &UnknownToolError{Name: name}
	}
	return tool, nil
}

// Definitions returns the tool definitions in registration order.
func (r *Registry) Definitions() []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition)
	}
	return defs
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}
