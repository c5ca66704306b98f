package builtin

import (
	"context"
	"fmt"

	"github.com/fwojciec/converse"
)

// Compile-time interface check.
var _ converse.ToolHost = (*Registry)(nil)

// Registry dispatches invocations to in-process handlers by tool name.
type Registry struct {
	handlers []converse.Handler
	index    map[string]int
}

// NewRegistry creates a Registry. Empty and duplicate tool names are
// rejected.
func NewRegistry(handlers ...converse.Handler) (*Registry, error) {
	r := &Registry{
		handlers: make([]converse.Handler, len(handlers)),
		index:    make(map[string]int, len(handlers)),
	}
	for i, h := range handlers {
		if h.Tool.Name == "" || h.Run == nil {
			return nil, fmt.Errorf("builtin: handler %d is incomplete: %w", i, converse.ErrValidation)
		}
		if _, dup := r.index[h.Tool.Name]; dup {
			return nil, fmt.Errorf("builtin: duplicate tool %q: %w", h.Tool.Name, converse.ErrValidation)
		}
		r.handlers[i] = h
		r.index[h.Tool.Name] = i
	}
	return r, nil
}

// Defaults returns the tools that need no credentials or filesystem access.
func Defaults() []converse.Handler {
	return []converse.Handler{
		AddTwoNumbers(),
	}
}

// ListTools returns the descriptors of all registered handlers in
// registration order.
func (r *Registry) ListTools(_ context.Context) ([]converse.Tool, error) {
	tools := make([]converse.Tool, len(r.handlers))
	for i, h := range r.handlers {
		tools[i] = h.Tool
	}
	return tools, nil
}

// Handlers returns the registered handlers in registration order.
func (r *Registry) Handlers() []converse.Handler {
	out := make([]converse.Handler, len(r.handlers))
	copy(out, r.handlers)
	return out
}

// Invoke dispatches a call by name. Unknown names return an error wrapping
// ErrToolNotFound and ErrValidation.
func (r *Registry) Invoke(ctx context.Context, inv converse.Invocation) (*converse.ToolResult, error) {
	i, ok := r.index[inv.Name]
	if !ok {
		return nil, fmt.Errorf("builtin: %w: %q: %w", converse.ErrToolNotFound, inv.Name, converse.ErrValidation)
	}
	args := inv.Args
	if args == nil {
		args = map[string]any{}
	}
	result, err := r.handlers[i].Run(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("builtin: %s: %w", inv.Name, err)
	}
	return result, nil
}
