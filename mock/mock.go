// Package mock provides test doubles for converse interfaces using function fields.
package mock

import (
	"context"

	"github.com/fwojciec/converse"
)

// Interface compliance checks.
var (
	_ converse.ModelGateway  = (*ModelGateway)(nil)
	_ converse.ToolExecutor  = (*ToolExecutor)(nil)
	_ converse.ToolHost      = (*ToolHost)(nil)
	_ converse.ArgsValidator = (*ArgsValidator)(nil)
)

// ModelGateway is a test double for converse.ModelGateway.
// Set GenerateFn before calling Generate.
type ModelGateway struct {
	GenerateFn func(ctx context.Context, conversation []converse.Entry, tools []converse.Tool) (converse.Turn, error)
}

// Generate delegates to GenerateFn.
func (g *ModelGateway) Generate(ctx context.Context, conversation []converse.Entry, tools []converse.Tool) (converse.Turn, error) {
	return g.GenerateFn(ctx, conversation, tools)
}

// ToolExecutor is a test double for converse.ToolExecutor.
// Set InvokeFn before calling Invoke.
type ToolExecutor struct {
	InvokeFn func(ctx context.Context, inv converse.Invocation) (*converse.ToolResult, error)
}

// Invoke delegates to InvokeFn.
func (e *ToolExecutor) Invoke(ctx context.Context, inv converse.Invocation) (*converse.ToolResult, error) {
	return e.InvokeFn(ctx, inv)
}

// ToolHost is a test double for converse.ToolHost.
// Set the function fields for the methods you need.
type ToolHost struct {
	ListToolsFn func(ctx context.Context) ([]converse.Tool, error)
	InvokeFn    func(ctx context.Context, inv converse.Invocation) (*converse.ToolResult, error)
}

// ListTools delegates to ListToolsFn.
func (h *ToolHost) ListTools(ctx context.Context) ([]converse.Tool, error) {
	return h.ListToolsFn(ctx)
}

// Invoke delegates to InvokeFn.
func (h *ToolHost) Invoke(ctx context.Context, inv converse.Invocation) (*converse.ToolResult, error) {
	return h.InvokeFn(ctx, inv)
}

// ArgsValidator is a test double for converse.ArgsValidator.
// Set ValidateArgsFn before calling ValidateArgs.
type ArgsValidator struct {
	ValidateArgsFn func(tool converse.Tool, args map[string]any) error
}

// ValidateArgs delegates to ValidateArgsFn.
func (v *ArgsValidator) ValidateArgs(tool converse.Tool, args map[string]any) error {
	return v.ValidateArgsFn(tool, args)
}
