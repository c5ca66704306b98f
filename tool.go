package converse

import (
	"context"
	"encoding/json"
	"fmt"
)

// Tool is the descriptor sent to the model describing a tool's capabilities.
type Tool struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// Invocation is a request to run a named tool with arguments. Invocations
// produced by the model and those synthesized by a chain rule are
// indistinguishable to the executor; Synthetic only records provenance.
type Invocation struct {
	Name      string
	Args      map[string]any
	Synthetic bool
}

// ToolResult represents the outcome of a tool execution. Content holds
// TextPart values only.
type ToolResult struct {
	Content []Part
	IsError bool
}

// ToolExecutor runs tools. Invoke returns an error for infrastructure
// failures (wrapping ErrTransport) and for invocations of tools outside the
// catalog (wrapping ErrValidation). ToolResult.IsError indicates a failure
// reported by the tool itself.
type ToolExecutor interface {
	Invoke(ctx context.Context, inv Invocation) (*ToolResult, error)
}

// ToolHost is a ToolExecutor that can also describe the tools it serves.
type ToolHost interface {
	ToolExecutor
	ListTools(ctx context.Context) ([]Tool, error)
}

// Catalog is an immutable, ordered snapshot of tool descriptors.
type Catalog struct {
	tools []Tool
	index map[string]int
}

// NewCatalog builds a Catalog from tools. Duplicate names are rejected.
func NewCatalog(tools []Tool) (*Catalog, error) {
	c := &Catalog{
		tools: make([]Tool, len(tools)),
		index: make(map[string]int, len(tools)),
	}
	for i, t := range tools {
		if t.Name == "" {
			return nil, fmt.Errorf("tool %d has empty name: %w", i, ErrValidation)
		}
		if _, dup := c.index[t.Name]; dup {
			return nil, fmt.Errorf("duplicate tool %q: %w", t.Name, ErrValidation)
		}
		c.tools[i] = t
		c.index[t.Name] = i
	}
	return c, nil
}

// LoadCatalog fetches the tool list from host once and snapshots it.
func LoadCatalog(ctx context.Context, host ToolHost) (*Catalog, error) {
	tools, err := host.ListTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	return NewCatalog(tools)
}

// List returns a copy of the descriptors in their original order.
func (c *Catalog) List() []Tool {
	if c == nil {
		return nil
	}
	out := make([]Tool, len(c.tools))
	copy(out, c.tools)
	return out
}

// Lookup returns the descriptor for name.
func (c *Catalog) Lookup(name string) (Tool, bool) {
	if c == nil {
		return Tool{}, false
	}
	i, ok := c.index[name]
	if !ok {
		return Tool{}, false
	}
	return c.tools[i], true
}

// Len returns the number of tools in the catalog.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.tools)
}

// Check returns an error wrapping ErrToolNotFound and ErrValidation when
// inv names a tool outside the catalog.
func (c *Catalog) Check(inv Invocation) error {
	if _, ok := c.Lookup(inv.Name); !ok {
		return fmt.Errorf("%w: %q: %w", ErrToolNotFound, inv.Name, ErrValidation)
	}
	return nil
}

// ArgsValidator checks invocation arguments against a tool's parameter
// schema. Failures wrap ErrValidation.
type ArgsValidator interface {
	ValidateArgs(tool Tool, args map[string]any) error
}

// ToolFunc runs a tool with decoded arguments. Failures the model should see
// are reported through ToolResult.IsError; a returned error means the tool
// could not run at all.
type ToolFunc func(ctx context.Context, args map[string]any) (*ToolResult, error)

// Handler pairs a tool descriptor with its implementation. Handlers are
// served in process by builtin.Registry or over MCP by mcp.NewServer.
type Handler struct {
	Tool Tool
	Run  ToolFunc
}

// TextResult returns a successful result holding text.
func TextResult(text string) *ToolResult {
	return &ToolResult{Content: []Part{TextPart{Text: text}}}
}

// ErrorResult returns a tool-reported failure holding msg.
func ErrorResult(msg string) *ToolResult {
	return &ToolResult{Content: []Part{TextPart{Text: msg}}, IsError: true}
}
