package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/fwojciec/converse"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
)

// Compile-time interface check.
var _ converse.ToolHost = (*Client)(nil)

// Client is a [converse.ToolHost] backed by an MCP client session.
type Client struct {
	session  *mcpsdk.ClientSession
	logger   zerolog.Logger
	maxLines int
	maxBytes int

	mu     sync.RWMutex
	listed map[string]struct{}
}

// Option configures a [Client].
type Option func(*clientConfig)

type clientConfig struct {
	impl     mcpsdk.Implementation
	logger   zerolog.Logger
	maxLines int
	maxBytes int
}

// WithImplementation sets the name and version the client reports to the
// server during initialization.
func WithImplementation(name, version string) Option {
	return func(c *clientConfig) {
		c.impl = mcpsdk.Implementation{Name: name, Version: version}
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *clientConfig) { c.logger = logger }
}

// WithResultLimit caps the text of each result part at maxLines lines and
// maxBytes bytes. Zero disables a bound. The default is 500 lines and 32KiB.
func WithResultLimit(maxLines, maxBytes int) Option {
	return func(c *clientConfig) {
		c.maxLines = maxLines
		c.maxBytes = maxBytes
	}
}

// Dial parses spec with [ParseTransport] and connects to the server.
func Dial(ctx context.Context, spec string, opts ...Option) (*Client, error) {
	transport, err := ParseTransport(ctx, spec)
	if err != nil {
		return nil, err
	}
	return Connect(ctx, transport, opts...)
}

// Connect initializes an MCP session over transport. Connection failures
// wrap [converse.ErrTransport].
func Connect(ctx context.Context, transport mcpsdk.Transport, opts ...Option) (*Client, error) {
	cfg := clientConfig{
		impl:     mcpsdk.Implementation{Name: implementationName, Version: implementationVersion},
		logger:   zerolog.Nop(),
		maxLines: defaultMaxResultLines,
		maxBytes: defaultMaxResultBytes,
	}
	for _, o := range opts {
		o(&cfg)
	}

	impl := mcpsdk.NewClient(&cfg.impl, nil)
	session, err := impl.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("mcp: connect: %w: %w", converse.ErrTransport, err)
	}
	cfg.logger.Debug().Str("session", session.ID()).Msg("mcp session established")
	return &Client{
		session:  session,
		logger:   cfg.logger,
		maxLines: cfg.maxLines,
		maxBytes: cfg.maxBytes,
	}, nil
}

// ListTools fetches the full tool list from the server. The names it returns
// become the set Invoke accepts.
func (c *Client) ListTools(ctx context.Context) ([]converse.Tool, error) {
	var tools []converse.Tool
	for tool, err := range c.session.Tools(ctx, nil) {
		if err != nil {
			return nil, fmt.Errorf("mcp: list tools: %w: %w", converse.ErrTransport, err)
		}
		t, err := toTool(tool)
		if err != nil {
			return nil, fmt.Errorf("mcp: tool %q: %w", tool.Name, err)
		}
		tools = append(tools, t)
	}

	listed := make(map[string]struct{}, len(tools))
	for _, t := range tools {
		listed[t.Name] = struct{}{}
	}
	c.mu.Lock()
	c.listed = listed
	c.mu.Unlock()

	c.logger.Debug().Int("tools", len(tools)).Msg("listed mcp tools")
	return tools, nil
}

// Invoke calls a tool on the server. Names outside the listed catalog are
// rejected with an error wrapping [converse.ErrValidation] before any round
// trip; protocol and network failures wrap [converse.ErrTransport].
func (c *Client) Invoke(ctx context.Context, inv converse.Invocation) (*converse.ToolResult, error) {
	known, err := c.known(ctx, inv.Name)
	if err != nil {
		return nil, err
	}
	if !known {
		return nil, fmt.Errorf("mcp: %w: %q: %w", converse.ErrToolNotFound, inv.Name, converse.ErrValidation)
	}

	args := inv.Args
	if args == nil {
		args = map[string]any{}
	}
	res, err := c.session.CallTool(ctx, &mcpsdk.CallToolParams{Name: inv.Name, Arguments: args})
	if err != nil {
		return nil, fmt.Errorf("mcp: call %s: %w: %w", inv.Name, converse.ErrTransport, err)
	}
	result := toToolResult(res)
	if result != nil {
		for i, p := range result.Content {
			if tp, ok := p.(converse.TextPart); ok {
				result.Content[i] = converse.TextPart{Text: clean(tp.Text, c.maxLines, c.maxBytes)}
			}
		}
	}
	return result, nil
}

// Close ends the session.
func (c *Client) Close() error {
	return c.session.Close()
}

func (c *Client) known(ctx context.Context, name string) (bool, error) {
	c.mu.RLock()
	listed := c.listed
	c.mu.RUnlock()
	if listed == nil {
		if _, err := c.ListTools(ctx); err != nil {
			return false, err
		}
		c.mu.RLock()
		listed = c.listed
		c.mu.RUnlock()
	}
	_, ok := listed[name]
	return ok, nil
}

func toTool(t *mcpsdk.Tool) (converse.Tool, error) {
	tool := converse.Tool{Name: t.Name, Description: t.Description}
	if t.InputSchema != nil {
		schema, err := json.Marshal(t.InputSchema)
		if err != nil {
			return converse.Tool{}, err
		}
		tool.Parameters = schema
	}
	return tool, nil
}

// toToolResult flattens MCP content into text parts. Non-text content is
// rendered as a bracketed marker so the model knows something was returned.
func toToolResult(res *mcpsdk.CallToolResult) *converse.ToolResult {
	if res == nil {
		return nil
	}
	out := &converse.ToolResult{IsError: res.IsError}
	for _, content := range res.Content {
		out.Content = append(out.Content, converse.TextPart{Text: contentText(content)})
	}
	if len(out.Content) == 0 && res.StructuredContent != nil {
		if data, err := json.Marshal(res.StructuredContent); err == nil {
			out.Content = append(out.Content, converse.TextPart{Text: string(data)})
		}
	}
	return out
}

func contentText(content mcpsdk.Content) string {
	switch c := content.(type) {
	case *mcpsdk.TextContent:
		return c.Text
	case *mcpsdk.ImageContent:
		return fmt.Sprintf("[image: %s, %d bytes]", c.MIMEType, len(c.Data))
	case *mcpsdk.AudioContent:
		return fmt.Sprintf("[audio: %s, %d bytes]", c.MIMEType, len(c.Data))
	case *mcpsdk.ResourceLink:
		return fmt.Sprintf("[resource: %s]", c.URI)
	case *mcpsdk.EmbeddedResource:
		if c.Resource != nil && c.Resource.Text != "" {
			return c.Resource.Text
		}
		if c.Resource != nil {
			return fmt.Sprintf("[resource: %s]", c.Resource.URI)
		}
	}
	return fmt.Sprintf("[unsupported content: %T]", content)
}
