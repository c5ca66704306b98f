package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fwojciec/converse"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
)

// NewServer returns an MCP server exposing handlers as tools. Handler errors
// reach the client as IsError results carrying the error text.
func NewServer(name, version string, handlers []converse.Handler, logger zerolog.Logger) (*mcpsdk.Server, error) {
	server := mcpsdk.NewServer(&mcpsdk.Implementation{Name: name, Version: version}, nil)
	for _, h := range handlers {
		tool, err := toMCPTool(h.Tool)
		if err != nil {
			return nil, fmt.Errorf("mcp: tool %q: %w", h.Tool.Name, err)
		}
		server.AddTool(tool, serve(h, logger))
	}
	return server, nil
}

// NewHTTPHandler serves server over streamable HTTP.
func NewHTTPHandler(server *mcpsdk.Server) http.Handler {
	return mcpsdk.NewStreamableHTTPHandler(func(*http.Request) *mcpsdk.Server { return server }, nil)
}

// ServeStdio serves server on the process's stdin and stdout until ctx is
// cancelled or the client disconnects.
func ServeStdio(ctx context.Context, server *mcpsdk.Server) error {
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

func toMCPTool(t converse.Tool) (*mcpsdk.Tool, error) {
	schema := map[string]any{"type": "object", "properties": map[string]any{}}
	if len(t.Parameters) > 0 {
		schema = nil
		if err := json.Unmarshal(t.Parameters, &schema); err != nil {
			return nil, fmt.Errorf("parameters: %w", err)
		}
	}
	return &mcpsdk.Tool{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: schema,
	}, nil
}

func serve(h converse.Handler, logger zerolog.Logger) mcpsdk.ToolHandler {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		log := logger.With().Str("tool", h.Tool.Name).Logger()
		start := time.Now()

		args := map[string]any{}
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				log.Warn().Err(err).Msg("invalid arguments")
				return errorResult(fmt.Sprintf("invalid arguments: %s", err)), nil
			}
		}

		result, err := h.Run(ctx, args)
		if err != nil {
			log.Error().Err(err).Dur("duration", time.Since(start)).Msg("tool failed")
			return errorResult(err.Error()), nil
		}
		log.Info().Bool("is_error", result != nil && result.IsError).Dur("duration", time.Since(start)).Msg("tool called")
		return fromToolResult(result), nil
	}
}

func fromToolResult(r *converse.ToolResult) *mcpsdk.CallToolResult {
	out := &mcpsdk.CallToolResult{Content: []mcpsdk.Content{}}
	if r == nil {
		return out
	}
	out.IsError = r.IsError
	for _, p := range r.Content {
		if tp, ok := p.(converse.TextPart); ok {
			out.Content = append(out.Content, &mcpsdk.TextContent{Text: tp.Text})
		}
	}
	return out
}

func errorResult(msg string) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: msg}},
		IsError: true,
	}
}
