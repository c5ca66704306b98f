package mcp

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	stdioSchemePrefix = "stdio://"
	sseSchemePrefix   = "sse://"
)

// ParseTransport builds a client transport from a spec string:
//
//	http://host:3000/mcp          streamable HTTP
//	https+sse://host/sse          SSE over HTTPS
//	sse://host/sse                SSE, scheme defaults to https
//	stdio://toolhost --stdio      subprocess over stdin/stdout
//
// Any other spec without a scheme is run as a stdio command.
func ParseTransport(ctx context.Context, spec string) (mcpsdk.Transport, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("mcp: transport spec is empty")
	}

	lowered := strings.ToLower(spec)
	switch {
	case strings.HasPrefix(lowered, stdioSchemePrefix):
		return stdioTransport(ctx, spec[len(stdioSchemePrefix):])
	case strings.HasPrefix(lowered, sseSchemePrefix):
		endpoint, err := normalizeHTTPURL(spec[len(sseSchemePrefix):], true)
		if err != nil {
			return nil, fmt.Errorf("mcp: invalid SSE endpoint: %w", err)
		}
		return &mcpsdk.SSEClientTransport{Endpoint: endpoint}, nil
	}

	u, err := url.Parse(spec)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return stdioTransport(ctx, spec)
	}
	base, hint, _ := strings.Cut(strings.ToLower(u.Scheme), "+")
	if base != "http" && base != "https" {
		return nil, fmt.Errorf("mcp: unsupported scheme %q", u.Scheme)
	}
	normalized := *u
	normalized.Scheme = base
	endpoint := normalized.String()

	switch hint {
	case "", "stream", "streamable", "http":
		return &mcpsdk.StreamableClientTransport{Endpoint: endpoint}, nil
	case "sse":
		return &mcpsdk.SSEClientTransport{Endpoint: endpoint}, nil
	default:
		return nil, fmt.Errorf("mcp: unsupported HTTP transport hint %q", hint)
	}
}

func stdioTransport(ctx context.Context, cmdSpec string) (mcpsdk.Transport, error) {
	parts := strings.Fields(cmdSpec)
	if len(parts) == 0 {
		return nil, fmt.Errorf("mcp: stdio command is empty")
	}
	// #nosec G204 -- the command comes from local configuration.
	command := exec.CommandContext(ctx, parts[0], parts[1:]...)
	return &mcpsdk.CommandTransport{Command: command}, nil
}

func normalizeHTTPURL(raw string, allowSchemeGuess bool) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("endpoint is empty")
	}
	if allowSchemeGuess && !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("missing host")
	}
	parsed.Scheme = scheme
	return parsed.String(), nil
}
