// Package mcp connects converse to the Model Context Protocol.
//
// [Client] implements [converse.ToolHost] over an MCP client session, and
// [NewServer] exposes [converse.Handler] values as MCP tools. Both wrap
// github.com/modelcontextprotocol/go-sdk.
package mcp

const (
	implementationName    = "converse"
	implementationVersion = "0.1.0"
)
