package mcp

// Clean exposes clean for external tests.
func Clean(s string, maxLines, maxBytes int) string {
	return clean(s, maxLines, maxBytes)
}
