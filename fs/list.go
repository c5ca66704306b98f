package fs

import (
	"context"
	"encoding/json"
	"fmt"
	iofs "io/fs"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fwojciec/converse"
)

// ListFiles returns the listFiles tool.
func (w *Workspace) ListFiles() converse.Handler {
	return converse.Handler{
		Tool: converse.Tool{
			Name:        "listFiles",
			Description: "List workspace files matching a glob pattern. Supports ** for recursive matching.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"pattern": {
						"type": "string",
						"description": "Glob pattern to match files (e.g. **/*.txt)"
					}
				}
			}`),
		},
		Run: w.list,
	}
}

func (w *Workspace) list(_ context.Context, args map[string]any) (*converse.ToolResult, error) {
	pattern := "**"
	if v, ok := args["pattern"].(string); ok && v != "" {
		pattern = v
	}
	if !doublestar.ValidatePattern(pattern) {
		return converse.ErrorResult(fmt.Sprintf("invalid glob pattern: %s", pattern)), nil
	}

	var matches []string
	err := doublestar.GlobWalk(os.DirFS(w.root), pattern, func(path string, d iofs.DirEntry) error {
		if d.IsDir() || !w.allowed(path) {
			return nil
		}
		matches = append(matches, path)
		return nil
	})
	if err != nil {
		return converse.ErrorResult(fmt.Sprintf("error matching pattern: %s", err)), nil
	}

	if len(matches) == 0 {
		return converse.TextResult("no matches found"), nil
	}
	return converse.TextResult(strings.Join(matches, "\n")), nil
}
