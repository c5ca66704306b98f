package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fwojciec/converse"
)

// ReadWriteFile returns the createReadWriteFile tool. A call without content
// reads the file; a call with content creates or overwrites it.
func (w *Workspace) ReadWriteFile() converse.Handler {
	return converse.Handler{
		Tool: converse.Tool{
			Name:        "createReadWriteFile",
			Description: "Create, overwrite or read a text file in the workspace. Omit content to read the file.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"filename": {
						"type": "string",
						"description": "File name relative to the workspace, with or without extension"
					},
					"type": {
						"type": "string",
						"description": "File extension such as txt or js, used when filename has none"
					},
					"content": {
						"type": "string",
						"description": "Text to write; omit to read the file"
					}
				},
				"required": ["filename"]
			}`),
		},
		Run: w.readWrite,
	}
}

func (w *Workspace) readWrite(_ context.Context, args map[string]any) (*converse.ToolResult, error) {
	name, _ := args["filename"].(string)
	if strings.TrimSpace(name) == "" {
		return converse.ErrorResult("filename is required"), nil
	}
	if ext, _ := args["type"].(string); ext != "" && filepath.Ext(name) == "" {
		name = name + "." + strings.TrimPrefix(ext, ".")
	}

	path, err := w.resolve(name)
	if err != nil {
		return converse.ErrorResult(err.Error()), nil
	}

	content, write := args["content"].(string)
	if !write {
		return read(name, path), nil
	}
	return writeFile(name, path, content), nil
}

func read(name, path string) *converse.ToolResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return converse.ErrorResult(fmt.Sprintf("failed to read %s: %s", name, err))
	}
	if len(data) == 0 {
		return converse.TextResult(fmt.Sprintf("%s is empty.", name))
	}
	return converse.TextResult(fmt.Sprintf("Contents of %s:\n%s", name, data))
}

func writeFile(name, path, content string) *converse.ToolResult {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return converse.ErrorResult(fmt.Sprintf("failed to create directories: %s", err))
	}

	perm := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		return converse.ErrorResult(fmt.Sprintf("failed to write %s: %s", name, err))
	}
	return converse.TextResult(fmt.Sprintf("Wrote %d bytes to %s.", len(content), name))
}
