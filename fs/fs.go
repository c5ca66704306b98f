// Package fs provides file tools confined to a workspace directory:
// createReadWriteFile and listFiles.
package fs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fwojciec/converse"
)

// Workspace is a directory the file tools may touch. Paths are relative to
// the root and must match one of the allow-list patterns, if any are set.
type Workspace struct {
	root  string
	allow []string
}

// New creates a Workspace rooted at root. Allow patterns use doublestar
// syntax ("**/*.txt") and are matched against slash-separated relative
// paths. With no patterns every path under root is allowed.
func New(root string, allow ...string) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("fs: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("fs: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("fs: %s is not a directory", abs)
	}
	for _, p := range allow {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("fs: invalid allow pattern %q", p)
		}
	}
	return &Workspace{root: abs, allow: allow}, nil
}

// Root returns the absolute workspace directory.
func (w *Workspace) Root() string { return w.root }

// Handlers returns all file tools bound to this workspace.
func (w *Workspace) Handlers() []converse.Handler {
	return []converse.Handler{
		w.ReadWriteFile(),
		w.ListFiles(),
	}
}

// resolve maps a relative name to an absolute path inside the workspace.
func (w *Workspace) resolve(name string) (string, error) {
	rel := filepath.Clean(filepath.FromSlash(name))
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("path %q is outside the workspace", name)
	}
	if !w.allowed(filepath.ToSlash(rel)) {
		return "", fmt.Errorf("path %q is not allowed", name)
	}
	return filepath.Join(w.root, rel), nil
}

func (w *Workspace) allowed(rel string) bool {
	if len(w.allow) == 0 {
		return true
	}
	for _, p := range w.allow {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}
