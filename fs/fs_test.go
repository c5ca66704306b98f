package fs_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/fwojciec/converse"
	"github.com/fwojciec/converse/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, h converse.Handler, args map[string]any) *converse.ToolResult {
	t.Helper()
	result, err := h.Run(context.Background(), args)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("rejects missing root", func(t *testing.T) {
		t.Parallel()
		_, err := fs.New(filepath.Join(t.TempDir(), "missing"))
		require.Error(t, err)
	})

	t.Run("rejects file root", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(path, nil, 0o644))
		_, err := fs.New(path)
		require.Error(t, err)
	})

	t.Run("rejects invalid pattern", func(t *testing.T) {
		t.Parallel()
		_, err := fs.New(t.TempDir(), "[")
		require.Error(t, err)
	})
}

func TestReadWriteFile(t *testing.T) {
	t.Parallel()

	t.Run("schema requires filename", func(t *testing.T) {
		t.Parallel()
		w, err := fs.New(t.TempDir())
		require.NoError(t, err)
		tool := w.ReadWriteFile().Tool
		assert.Equal(t, "createReadWriteFile", tool.Name)

		var schema map[string]any
		require.NoError(t, json.Unmarshal(tool.Parameters, &schema))
		assert.Equal(t, []any{"filename"}, schema["required"])
	})

	t.Run("writes then reads", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		w, err := fs.New(dir)
		require.NoError(t, err)
		h := w.ReadWriteFile()

		result := run(t, h, map[string]any{"filename": "notes", "type": "txt", "content": "hello"})
		require.False(t, result.IsError)
		assert.Equal(t, "Wrote 5 bytes to notes.txt.", converse.JoinText(result.Content))

		data, err := os.ReadFile(filepath.Join(dir, "notes.txt"))
		require.NoError(t, err)
		assert.Equal(t, "hello", string(data))

		result = run(t, h, map[string]any{"filename": "notes.txt"})
		require.False(t, result.IsError)
		assert.Equal(t, "Contents of notes.txt:\nhello", converse.JoinText(result.Content))
	})

	t.Run("creates nested directories", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		w, err := fs.New(dir)
		require.NoError(t, err)

		result := run(t, w.ReadWriteFile(), map[string]any{"filename": "drafts/post.md", "content": "# Draft"})
		require.False(t, result.IsError)
		_, err = os.Stat(filepath.Join(dir, "drafts", "post.md"))
		require.NoError(t, err)
	})

	t.Run("empty file is not an error", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.txt"), nil, 0o644))
		w, err := fs.New(dir)
		require.NoError(t, err)

		result := run(t, w.ReadWriteFile(), map[string]any{"filename": "empty.txt"})
		assert.False(t, result.IsError)
		assert.Equal(t, "empty.txt is empty.", converse.JoinText(result.Content))
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		w, err := fs.New(t.TempDir())
		require.NoError(t, err)

		result := run(t, w.ReadWriteFile(), map[string]any{"filename": "nope.txt"})
		assert.True(t, result.IsError)
	})

	t.Run("missing filename", func(t *testing.T) {
		t.Parallel()
		w, err := fs.New(t.TempDir())
		require.NoError(t, err)

		result := run(t, w.ReadWriteFile(), map[string]any{"content": "x"})
		assert.True(t, result.IsError)
		assert.Equal(t, "filename is required", converse.JoinText(result.Content))
	})

	t.Run("refuses to escape the root", func(t *testing.T) {
		t.Parallel()
		w, err := fs.New(t.TempDir())
		require.NoError(t, err)

		for _, name := range []string{"../secret.txt", "/etc/passwd", "a/../../b.txt"} {
			result := run(t, w.ReadWriteFile(), map[string]any{"filename": name, "content": "x"})
			assert.True(t, result.IsError, name)
			assert.Contains(t, converse.JoinText(result.Content), "outside the workspace", name)
		}
	})

	t.Run("enforces the allow list", func(t *testing.T) {
		t.Parallel()
		w, err := fs.New(t.TempDir(), "**/*.txt", "*.js")
		require.NoError(t, err)
		h := w.ReadWriteFile()

		assert.False(t, run(t, h, map[string]any{"filename": "a/b/c.txt", "content": "x"}).IsError)
		assert.False(t, run(t, h, map[string]any{"filename": "app", "type": "js", "content": "x"}).IsError)
		result := run(t, h, map[string]any{"filename": "run.sh", "content": "rm -rf /"})
		assert.True(t, result.IsError)
		assert.Contains(t, converse.JoinText(result.Content), "not allowed")
	})
}

func TestListFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.txt"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.go"), nil, 0o644))

	t.Run("matches recursively", func(t *testing.T) {
		t.Parallel()
		w, err := fs.New(dir)
		require.NoError(t, err)

		text := converse.JoinText(run(t, w.ListFiles(), map[string]any{"pattern": "**/*.txt"}).Content)
		assert.Contains(t, text, "a.txt")
		assert.Contains(t, text, "sub/b.txt")
		assert.NotContains(t, text, "c.go")
	})

	t.Run("hides disallowed files", func(t *testing.T) {
		t.Parallel()
		w, err := fs.New(dir, "*.go")
		require.NoError(t, err)

		text := converse.JoinText(run(t, w.ListFiles(), map[string]any{}).Content)
		assert.Equal(t, "c.go", text)
	})

	t.Run("no matches", func(t *testing.T) {
		t.Parallel()
		w, err := fs.New(dir)
		require.NoError(t, err)

		text := converse.JoinText(run(t, w.ListFiles(), map[string]any{"pattern": "*.rs"}).Content)
		assert.Equal(t, "no matches found", text)
	})

	t.Run("invalid pattern", func(t *testing.T) {
		t.Parallel()
		w, err := fs.New(dir)
		require.NoError(t, err)

		assert.True(t, run(t, w.ListFiles(), map[string]any{"pattern": "["}).IsError)
	})
}
