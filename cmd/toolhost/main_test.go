package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fwojciec/converse"
	"github.com/fwojciec/converse/config"
	"github.com/fwojciec/converse/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(handlers []converse.Handler) []string {
	out := make([]string, len(handlers))
	for i, h := range handlers {
		out[i] = h.Tool.Name
	}
	return out
}

func TestToolHandlers(t *testing.T) {
	t.Parallel()

	t.Run("without credentials", func(t *testing.T) {
		t.Parallel()
		handlers, err := toolHandlers(config.ToolhostConfig{Root: t.TempDir(), Allow: []string{"**"}}, zerolog.Nop())
		require.NoError(t, err)
		assert.Equal(t, []string{"addTwoNumbers", "createReadWriteFile", "listFiles"}, names(handlers))
	})

	t.Run("with pexels key", func(t *testing.T) {
		t.Parallel()
		handlers, err := toolHandlers(config.ToolhostConfig{Root: t.TempDir(), Allow: []string{"**"}, PexelsAPIKey: "px"}, zerolog.Nop())
		require.NoError(t, err)
		assert.Contains(t, names(handlers), "findImage")
	})

	t.Run("with twitter token", func(t *testing.T) {
		t.Parallel()
		handlers, err := toolHandlers(config.ToolhostConfig{Root: t.TempDir(), Allow: []string{"**"}, TwitterToken: "tw"}, zerolog.Nop())
		require.NoError(t, err)
		assert.Equal(t, []string{"addTwoNumbers", "createReadWriteFile", "listFiles", "createPost", "getTrendingHashtags"}, names(handlers))
	})

	t.Run("missing root", func(t *testing.T) {
		t.Parallel()
		_, err := toolHandlers(config.ToolhostConfig{Root: filepath.Join(t.TempDir(), "nope")}, zerolog.Nop())
		require.Error(t, err)
	})
}

func TestNewMux(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "post.txt"), []byte("AI in education"), 0o600))
	handlers, err := toolHandlers(config.ToolhostConfig{Root: root, Allow: []string{"*.txt"}}, zerolog.Nop())
	require.NoError(t, err)
	server, err := mcp.NewServer(serverName, serverVersion, handlers, zerolog.Nop())
	require.NoError(t, err)

	srv := httptest.NewServer(newMux(server, len(handlers)))
	defer srv.Close()

	t.Run("health", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"status":"ok","tools":3}`, string(body))
	})

	t.Run("mcp", func(t *testing.T) {
		ctx := context.Background()
		client, err := mcp.Dial(ctx, srv.URL+"/mcp")
		require.NoError(t, err)
		defer client.Close()

		catalog, err := converse.LoadCatalog(ctx, client)
		require.NoError(t, err)
		assert.Equal(t, 3, catalog.Len())

		result, err := client.Invoke(ctx, converse.Invocation{
			Name: "createReadWriteFile",
			Args: map[string]any{"filename": "post.txt"},
		})
		require.NoError(t, err)
		assert.False(t, result.IsError)
		assert.Contains(t, converse.JoinText(result.Content), "AI in education")
	})
}

func TestServeHTTP_ShutsDownOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serveHTTP(ctx, "127.0.0.1:0", http.NewServeMux(), zerolog.Nop())
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestSplitList(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"*.txt", "drafts/**"}, splitList(" *.txt, ,drafts/** "))
	assert.Empty(t, splitList(""))
}
