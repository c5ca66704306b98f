package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fwojciec/converse"
	"github.com/fwojciec/converse/agent"
	"github.com/fwojciec/converse/builtin"
	"github.com/fwojciec/converse/config"
	conversejson "github.com/fwojciec/converse/json"
	"github.com/fwojciec/converse/mock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		args     []string
		wantCmd  string
		errMatch string
	}{
		{name: "default is chat", args: nil, wantCmd: "chat"},
		{name: "repl", args: []string{"-provider", "gemini", "repl"}, wantCmd: "repl"},
		{name: "serve", args: []string{"-addr", ":9000", "serve"}, wantCmd: "serve"},
		{name: "unknown command", args: []string{"talk"}, errMatch: "unknown command"},
		{name: "extra arguments", args: []string{"repl", "now"}, errMatch: "unexpected arguments"},
		{name: "unknown flag", args: []string{"-verbose"}, errMatch: "flag provided but not defined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, cmd, err := parseFlags(tt.args, io.Discard)
			if tt.errMatch != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMatch)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCmd, cmd)
		})
	}
}

func TestFlags_Apply(t *testing.T) {
	t.Parallel()

	f, _, err := parseFlags([]string{
		"-provider", "anthropic",
		"-tools", "http://localhost:3000/mcp",
		"-priming", "prompt.txt",
		"-addr", ":9000",
		"-log-level", "debug",
	}, io.Discard)
	require.NoError(t, err)

	cfg := &config.Config{LogLevel: "info", Serve: config.ServeConfig{Addr: ":8080"}}
	f.apply(cfg)

	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, "http://localhost:3000/mcp", cfg.Tools.Server)
	assert.Equal(t, "prompt.txt", cfg.Priming)
	assert.Equal(t, ":9000", cfg.Serve.Addr)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestResolveModel(t *testing.T) {
	t.Parallel()

	t.Run("flag key for explicit provider", func(t *testing.T) {
		t.Parallel()
		cfg := &config.Config{Provider: "gemini"}
		provider, mc, err := resolveModel(cfg, flags{apiKey: "gk-flag"})
		require.NoError(t, err)
		assert.Equal(t, "gemini", provider)
		assert.Equal(t, "gk-flag", mc.APIKey)
	})

	t.Run("flag key overrides detected key", func(t *testing.T) {
		t.Parallel()
		cfg := &config.Config{Anthropic: config.ModelConfig{APIKey: "sk-env"}}
		provider, mc, err := resolveModel(cfg, flags{apiKey: "sk-flag"})
		require.NoError(t, err)
		assert.Equal(t, "anthropic", provider)
		assert.Equal(t, "sk-flag", mc.APIKey)
	})

	t.Run("model flag overrides configured model", func(t *testing.T) {
		t.Parallel()
		cfg := &config.Config{Gemini: config.ModelConfig{APIKey: "gk", Model: "gemini-2.0-flash-001"}}
		_, mc, err := resolveModel(cfg, flags{model: "gemini-2.5-pro"})
		require.NoError(t, err)
		assert.Equal(t, "gemini-2.5-pro", mc.Model)
	})

	t.Run("no keys", func(t *testing.T) {
		t.Parallel()
		_, _, err := resolveModel(&config.Config{}, flags{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no API key found")
	})
}

func TestNewGateway(t *testing.T) {
	t.Parallel()

	t.Run("gemini", func(t *testing.T) {
		t.Parallel()
		gw, name, err := newGateway(context.Background(), "gemini", config.ModelConfig{APIKey: "gk-test"})
		require.NoError(t, err)
		assert.NotNil(t, gw)
		assert.Equal(t, "gemini", name)
	})

	t.Run("anthropic with model", func(t *testing.T) {
		t.Parallel()
		temp := 0.3
		gw, name, err := newGateway(context.Background(), "anthropic", config.ModelConfig{
			APIKey:      "sk-test",
			Model:       "claude-sonnet-4-20250514",
			MaxTokens:   1024,
			Temperature: &temp,
		})
		require.NoError(t, err)
		assert.NotNil(t, gw)
		assert.Equal(t, "claude-sonnet-4-20250514", name)
	})

	t.Run("unknown provider", func(t *testing.T) {
		t.Parallel()
		_, _, err := newGateway(context.Background(), "openai", config.ModelConfig{APIKey: "key"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown provider")
	})
}

func TestCommandLogger(t *testing.T) {
	t.Parallel()

	t.Run("invalid level", func(t *testing.T) {
		t.Parallel()
		_, _, err := commandLogger("repl", "loud", "", io.Discard)
		require.Error(t, err)
	})

	t.Run("serve writes JSON", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		logger, closeLog, err := commandLogger("serve", "info", "", &buf)
		require.NoError(t, err)
		defer closeLog()
		logger.Info().Str("addr", ":8080").Msg("listening")
		assert.Contains(t, buf.String(), `"addr":":8080"`)
		assert.Contains(t, buf.String(), `"message":"listening"`)
	})

	t.Run("level filters", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		logger, _, err := commandLogger("serve", "warn", "", &buf)
		require.NoError(t, err)
		logger.Info().Msg("hidden")
		assert.Empty(t, buf.String())
	})

	t.Run("chat without file discards", func(t *testing.T) {
		t.Parallel()
		logger, _, err := commandLogger("chat", "debug", "", io.Discard)
		require.NoError(t, err)
		assert.Equal(t, zerolog.Disabled, logger.GetLevel())
	})

	t.Run("chat with file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "converse.log")
		logger, closeLog, err := commandLogger("chat", "info", path, io.Discard)
		require.NoError(t, err)
		logger.Info().Msg("started")
		closeLog()

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "started")
	})
}

func TestLoadPriming(t *testing.T) {
	t.Parallel()

	t.Run("empty path", func(t *testing.T) {
		t.Parallel()
		entries, err := loadPriming("")
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("text prompt is acknowledged", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "prompt.txt")
		require.NoError(t, os.WriteFile(path, []byte("You are a content strategist.\n"), 0o600))

		entries, err := loadPriming(path)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, converse.RoleUser, entries[0].Role)
		assert.Equal(t, "You are a content strategist.", entries[0].Text())
		assert.Equal(t, converse.RoleModel, entries[1].Role)
		assert.Equal(t, acknowledgement, entries[1].Text())
	})

	t.Run("blank prompt", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "prompt.txt")
		require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o600))

		entries, err := loadPriming(path)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("transcript", func(t *testing.T) {
		t.Parallel()
		data, err := conversejson.MarshalTranscript(conversejson.Transcript{
			ID: "seed",
			Entries: []converse.Entry{
				converse.NewText(converse.RoleUser, "Write in a friendly tone."),
				converse.NewText(converse.RoleModel, "Will do."),
				converse.NewText(converse.RoleUser, "Keep posts short."),
			},
		})
		require.NoError(t, err)
		path := filepath.Join(t.TempDir(), "seed.json")
		require.NoError(t, os.WriteFile(path, data, 0o600))

		entries, err := loadPriming(path)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, "Keep posts short.", entries[2].Text())
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := loadPriming(filepath.Join(t.TempDir(), "nope.txt"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read priming prompt")
	})
}

func TestOpenTools_Builtin(t *testing.T) {
	t.Parallel()

	host, closeTools, err := openTools(context.Background(), config.ToolsConfig{}, zerolog.Nop())
	require.NoError(t, err)
	defer closeTools()

	catalog, err := converse.LoadCatalog(context.Background(), host)
	require.NoError(t, err)
	_, ok := catalog.Lookup("addTwoNumbers")
	assert.True(t, ok)
}

func newREPL(t *testing.T, gateway converse.ModelGateway) (*agent.Loop, *agent.Session) {
	t.Helper()
	registry, err := builtin.NewRegistry(builtin.Defaults()...)
	require.NoError(t, err)
	catalog, err := converse.LoadCatalog(context.Background(), registry)
	require.NoError(t, err)
	return agent.New(gateway, registry), agent.NewSession("repl", catalog)
}

func TestREPL(t *testing.T) {
	t.Parallel()

	t.Run("tool turn is narrated", func(t *testing.T) {
		t.Parallel()
		var calls int
		gateway := &mock.ModelGateway{
			GenerateFn: func(context.Context, []converse.Entry, []converse.Tool) (converse.Turn, error) {
				calls++
				if calls == 1 {
					return converse.CallTurn("addTwoNumbers", map[string]any{"a": 2, "b": 3}), nil
				}
				return converse.TextTurn("It is 5."), nil
			},
		}
		loop, sess := newREPL(t, gateway)

		var out bytes.Buffer
		err := repl(context.Background(), loop, sess, strings.NewReader("add 2 and 3\nexit\n"), &out)
		require.NoError(t, err)
		assert.Equal(t, "You: AI: Calling tool: addTwoNumbers\n"+
			"    Tool result: The sum of 2 and 3 is 5\n"+
			"AI: It is 5.\n"+
			"You: ", out.String())
		assert.Equal(t, agent.StateTerminated, sess.State())
	})

	t.Run("blank lines are skipped and EOF ends", func(t *testing.T) {
		t.Parallel()
		gateway := &mock.ModelGateway{
			GenerateFn: func(context.Context, []converse.Entry, []converse.Tool) (converse.Turn, error) {
				t.Fatal("gateway should not be called")
				return converse.Turn{}, nil
			},
		}
		loop, sess := newREPL(t, gateway)

		var out bytes.Buffer
		err := repl(context.Background(), loop, sess, strings.NewReader("\n   \n"), &out)
		require.NoError(t, err)
		assert.Equal(t, "You: You: You: \n", out.String())
	})

	t.Run("gateway failure is reported and the session continues", func(t *testing.T) {
		t.Parallel()
		var calls int
		gateway := &mock.ModelGateway{
			GenerateFn: func(context.Context, []converse.Entry, []converse.Tool) (converse.Turn, error) {
				calls++
				if calls == 1 {
					return converse.Turn{}, errors.Join(errors.New("gemini: unreachable"), converse.ErrConnectivity)
				}
				return converse.TextTurn("Back online."), nil
			},
		}
		loop, sess := newREPL(t, gateway)

		var out bytes.Buffer
		err := repl(context.Background(), loop, sess, strings.NewReader("hello\nhello again\n"), &out)
		require.NoError(t, err)
		assert.Contains(t, out.String(), "error: gemini: unreachable")
		assert.Contains(t, out.String(), "AI: Back online.")
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()
		gateway := &mock.ModelGateway{
			GenerateFn: func(ctx context.Context, _ []converse.Entry, _ []converse.Tool) (converse.Turn, error) {
				return converse.Turn{}, ctx.Err()
			},
		}
		loop, sess := newREPL(t, gateway)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := repl(ctx, loop, sess, strings.NewReader("hello\n"), io.Discard)
		require.ErrorIs(t, err, context.Canceled)
	})
}
