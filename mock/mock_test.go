package mock_test

import (
	"context"
	"errors"
	"testing"

	"github.com/fwojciec/converse"
	"github.com/fwojciec/converse/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelGateway_Generate(t *testing.T) {
	t.Parallel()
	t.Run("delegates to GenerateFn", func(t *testing.T) {
		t.Parallel()
		want := converse.TextTurn("hello")
		g := mock.ModelGateway{
			GenerateFn: func(_ context.Context, conv []converse.Entry, tools []converse.Tool) (converse.Turn, error) {
				assert.Len(t, conv, 1)
				assert.Len(t, tools, 1)
				return want, nil
			},
		}
		got, err := g.Generate(context.Background(),
			[]converse.Entry{converse.NewText(converse.RoleUser, "hi")},
			[]converse.Tool{{Name: "findImage"}})
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("returns error", func(t *testing.T) {
		t.Parallel()
		wantErr := errors.New("api error")
		g := mock.ModelGateway{
			GenerateFn: func(context.Context, []converse.Entry, []converse.Tool) (converse.Turn, error) {
				return converse.Turn{}, wantErr
			},
		}
		_, err := g.Generate(context.Background(), nil, nil)
		assert.ErrorIs(t, err, wantErr)
	})

	t.Run("panics when GenerateFn not set", func(t *testing.T) {
		t.Parallel()
		g := mock.ModelGateway{}
		assert.Panics(t, func() {
			_, _ = g.Generate(context.Background(), nil, nil)
		})
	})
}

func TestToolExecutor_Invoke(t *testing.T) {
	t.Parallel()
	t.Run("delegates to InvokeFn", func(t *testing.T) {
		t.Parallel()
		want := &converse.ToolResult{Content: []converse.Part{converse.TextPart{Text: "result"}}}
		e := mock.ToolExecutor{
			InvokeFn: func(_ context.Context, inv converse.Invocation) (*converse.ToolResult, error) {
				assert.Equal(t, "findImage", inv.Name)
				assert.Equal(t, "AI", inv.Args["topic"])
				return want, nil
			},
		}
		got, err := e.Invoke(context.Background(), converse.Invocation{Name: "findImage", Args: map[string]any{"topic": "AI"}})
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("panics when InvokeFn not set", func(t *testing.T) {
		t.Parallel()
		e := mock.ToolExecutor{}
		assert.Panics(t, func() {
			_, _ = e.Invoke(context.Background(), converse.Invocation{})
		})
	})
}

func TestToolHost(t *testing.T) {
	t.Parallel()
	t.Run("delegates to ListToolsFn", func(t *testing.T) {
		t.Parallel()
		h := mock.ToolHost{
			ListToolsFn: func(context.Context) ([]converse.Tool, error) {
				return []converse.Tool{{Name: "findImage"}}, nil
			},
		}
		got, err := h.ListTools(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []converse.Tool{{Name: "findImage"}}, got)
	})

	t.Run("delegates to InvokeFn", func(t *testing.T) {
		t.Parallel()
		wantErr := errors.New("exec error")
		h := mock.ToolHost{
			InvokeFn: func(context.Context, converse.Invocation) (*converse.ToolResult, error) {
				return nil, wantErr
			},
		}
		_, err := h.Invoke(context.Background(), converse.Invocation{Name: "findImage"})
		assert.ErrorIs(t, err, wantErr)
	})
}

func TestArgsValidator_ValidateArgs(t *testing.T) {
	t.Parallel()
	wantErr := errors.New("bad args")
	v := mock.ArgsValidator{
		ValidateArgsFn: func(tool converse.Tool, args map[string]any) error {
			assert.Equal(t, "createPost", tool.Name)
			return wantErr
		},
	}
	err := v.ValidateArgs(converse.Tool{Name: "createPost"}, nil)
	assert.ErrorIs(t, err, wantErr)
}
