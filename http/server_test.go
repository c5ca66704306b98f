package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/fwojciec/converse"
	"github.com/fwojciec/converse/agent"
	conversehttp "github.com/fwojciec/converse/http"
	conversejson "github.com/fwojciec/converse/json"
	"github.com/fwojciec/converse/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echo is a gateway that answers every user message with "echo: <text>".
func echo() *mock.ModelGateway {
	return &mock.ModelGateway{
		GenerateFn: func(_ context.Context, conversation []converse.Entry, _ []converse.Tool) (converse.Turn, error) {
			last := conversation[len(conversation)-1]
			return converse.TextTurn("echo: " + last.Text()), nil
		},
	}
}

func newServer(t *testing.T, gateway converse.ModelGateway, opts ...conversehttp.Option) *httptest.Server {
	t.Helper()
	catalog, err := converse.NewCatalog([]converse.Tool{{Name: "addTwoNumbers"}})
	require.NoError(t, err)
	executor := &mock.ToolExecutor{
		InvokeFn: func(_ context.Context, inv converse.Invocation) (*converse.ToolResult, error) {
			return converse.TextResult(fmt.Sprintf("The sum of %v and %v is 5", inv.Args["a"], inv.Args["b"])), nil
		},
	}
	var n int
	var mu sync.Mutex
	opts = append([]conversehttp.Option{conversehttp.WithIDGenerator(func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("sess-%d", n)
	})}, opts...)
	srv := httptest.NewServer(conversehttp.NewServer(agent.New(gateway, executor), catalog, opts...))
	t.Cleanup(srv.Close)
	return srv
}

func chat(t *testing.T, srv *httptest.Server, req conversehttp.ChatRequest) (int, conversehttp.ChatResponse, map[string]string) {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+"/chat", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)

	var out conversehttp.ChatResponse
	var errBody map[string]string
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	} else {
		require.NoError(t, json.Unmarshal(buf.Bytes(), &errBody))
	}
	return resp.StatusCode, out, errBody
}

func transcript(t *testing.T, srv *httptest.Server, id string) (int, conversejson.Transcript) {
	t.Helper()
	resp, err := http.Get(srv.URL + "/sessions/" + id)
	require.NoError(t, err)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, conversejson.Transcript{}
	}
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	tr, err := conversejson.UnmarshalTranscript(buf.Bytes())
	require.NoError(t, err)
	return resp.StatusCode, tr
}

func TestServer_ChatCreatesSession(t *testing.T) {
	t.Parallel()
	srv := newServer(t, echo())

	status, resp, _ := chat(t, srv, conversehttp.ChatRequest{Message: "hello"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "sess-1", resp.SessionID)
	assert.Equal(t, "echo: hello", resp.Response)

	status, resp, _ = chat(t, srv, conversehttp.ChatRequest{SessionID: "sess-1", Message: "again"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "sess-1", resp.SessionID)

	status, tr := transcript(t, srv, "sess-1")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "sess-1", tr.ID)
	assert.Equal(t, "awaiting_user_input", tr.State)
	require.Len(t, tr.Entries, 4)
	assert.Equal(t, "echo: again", tr.Entries[3].Text())
}

func TestServer_SessionsAreIsolated(t *testing.T) {
	t.Parallel()
	srv := newServer(t, echo())

	_, a, _ := chat(t, srv, conversehttp.ChatRequest{Message: "first"})
	_, b, _ := chat(t, srv, conversehttp.ChatRequest{Message: "second"})
	require.NotEqual(t, a.SessionID, b.SessionID)

	_, ta := transcript(t, srv, a.SessionID)
	_, tb := transcript(t, srv, b.SessionID)
	require.Len(t, ta.Entries, 2)
	require.Len(t, tb.Entries, 2)
	assert.Equal(t, "first", ta.Entries[0].Text())
	assert.Equal(t, "second", tb.Entries[0].Text())
}

func TestServer_SeedEntries(t *testing.T) {
	t.Parallel()
	seed := []converse.Entry{
		converse.NewText(converse.RoleUser, "You manage a social media account."),
		converse.NewText(converse.RoleModel, "Understood."),
	}
	srv := newServer(t, echo(), conversehttp.WithSeed(seed...))

	_, resp, _ := chat(t, srv, conversehttp.ChatRequest{Message: "hi"})
	_, tr := transcript(t, srv, resp.SessionID)
	require.Len(t, tr.Entries, 4)
	assert.Equal(t, "Understood.", tr.Entries[1].Text())
}

func TestServer_ToolTurn(t *testing.T) {
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
	srv := newServer(t, gateway)

	status, resp, _ := chat(t, srv, conversehttp.ChatRequest{Message: "add 2 and 3"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "It is 5.", resp.Response)

	_, tr := transcript(t, srv, resp.SessionID)
	texts := make([]string, len(tr.Entries))
	for i, e := range tr.Entries {
		texts[i] = string(e.Role) + ": " + e.Text()
	}
	assert.Equal(t, []string{
		"user: add 2 and 3",
		"model: Calling tool: addTwoNumbers",
		"tool_notice: Tool result: The sum of 2 and 3 is 5",
		"model: It is 5.",
	}, texts)
}

func TestServer_GatewayFailure(t *testing.T) {
	t.Parallel()
	gateway := &mock.ModelGateway{
		GenerateFn: func(context.Context, []converse.Entry, []converse.Tool) (converse.Turn, error) {
			return converse.Turn{}, errors.New("dial tcp: connection refused")
		},
	}
	srv := newServer(t, gateway)

	status, _, body := chat(t, srv, conversehttp.ChatRequest{Message: "hello"})
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Contains(t, body["error"], "connection refused")

	// The session survives and can be inspected.
	status, tr := transcript(t, srv, "sess-1")
	require.Equal(t, http.StatusOK, status)
	require.Len(t, tr.Entries, 1)
	assert.Equal(t, "hello", tr.Entries[0].Text())
}

func TestServer_ExitTerminatesSession(t *testing.T) {
	t.Parallel()
	srv := newServer(t, echo())

	_, resp, _ := chat(t, srv, conversehttp.ChatRequest{Message: "hello"})
	status, out, _ := chat(t, srv, conversehttp.ChatRequest{SessionID: resp.SessionID, Message: " EXIT "})
	require.Equal(t, http.StatusOK, status)
	assert.True(t, out.Terminated)

	status, _ = transcript(t, srv, resp.SessionID)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestServer_BadRequests(t *testing.T) {
	t.Parallel()
	srv := newServer(t, echo())

	t.Run("unknown session", func(t *testing.T) {
		t.Parallel()
		status, _, body := chat(t, srv, conversehttp.ChatRequest{SessionID: "nope", Message: "hi"})
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "session not found", body["error"])
	})

	t.Run("empty message", func(t *testing.T) {
		t.Parallel()
		status, _, body := chat(t, srv, conversehttp.ChatRequest{})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "message is required", body["error"])
	})

	t.Run("invalid body", func(t *testing.T) {
		t.Parallel()
		resp, err := http.Post(srv.URL+"/chat", "application/json", bytes.NewBufferString("{"))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("wrong method", func(t *testing.T) {
		t.Parallel()
		resp, err := http.Get(srv.URL + "/chat")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}

func TestServer_DeleteSession(t *testing.T) {
	t.Parallel()
	srv := newServer(t, echo())
	_, resp, _ := chat(t, srv, conversehttp.ChatRequest{Message: "hello"})

	del := func() int {
		req, err := http.NewRequest(http.MethodDelete, srv.URL+"/sessions/"+resp.SessionID, nil)
		require.NoError(t, err)
		r, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer r.Body.Close()
		return r.StatusCode
	}
	assert.Equal(t, http.StatusNoContent, del())
	assert.Equal(t, http.StatusNotFound, del())
}

func TestServer_CORSPreflight(t *testing.T) {
	t.Parallel()
	srv := newServer(t, echo())

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/chat", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestServer_Health(t *testing.T) {
	t.Parallel()
	srv := newServer(t, echo())

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.InDelta(t, 1, body["tools"], 0)
}

func TestServer_ListenAndServe(t *testing.T) {
	t.Parallel()
	catalog, err := converse.NewCatalog(nil)
	require.NoError(t, err)
	srv := conversehttp.NewServer(agent.New(echo(), &mock.ToolExecutor{}), catalog)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx, "127.0.0.1:0") }()
	cancel()
	require.NoError(t, <-done)
}
