package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/fwojciec/converse"
)

// Interface compliance check.
var _ converse.ModelGateway = (*Client)(nil)

// Client implements [converse.ModelGateway] for the Anthropic Messages API.
type Client struct {
	apiKey       string
	baseURL      string
	model        string
	maxTokens    int
	temperature  *float64
	systemPrompt string
	httpClient   *http.Client
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the API base URL. Useful for testing with httptest.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithModel sets the model ID.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithMaxTokens caps the length of each response.
func WithMaxTokens(n int) Option {
	return func(c *Client) { c.maxTokens = n }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(c *Client) { c.temperature = &t }
}

// WithSystemPrompt sets the system prompt sent with every request.
func WithSystemPrompt(prompt string) Option {
	return func(c *Client) { c.systemPrompt = prompt }
}

// New creates a new Anthropic [Client] with the given API key and options.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		maxTokens:  defaultMaxTokens,
		httpClient: http.DefaultClient,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Generate sends the conversation and tool catalog to the Messages API and
// returns the model's next turn. Transport failures and non-200 responses
// wrap [converse.ErrConnectivity].
func (c *Client) Generate(ctx context.Context, conversation []converse.Entry, tools []converse.Tool) (converse.Turn, error) {
	body, err := json.Marshal(apiRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		System:      c.systemPrompt,
		Messages:    convertEntries(conversation),
		Tools:       convertTools(tools),
		Temperature: c.temperature,
	})
	if err != nil {
		return converse.Turn{}, fmt.Errorf("anthropic: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+messagesPath, bytes.NewReader(body))
	if err != nil {
		return converse.Turn{}, fmt.Errorf("anthropic: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Anthropic-Version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return converse.Turn{}, fmt.Errorf("anthropic: %w: %w", converse.ErrConnectivity, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return converse.Turn{}, parseHTTPError(resp)
	}

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return converse.Turn{}, fmt.Errorf("anthropic: decode response: %w: %w", converse.ErrConnectivity, err)
	}
	return parseContent(apiResp.Content)
}

// convertEntries maps the conversation onto user and assistant messages.
// Consecutive entries that map to the same role are merged.
func convertEntries(entries []converse.Entry) []apiMessage {
	var result []apiMessage
	for _, e := range entries {
		role := "user"
		if e.Role == converse.RoleModel {
			role = "assistant"
		}
		blocks := convertParts(e.Parts)
		if len(blocks) == 0 {
			continue
		}
		if n := len(result); n > 0 && result[n-1].Role == role {
			result[n-1].Content = append(result[n-1].Content, blocks...)
			continue
		}
		result = append(result, apiMessage{Role: role, Content: blocks})
	}
	return result
}

func convertParts(parts []converse.Part) []apiContentBlock {
	result := make([]apiContentBlock, 0, len(parts))
	for _, p := range parts {
		// Calls are not replayed: the API requires each tool_use to be
		// answered by a tool_result block, and results are logged as notices.
		if tp, ok := p.(converse.TextPart); ok && tp.Text != "" {
			result = append(result, apiContentBlock{Type: "text", Text: tp.Text})
		}
	}
	return result
}

func convertTools(tools []converse.Tool) []apiTool {
	if len(tools) == 0 {
		return nil
	}
	result := make([]apiTool, len(tools))
	for i, t := range tools {
		schema := t.Parameters
		if len(schema) == 0 {
			schema = emptySchema
		}
		result[i] = apiTool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schema,
		}
	}
	return result
}

func parseContent(blocks []apiContentBlock) (converse.Turn, error) {
	var turn converse.Turn
	for _, b := range blocks {
		switch b.Type {
		case "text":
			turn.Parts = append(turn.Parts, converse.TextPart{Text: b.Text})
		case "tool_use":
			var args map[string]any
			if len(b.Input) > 0 {
				if err := json.Unmarshal(b.Input, &args); err != nil {
					return converse.Turn{}, fmt.Errorf("anthropic: tool_use %q input: %w", b.Name, err)
				}
			}
			turn.Parts = append(turn.Parts, converse.CallPart{Name: b.Name, Args: args})
		}
	}
	return turn, nil
}

func parseHTTPError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("anthropic: HTTP %d (failed to read body: %w): %w", resp.StatusCode, err, converse.ErrConnectivity)
	}
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err != nil {
		return fmt.Errorf("anthropic: HTTP %d: %s: %w", resp.StatusCode, string(body), converse.ErrConnectivity)
	}
	return fmt.Errorf("anthropic: %s: %s: %w", apiErr.Error.Type, apiErr.Error.Message, converse.ErrConnectivity)
}
