package gemini

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fwojciec/converse"
	"google.golang.org/genai"
)

// Interface compliance check.
var _ converse.ModelGateway = (*Client)(nil)

// Client implements [converse.ModelGateway] for the Google Gemini API.
type Client struct {
	client       *genai.Client
	model        string
	baseURL      string
	maxTokens    int
	temperature  *float64
	systemPrompt string
}

// Option configures a [Client].
type Option func(*Client)

// WithModel sets the model ID. Default is gemini-2.0-flash-001.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithBaseURL sets the API base URL. Useful for testing with httptest.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithMaxTokens caps the length of each response.
func WithMaxTokens(n int) Option {
	return func(c *Client) { c.maxTokens = n }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(c *Client) { c.temperature = &t }
}

// WithSystemPrompt sets a system instruction sent with every request.
func WithSystemPrompt(prompt string) Option {
	return func(c *Client) { c.systemPrompt = prompt }
}

// New creates a new Gemini [Client] with the given API key and options.
func New(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	c := &Client{
		model:     defaultModel,
		maxTokens: defaultMaxTokens,
	}
	for _, o := range opts {
		o(c)
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if c.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: c.baseURL}
	}
	gc, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	c.client = gc
	return c, nil
}

// Generate sends the conversation and tool catalog to Gemini and returns the
// model's next turn. Any failure to obtain a response wraps
// [converse.ErrConnectivity].
func (c *Client) Generate(ctx context.Context, conversation []converse.Entry, tools []converse.Tool) (converse.Turn, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, ConvertEntries(conversation), c.buildConfig(tools))
	if err != nil {
		return converse.Turn{}, fmt.Errorf("gemini: %w: %w", converse.ErrConnectivity, err)
	}
	return ParseResponse(resp), nil
}

func (c *Client) buildConfig(tools []converse.Tool) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(c.maxTokens),
		Tools:           ConvertTools(tools),
	}
	if c.systemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: c.systemPrompt}},
		}
	}
	if c.temperature != nil {
		temp := float32(*c.temperature)
		config.Temperature = &temp
	}
	return config
}

// ConvertEntries converts conversation entries to genai Contents. Tool
// notices travel as user-role text since Gemini has no matching role.
// Exported for testing.
func ConvertEntries(entries []converse.Entry) []*genai.Content {
	result := make([]*genai.Content, 0, len(entries))
	for _, e := range entries {
		role := "user"
		if e.Role == converse.RoleModel {
			role = "model"
		}
		parts := convertParts(e.Parts)
		if len(parts) == 0 {
			continue
		}
		result = append(result, &genai.Content{Role: role, Parts: parts})
	}
	return result
}

func convertParts(ps []converse.Part) []*genai.Part {
	var parts []*genai.Part
	for _, p := range ps {
		switch pt := p.(type) {
		case converse.TextPart:
			parts = append(parts, &genai.Part{Text: pt.Text})
		case converse.CallPart:
			parts = append(parts, &genai.Part{
				FunctionCall: &genai.FunctionCall{
					Name: pt.Name,
					Args: pt.Args,
				},
			})
		}
	}
	return parts
}

// ConvertTools converts tool descriptors to genai Tools.
// Exported for testing.
func ConvertTools(tools []converse.Tool) []*genai.Tool {
	if len(tools) == 0 {
		return nil
	}
	decls := make([]*genai.FunctionDeclaration, len(tools))
	for i, t := range tools {
		decl := &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
		}
		if len(t.Parameters) > 0 {
			var schema map[string]any
			if err := json.Unmarshal(t.Parameters, &schema); err == nil {
				decl.ParametersJsonSchema = schema
			}
		}
		decls[i] = decl
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// ParseResponse converts the first candidate of a response into a Turn.
// Thought parts are dropped. A response without candidates yields an empty
// turn. Exported for testing.
func ParseResponse(resp *genai.GenerateContentResponse) converse.Turn {
	if resp == nil || len(resp.Candidates) == 0 {
		return converse.Turn{}
	}
	content := resp.Candidates[0].Content
	if content == nil {
		return converse.Turn{}
	}
	var turn converse.Turn
	for _, p := range content.Parts {
		switch {
		case p == nil || p.Thought:
		case p.FunctionCall != nil:
			turn.Parts = append(turn.Parts, converse.CallPart{
				Name: p.FunctionCall.Name,
				Args: p.FunctionCall.Args,
			})
		case p.Text != "":
			turn.Parts = append(turn.Parts, converse.TextPart{Text: p.Text})
		}
	}
	return turn
}
