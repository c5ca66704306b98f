// Package pexels implements the findImage tool over the Pexels photo search
// API.
//
// A topic is expanded into several search queries; the first photo whose alt
// text mentions one of the relevance terms wins.
package pexels

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/fwojciec/converse"
	"github.com/rs/zerolog"
)

const (
	defaultBaseURL = "https://api.pexels.com"
	searchPath     = "/v1/search"
	perPage        = 5
)

// relevanceTerms are the alt-text words that mark a photo as on topic.
var relevanceTerms = []string{
	"technology", "digital", "computer", "education", "learning", "classroom", "student",
}

// Client searches Pexels.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
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

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a Pexels client.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
		logger:     zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type searchResponse struct {
	Photos []photo `json:"photos"`
}

type photo struct {
	Alt string `json:"alt"`
	Src struct {
		Large string `json:"large"`
	} `json:"src"`
}

// FindImage returns the findImage tool backed by c.
func (c *Client) FindImage() converse.Handler {
	return converse.Handler{
		Tool: converse.Tool{
			Name:        "findImage",
			Description: "Find an image related to a topic using Pexels API",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"topic": {"type": "string", "description": "What the image should show"}
				},
				"required": ["topic"]
			}`),
		},
		Run: c.findImage,
	}
}

func (c *Client) findImage(ctx context.Context, args map[string]any) (*converse.ToolResult, error) {
	if c.apiKey == "" {
		return converse.ErrorResult("Error finding image: Pexels API key is not configured"), nil
	}
	topic, _ := args["topic"].(string)

	for _, q := range Queries(topic) {
		photos, err := c.search(ctx, q)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn().Err(err).Str("query", q).Msg("pexels search failed")
			continue
		}
		if src, alt, ok := pick(photos); ok {
			c.logger.Debug().Str("query", q).Str("alt", alt).Msg("found relevant image")
			return converse.TextResult(src), nil
		}
	}
	return converse.ErrorResult("No suitable image found for the topic"), nil
}

func (c *Client) search(ctx context.Context, query string) ([]photo, error) {
	u := fmt.Sprintf("%s%s?query=%s&per_page=%d", c.baseURL, searchPath, url.QueryEscape(query), perPage)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, err
	}
	if len(sr.Photos) == 0 {
		return nil, errors.New("no photos")
	}
	return sr.Photos, nil
}

func pick(photos []photo) (src, alt string, ok bool) {
	for _, p := range photos {
		if p.Src.Large == "" || p.Alt == "" {
			continue
		}
		desc := strings.ToLower(p.Alt)
		for _, term := range relevanceTerms {
			if strings.Contains(desc, term) {
				return p.Src.Large, p.Alt, true
			}
		}
	}
	return "", "", false
}

// Queries expands a topic into the ordered list of search queries tried by
// findImage. The first query is always the topic itself with an education
// technology slant.
func Queries(topic string) []string {
	t := strings.ToLower(topic)
	queries := []string{strings.TrimSpace(topic + " education technology")}

	if containsAny(t, "ai", "artificial intelligence", "machine learning") {
		queries = append(queries,
			"data visualization classroom",
			"digital technology education",
			"computer learning student",
			"smart classroom technology",
			"artificial intelligence education",
		)
	}
	if containsAny(t, "education", "learning", "student") {
		queries = append(queries,
			"classroom technology modern",
			"digital learning student",
			"educational technology computer",
			"modern classroom technology",
			"student learning computer",
		)
	}
	if containsAny(t, "data", "analytics") {
		queries = append(queries, "data analysis education", "learning analytics dashboard")
	}
	if containsAny(t, "virtual", "vr") {
		queries = append(queries, "virtual reality classroom", "vr education student")
	}
	if strings.Contains(t, "robot") {
		queries = append(queries, "educational robotics", "classroom robot learning")
	}
	return queries
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
