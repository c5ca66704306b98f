// Package twitter implements the createPost and getTrendingHashtags tools over
// the X (formerly Twitter) v2 API.
//
// Requests are authorized with an OAuth 2.0 user-context access token carrying
// the tweet.write, tweet.read, users.read and media.write scopes.
package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/fwojciec/converse"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

const (
	defaultBaseURL = "https://api.x.com"
	tweetsPath     = "/2/tweets"
	mediaPath      = "/2/media/upload"
	trendsPath     = "/2/trends/by/woeid/%d"

	// MaxTweetLength is the number of characters kept from each tweet.
	MaxTweetLength = 280

	worldwide     = 1
	maxHashtags   = 5
	maxImageBytes = 5 << 20
	imageTimeout  = 5 * time.Second
)

// hashtagTerms mark a trending hashtag as relevant regardless of category.
var hashtagTerms = []string{"tech", "ai", "education"}

// Client posts to X.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger

	// api carries the bearer token; httpClient is used as is for image
	// downloads so the token never leaves the API host.
	api *http.Client
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the API base URL. Useful for testing with httptest.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(url, "/") }
}

// WithHTTPClient sets a custom HTTP client. The bearer token is added on top
// of its transport for API calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates an X client authorized with an OAuth 2.0 access token.
func New(token string, opts ...Option) *Client {
	c := &Client{
		token:      token,
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
		logger:     zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	c.api = &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   c.httpClient.Transport,
		},
		Timeout: c.httpClient.Timeout,
	}
	return c
}

// Handlers returns every tool backed by c.
func (c *Client) Handlers() []converse.Handler {
	return []converse.Handler{c.CreatePost(), c.TrendingHashtags()}
}

// CreatePost returns the createPost tool backed by c.
func (c *Client) CreatePost() converse.Handler {
	return converse.Handler{
		Tool: converse.Tool{
			Name:        "createPost",
			Description: "Create a post or thread on X (formerly Twitter) with optional image",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"status": {"type": "string", "description": "Text of the post"},
					"image_url": {"type": "string", "description": "Image to attach, as returned by findImage"},
					"isThread": {"type": "boolean", "description": "Post threadParts as replies"},
					"threadParts": {"type": "array", "items": {"type": "string"}, "description": "Follow-up posts of the thread"}
				},
				"required": ["status"]
			}`),
		},
		Run: c.createPost,
	}
}

// TrendingHashtags returns the getTrendingHashtags tool backed by c.
func (c *Client) TrendingHashtags() converse.Handler {
	return converse.Handler{
		Tool: converse.Tool{
			Name:        "getTrendingHashtags",
			Description: "Get trending hashtags related to a category",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"category": {"type": "string", "description": "Topic the hashtags should relate to"}
				},
				"required": ["category"]
			}`),
		},
		Run: c.trendingHashtags,
	}
}

func (c *Client) createPost(ctx context.Context, args map[string]any) (*converse.ToolResult, error) {
	status, _ := args["status"].(string)
	if strings.TrimSpace(status) == "" {
		return converse.ErrorResult("Failed to tweet: status must not be empty"), nil
	}
	if c.token == "" {
		return converse.ErrorResult("Failed to tweet: X access token is not configured"), nil
	}
	text := Truncate(status)

	var mediaID string
	if imageURL, _ := args["image_url"].(string); imageURL != "" {
		id, err := c.attach(ctx, imageURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn().Err(err).Str("image_url", imageURL).Msg("image upload failed, posting without image")
		}
		mediaID = id
	}

	id, err := c.tweet(ctx, tweetRequest{Text: text, Media: mediaFor(mediaID)})
	if err != nil {
		return c.failed(ctx, err)
	}
	c.logger.Info().Str("tweet_id", id).Bool("image", mediaID != "").Msg("tweet posted")

	withImage := ""
	if mediaID != "" {
		withImage = " (with image)"
	}

	parts := threadParts(args)
	if isThread, _ := args["isThread"].(bool); !isThread || len(parts) == 0 {
		return converse.TextResult(fmt.Sprintf("Tweeted: %s%s", text, withImage)), nil
	}
	for i, part := range parts {
		id, err = c.tweet(ctx, tweetRequest{Text: Truncate(part), Reply: &replyTo{TweetID: id}})
		if err != nil {
			return c.failed(ctx, fmt.Errorf("thread part %d: %w", i+2, err))
		}
	}
	return converse.TextResult(fmt.Sprintf("Thread posted! Main tweet: %s%s\nThread length: %d tweets", text, withImage, len(parts)+1)), nil
}

func (c *Client) failed(ctx context.Context, err error) (*converse.ToolResult, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	c.logger.Error().Err(err).Msg("tweet failed")
	return converse.ErrorResult("Failed to tweet: " + err.Error()), nil
}

func (c *Client) trendingHashtags(ctx context.Context, args map[string]any) (*converse.ToolResult, error) {
	category, _ := args["category"].(string)
	tag := strings.TrimPrefix(strings.Join(strings.Fields(category), ""), "#")
	if tag == "" {
		return converse.ErrorResult("category must not be empty"), nil
	}
	fallback := fmt.Sprintf("#%s #AI #Education #Tech #Innovation", tag)

	names, err := c.trends(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Warn().Err(err).Msg("trends lookup failed, using fallback hashtags")
		return converse.TextResult(fallback), nil
	}
	if tags := Relevant(names, tag); len(tags) > 0 {
		return converse.TextResult(strings.Join(tags, " ")), nil
	}
	return converse.TextResult(fallback), nil
}

// Truncate cuts s to MaxTweetLength characters.
func Truncate(s string) string {
	r := []rune(s)
	if len(r) <= MaxTweetLength {
		return s
	}
	return string(r[:MaxTweetLength])
}

// Relevant returns up to five hashtags from trends that mention category or
// one of the general technology and education terms, in trend order.
func Relevant(trends []string, category string) []string {
	cat := strings.ToLower(category)
	var out []string
	for _, name := range trends {
		if !strings.HasPrefix(name, "#") {
			continue
		}
		lower := strings.ToLower(name)
		if !strings.Contains(lower, cat) && !containsAny(lower, hashtagTerms...) {
			continue
		}
		out = append(out, name)
		if len(out) == maxHashtags {
			break
		}
	}
	return out
}

type tweetRequest struct {
	Text  string   `json:"text"`
	Media *media   `json:"media,omitempty"`
	Reply *replyTo `json:"reply,omitempty"`
}

type media struct {
	IDs []string `json:"media_ids"`
}

type replyTo struct {
	TweetID string `json:"in_reply_to_tweet_id"`
}

type tweetResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

type mediaResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

type trendsResponse struct {
	Data []struct {
		Name string `json:"trend_name"`
	} `json:"data"`
}

// apiError is the problem document X returns on failure.
type apiError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func mediaFor(id string) *media {
	if id == "" {
		return nil
	}
	return &media{IDs: []string{id}}
}

func (c *Client) tweet(ctx context.Context, tr tweetRequest) (string, error) {
	body, err := json.Marshal(tr)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+tweetsPath, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var resp tweetResponse
	if err := c.do(req, &resp); err != nil {
		return "", err
	}
	if resp.Data.ID == "" {
		return "", errors.New("no tweet id in response")
	}
	return resp.Data.ID, nil
}

// attach downloads the image at imageURL and uploads it as tweet media.
func (c *Client) attach(ctx context.Context, imageURL string) (string, error) {
	image, err := c.download(ctx, imageURL)
	if err != nil {
		return "", fmt.Errorf("download image: %w", err)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("media_category", "tweet_image"); err != nil {
		return "", err
	}
	part, err := w.CreateFormFile("media", "image.jpg")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(image); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+mediaPath, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var resp mediaResponse
	if err := c.do(req, &resp); err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	if resp.Data.ID == "" {
		return "", errors.New("upload image: no media id in response")
	}
	return resp.Data.ID, nil
}

func (c *Client) download(ctx context.Context, imageURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, imageTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	image, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, err
	}
	if len(image) > maxImageBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}
	return image, nil
}

func (c *Client) trends(ctx context.Context) ([]string, error) {
	if c.token == "" {
		return nil, errors.New("X access token is not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+fmt.Sprintf(trendsPath, worldwide), nil)
	if err != nil {
		return nil, err
	}
	var resp trendsResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("no trends data available")
	}
	names := make([]string, len(resp.Data))
	for i, t := range resp.Data {
		names[i] = t.Name
	}
	return names, nil
}

// do sends an authorized request and decodes a 2xx JSON body into v.
func (c *Client) do(req *http.Request, v any) error {
	resp, err := c.api.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, problem(body))
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// problem extracts the most specific message from an error body.
func problem(body []byte) string {
	var e apiError
	if err := json.Unmarshal(body, &e); err == nil {
		switch {
		case e.Detail != "":
			return e.Detail
		case len(e.Errors) > 0 && e.Errors[0].Message != "":
			return e.Errors[0].Message
		case e.Title != "":
			return e.Title
		}
	}
	return strings.TrimSpace(string(body))
}

func threadParts(args map[string]any) []string {
	raw, _ := args["threadParts"].([]any)
	var out []string
	for _, p := range raw {
		if s, ok := p.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
