// Package anthropic is a focused client for the Anthropic Messages API,
// covering only the single-completion call this service makes.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"project-bridge/internal/domain"
)

const (
	defaultBaseURL     = "https://api.anthropic.com/v1"
	apiVersion         = "2023-06-01"
	defaultMaxTokens   = 3000
	defaultHTTPTimeout = 60 * time.Second
)

// messagesRequest is the minimal request shape for the Messages endpoint.
type messagesRequest struct {
	Model     string               `json:"model"`
	MaxTokens int                  `json:"max_tokens"`
	System    string               `json:"system,omitempty"`
	Messages  []domain.ChatMessage `json:"messages"`
}

// messagesResponse is the minimal response shape returned by the Messages
// endpoint.
type messagesResponse struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// KeySource resolves the API credential. Satisfied by *secrets.Source.
type KeySource interface {
	APIKey(ctx context.Context) (string, error)
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("anthropic: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client calls the Anthropic Messages API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	keys       KeySource
	maxTokens  int
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithMaxTokens sets the fixed output-length budget sent on every request.
func WithMaxTokens(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// NewClient creates a Client backed by the given KeySource for credential
// retrieval.
func NewClient(keys KeySource, opts ...Option) (*Client, error) {
	if keys == nil {
		return nil, errors.New("anthropic: key source must not be nil")
	}
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		keys:       keys,
		maxTokens:  defaultMaxTokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func messagesURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	if strings.HasSuffix(base, "/v1") {
		return base + "/messages"
	}
	return base + "/v1/messages"
}

// resolvedHTTPClient returns the configured HTTP client, or a default if none
// was set.
func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: defaultHTTPTimeout}
}

// Complete sends the system persona and message sequence to the Messages
// endpoint and returns the text of the first completion candidate. There is
// no retry here; failures propagate to the caller.
func (c *Client) Complete(ctx context.Context, model, system string, messages []domain.ChatMessage) (string, error) {
	if model == "" {
		return "", errors.New("anthropic: model must not be empty")
	}
	if len(messages) == 0 {
		return "", errors.New("anthropic: messages must not be empty")
	}

	apiKey, err := c.keys.APIKey(ctx)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(messagesRequest{
		Model:     model,
		MaxTokens: c.maxTokens,
		System:    system,
		Messages:  messages,
	})
	if err != nil {
		return "", fmt.Errorf("anthropic: marshal request: %w", err)
	}

	url := messagesURL(c.baseURL)

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if reqErr != nil {
		return "", fmt.Errorf("anthropic: create request: %w", reqErr)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	raw, err := c.doJSONRequest(req, url)
	if err != nil {
		return "", fmt.Errorf("anthropic: request failed: %w", err)
	}

	var payload messagesResponse
	if decErr := json.Unmarshal(raw, &payload); decErr != nil {
		return "", fmt.Errorf("anthropic: decode response: %w", decErr)
	}
	if len(payload.Content) == 0 {
		return "", errors.New("anthropic: no content blocks in response")
	}
	text := payload.Content[0].Text
	if strings.TrimSpace(text) == "" {
		return "", errors.New("anthropic: empty completion text")
	}
	return text, nil
}

func (c *Client) doJSONRequest(req *http.Request, url string) ([]byte, error) {
	res, doErr := c.resolvedHTTPClient().Do(req)
	if doErr != nil {
		return nil, doErr
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}
