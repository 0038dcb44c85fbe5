package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	// DefaultModel is used when Options.Model is empty.
	DefaultModel = "deepseek-chat"
	// DefaultMaxTokens is used when Options.MaxTokens is zero.
	DefaultMaxTokens = 2048

	maxErrorBody = 64 << 10
)

// Options configures an HTTPClient.
type Options struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	// Timeout bounds one completion call. Zero disables it.
	Timeout time.Duration
	// HTTPClient replaces the default transport. The bearer token is
	// still attached when APIKey is set.
	HTTPClient *http.Client
}

// HTTPClient calls {BaseURL}/chat/completions.
type HTTPClient struct {
	endpoint    string
	model       string
	maxTokens   int
	temperature float64
	timeout     time.Duration
	http        *http.Client
}

// NewHTTPClient builds a client. The API key is sent as a bearer token
// through an oauth2 static token source.
func NewHTTPClient(ctx context.Context, opts Options) (*HTTPClient, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("chat: base url is required")
	}

	httpClient := opts.HTTPClient
	if opts.APIKey != "" {
		if httpClient != nil {
			ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
		}
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.APIKey, TokenType: "Bearer"})
		httpClient = oauth2.NewClient(ctx, ts)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	model := opts.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	return &HTTPClient{
		endpoint:    base + "/chat/completions",
		model:       model,
		maxTokens:   maxTokens,
		temperature: opts.Temperature,
		timeout:     opts.Timeout,
		http:        httpClient,
	}, nil
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message *Message `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends the conversation and returns the first choice's content.
func (c *HTTPClient) Complete(ctx context.Context, messages []Message) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := json.Marshal(completionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", decodeAPIError(resp)
	}

	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if len(out.Choices) == 0 || out.Choices[0].Message == nil {
		return "", ErrInvalidResponse
	}
	return out.Choices[0].Message.Content, nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return apiErr
	}
	var er errorResponse
	if json.Unmarshal(data, &er) == nil {
		apiErr.Message = strings.TrimSpace(er.Error.Message)
	}
	return apiErr
}
