// Package anthropic implements a client for the Anthropic Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/davidhbaek/promptrun/internal/wire"
)

const (
	DefaultBaseURL = "https://api.anthropic.com"
	DefaultModel   = "claude-sonnet-4-20250514"

	apiVersion = "2023-06-01"
)

type Config struct {
	BaseURL string
	APIKey  string
}

// Sampling carries the generation parameters for a single invocation.
// A ThinkingBudget of 0 leaves the thinking block off the request entirely,
// since the API rejects a zero budget.
type Sampling struct {
	Temperature    float64
	MaxTokens      int
	ThinkingBudget int
}

type Client struct {
	config     Config
	model      string
	sampling   Sampling
	httpClient *http.Client
	usage      Usage
}

func NewClient(model string, config Config, sampling Sampling) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.APIKey == "" {
		config.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	return &Client{
		config:   config,
		model:    model,
		sampling: sampling,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     1 * time.Minute,
			},
		},
	}
}

func (c *Client) Model() string {
	return c.model
}

// Usage reports the token counts observed on the most recent ReadBody.
func (c *Client) Usage() Usage {
	return c.usage
}

type thinking struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens"`
}

type request struct {
	Model        string         `json:"model"`
	MaxTokens    int            `json:"max_tokens"`
	SystemPrompt string         `json:"system,omitempty"`
	Messages     []wire.Message `json:"messages"`
	Temperature  float64        `json:"temperature"`
	Stream       bool           `json:"stream"`
	Thinking     *thinking      `json:"thinking,omitempty"`
}

func (c *Client) SendMessage(ctx context.Context, messages []wire.Message, systemPrompt string) (*wire.Response, error) {
	body := request{
		Model:        c.model,
		MaxTokens:    c.sampling.MaxTokens,
		SystemPrompt: systemPrompt,
		Messages:     messages,
		Temperature:  c.sampling.Temperature,
		Stream:       true,
	}

	if c.sampling.ThinkingBudget > 0 {
		body.Thinking = &thinking{Type: "enabled", BudgetTokens: c.sampling.ThinkingBudget}
	}

	reqBody, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/%s", c.config.BaseURL, "v1/messages"), bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("building POST request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.config.APIKey)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("Accept", "text/event-stream")

	rsp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	return &wire.Response{
		StatusCode: rsp.StatusCode,
		Body:       rsp.Body,
	}, nil
}

// ReadBody drains the SSE stream, echoing text deltas to stdout as they
// arrive, and records the token usage reported by the stream.
func (c *Client) ReadBody(body io.Reader) (string, error) {
	text, usage, err := ReadStream(body, os.Stdout)
	c.usage = usage
	return text, err
}
