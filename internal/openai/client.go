// Package openai implements a client for the OpenAI chat completions and
// speech APIs.
package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/davidhbaek/promptrun/internal/wire"
)

const (
	DefaultBaseURL = "https://api.openai.com"
	DefaultModel   = "gpt-4o-mini"
)

type Config struct {
	BaseURL string
	APIKey  string
}

type Sampling struct {
	Temperature float64
	MaxTokens   int
}

type Client struct {
	config     Config
	model      string
	sampling   Sampling
	httpClient *http.Client
}

func NewClient(model string, config Config, sampling Sampling) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.APIKey == "" {
		config.APIKey = os.Getenv("OPENAI_API_KEY")
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

type request struct {
	Model               string         `json:"model"`
	Messages            []wire.Message `json:"messages"`
	Temperature         float64        `json:"temperature"`
	MaxCompletionTokens int            `json:"max_completion_tokens"`
	Stream              bool           `json:"stream"`
}

func (c *Client) SendMessage(ctx context.Context, messages []wire.Message, systemPrompt string) (*wire.Response, error) {
	// The OpenAI API doesn't have a separate field for system prompts like
	// the Anthropic API does
	if len(systemPrompt) > 0 {
		messages = append([]wire.Message{{
			Role:    "system",
			Content: []wire.Content{&wire.Text{Type: "text", Text: systemPrompt}},
		}}, messages...)
	}

	reqBody, err := json.Marshal(request{
		Model:               c.model,
		Messages:            messages,
		Temperature:         c.sampling.Temperature,
		MaxCompletionTokens: c.sampling.MaxTokens,
		Stream:              true,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/%s", c.config.BaseURL, "v1/chat/completions"), bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.config.APIKey))

	rsp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	return &wire.Response{
		StatusCode: rsp.StatusCode,
		Body:       rsp.Body,
	}, nil
}

func (c *Client) ReadBody(body io.Reader) (string, error) {
	return readStream(body, os.Stdout)
}

func readStream(body io.Reader, echo io.Writer) (string, error) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var text strings.Builder
	for scanner.Scan() {
		line := scanner.Text()

		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}

		payload := strings.TrimSpace(parts[1])
		if strings.Contains(payload, "[DONE]") {
			break
		}

		response := struct {
			ID      string `json:"id"`
			Model   string `json:"model"`
			Choices []struct {
				Index int `json:"index"`
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
			} `json:"choices"`
		}{}

		err := json.Unmarshal([]byte(payload), &response)
		if err != nil {
			return "", fmt.Errorf("unmarshaling response from API: %w", err)
		}

		for _, choice := range response.Choices {
			fmt.Fprint(echo, choice.Delta.Content)
			text.WriteString(choice.Delta.Content)
		}
	}

	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading SSE stream: %w", err)
	}

	fmt.Fprintln(echo)

	return text.String(), nil
}
