// Package gemini implements a client for the Gemini Developer API
// (generateContent). The Vertex client reuses its request and response
// shapes for Google-published models.
package gemini

import (
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
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-2.5-pro"
)

type Config struct {
	BaseURL string
	APIKey  string
}

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
}

func NewClient(model string, config Config, sampling Sampling) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.APIKey == "" {
		config.APIKey = os.Getenv("GOOGLE_API_KEY")
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

// Wire types for generateContent. The REST API accepts snake_case field
// names for both the Developer API and Vertex endpoints.

type Request struct {
	Contents          []Content        `json:"contents"`
	SystemInstruction *Content         `json:"system_instruction,omitempty"`
	GenerationConfig  GenerationConfig `json:"generation_config"`
}

type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inline_data,omitempty"`
}

type InlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type GenerationConfig struct {
	Temperature     float64         `json:"temperature"`
	MaxOutputTokens int             `json:"max_output_tokens"`
	ThinkingConfig  *ThinkingConfig `json:"thinking_config,omitempty"`
}

// ThinkingConfig reserves tokens for internal reasoning. A budget of 0 turns
// thinking off.
type ThinkingConfig struct {
	ThinkingBudget int `json:"thinking_budget"`
}

// BuildRequest converts boundary messages into the generateContent shape.
func BuildRequest(messages []wire.Message, systemPrompt string, cfg GenerationConfig) Request {
	req := Request{GenerationConfig: cfg}

	if len(systemPrompt) > 0 {
		req.SystemInstruction = &Content{Parts: []Part{{Text: systemPrompt}}}
	}

	for _, msg := range messages {
		role := msg.Role
		if role == "assistant" {
			role = "model"
		}

		content := Content{Role: role}
		for _, block := range msg.Content {
			switch v := block.(type) {
			case *wire.Text:
				content.Parts = append(content.Parts, Part{Text: v.Text})
			case *wire.AnthropicImage:
				content.Parts = append(content.Parts, Part{InlineData: &InlineData{
					MimeType: v.Source.MediaType,
					Data:     v.Source.Data,
				}})
			}
		}

		req.Contents = append(req.Contents, content)
	}

	return req
}

func (c *Client) SendMessage(ctx context.Context, messages []wire.Message, systemPrompt string) (*wire.Response, error) {
	body := BuildRequest(messages, systemPrompt, GenerationConfig{
		Temperature:     c.sampling.Temperature,
		MaxOutputTokens: c.sampling.MaxTokens,
		ThinkingConfig:  &ThinkingConfig{ThinkingBudget: c.sampling.ThinkingBudget},
	})

	reqBody, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.config.BaseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.config.APIKey)

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
	return ParseResponse(body, os.Stdout)
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// ParseResponse extracts the text of the first candidate from a
// generateContent response body and echoes it to echo.
func ParseResponse(body io.Reader, echo io.Writer) (string, error) {
	rspBytes, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("reading response body: %w", err)
	}

	rsp := generateResponse{}
	if err := json.Unmarshal(rspBytes, &rsp); err != nil {
		return "", fmt.Errorf("unmarshaling response from API: %w", err)
	}

	if len(rsp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response: %s", rspBytes)
	}

	var text strings.Builder
	for _, part := range rsp.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}

	fmt.Fprintln(echo, text.String())

	return text.String(), nil
}
