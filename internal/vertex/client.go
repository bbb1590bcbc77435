// Package vertex implements a client for models hosted on Vertex AI.
//
// Auth uses Google Cloud Application Default Credentials: either run
// `gcloud auth application-default login` locally or point
// GOOGLE_APPLICATION_CREDENTIALS at a service-account JSON file.
package vertex

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

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/davidhbaek/promptrun/internal/anthropic"
	"github.com/davidhbaek/promptrun/internal/gemini"
	"github.com/davidhbaek/promptrun/internal/wire"
)

const (
	DefaultModel = "gemini-2.5-pro-preview-05-06"

	anthropicRegion  = "us-east5"
	anthropicVersion = "vertex-2023-10-16"
	anthropicMaxOut  = 32000 // Anthropic has a hard limit

	geminiRegion = "us-central1"
	geminiMaxOut = 65535 // Gemini has a hard limit

	cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"
)

type Config struct {
	// BaseURL overrides the regional aiplatform endpoint; tests use it.
	BaseURL string
	Project string
	// TokenSource overrides Application Default Credentials when set.
	TokenSource oauth2.TokenSource
}

type Sampling struct {
	Temperature float64
	MaxTokens   int
	// ThinkingBudget applies to Gemini models only; the Anthropic
	// rawPredict surface does not take a thinking block.
	ThinkingBudget int
}

type Client struct {
	config     Config
	model      string
	region     string
	sampling   Sampling
	httpClient *http.Client
}

// NewClient builds a client for any model the project can call on Vertex.
// Only Anthropic- and Google-published models are supported; the model name
// picks the publisher, the region, and the max-output-token cap.
func NewClient(ctx context.Context, model string, config Config, sampling Sampling) (*Client, error) {
	if config.Project == "" {
		return nil, fmt.Errorf("missing GCP project for Vertex AI")
	}

	var region string
	switch {
	case isAnthropic(model):
		region = anthropicRegion
		sampling.MaxTokens = min(sampling.MaxTokens, anthropicMaxOut)
	case strings.HasPrefix(model, "gemini"):
		region = geminiRegion
		sampling.MaxTokens = min(sampling.MaxTokens, geminiMaxOut)
	default:
		return nil, fmt.Errorf("unsupported model: %s. Only Gemini and Claude models are supported at this time", model)
	}

	ts := config.TokenSource
	if ts == nil {
		var err error
		ts, err = google.DefaultTokenSource(ctx, cloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("loading application default credentials: %w", err)
		}
	}

	if config.BaseURL == "" {
		config.BaseURL = fmt.Sprintf("https://%s-aiplatform.googleapis.com", region)
	}

	return &Client{
		config:   config,
		model:    model,
		region:   region,
		sampling: sampling,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
			Transport: &oauth2.Transport{
				Source: ts,
				Base: &http.Transport{
					MaxIdleConns:        10,
					MaxIdleConnsPerHost: 10,
					IdleConnTimeout:     1 * time.Minute,
				},
			},
		},
	}, nil
}

func isAnthropic(model string) bool {
	return strings.HasPrefix(model, "claude") || strings.HasPrefix(model, "publishers/anthropic")
}

func (c *Client) Model() string {
	return c.model
}

type anthropicRequest struct {
	AnthropicVersion string         `json:"anthropic_version"`
	MaxTokens        int            `json:"max_tokens"`
	SystemPrompt     string         `json:"system,omitempty"`
	Messages         []wire.Message `json:"messages"`
	Temperature      float64        `json:"temperature"`
	Stream           bool           `json:"stream"`
}

func (c *Client) SendMessage(ctx context.Context, messages []wire.Message, systemPrompt string) (*wire.Response, error) {
	var reqBody []byte
	var url string
	var err error

	if isAnthropic(c.model) {
		url = fmt.Sprintf("%s/v1/projects/%s/locations/%s/publishers/anthropic/models/%s:streamRawPredict",
			c.config.BaseURL, c.config.Project, c.region, c.model)
		reqBody, err = json.Marshal(anthropicRequest{
			AnthropicVersion: anthropicVersion,
			MaxTokens:        c.sampling.MaxTokens,
			SystemPrompt:     systemPrompt,
			Messages:         messages,
			Temperature:      c.sampling.Temperature,
			Stream:           true,
		})
	} else {
		url = fmt.Sprintf("%s/v1/projects/%s/locations/%s/publishers/google/models/%s:generateContent",
			c.config.BaseURL, c.config.Project, c.region, c.model)
		cfg := gemini.GenerationConfig{
			Temperature:     c.sampling.Temperature,
			MaxOutputTokens: c.sampling.MaxTokens,
		}
		if c.sampling.ThinkingBudget > 0 {
			cfg.ThinkingConfig = &gemini.ThinkingConfig{ThinkingBudget: c.sampling.ThinkingBudget}
		}
		reqBody, err = json.Marshal(gemini.BuildRequest(messages, systemPrompt, cfg))
	}
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if isAnthropic(c.model) {
		req.Header.Set("Accept", "text/event-stream")
	}

	rsp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	return &wire.Response{
		StatusCode: rsp.StatusCode,
		Body:       rsp.Body,
	}, nil
}

// ReadBody defers to the reader matching the model's publisher: the SSE
// stream parser for Anthropic models, the generateContent parser for Gemini.
func (c *Client) ReadBody(body io.Reader) (string, error) {
	if isAnthropic(c.model) {
		text, _, err := anthropic.ReadStream(body, os.Stdout)
		return text, err
	}
	return gemini.ParseResponse(body, os.Stdout)
}
