// Package wire holds types that represent anything that goes across a boundary
// Think I/O operations
package wire

import "io"

type Message struct {
	Role    string    `json:"role"`
	Content []Content `json:"content"`
}

type Content interface {
	GetType() string
}

type Text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

var _ Content = &Text{}

func (t *Text) GetType() string {
	return "text"
}

// AnthropicImage is the base64 image block used by the Anthropic Messages API.
// Gemini reuses the same media-type + base64 pair for its inline_data parts.
type AnthropicImage struct {
	Type   string `json:"type"`
	Source struct {
		Type      string `json:"type"`
		MediaType string `json:"media_type"`
		Data      string `json:"data"`
	} `json:"source"`
}

var _ Content = &AnthropicImage{}

func (i *AnthropicImage) GetType() string {
	return "image"
}

// OpenAIImage is the URL-style image block used by the chat completions API.
type OpenAIImage struct {
	Type     string `json:"type"`
	ImageURL struct {
		URL string `json:"url"`
	} `json:"image_url"`
}

var _ Content = &OpenAIImage{}

func (i *OpenAIImage) GetType() string {
	return "image"
}

type Response struct {
	StatusCode int
	Body       io.Reader
}
