package llm

import (
	"context"
	"io"

	"github.com/davidhbaek/promptrun/internal/anthropic"
	"github.com/davidhbaek/promptrun/internal/gemini"
	"github.com/davidhbaek/promptrun/internal/openai"
	"github.com/davidhbaek/promptrun/internal/vertex"
	"github.com/davidhbaek/promptrun/internal/wire"
)

type Client interface {
	// Define how to send a prompt to the LLMs API
	SendMessage(ctx context.Context, messages []wire.Message, systemPrompt string) (*wire.Response, error)
	// Define how to read the response body from the LLM
	ReadBody(body io.Reader) (string, error)
	// Return the underlying LLM being prompted
	Model() string
}

// Enforce interface compliance
var (
	_ Client = &anthropic.Client{}
	_ Client = &gemini.Client{}
	_ Client = &openai.Client{}
	_ Client = &vertex.Client{}
)

// UsageReporter is implemented by clients that track token usage across a call.
type UsageReporter interface {
	Usage() anthropic.Usage
}
