package vertex_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/oauth2"

	"github.com/davidhbaek/promptrun/internal/vertex"
	"github.com/davidhbaek/promptrun/internal/wire"
	"github.com/stretchr/testify/require"
)

const anthropicSSE = `event: content_block_delta
data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hello from Vertex"}}
`

const geminiJSON = `{"candidates":[{"content":{"parts":[{"text":"Hello from Vertex"}],"role":"model"}}]}`

func staticToken() oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"})
}

func userMessage(text string) []wire.Message {
	return []wire.Message{{Role: "user", Content: []wire.Content{&wire.Text{Type: "text", Text: text}}}}
}

func TestSendMessageAnthropicModel(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/projects/my-project/locations/us-east5/publishers/anthropic/models/claude-opus-4:streamRawPredict", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &gotBody))

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(anthropicSSE))
	}))
	defer server.Close()

	client, err := vertex.NewClient(
		context.Background(),
		"claude-opus-4",
		vertex.Config{BaseURL: server.URL, Project: "my-project", TokenSource: staticToken()},
		vertex.Sampling{Temperature: 0.3, MaxTokens: 1000000},
	)
	require.NoError(t, err)

	rsp, err := client.SendMessage(context.Background(), userMessage("hi"), "be brief")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rsp.StatusCode)

	require.Equal(t, "vertex-2023-10-16", gotBody["anthropic_version"])
	require.Equal(t, "be brief", gotBody["system"])
	// Anthropic models cap out well below the CLI default
	require.Equal(t, float64(32000), gotBody["max_tokens"])
	require.Equal(t, true, gotBody["stream"])

	_, hasThinking := gotBody["thinking"]
	require.False(t, hasThinking, "rawPredict takes no thinking block")

	text, err := client.ReadBody(rsp.Body)
	require.NoError(t, err)
	require.Equal(t, "Hello from Vertex", text)
}

func TestSendMessageGeminiModel(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/projects/my-project/locations/us-central1/publishers/google/models/gemini-2.5-pro-preview-05-06:generateContent", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &gotBody))

		_, _ = w.Write([]byte(geminiJSON))
	}))
	defer server.Close()

	client, err := vertex.NewClient(
		context.Background(),
		"gemini-2.5-pro-preview-05-06",
		vertex.Config{BaseURL: server.URL, Project: "my-project", TokenSource: staticToken()},
		vertex.Sampling{Temperature: 0.3, MaxTokens: 1000000, ThinkingBudget: 8000},
	)
	require.NoError(t, err)

	rsp, err := client.SendMessage(context.Background(), userMessage("hi"), "")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rsp.StatusCode)

	genCfg, ok := gotBody["generation_config"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, float64(65535), genCfg["max_output_tokens"])
	require.Equal(t, map[string]any{"thinking_budget": float64(8000)}, genCfg["thinking_config"])

	text, err := client.ReadBody(rsp.Body)
	require.NoError(t, err)
	require.Equal(t, "Hello from Vertex", text)
}

func TestNewClientRejectsUnsupportedModel(t *testing.T) {
	_, err := vertex.NewClient(
		context.Background(),
		"llama-3",
		vertex.Config{Project: "my-project", TokenSource: staticToken()},
		vertex.Sampling{},
	)
	require.ErrorContains(t, err, "unsupported model")
}

func TestNewClientRequiresProject(t *testing.T) {
	_, err := vertex.NewClient(
		context.Background(),
		"gemini-2.5-pro-preview-05-06",
		vertex.Config{TokenSource: staticToken()},
		vertex.Sampling{},
	)
	require.ErrorContains(t, err, "project")
}
