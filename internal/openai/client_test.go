package openai_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/davidhbaek/promptrun/internal/openai"
	"github.com/davidhbaek/promptrun/internal/wire"
	"github.com/stretchr/testify/require"
)

const sseBody = `data: {"id":"chatcmpl-1","model":"gpt-4o-mini","choices":[{"index":0,"delta":{"content":"Hello"}}]}

data: {"id":"chatcmpl-1","model":"gpt-4o-mini","choices":[{"index":0,"delta":{"content":" there"}}]}

data: [DONE]
`

func TestSendMessage(t *testing.T) {
	var gotBody struct {
		Model               string  `json:"model"`
		Temperature         float64 `json:"temperature"`
		MaxCompletionTokens int     `json:"max_completion_tokens"`
		Stream              bool    `json:"stream"`
		Messages            []struct {
			Role    string `json:"role"`
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"messages"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer secret-key", r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &gotBody))

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(sseBody))
	}))
	defer server.Close()

	client := openai.NewClient(
		"gpt-4o-mini",
		openai.Config{BaseURL: server.URL, APIKey: "secret-key"},
		openai.Sampling{Temperature: 1.0, MaxTokens: 16000},
	)

	messages := []wire.Message{{Role: "user", Content: []wire.Content{&wire.Text{Type: "text", Text: "Hello"}}}}
	rsp, err := client.SendMessage(context.Background(), messages, "be brief")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rsp.StatusCode)

	require.Equal(t, "gpt-4o-mini", gotBody.Model)
	require.Equal(t, 1.0, gotBody.Temperature)
	require.Equal(t, 16000, gotBody.MaxCompletionTokens)
	require.True(t, gotBody.Stream)

	// The system prompt rides along as the first message
	require.Len(t, gotBody.Messages, 2)
	require.Equal(t, "system", gotBody.Messages[0].Role)
	require.Equal(t, "be brief", gotBody.Messages[0].Content[0].Text)
	require.Equal(t, "user", gotBody.Messages[1].Role)

	text, err := client.ReadBody(rsp.Body)
	require.NoError(t, err)
	require.Equal(t, "Hello there", text)
}

func TestSendMessageWithoutSystemPrompt(t *testing.T) {
	var messageCount int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []json.RawMessage `json:"messages"`
		}
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &body))
		messageCount = len(body.Messages)
		_, _ = w.Write([]byte(sseBody))
	}))
	defer server.Close()

	client := openai.NewClient("gpt-4o-mini", openai.Config{BaseURL: server.URL, APIKey: "k"}, openai.Sampling{})

	messages := []wire.Message{{Role: "user", Content: []wire.Content{&wire.Text{Type: "text", Text: "Hello"}}}}
	_, err := client.SendMessage(context.Background(), messages, "")
	require.NoError(t, err)
	require.Equal(t, 1, messageCount)
}

func TestCreateSpeech(t *testing.T) {
	audio := []byte("mp3-bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/audio/speech", r.URL.Path)
		require.Equal(t, "Bearer secret-key", r.Header.Get("Authorization"))

		var body struct {
			Model string `json:"model"`
			Voice string `json:"voice"`
			Input string `json:"input"`
		}
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &body))
		require.Equal(t, "tts-1", body.Model)
		require.Equal(t, "alloy", body.Voice)
		require.Equal(t, "hello", body.Input)

		_, _ = w.Write(audio)
	}))
	defer server.Close()

	client := openai.NewClient("tts-1", openai.Config{BaseURL: server.URL, APIKey: "secret-key"}, openai.Sampling{})

	got, err := client.CreateSpeech(context.Background(), "alloy", "hello")
	require.NoError(t, err)
	require.Equal(t, audio, got)
}

func TestCreateSpeechVendorError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided"}}`))
	}))
	defer server.Close()

	client := openai.NewClient("tts-1", openai.Config{BaseURL: server.URL, APIKey: "bad"}, openai.Sampling{})

	_, err := client.CreateSpeech(context.Background(), "alloy", "hello")
	require.ErrorContains(t, err, "Incorrect API key provided")
	require.ErrorContains(t, err, "401")
}

func TestSpeechCLIMissingText(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "k")
	require.Equal(t, 1, openai.SpeechCLI(nil))

	_, err := os.Stat(filepath.Join(".", "output.mp3"))
	require.True(t, os.IsNotExist(err))
}
