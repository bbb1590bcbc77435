package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/joho/godotenv"
)

// Voices accepted by the speech endpoint.
var voices = map[string]bool{
	"alloy":   true,
	"ash":     true,
	"coral":   true,
	"echo":    true,
	"fable":   true,
	"onyx":    true,
	"nova":    true,
	"sage":    true,
	"shimmer": true,
}

type speechRequest struct {
	Model string `json:"model"`
	Voice string `json:"voice"`
	Input string `json:"input"`
}

// CreateSpeech synthesizes audio for the given text and returns the encoded
// audio bytes (MP3 by default).
func (c *Client) CreateSpeech(ctx context.Context, voice, input string) ([]byte, error) {
	reqBody, err := json.Marshal(speechRequest{
		Model: c.model,
		Voice: voice,
		Input: input,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/%s", c.config.BaseURL, "v1/audio/speech"), bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.config.APIKey))

	rsp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer rsp.Body.Close()

	body, err := io.ReadAll(rsp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if rsp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openai API error (status %d): %s", rsp.StatusCode, body)
	}

	return body, nil
}

// SpeechCLI is the entry point for the tts command.
func SpeechCLI(args []string) int {
	fl := flag.NewFlagSet("tts", flag.ContinueOnError)

	var model string
	fl.StringVar(&model, "m", "tts-1", "model to use for TTS (e.g. tts-1, tts-1-hd)")
	fl.StringVar(&model, "model", "tts-1", "model to use for TTS (e.g. tts-1, tts-1-hd)")

	var voice string
	fl.StringVar(&voice, "v", "alloy", "voice to use for TTS")
	fl.StringVar(&voice, "voice", "alloy", "voice to use for TTS")

	var output string
	fl.StringVar(&output, "o", "output.mp3", "output file name")
	fl.StringVar(&output, "output", "output.mp3", "output file name")

	if err := fl.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "parsing args: %v\n", err)
		return 2
	}

	if err := runSpeech(model, voice, output, fl.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "runtime error: %v\n", err)
		return 1
	}
	return 0
}

func runSpeech(model, voice, output, text string) error {
	// A .env file is optional; the API key may come from the environment
	_ = godotenv.Load()

	if text == "" {
		return errors.New("missing text argument to synthesize")
	}
	if !voices[voice] {
		return fmt.Errorf("unknown voice %q", voice)
	}
	if os.Getenv("OPENAI_API_KEY") == "" {
		return errors.New("OPENAI_API_KEY environment variable not set")
	}

	client := NewClient(model, Config{}, Sampling{})

	audio, err := client.CreateSpeech(context.Background(), voice, text)
	if err != nil {
		return err
	}

	if err := os.WriteFile(output, audio, 0o644); err != nil {
		return fmt.Errorf("writing audio file: %w", err)
	}

	fmt.Printf("Audio saved to %s\n", output)
	return nil
}
