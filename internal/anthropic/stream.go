package anthropic

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Server-Sent-Events (SSE)
type SSEData struct {
	Type string `json:"type"`
}

type ContentBlockDelta struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
}

type MessageStart struct {
	Type    string `json:"type"`
	Message struct {
		Usage Usage `json:"usage"`
	} `json:"message"`
}

type MessageDelta struct {
	Type  string `json:"type"`
	Usage struct {
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type APIError struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

type Usage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
}

// ReadStream parses a Messages API SSE stream, echoing each text delta to
// echo as it arrives. It returns the concatenated response text and the token
// usage accumulated across message_start and message_delta events. The Vertex
// client reuses it for Anthropic-published models.
func ReadStream(body io.Reader, echo io.Writer) (string, Usage, error) {
	scanner := bufio.NewScanner(body)
	// data lines carrying large text deltas can exceed the default token size
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var text strings.Builder
	var usage Usage

	for scanner.Scan() {
		line := scanner.Text()

		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}

		msgType, payload := parts[0], strings.TrimSpace(parts[1])
		if msgType != "data" {
			continue
		}

		sseData := SSEData{}
		if err := json.Unmarshal([]byte(payload), &sseData); err != nil {
			return "", usage, fmt.Errorf("unmarshaling SSE data: %w", err)
		}

		switch sseData.Type {
		case "message_start":
			start := MessageStart{}
			if err := json.Unmarshal([]byte(payload), &start); err != nil {
				return "", usage, err
			}
			usage = start.Message.Usage

		case "message_delta":
			delta := MessageDelta{}
			if err := json.Unmarshal([]byte(payload), &delta); err != nil {
				return "", usage, err
			}
			usage.OutputTokens = delta.Usage.OutputTokens

		case "content_block_delta":
			content := ContentBlockDelta{}
			if err := json.Unmarshal([]byte(payload), &content); err != nil {
				return "", usage, err
			}
			if content.Delta.Type == "text_delta" {
				fmt.Fprint(echo, content.Delta.Text)
				text.WriteString(content.Delta.Text)
			}

		case "error":
			errRsp := APIError{}
			if err := json.Unmarshal([]byte(payload), &errRsp); err != nil {
				return "", usage, err
			}
			return "", usage, fmt.Errorf("error from Anthropic API: type=%s message=%s", errRsp.Error.Type, errRsp.Error.Message)
		}
	}

	if err := scanner.Err(); err != nil {
		return "", usage, fmt.Errorf("reading SSE stream: %w", err)
	}

	fmt.Fprintln(echo)

	return text.String(), usage, nil
}
