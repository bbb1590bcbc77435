package llm

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const timestampLayout = "20060102150405"

// TransLog writes the per-invocation files under the log directory: an
// append-only conversation transcript shared by every run against the same
// prompt file, and a fresh timestamped file holding only the response.
type TransLog struct {
	dir      string
	base     string
	provider string
	now      func() time.Time
}

// NewTransLog derives the transcript basename from the prompt file's name
// minus its extension.
func NewTransLog(dir, promptPath, provider string) *TransLog {
	base := strings.TrimSuffix(filepath.Base(promptPath), filepath.Ext(promptPath))
	return &TransLog{
		dir:      dir,
		base:     base,
		provider: provider,
		now:      time.Now,
	}
}

// Stamp returns the timestamp shared by the conversation entry and the
// response filename of one invocation.
func (l *TransLog) Stamp() string {
	return l.now().Format(timestampLayout)
}

// Append adds one prompt/response pair to the conversation transcript,
// creating the log directory and the transcript on first use.
func (l *TransLog) Append(ts, prompt, response string) (string, error) {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating log directory: %w", err)
	}

	path := filepath.Join(l.dir, l.base+"_conversation")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("opening conversation log: %w", err)
	}

	_, err = fmt.Fprintf(f, "--- Prompt: %s ---\n%s\n--- Response: %s ---\n%s\n\n", ts, prompt, ts, response)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("writing conversation log: %w", err)
	}

	return path, nil
}

// ResponseFile writes the response text to a fresh timestamped file and
// returns its path.
func (l *TransLog) ResponseFile(ts, response string) (string, error) {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating log directory: %w", err)
	}

	path := filepath.Join(l.dir, fmt.Sprintf("%s_%s_response_%s", l.base, l.provider, ts))
	if err := os.WriteFile(path, []byte(response), 0o644); err != nil {
		return "", fmt.Errorf("writing response file: %w", err)
	}

	return path, nil
}
