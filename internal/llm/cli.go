// Package llm wires the provider clients into a uniform prompt-file CLI.
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
	"rsc.io/pdf"

	"github.com/davidhbaek/promptrun/internal/anthropic"
	"github.com/davidhbaek/promptrun/internal/wire"
)

const defaultSystemPromptFile = "system_prompts/coding_000000"

type fileList []string

var _ flag.Value = &fileList{}

func (f *fileList) String() string {
	return fmt.Sprintf("%v", *f)
}

func (f *fileList) Set(value string) error {
	*f = append(*f, value)
	return nil
}

type env struct {
	provider     *Provider
	cfg          GenConfig
	promptFile   string
	prompt       string
	systemPrompt string
	images       fileList
	docs         fileList
	isChat       bool
	debug        bool
	logDir       string
}

// CLI runs the command named by provider against the given arguments and
// returns its exit code: 0 on success, 2 on argument errors, 1 otherwise.
func CLI(provider string, args []string) int {
	p, ok := Lookup(provider)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown provider %q\n", provider)
		return 2
	}

	app := env{provider: p, logDir: "log"}
	if err := app.fromArgs(args); err != nil {
		fmt.Fprintf(os.Stderr, "parsing args: %v\n", err)
		return 2
	}

	if err := app.run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "runtime error: %v\n", err)
		return 1
	}
	return 0
}

func (app *env) fromArgs(args []string) error {
	// A .env file is optional; keys may come from the environment directly
	_ = godotenv.Load()

	p := app.provider
	fl := flag.NewFlagSet(p.Name, flag.ContinueOnError)

	var promptFile string
	fl.StringVar(&promptFile, "p", "", "path to a file containing the prompt text")
	fl.StringVar(&promptFile, "prompt-file", "", "path to a file containing the prompt text")

	var systemPromptFile string
	fl.StringVar(&systemPromptFile, "s", defaultSystemPromptFile, "path to a file containing the system prompt text")
	fl.StringVar(&systemPromptFile, "system-prompt-file", defaultSystemPromptFile, "path to a file containing the system prompt text")

	var model string
	fl.StringVar(&model, "m", p.Defaults.Model, "model name to use")
	fl.StringVar(&model, "model", p.Defaults.Model, "model name to use")

	var temperature float64
	fl.Float64Var(&temperature, "t", p.Defaults.Temperature, "temperature for generation")
	fl.Float64Var(&temperature, "temperature", p.Defaults.Temperature, "temperature for generation")

	var maxTokens int
	fl.IntVar(&maxTokens, "max-tokens", p.Defaults.MaxTokens, "maximum tokens in the response")

	var thinkingBudget int
	if p.HasThinking {
		fl.IntVar(&thinkingBudget, "thinking-budget-tokens", p.Defaults.ThinkingBudget, "budget for the model's 'thinking' tokens")
	}

	var project string
	if p.HasProject {
		fl.StringVar(&project, "project", os.Getenv("GOOGLE_CLOUD_PROJECT"), "GCP project ID (env var fallback)")
	}

	var images fileList
	fl.Var(&images, "i", "list of image paths (filenames and URLs)")
	fl.Var(&images, "image", "list of image paths (filenames and URLs)")

	var docs fileList
	fl.Var(&docs, "d", "list of filepaths to docs (PDFs)")
	fl.Var(&docs, "document", "list of filepaths to docs (PDFs)")

	var isChat bool
	fl.BoolVar(&isChat, "c", false, "Start a live chat that retains conversation history")
	fl.BoolVar(&isChat, "chat", false, "Start a live chat that retains conversation history")

	var debug bool
	fl.BoolVar(&debug, "debug", false, "dump the resolved configuration before running")

	if err := fl.Parse(args); err != nil {
		return fmt.Errorf("parsing command line arguments: %w", err)
	}

	if promptFile == "" && !isChat {
		return errors.New("missing required -prompt-file flag")
	}

	if p.HasProject && project == "" {
		return errors.New("missing GCP project: set -project or GOOGLE_CLOUD_PROJECT")
	}

	if promptFile != "" {
		promptBytes, err := os.ReadFile(promptFile)
		if err != nil {
			return fmt.Errorf("reading prompt file: %w", err)
		}
		app.prompt = string(promptBytes)
	}

	systemBytes, err := os.ReadFile(systemPromptFile)
	switch {
	case err == nil:
		app.systemPrompt = string(systemBytes)
	case systemPromptFile == defaultSystemPromptFile && os.IsNotExist(err):
		// No bundled default prompt next to the working directory; run without one
		log.Printf("no system prompt file at path=%s, continuing without one", systemPromptFile)
	default:
		return fmt.Errorf("reading system prompt file: %w", err)
	}

	app.promptFile = promptFile
	app.images = images
	app.docs = docs
	app.isChat = isChat
	app.debug = debug
	app.cfg = GenConfig{
		Model:          model,
		Temperature:    temperature,
		MaxTokens:      maxTokens,
		ThinkingBudget: thinkingBudget,
		Project:        project,
	}

	return nil
}

func (app *env) run(ctx context.Context) error {
	if key := app.provider.EnvKey; key != "" && os.Getenv(key) == "" {
		return fmt.Errorf("%s environment variable not set", key)
	}

	if app.debug {
		spew.Dump(app.cfg)
	}

	client, err := app.provider.New(ctx, app.cfg)
	if err != nil {
		return err
	}

	// Load up any images or docs provided to the LLM
	content, err := app.loadAttachments()
	if err != nil {
		return err
	}

	docText, err := readDocs(app.docs)
	if err != nil {
		return err
	}

	systemPrompt := app.systemPrompt
	if docText != "" {
		systemPrompt = strings.TrimSpace(systemPrompt + "\n" + wrapInXMLTags(docText, "document"))
	}

	// Live chat session
	// The user turns come from stdin instead of a prompt file
	if app.isChat {
		return app.runChatSession(ctx, client, systemPrompt)
	}

	content = append(content, &wire.Text{Type: "text", Text: app.prompt})
	messages := []wire.Message{{Role: "user", Content: content}}

	rsp, err := client.SendMessage(ctx, messages, systemPrompt)
	if err != nil {
		return fmt.Errorf("sending prompt: %w", err)
	}

	if rsp.StatusCode != 200 {
		body, _ := io.ReadAll(rsp.Body)
		return fmt.Errorf("%s API error (status %d): %s", app.provider.Name, rsp.StatusCode, bytes.TrimSpace(body))
	}

	response, err := client.ReadBody(rsp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	tlog := NewTransLog(app.logDir, app.promptFile, app.provider.Name)
	ts := tlog.Stamp()

	convPath, err := tlog.Append(ts, app.prompt, response)
	if err != nil {
		return err
	}

	rspPath, err := tlog.ResponseFile(ts, response)
	if err != nil {
		return err
	}

	if reporter, ok := client.(UsageReporter); ok {
		reportUsage(client.Model(), reporter.Usage())
	}

	fmt.Printf("Conversation appended to %s\n", convPath)
	fmt.Printf("Response written to %s\n", rspPath)

	return nil
}

// runChatSession keeps the conversation history in memory and appends each
// turn to the conversation transcript. The session ends on EOF (ctrl-d).
func (app *env) runChatSession(ctx context.Context, client Client, systemPrompt string) error {
	fmt.Println("Welcome to the chat session")

	base := app.promptFile
	if base == "" {
		base = "chat"
	}
	tlog := NewTransLog(app.logDir, base, app.provider.Name)

	chatHistory := []wire.Message{}
	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Print("> ")
		input, err := reader.ReadString('\n')
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		chatHistory = append(chatHistory, wire.Message{Role: "user", Content: []wire.Content{&wire.Text{Type: "text", Text: input}}})

		rsp, err := client.SendMessage(ctx, chatHistory, systemPrompt)
		if err != nil {
			return err
		}

		if rsp.StatusCode != 200 {
			body, _ := io.ReadAll(rsp.Body)
			return fmt.Errorf("%s API error (status %d): %s", app.provider.Name, rsp.StatusCode, bytes.TrimSpace(body))
		}

		answer, err := client.ReadBody(rsp.Body)
		if err != nil {
			return err
		}

		if _, err := tlog.Append(tlog.Stamp(), input, answer); err != nil {
			return err
		}

		chatHistory = append(chatHistory, wire.Message{Role: "assistant", Content: []wire.Content{&wire.Text{Type: "text", Text: answer}}})
	}
}

// loadAttachments fetches every image concurrently, preserving flag order in
// the returned content blocks. OpenAI takes image URLs as-is; the other
// providers want base64 blocks.
func (app *env) loadAttachments() ([]wire.Content, error) {
	content := []wire.Content{}

	if app.provider.Name == "openai" {
		for _, path := range app.images {
			img := &wire.OpenAIImage{Type: "image_url"}
			img.ImageURL.URL = path
			content = append(content, img)
		}
		return content, nil
	}

	imgBytes := make([][]byte, len(app.images))
	g := new(errgroup.Group)
	for i, path := range app.images {
		i, path := i, path
		g.Go(func() error {
			b, err := anthropic.DownloadImage(path)
			if err != nil {
				return fmt.Errorf("loading image %s: %w", path, err)
			}
			imgBytes[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, b := range imgBytes {
		img := &wire.AnthropicImage{Type: "image"}
		img.Source.Type = "base64"
		img.Source.MediaType = http.DetectContentType(b)
		img.Source.Data = base64.StdEncoding.EncodeToString(b)
		content = append(content, img)
	}

	return content, nil
}

func readDocs(docs []string) (string, error) {
	var text strings.Builder
	for _, path := range docs {
		file, err := pdf.Open(path)
		if err != nil {
			return "", fmt.Errorf("opening PDF %s: %w", path, err)
		}

		for i := 1; i <= file.NumPage(); i++ {
			for _, t := range file.Page(i).Content().Text {
				text.WriteString(t.S)
				text.WriteString("\n")
			}
		}
	}

	return text.String(), nil
}

func wrapInXMLTags(text, tag string) string {
	return fmt.Sprintf("<%s>%s</%s>", tag, text, tag)
}

func reportUsage(model string, usage anthropic.Usage) {
	totalInput := usage.InputTokens + usage.CacheCreationInputTokens + usage.CacheReadInputTokens

	fmt.Println("\n--- Token Usage ---")
	fmt.Printf("Input tokens: %d\n", usage.InputTokens)
	fmt.Printf("Output tokens: %d\n", usage.OutputTokens)
	fmt.Printf("Cache creation tokens: %d\n", usage.CacheCreationInputTokens)
	fmt.Printf("Cache read tokens: %d\n", usage.CacheReadInputTokens)
	fmt.Printf("Total tokens: %d\n", totalInput+usage.OutputTokens)
	if cost := anthropic.Cost(model, usage); cost > 0 {
		fmt.Printf("Estimated cost: $%.4f\n", cost)
	}
	fmt.Println("-------------------")
}
