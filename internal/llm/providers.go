package llm

import (
	"context"

	"github.com/davidhbaek/promptrun/internal/anthropic"
	"github.com/davidhbaek/promptrun/internal/gemini"
	"github.com/davidhbaek/promptrun/internal/openai"
	"github.com/davidhbaek/promptrun/internal/vertex"
)

// GenConfig is the flat set of generation parameters a command resolves from
// its flags before the client is built.
type GenConfig struct {
	Model          string
	Temperature    float64
	MaxTokens      int
	ThinkingBudget int
	Project        string
}

type ClientFactory func(ctx context.Context, cfg GenConfig) (Client, error)

// Provider ties a command name to its flag defaults and client factory.
type Provider struct {
	Name string
	// EnvKey is the API key variable the provider requires; empty means
	// ambient cloud credentials are used instead.
	EnvKey      string
	HasThinking bool
	HasProject  bool
	Defaults    GenConfig
	New         ClientFactory
}

var providers = map[string]*Provider{
	"claude": {
		Name:        "claude",
		EnvKey:      "ANTHROPIC_API_KEY",
		HasThinking: true,
		Defaults: GenConfig{
			Model:          anthropic.DefaultModel,
			Temperature:    1.0, // reasoning models require it
			MaxTokens:      32000,
			ThinkingBudget: 16000,
		},
		New: func(ctx context.Context, cfg GenConfig) (Client, error) {
			return anthropic.NewClient(cfg.Model, anthropic.Config{}, anthropic.Sampling{
				Temperature:    cfg.Temperature,
				MaxTokens:      cfg.MaxTokens,
				ThinkingBudget: cfg.ThinkingBudget,
			}), nil
		},
	},
	"gemini": {
		Name:        "gemini",
		EnvKey:      "GOOGLE_API_KEY",
		HasThinking: true,
		Defaults: GenConfig{
			Model:          gemini.DefaultModel,
			Temperature:    0.3,
			MaxTokens:      1000000,
			ThinkingBudget: 16000,
		},
		New: func(ctx context.Context, cfg GenConfig) (Client, error) {
			return gemini.NewClient(cfg.Model, gemini.Config{}, gemini.Sampling{
				Temperature:    cfg.Temperature,
				MaxTokens:      cfg.MaxTokens,
				ThinkingBudget: cfg.ThinkingBudget,
			}), nil
		},
	},
	"openai": {
		Name:   "openai",
		EnvKey: "OPENAI_API_KEY",
		Defaults: GenConfig{
			Model:       openai.DefaultModel,
			Temperature: 1.0,
			MaxTokens:   16000,
		},
		New: func(ctx context.Context, cfg GenConfig) (Client, error) {
			return openai.NewClient(cfg.Model, openai.Config{}, openai.Sampling{
				Temperature: cfg.Temperature,
				MaxTokens:   cfg.MaxTokens,
			}), nil
		},
	},
	"vertex": {
		Name:        "vertex",
		HasThinking: true,
		HasProject:  true,
		Defaults: GenConfig{
			Model:          vertex.DefaultModel,
			Temperature:    0.3,
			MaxTokens:      1000000,
			ThinkingBudget: 16000,
		},
		New: func(ctx context.Context, cfg GenConfig) (Client, error) {
			return vertex.NewClient(ctx, cfg.Model, vertex.Config{Project: cfg.Project}, vertex.Sampling{
				Temperature:    cfg.Temperature,
				MaxTokens:      cfg.MaxTokens,
				ThinkingBudget: cfg.ThinkingBudget,
			})
		},
	},
}

func Lookup(name string) (*Provider, bool) {
	p, ok := providers[name]
	return p, ok
}
