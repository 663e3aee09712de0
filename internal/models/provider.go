// Package models adapts completion providers to a single request/response contract.
package models

import (
	"context"
	"fmt"
	"strings"

	"github.com/easeaico/companion-chat/internal/config"
	"github.com/easeaico/companion-chat/internal/types"
)

// CompletionRequest is one chat completion call.
type CompletionRequest struct {
	SystemPrompt string
	Turns        []types.Turn
	// Model overrides the provider's default model when set.
	Model string
	// Temperature is sent as is; zero is a valid setting.
	Temperature float64
	MaxTokens   int
}

// CompletionResponse is a generated reply.
type CompletionResponse struct {
	Text       string
	Model      string
	TokensUsed int
}

// Provider generates one reply per request.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// Options configures a provider.
type Options struct {
	APIKey           string
	BaseURL          string
	Model            string
	DefaultMaxTokens int
}

// OptionsFromConfig copies the LLM settings out of cfg.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		APIKey:           cfg.LLMAPIKey,
		BaseURL:          cfg.LLMBaseURL,
		Model:            cfg.LLMModel,
		DefaultMaxTokens: cfg.DefaultMaxTokens,
	}
}

// NewProvider builds the provider named by cfg.LLMProvider.
func NewProvider(ctx context.Context, cfg config.Config) (Provider, error) {
	opts := OptionsFromConfig(cfg)
	switch strings.ToLower(cfg.LLMProvider) {
	case "openai", "zhipu", "grok", "openrouter":
		return NewOpenAIProvider(cfg.LLMProvider, opts)
	case "gemini":
		return NewGeminiProvider(ctx, opts)
	case "langchain":
		return NewLangChainProvider(opts)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.LLMProvider)
	}
}

// CheckConnection sends a short greeting and expects a non-empty reply.
func CheckConnection(ctx context.Context, provider Provider) error {
	resp, err := provider.Complete(ctx, CompletionRequest{
		Turns:       []types.Turn{{Role: types.RoleUser, Text: "你好"}},
		Temperature: 0.7,
		MaxTokens:   100,
	})
	if err != nil {
		return fmt.Errorf("%s connection check failed: %w", provider.Name(), err)
	}
	if strings.TrimSpace(resp.Text) == "" {
		return fmt.Errorf("%s connection check returned an empty reply", provider.Name())
	}
	return nil
}

func (o Options) maxTokens(req CompletionRequest) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return o.DefaultMaxTokens
}

func (o Options) model(req CompletionRequest) string {
	if m := strings.TrimSpace(req.Model); m != "" {
		return m
	}
	return o.Model
}

func validateOptions(opts Options) error {
	if strings.TrimSpace(opts.APIKey) == "" {
		return fmt.Errorf("API key is required")
	}
	if strings.TrimSpace(opts.Model) == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	return nil
}
