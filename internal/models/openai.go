package models

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Base URLs of the OpenAI-compatible vendors.
var openAICompatibleBaseURLs = map[string]string{
	"openai":     "",
	"zhipu":      "https://open.bigmodel.cn/api/paas/v4",
	"grok":       "https://api.x.ai/v1",
	"openrouter": "https://openrouter.ai/api/v1",
}

// OpenAIProvider talks to any OpenAI-compatible chat completions endpoint.
type OpenAIProvider struct {
	client *openai.Client
	vendor string
	opts   Options
}

// NewOpenAIProvider creates a provider for vendor. An explicit opts.BaseURL
// wins over the vendor's preset.
func NewOpenAIProvider(vendor string, opts Options) (*OpenAIProvider, error) {
	if err := validateOptions(opts); err != nil {
		return nil, err
	}
	vendor = strings.ToLower(strings.TrimSpace(vendor))
	preset, ok := openAICompatibleBaseURLs[vendor]
	if !ok {
		return nil, fmt.Errorf("unsupported openai-compatible vendor: %s", vendor)
	}

	// Created once so requests don't rebuild the header.
	headerValue := fmt.Sprintf("%s-go/%s go/%s",
		vendor, "1.0.0", strings.TrimPrefix(runtime.Version(), "go"))

	requestOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithHeader("user-agent", headerValue),
	}
	baseURL := strings.TrimSpace(opts.BaseURL)
	if baseURL == "" {
		baseURL = preset
	}
	if baseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(baseURL))
	}
	if vendor == "openrouter" && !strings.Contains(opts.Model, "/") {
		opts.Model = fmt.Sprintf("openrouter/%s", opts.Model)
	}

	client := openai.NewClient(requestOpts...)
	return &OpenAIProvider{
		client: &client,
		vendor: vendor,
		opts:   opts,
	}, nil
}

func (p *OpenAIProvider) Name() string {
	return p.vendor
}

func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	params := buildOpenAIParams(req, p.opts)

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		slog.Error("failed to call llm API", "provider", p.vendor, "error", err.Error())
		return nil, fmt.Errorf("failed to call %s API: %w", p.vendor, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s returned no choices", p.vendor)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return nil, fmt.Errorf("%s returned an empty reply", p.vendor)
	}
	return &CompletionResponse{
		Text:       text,
		Model:      resp.Model,
		TokensUsed: int(resp.Usage.TotalTokens),
	}, nil
}
