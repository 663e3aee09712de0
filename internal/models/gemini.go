package models

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/easeaico/companion-chat/internal/types"
)

// GeminiProvider generates replies with the Gemini API.
type GeminiProvider struct {
	client *genai.Client
	opts   Options
}

func NewGeminiProvider(ctx context.Context, opts Options) (*GeminiProvider, error) {
	if err := validateOptions(opts); err != nil {
		return nil, err
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL := strings.TrimSpace(opts.BaseURL); baseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiProvider{client: client, opts: opts}, nil
}

func (p *GeminiProvider) Name() string {
	return "gemini"
}

func (p *GeminiProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if maxTokens := p.opts.maxTokens(req); maxTokens > 0 {
		config.MaxOutputTokens = int32(maxTokens)
	}
	if strings.TrimSpace(req.SystemPrompt) != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}

	model := p.opts.model(req)
	resp, err := p.client.Models.GenerateContent(ctx, model, convertTurnsToContents(req.Turns), config)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("gemini returned no candidates")
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, fmt.Errorf("gemini returned an empty reply")
	}
	result := &CompletionResponse{Text: text, Model: model}
	if resp.UsageMetadata != nil {
		result.TokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}
	return result, nil
}

func convertTurnsToContents(turns []types.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, turn := range turns {
		role := genai.Role(genai.RoleUser)
		if turn.Role == types.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Text, role))
	}
	return contents
}
