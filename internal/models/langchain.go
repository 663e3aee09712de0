package models

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	langopenai "github.com/tmc/langchaingo/llms/openai"

	"github.com/easeaico/companion-chat/internal/types"
)

// LangChainProvider routes completions through langchaingo's OpenAI client,
// which works against any compatible base URL.
type LangChainProvider struct {
	llm  llms.Model
	opts Options
}

func NewLangChainProvider(opts Options) (*LangChainProvider, error) {
	if err := validateOptions(opts); err != nil {
		return nil, err
	}

	clientOpts := []langopenai.Option{
		langopenai.WithToken(opts.APIKey),
		langopenai.WithModel(opts.Model),
	}
	if baseURL := strings.TrimSpace(opts.BaseURL); baseURL != "" {
		clientOpts = append(clientOpts, langopenai.WithBaseURL(baseURL))
	}
	llm, err := langopenai.New(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create langchain client: %w", err)
	}
	return &LangChainProvider{llm: llm, opts: opts}, nil
}

func (p *LangChainProvider) Name() string {
	return "langchain"
}

func (p *LangChainProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	callOpts := []llms.CallOption{
		llms.WithModel(p.opts.model(req)),
		llms.WithTemperature(req.Temperature),
	}
	if maxTokens := p.opts.maxTokens(req); maxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(maxTokens))
	}

	resp, err := p.llm.GenerateContent(ctx, convertTurnsToMessageContent(req.SystemPrompt, req.Turns), callOpts...)
	if err != nil {
		return nil, fmt.Errorf("langchain generate content: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, fmt.Errorf("langchain returned no choices")
	}

	choice := resp.Choices[0]
	text := strings.TrimSpace(choice.Content)
	if text == "" {
		return nil, fmt.Errorf("langchain returned an empty reply")
	}
	result := &CompletionResponse{Text: text, Model: p.opts.model(req)}
	if total, ok := choice.GenerationInfo["TotalTokens"].(int); ok {
		result.TokensUsed = total
	}
	return result, nil
}

func convertTurnsToMessageContent(systemPrompt string, turns []types.Turn) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, len(turns)+1)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt))
	}
	for _, turn := range turns {
		role := llms.ChatMessageTypeHuman
		if turn.Role == types.RoleAssistant {
			role = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, turn.Text))
	}
	return messages
}
