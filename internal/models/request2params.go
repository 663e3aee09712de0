package models

import (
	"strings"

	"github.com/openai/openai-go/v3"

	"github.com/easeaico/companion-chat/internal/types"
)

// buildOpenAIParams converts a completion request to chat completion parameters.
func buildOpenAIParams(req CompletionRequest, opts Options) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:       opts.model(req),
		Messages:    convertTurnsToMessages(req.SystemPrompt, req.Turns),
		Temperature: openai.Float(req.Temperature),
	}
	if maxTokens := opts.maxTokens(req); maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(maxTokens))
	}
	return params
}

// convertTurnsToMessages puts the system prompt first, then the turns in order.
func convertTurnsToMessages(systemPrompt string, turns []types.Turn) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns)+1)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	for _, turn := range turns {
		switch turn.Role {
		case types.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(turn.Text))
		default:
			messages = append(messages, openai.UserMessage(turn.Text))
		}
	}
	return messages
}
