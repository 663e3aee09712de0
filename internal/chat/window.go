package chat

import (
	"context"
	"fmt"

	"github.com/easeaico/companion-chat/internal/types"
)

// RecentMessageLister returns the newest non-system messages of a conversation
// in ascending creation order.
type RecentMessageLister interface {
	ListRecentTurns(ctx context.Context, conversationID int64, limit int) ([]types.Message, error)
}

// ContextBuilder turns persisted history into the turns of a completion call.
type ContextBuilder struct {
	messages     RecentMessageLister
	defaultLimit int
}

// NewContextBuilder returns a builder; defaultLimit applies when a
// conversation has no context length of its own.
func NewContextBuilder(messages RecentMessageLister, defaultLimit int) *ContextBuilder {
	if defaultLimit <= 0 {
		defaultLimit = 20
	}
	return &ContextBuilder{messages: messages, defaultLimit: defaultLimit}
}

// WindowSize is the number of turns sent for the conversation.
func (b *ContextBuilder) WindowSize(conversation *types.Conversation) int {
	if conversation != nil && conversation.Settings.ContextLength > 0 {
		return conversation.Settings.ContextLength
	}
	return b.defaultLimit
}

// Build reads the conversation's last turns. It has no side effects.
func (b *ContextBuilder) Build(ctx context.Context, conversation *types.Conversation) ([]types.Turn, error) {
	limit := b.WindowSize(conversation)
	messages, err := b.messages.ListRecentTurns(ctx, conversation.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load context window: %w", err)
	}
	return Window(messages, limit), nil
}

// Window keeps the last limit non-system messages of an ascending history.
func Window(history []types.Message, limit int) []types.Turn {
	turns := make([]types.Turn, 0, len(history))
	for _, message := range history {
		if message.SenderType == types.SenderSystem || message.MessageType == types.MessageSystem {
			continue
		}
		turns = append(turns, types.Turn{Role: message.Role(), Text: message.Content})
	}
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return turns
}
