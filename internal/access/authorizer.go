// Package access loads records and verifies the caller owns them.
package access

import (
	"context"

	apperrors "github.com/easeaico/companion-chat/internal/errors"
	"github.com/easeaico/companion-chat/internal/types"
)

// CharacterLoader fetches characters by id.
type CharacterLoader interface {
	GetByID(ctx context.Context, id int64) (*types.Character, error)
}

// ConversationLoader fetches conversations by id.
type ConversationLoader interface {
	GetByID(ctx context.Context, id int64) (*types.Conversation, error)
}

// MessageLoader fetches messages by id.
type MessageLoader interface {
	GetByID(ctx context.Context, id int64) (*types.Message, error)
}

// Authorizer walks the ownership chain User -> Character|Conversation -> Message.
// Absent and soft-deleted records are NotFound; records of another user are Forbidden.
type Authorizer struct {
	characters    CharacterLoader
	conversations ConversationLoader
	messages      MessageLoader
}

// NewAuthorizer returns an Authorizer.
func NewAuthorizer(characters CharacterLoader, conversations ConversationLoader, messages MessageLoader) *Authorizer {
	return &Authorizer{
		characters:    characters,
		conversations: conversations,
		messages:      messages,
	}
}

// Character loads a character owned by userID.
func (a *Authorizer) Character(ctx context.Context, userID, characterID int64) (*types.Character, error) {
	character, err := a.characters.GetByID(ctx, characterID)
	if err != nil {
		return nil, err
	}
	if character == nil || character.IsDeleted() {
		return nil, apperrors.NewNotFoundError("角色不存在", nil)
	}
	if character.UserID != userID {
		return nil, apperrors.NewForbiddenError("无权访问该角色", nil)
	}
	return character, nil
}

// Conversation loads a conversation owned by userID.
func (a *Authorizer) Conversation(ctx context.Context, userID, conversationID int64) (*types.Conversation, error) {
	conversation, err := a.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conversation == nil || conversation.IsDeleted() {
		return nil, apperrors.NewNotFoundError("对话不存在", nil)
	}
	if conversation.UserID != userID {
		return nil, apperrors.NewForbiddenError("无权访问该对话", nil)
	}
	return conversation, nil
}

// Message loads a message whose conversation is owned by userID.
func (a *Authorizer) Message(ctx context.Context, userID, messageID int64) (*types.Message, *types.Conversation, error) {
	message, err := a.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, nil, err
	}
	if message == nil {
		return nil, nil, apperrors.NewNotFoundError("消息不存在", nil)
	}
	conversation, err := a.Conversation(ctx, userID, message.ConversationID)
	if err != nil {
		if apperrors.IsForbiddenError(err) {
			return nil, nil, apperrors.NewForbiddenError("无权访问该消息", err)
		}
		return nil, nil, err
	}
	return message, conversation, nil
}
