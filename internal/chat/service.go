// Package chat runs one conversation turn: persist, build context, complete, account.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	apperrors "github.com/easeaico/companion-chat/internal/errors"
	"github.com/easeaico/companion-chat/internal/models"
	"github.com/easeaico/companion-chat/internal/prompt"
	"github.com/easeaico/companion-chat/internal/types"
	"github.com/easeaico/companion-chat/internal/utils"
)

// MaxMessageLength bounds inbound message text, in characters.
const MaxMessageLength = 2000

// ConversationAuthorizer resolves a conversation the caller owns.
type ConversationAuthorizer interface {
	Conversation(ctx context.Context, userID, conversationID int64) (*types.Conversation, error)
}

type CharacterRepo interface {
	GetByID(ctx context.Context, id int64) (*types.Character, error)
	IncrementUsage(ctx context.Context, id int64, n int64) error
}

type MessageRepo interface {
	RecentMessageLister
	Create(ctx context.Context, message *types.Message) error
}

type ConversationRepo interface {
	ApplyMessageDelta(ctx context.Context, id int64, delta types.MessageDelta) error
}

// Completer generates a reply for a prepared request.
type Completer interface {
	Complete(ctx context.Context, req models.CompletionRequest) (*models.CompletionResponse, error)
}

// Options tunes the orchestrator.
type Options struct {
	// ContextLimit is the window size for conversations without a context length.
	ContextLimit      int
	CompletionTimeout time.Duration
}

// Service orchestrates conversation turns.
type Service struct {
	authz         ConversationAuthorizer
	characters    CharacterRepo
	messages      MessageRepo
	conversations ConversationRepo
	completer     Completer
	window        *ContextBuilder
	timeout       time.Duration
	turns         *keyedMutex
}

func NewService(authz ConversationAuthorizer, characters CharacterRepo, messages MessageRepo, conversations ConversationRepo, completer Completer, opts Options) *Service {
	return &Service{
		authz:         authz,
		characters:    characters,
		messages:      messages,
		conversations: conversations,
		completer:     completer,
		window:        NewContextBuilder(messages, opts.ContextLimit),
		timeout:       opts.CompletionTimeout,
		turns:         newKeyedMutex(),
	}
}

// SendMessage persists the user's text, asks the provider for a reply and
// returns the persisted pair in creation order. A failed completion keeps the
// user message and leaves all counters untouched.
func (s *Service) SendMessage(ctx context.Context, userID, conversationID int64, text string) ([]types.Message, error) {
	if err := ValidateMessageText(text, MaxMessageLength); err != nil {
		return nil, err
	}

	unlock := s.turns.Lock(conversationID)
	defer unlock()

	conversation, err := s.authz.Conversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.Status.AcceptsMessages() {
		return nil, apperrors.NewInvalidStateError("对话已暂停或归档，无法发送消息", nil)
	}
	character, err := s.loadCharacter(ctx, conversation)
	if err != nil {
		return nil, err
	}

	userMessage := &types.Message{
		ConversationID: conversation.ID,
		Content:        text,
		SenderType:     types.SenderUser,
		MessageType:    types.MessageText,
		CreatedAt:      time.Now(),
	}
	if err := s.messages.Create(ctx, userMessage); err != nil {
		return nil, apperrors.NewInternalError("保存用户消息失败", err)
	}

	req, err := s.buildRequest(ctx, conversation, character)
	if err != nil {
		return nil, apperrors.NewInternalError("构建对话上下文失败", err)
	}

	reply, elapsed, err := s.complete(ctx, req)
	if err != nil {
		slog.Error("completion failed",
			"conversation_id", conversation.ID,
			"character_id", character.ID,
			"elapsed_ms", elapsed.Milliseconds(),
			"error", err.Error())
		return nil, apperrors.NewCompletionError("AI服务暂时不可用，请稍后重试", err)
	}

	processingMs := elapsed.Milliseconds()
	tokens := reply.TokensUsed
	aiMessage := &types.Message{
		ConversationID:   conversation.ID,
		Content:          reply.Text,
		SenderType:       types.SenderAI,
		MessageType:      types.MessageText,
		TokenCount:       &tokens,
		ProcessingTimeMs: &processingMs,
		CreatedAt:        time.Now(),
	}
	if err := s.messages.Create(ctx, aiMessage); err != nil {
		// The user message is already stored; account for it alone.
		s.applyDelta(ctx, conversation.ID, types.MessageDelta{Messages: 1, LastMessageAt: userMessage.CreatedAt})
		return nil, apperrors.NewInternalError("保存AI回复失败", err)
	}

	s.applyDelta(ctx, conversation.ID, types.MessageDelta{
		Messages:       2,
		LastMessageAt:  aiMessage.CreatedAt,
		Tokens:         int64(tokens),
		ResponseTimeMs: &processingMs,
	})
	if err := s.characters.IncrementUsage(ctx, character.ID, 1); err != nil {
		slog.Warn("failed to increment character usage", "character_id", character.ID, "error", err.Error())
	}

	slog.Info("conversation turn completed",
		"conversation_id", conversation.ID,
		"user_message_id", userMessage.ID,
		"ai_message_id", aiMessage.ID,
		"tokens", tokens,
		"elapsed_ms", processingMs)
	return []types.Message{*userMessage, *aiMessage}, nil
}

// ValidateMessageText rejects blank text and text longer than limit characters.
func ValidateMessageText(text string, limit int) error {
	if utils.IsBlank(text) {
		return apperrors.NewFieldError("content", "消息内容不能为空")
	}
	if utils.RuneLen(text) > limit {
		return apperrors.NewFieldError("content", fmt.Sprintf("消息内容不能超过%d个字符", limit))
	}
	return nil
}

func (s *Service) loadCharacter(ctx context.Context, conversation *types.Conversation) (*types.Character, error) {
	character, err := s.characters.GetByID(ctx, conversation.CharacterID)
	if err != nil {
		if apperrors.IsNotFoundError(err) {
			return nil, apperrors.NewInvalidStateError("对话关联的角色不可用", err)
		}
		return nil, err
	}
	if character.Status != types.CharacterActive {
		return nil, apperrors.NewInvalidStateError("对话关联的角色不可用", nil)
	}
	return character, nil
}

func (s *Service) buildRequest(ctx context.Context, conversation *types.Conversation, character *types.Character) (models.CompletionRequest, error) {
	systemPrompt, err := prompt.SystemPrompt(character)
	if err != nil {
		return models.CompletionRequest{}, err
	}
	style, err := prompt.StyleInstruction(conversation.Settings)
	if err != nil {
		return models.CompletionRequest{}, err
	}
	turns, err := s.window.Build(ctx, conversation)
	if err != nil {
		return models.CompletionRequest{}, err
	}
	return models.CompletionRequest{
		SystemPrompt: systemPrompt + style,
		Turns:        turns,
		Model:        strings.TrimSpace(conversation.Settings.Model),
		Temperature:  conversation.EffectiveTemperature(character),
		MaxTokens:    conversation.EffectiveMaxTokens(character),
	}, nil
}

func (s *Service) complete(ctx context.Context, req models.CompletionRequest) (*models.CompletionResponse, time.Duration, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	started := time.Now()
	resp, err := s.completer.Complete(ctx, req)
	elapsed := time.Since(started)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, elapsed, fmt.Errorf("completion timed out after %s: %w", elapsed.Round(time.Millisecond), err)
		}
		return nil, elapsed, err
	}
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		return nil, elapsed, fmt.Errorf("empty completion")
	}
	return resp, elapsed, nil
}

func (s *Service) applyDelta(ctx context.Context, conversationID int64, delta types.MessageDelta) {
	if err := s.conversations.ApplyMessageDelta(ctx, conversationID, delta); err != nil {
		slog.Error("failed to update conversation counters", "conversation_id", conversationID, "error", err.Error())
	}
}
