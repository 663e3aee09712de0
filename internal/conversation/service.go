// Package conversation manages conversation lifecycles, settings and history.
package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	apperrors "github.com/easeaico/companion-chat/internal/errors"
	"github.com/easeaico/companion-chat/internal/types"
	"github.com/easeaico/companion-chat/internal/utils"
)

const (
	maxTitleLength         = 100
	maxDescriptionLength   = 500
	maxModelLength         = 50
	maxResponseStyleLength = 50
	maxLanguageLength      = 10
	maxContextLength       = 50
	maxSettingsTokens      = 8192
	maxBatchSize           = 100
)

type Repo interface {
	Create(ctx context.Context, conversation *types.Conversation) error
	Update(ctx context.Context, conversation *types.Conversation) error
	ListByOwner(ctx context.Context, userID int64, status *types.ConversationStatus, page types.PageQuery) ([]types.Conversation, int64, error)
	SearchByTitle(ctx context.Context, userID int64, keyword string) ([]types.Conversation, error)
	ListRecent(ctx context.Context, userID int64, limit int) ([]types.Conversation, error)
	CountByStatus(ctx context.Context, userID int64) (map[types.ConversationStatus]int64, error)
	SumMessages(ctx context.Context, userID int64) (int64, error)
	UpdateStatus(ctx context.Context, ids []int64, status types.ConversationStatus) error
}

type MessageRepo interface {
	ListByConversation(ctx context.Context, conversationID int64, page types.PageQuery) ([]types.Message, int64, error)
}

// Authorizer resolves records the caller owns.
type Authorizer interface {
	Character(ctx context.Context, userID, characterID int64) (*types.Character, error)
	Conversation(ctx context.Context, userID, conversationID int64) (*types.Conversation, error)
}

// CreateRequest starts a conversation with a character.
type CreateRequest struct {
	CharacterID int64                       `json:"character_id"`
	Title       string                      `json:"title"`
	Description string                      `json:"description"`
	Settings    *types.ConversationSettings `json:"settings,omitempty"`
}

// UpdateRequest changes title and description; nil fields stay.
type UpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// SettingsUpdate changes the non-nil settings.
type SettingsUpdate struct {
	Temperature         *float64 `json:"temperature"`
	MaxTokens           *int     `json:"max_tokens"`
	Model               *string  `json:"model"`
	ContextLength       *int     `json:"context_length"`
	AutoSaveEnabled     *bool    `json:"auto_save_enabled"`
	NotificationEnabled *bool    `json:"notification_enabled"`
	ResponseStyle       *string  `json:"response_style"`
	LanguagePreference  *string  `json:"language_preference"`
}

type Service struct {
	repo     Repo
	messages MessageRepo
	authz    Authorizer
}

func NewService(repo Repo, messages MessageRepo, authz Authorizer) *Service {
	return &Service{repo: repo, messages: messages, authz: authz}
}

// Create opens a conversation with an active character the caller owns.
func (s *Service) Create(ctx context.Context, userID int64, req CreateRequest) (*types.Conversation, error) {
	character, err := s.authz.Character(ctx, userID, req.CharacterID)
	if err != nil {
		return nil, err
	}
	if character.Status != types.CharacterActive {
		return nil, apperrors.NewInvalidStateError("角色未启用，无法开始对话", nil)
	}

	conversation := &types.Conversation{
		UserID:      userID,
		CharacterID: character.ID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Status:      types.ConversationActive,
		Settings:    types.DefaultConversationSettings(),
	}
	if conversation.Title == "" {
		conversation.Title = fmt.Sprintf("与%s的对话", character.Name)
	}
	if req.Settings != nil {
		conversation.Settings = *req.Settings
		fillSettingDefaults(&conversation.Settings)
	}
	if err := validateConversation(conversation); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, conversation); err != nil {
		return nil, apperrors.NewInternalError("创建对话失败", err)
	}
	slog.Info("conversation created", "user_id", userID, "conversation_id", conversation.ID, "character_id", character.ID)
	return conversation, nil
}

func (s *Service) Get(ctx context.Context, userID, conversationID int64) (*types.Conversation, error) {
	return s.authz.Conversation(ctx, userID, conversationID)
}

// List pages the caller's conversations, optionally filtered by status.
// Deleted conversations are never listed.
func (s *Service) List(ctx context.Context, userID int64, status *types.ConversationStatus, page types.PageQuery) (*types.Page[types.Conversation], error) {
	if status != nil {
		if !status.Valid() {
			return nil, apperrors.NewFieldError("status", "无效的对话状态")
		}
		if *status == types.ConversationDeleted {
			return nil, apperrors.NewFieldError("status", "不能查询已删除的对话")
		}
	}
	page = page.Normalize()
	items, total, err := s.repo.ListByOwner(ctx, userID, status, page)
	if err != nil {
		return nil, apperrors.NewInternalError("查询对话列表失败", err)
	}
	return &types.Page[types.Conversation]{Items: items, Total: total, Page: page.Page, Size: page.Size}, nil
}

func (s *Service) Search(ctx context.Context, userID int64, keyword string) ([]types.Conversation, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, apperrors.NewFieldError("title", "搜索关键词不能为空")
	}
	items, err := s.repo.SearchByTitle(ctx, userID, keyword)
	if err != nil {
		return nil, apperrors.NewInternalError("搜索对话失败", err)
	}
	return items, nil
}

// Recent returns the most recently active conversations (default 10, max 50).
func (s *Service) Recent(ctx context.Context, userID int64, limit int) ([]types.Conversation, error) {
	switch {
	case limit <= 0:
		limit = 10
	case limit > 50:
		limit = 50
	}
	items, err := s.repo.ListRecent(ctx, userID, limit)
	if err != nil {
		return nil, apperrors.NewInternalError("查询最近对话失败", err)
	}
	return items, nil
}

func (s *Service) Update(ctx context.Context, userID, conversationID int64, req UpdateRequest) (*types.Conversation, error) {
	conversation, err := s.authz.Conversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		conversation.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		conversation.Description = *req.Description
	}
	if err := validateConversation(conversation); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, conversation); err != nil {
		return nil, apperrors.NewInternalError("更新对话失败", err)
	}
	return conversation, nil
}

func (s *Service) Pause(ctx context.Context, userID, conversationID int64) (*types.Conversation, error) {
	return s.transition(ctx, userID, conversationID, types.ConversationPaused)
}

// Resume reactivates a paused conversation.
func (s *Service) Resume(ctx context.Context, userID, conversationID int64) (*types.Conversation, error) {
	conversation, err := s.authz.Conversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	if conversation.Status != types.ConversationPaused {
		return nil, apperrors.NewInvalidStateError("只能继续已暂停的对话", nil)
	}
	return s.apply(ctx, conversation, types.ConversationActive)
}

func (s *Service) Archive(ctx context.Context, userID, conversationID int64) (*types.Conversation, error) {
	return s.transition(ctx, userID, conversationID, types.ConversationArchived)
}

// Restore reactivates an archived conversation.
func (s *Service) Restore(ctx context.Context, userID, conversationID int64) (*types.Conversation, error) {
	conversation, err := s.authz.Conversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	if conversation.Status != types.ConversationArchived {
		return nil, apperrors.NewInvalidStateError("只能恢复已归档的对话", nil)
	}
	return s.apply(ctx, conversation, types.ConversationActive)
}

// Delete soft-deletes a conversation; it can not be restored.
func (s *Service) Delete(ctx context.Context, userID, conversationID int64) error {
	_, err := s.transition(ctx, userID, conversationID, types.ConversationDeleted)
	return err
}

// BatchDelete deletes every listed conversation or none: all must belong to
// the caller before any is touched.
func (s *Service) BatchDelete(ctx context.Context, userID int64, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, apperrors.NewFieldError("conversation_ids", "对话ID列表不能为空")
	}
	if len(ids) > maxBatchSize {
		return 0, apperrors.NewFieldError("conversation_ids", fmt.Sprintf("一次最多删除%d个对话", maxBatchSize))
	}
	seen := make(map[int64]struct{}, len(ids))
	unique := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if _, err := s.authz.Conversation(ctx, userID, id); err != nil {
			return 0, err
		}
		unique = append(unique, id)
	}
	if err := s.repo.UpdateStatus(ctx, unique, types.ConversationDeleted); err != nil {
		return 0, apperrors.NewInternalError("批量删除对话失败", err)
	}
	slog.Info("conversations deleted", "user_id", userID, "count", len(unique))
	return len(unique), nil
}

// Stats counts the caller's non-deleted conversations and their messages.
func (s *Service) Stats(ctx context.Context, userID int64) (*types.ConversationStats, error) {
	counts, err := s.repo.CountByStatus(ctx, userID)
	if err != nil {
		return nil, apperrors.NewInternalError("查询对话统计失败", err)
	}
	messages, err := s.repo.SumMessages(ctx, userID)
	if err != nil {
		return nil, apperrors.NewInternalError("查询对话统计失败", err)
	}

	stats := &types.ConversationStats{
		ByStatus:      make(map[types.ConversationStatus]int64),
		TotalMessages: messages,
	}
	for _, status := range types.AllConversationStatuses {
		if status == types.ConversationDeleted {
			continue
		}
		stats.ByStatus[status] = counts[status]
		stats.Total += counts[status]
	}
	return stats, nil
}

func (s *Service) GetSettings(ctx context.Context, userID, conversationID int64) (*types.ConversationSettings, error) {
	conversation, err := s.authz.Conversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	return &conversation.Settings, nil
}

// UpdateSettings applies a partial settings change.
func (s *Service) UpdateSettings(ctx context.Context, userID, conversationID int64, update SettingsUpdate) (*types.ConversationSettings, error) {
	conversation, err := s.authz.Conversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	settings := &conversation.Settings
	if update.Temperature != nil {
		settings.Temperature = update.Temperature
	}
	if update.MaxTokens != nil {
		settings.MaxTokens = update.MaxTokens
	}
	if update.Model != nil {
		settings.Model = strings.TrimSpace(*update.Model)
	}
	if update.ContextLength != nil {
		settings.ContextLength = *update.ContextLength
	}
	if update.AutoSaveEnabled != nil {
		settings.AutoSaveEnabled = *update.AutoSaveEnabled
	}
	if update.NotificationEnabled != nil {
		settings.NotificationEnabled = *update.NotificationEnabled
	}
	if update.ResponseStyle != nil {
		settings.ResponseStyle = strings.TrimSpace(*update.ResponseStyle)
	}
	if update.LanguagePreference != nil {
		settings.LanguagePreference = strings.TrimSpace(*update.LanguagePreference)
	}
	fillSettingDefaults(settings)
	if err := validateConversation(conversation); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, conversation); err != nil {
		return nil, apperrors.NewInternalError("更新对话设置失败", err)
	}
	return settings, nil
}

// Messages pages a conversation's history, oldest first.
func (s *Service) Messages(ctx context.Context, userID, conversationID int64, page types.PageQuery) (*types.Page[types.Message], error) {
	if _, err := s.authz.Conversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	page = page.Normalize()
	items, total, err := s.messages.ListByConversation(ctx, conversationID, page)
	if err != nil {
		return nil, apperrors.NewInternalError("查询消息失败", err)
	}
	return &types.Page[types.Message]{Items: items, Total: total, Page: page.Page, Size: page.Size}, nil
}

func (s *Service) transition(ctx context.Context, userID, conversationID int64, next types.ConversationStatus) (*types.Conversation, error) {
	conversation, err := s.authz.Conversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, conversation, next)
}

func (s *Service) apply(ctx context.Context, conversation *types.Conversation, next types.ConversationStatus) (*types.Conversation, error) {
	if !conversation.Status.CanTransition(next) {
		return nil, apperrors.NewInvalidStateError(fmt.Sprintf("对话状态不能从%s变更为%s", conversation.Status, next), nil)
	}
	if err := s.repo.UpdateStatus(ctx, []int64{conversation.ID}, next); err != nil {
		return nil, apperrors.NewInternalError("更新对话状态失败", err)
	}
	slog.Info("conversation status changed", "conversation_id", conversation.ID, "from", conversation.Status, "to", next)
	conversation.Status = next
	return conversation, nil
}

func fillSettingDefaults(settings *types.ConversationSettings) {
	if settings.ContextLength == 0 {
		settings.ContextLength = types.DefaultContextLength
	}
	if settings.LanguagePreference == "" {
		settings.LanguagePreference = types.DefaultLanguage
	}
}

func validateConversation(c *types.Conversation) error {
	var v apperrors.Collector
	v.Check(utils.RuneLen(c.Title) <= maxTitleLength, "title", fmt.Sprintf("对话标题不能超过%d个字符", maxTitleLength))
	v.Check(utils.RuneLen(c.Description) <= maxDescriptionLength, "description", fmt.Sprintf("对话描述不能超过%d个字符", maxDescriptionLength))

	settings := c.Settings
	if settings.Temperature != nil {
		v.Check(*settings.Temperature >= 0 && *settings.Temperature <= 1, "temperature", "温度参数必须在0.0到1.0之间")
	}
	if settings.MaxTokens != nil {
		v.Check(*settings.MaxTokens >= 1 && *settings.MaxTokens <= maxSettingsTokens, "max_tokens", fmt.Sprintf("最大令牌数必须在1到%d之间", maxSettingsTokens))
	}
	v.Check(utils.RuneLen(settings.Model) <= maxModelLength, "model", fmt.Sprintf("模型名称不能超过%d个字符", maxModelLength))
	v.Check(settings.ContextLength >= 1 && settings.ContextLength <= maxContextLength, "context_length", fmt.Sprintf("上下文长度必须在1到%d之间", maxContextLength))
	v.Check(utils.RuneLen(settings.ResponseStyle) <= maxResponseStyleLength, "response_style", fmt.Sprintf("回复风格不能超过%d个字符", maxResponseStyleLength))
	v.Check(utils.RuneLen(settings.LanguagePreference) <= maxLanguageLength, "language_preference", fmt.Sprintf("语言偏好不能超过%d个字符", maxLanguageLength))
	return v.Err()
}
