package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "github.com/easeaico/companion-chat/internal/errors"
	"github.com/easeaico/companion-chat/internal/types"
)

// conversationModel maps to the conversations table.
type conversationModel struct {
	ID                  int64      `gorm:"primaryKey"`
	UserID              int64      `gorm:"not null;index:idx_conversations_user_status"`
	CharacterID         int64      `gorm:"not null;index"`
	Title               string     `gorm:"size:100;not null"`
	Description         string     `gorm:"size:500"`
	Status              string     `gorm:"size:20;not null;index:idx_conversations_user_status"`
	MessageCount        int64      `gorm:"not null"`
	LastMessageAt       *time.Time `gorm:"index"`
	TotalTokens         int64      `gorm:"not null"`
	TotalResponseTimeMs int64      `gorm:"not null"`
	AIReplyCount        int64      `gorm:"column:ai_reply_count;not null"`
	AITemperature       *float64   `gorm:"column:ai_temperature"`
	AIMaxTokens         *int       `gorm:"column:ai_max_tokens"`
	AIModel             string     `gorm:"column:ai_model;size:50"`
	ContextLength       int
	AutoSaveEnabled     bool
	NotificationEnabled bool
	ResponseStyle       string `gorm:"size:50"`
	LanguagePreference  string `gorm:"size:10"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (conversationModel) TableName() string {
	return "conversations"
}

var conversationUpdateColumns = []string{
	"title", "description",
	"ai_temperature", "ai_max_tokens", "ai_model", "context_length", "auto_save_enabled",
	"notification_enabled", "response_style", "language_preference", "updated_at",
}

// ConversationRepo accesses conversation data.
type ConversationRepo struct {
	db *gorm.DB
}

// NewConversationRepo returns a ConversationRepo.
func NewConversationRepo(db *gorm.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

func (r *ConversationRepo) Create(ctx context.Context, conversation *types.Conversation) error {
	if conversation == nil {
		return fmt.Errorf("conversation cannot be nil")
	}
	model := conversationToModel(conversation)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("failed to insert conversation: %w", err)
	}
	*conversation = *conversationFromModel(model)
	return nil
}

// Update writes title, description and settings of a non-deleted
// conversation. Status and counters are untouched; see UpdateStatus.
func (r *ConversationRepo) Update(ctx context.Context, conversation *types.Conversation) error {
	model := conversationToModel(conversation)
	model.UpdatedAt = time.Now()
	if err := r.db.WithContext(ctx).
		Model(&conversationModel{ID: conversation.ID}).
		Where("status <> ?", string(types.ConversationDeleted)).
		Select(conversationUpdateColumns).
		Updates(&model).Error; err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}
	conversation.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *ConversationRepo) GetByID(ctx context.Context, id int64) (*types.Conversation, error) {
	var model conversationModel
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("对话不存在", err)
		}
		return nil, fmt.Errorf("failed to get conversation by id: %w", err)
	}
	return conversationFromModel(model), nil
}

// ListByOwner pages the owner's non-deleted conversations, most recently active first.
func (r *ConversationRepo) ListByOwner(ctx context.Context, userID int64, status *types.ConversationStatus, page types.PageQuery) ([]types.Conversation, int64, error) {
	page = page.Normalize()
	query := r.db.WithContext(ctx).Model(&conversationModel{}).Where("user_id = ?", userID)
	if status != nil {
		query = query.Where("status = ?", string(*status))
	} else {
		query = query.Where("status <> ?", string(types.ConversationDeleted))
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count conversations: %w", err)
	}

	var records []conversationModel
	if err := query.
		Order(lastActivityOrder).
		Offset(page.Offset()).
		Limit(page.Size).
		Find(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list conversations: %w", err)
	}
	return conversationsFromModels(records), total, nil
}

// lastActivityOrder sorts by last message (never-messaged last), then creation.
const lastActivityOrder = "CASE WHEN last_message_at IS NULL THEN 1 ELSE 0 END, last_message_at DESC, created_at DESC, id DESC"

// SearchByTitle matches the keyword anywhere in the title, case-insensitively.
func (r *ConversationRepo) SearchByTitle(ctx context.Context, userID int64, keyword string) ([]types.Conversation, error) {
	pattern := "%" + strings.ToLower(keyword) + "%"
	var records []conversationModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND status <> ?", userID, string(types.ConversationDeleted)).
		Where("LOWER(title) LIKE ?", pattern).
		Order(lastActivityOrder).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to search conversations: %w", err)
	}
	return conversationsFromModels(records), nil
}

// ListRecent returns the most recently active non-deleted conversations.
func (r *ConversationRepo) ListRecent(ctx context.Context, userID int64, limit int) ([]types.Conversation, error) {
	var records []conversationModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND status <> ?", userID, string(types.ConversationDeleted)).
		Order(lastActivityOrder).
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list recent conversations: %w", err)
	}
	return conversationsFromModels(records), nil
}

// CountByStatus counts the owner's conversations per status, deleted included.
func (r *ConversationRepo) CountByStatus(ctx context.Context, userID int64) (map[types.ConversationStatus]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&conversationModel{}).
		Select("status, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count conversations by status: %w", err)
	}
	counts := make(map[types.ConversationStatus]int64, len(rows))
	for _, row := range rows {
		counts[types.ConversationStatus(row.Status)] = row.Count
	}
	return counts, nil
}

// SumMessages totals message_count over the owner's non-deleted conversations.
func (r *ConversationRepo) SumMessages(ctx context.Context, userID int64) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&conversationModel{}).
		Select("COALESCE(SUM(message_count), 0)").
		Where("user_id = ? AND status <> ?", userID, string(types.ConversationDeleted)).
		Scan(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to sum conversation messages: %w", err)
	}
	return total, nil
}

// UpdateStatus sets status on every listed conversation.
func (r *ConversationRepo) UpdateStatus(ctx context.Context, ids []int64, status types.ConversationStatus) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).
		Model(&conversationModel{}).
		Where("id IN ?", ids).
		Updates(map[string]any{"status": string(status), "updated_at": time.Now()}).Error; err != nil {
		return fmt.Errorf("failed to update conversation status: %w", err)
	}
	return nil
}

// ApplyMessageDelta atomically advances counters for messages already persisted.
// last_message_at only moves forward.
func (r *ConversationRepo) ApplyMessageDelta(ctx context.Context, id int64, delta types.MessageDelta) error {
	updates := map[string]any{
		"message_count": gorm.Expr("message_count + ?", delta.Messages),
		"total_tokens":  gorm.Expr("total_tokens + ?", delta.Tokens),
		"last_message_at": gorm.Expr(
			"CASE WHEN last_message_at IS NULL OR last_message_at < ? THEN ? ELSE last_message_at END",
			delta.LastMessageAt, delta.LastMessageAt),
		"updated_at": time.Now(),
	}
	if delta.ResponseTimeMs != nil {
		updates["total_response_time_ms"] = gorm.Expr("total_response_time_ms + ?", *delta.ResponseTimeMs)
		updates["ai_reply_count"] = gorm.Expr("ai_reply_count + ?", 1)
	}
	if err := r.db.WithContext(ctx).
		Model(&conversationModel{}).
		Where("id = ?", id).
		UpdateColumns(updates).Error; err != nil {
		return fmt.Errorf("failed to update conversation counters: %w", err)
	}
	return nil
}

func conversationToModel(c *types.Conversation) conversationModel {
	return conversationModel{
		ID:                  c.ID,
		UserID:              c.UserID,
		CharacterID:         c.CharacterID,
		Title:               c.Title,
		Description:         c.Description,
		Status:              string(c.Status),
		MessageCount:        c.MessageCount,
		LastMessageAt:       c.LastMessageAt,
		TotalTokens:         c.TotalTokens,
		AITemperature:       c.Settings.Temperature,
		AIMaxTokens:         c.Settings.MaxTokens,
		AIModel:             c.Settings.Model,
		ContextLength:       c.Settings.ContextLength,
		AutoSaveEnabled:     c.Settings.AutoSaveEnabled,
		NotificationEnabled: c.Settings.NotificationEnabled,
		ResponseStyle:       c.Settings.ResponseStyle,
		LanguagePreference:  c.Settings.LanguagePreference,
		CreatedAt:           c.CreatedAt,
		UpdatedAt:           c.UpdatedAt,
	}
}

func conversationFromModel(model conversationModel) *types.Conversation {
	var avg float64
	if model.AIReplyCount > 0 {
		avg = float64(model.TotalResponseTimeMs) / float64(model.AIReplyCount)
	}
	return &types.Conversation{
		ID:                model.ID,
		UserID:            model.UserID,
		CharacterID:       model.CharacterID,
		Title:             model.Title,
		Description:       model.Description,
		Status:            types.ConversationStatus(model.Status),
		MessageCount:      model.MessageCount,
		LastMessageAt:     model.LastMessageAt,
		TotalTokens:       model.TotalTokens,
		AvgResponseTimeMs: avg,
		Settings: types.ConversationSettings{
			Temperature:         model.AITemperature,
			MaxTokens:           model.AIMaxTokens,
			Model:               model.AIModel,
			ContextLength:       model.ContextLength,
			AutoSaveEnabled:     model.AutoSaveEnabled,
			NotificationEnabled: model.NotificationEnabled,
			ResponseStyle:       model.ResponseStyle,
			LanguagePreference:  model.LanguagePreference,
		},
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func conversationsFromModels(records []conversationModel) []types.Conversation {
	results := make([]types.Conversation, 0, len(records))
	for _, record := range records {
		results = append(results, *conversationFromModel(record))
	}
	return results
}
