package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	apperrors "github.com/easeaico/companion-chat/internal/errors"
	"github.com/easeaico/companion-chat/internal/types"
)

// messageModel maps to the messages table. Rows are append-only.
type messageModel struct {
	ID               int64  `gorm:"primaryKey"`
	ConversationID   int64  `gorm:"not null;index:idx_messages_conversation_created"`
	Content          string `gorm:"type:text;not null"`
	SenderType       string `gorm:"size:10;not null"`
	MessageType      string `gorm:"size:10;not null"`
	EmotionScore     *float64
	TokenCount       *int
	ProcessingTimeMs *int64
	CreatedAt        time.Time `gorm:"index:idx_messages_conversation_created"`
}

func (messageModel) TableName() string {
	return "messages"
}

// MessageRepo accesses message data.
type MessageRepo struct {
	db *gorm.DB
}

// NewMessageRepo returns a MessageRepo.
func NewMessageRepo(db *gorm.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

func (r *MessageRepo) Create(ctx context.Context, message *types.Message) error {
	if message == nil {
		return fmt.Errorf("message cannot be nil")
	}
	record := messageModel{
		ConversationID:   message.ConversationID,
		Content:          message.Content,
		SenderType:       string(message.SenderType),
		MessageType:      string(message.MessageType),
		EmotionScore:     message.EmotionScore,
		TokenCount:       message.TokenCount,
		ProcessingTimeMs: message.ProcessingTimeMs,
		CreatedAt:        message.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	*message = messageFromModel(record)
	return nil
}

func (r *MessageRepo) GetByID(ctx context.Context, id int64) (*types.Message, error) {
	var record messageModel
	if err := r.db.WithContext(ctx).First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("消息不存在", err)
		}
		return nil, fmt.Errorf("failed to get message by id: %w", err)
	}
	result := messageFromModel(record)
	return &result, nil
}

// ListByConversation pages a conversation's messages, oldest first.
func (r *MessageRepo) ListByConversation(ctx context.Context, conversationID int64, page types.PageQuery) ([]types.Message, int64, error) {
	page = page.Normalize()
	query := r.db.WithContext(ctx).Model(&messageModel{}).
		Where("conversation_id = ?", conversationID).
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count messages: %w", err)
	}

	var records []messageModel
	if err := query.
		Order("created_at ASC, id ASC").
		Offset(page.Offset()).
		Limit(page.Size).
		Find(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list messages: %w", err)
	}
	return messagesFromModels(records), total, nil
}

// ListRecentTurns returns the last limit user/AI messages, oldest first.
// System messages never enter the window.
func (r *MessageRepo) ListRecentTurns(ctx context.Context, conversationID int64, limit int) ([]types.Message, error) {
	var records []messageModel
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND sender_type <> ?", conversationID, string(types.SenderSystem)).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query recent messages: %w", err)
	}

	results := messagesFromModels(records)
	// Oldest -> newest
	for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
		results[i], results[j] = results[j], results[i]
	}
	return results, nil
}

func (r *MessageRepo) CountByConversation(ctx context.Context, conversationID int64) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&messageModel{}).
		Where("conversation_id = ?", conversationID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

// SetEmotionScore writes the score once; an already scored message is left alone.
func (r *MessageRepo) SetEmotionScore(ctx context.Context, id int64, score float64) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&messageModel{}).
		Where("id = ? AND emotion_score IS NULL", id).
		UpdateColumn("emotion_score", score)
	if result.Error != nil {
		return false, fmt.Errorf("failed to set message emotion score: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func messageFromModel(model messageModel) types.Message {
	return types.Message{
		ID:               model.ID,
		ConversationID:   model.ConversationID,
		Content:          model.Content,
		SenderType:       types.SenderType(model.SenderType),
		MessageType:      types.MessageType(model.MessageType),
		EmotionScore:     model.EmotionScore,
		TokenCount:       model.TokenCount,
		ProcessingTimeMs: model.ProcessingTimeMs,
		CreatedAt:        model.CreatedAt,
	}
}

func messagesFromModels(records []messageModel) []types.Message {
	results := make([]types.Message, 0, len(records))
	for _, record := range records {
		results = append(results, messageFromModel(record))
	}
	return results
}
