package storage

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/easeaico/companion-chat/internal/types"
)

// emotionAnalysisModel maps to the emotion_analyses table.
// message_id is unique: at most one analysis per message.
type emotionAnalysisModel struct {
	ID             int64   `gorm:"primaryKey"`
	MessageID      int64   `gorm:"not null;uniqueIndex"`
	ConversationID int64   `gorm:"not null;index"`
	EmotionType    string  `gorm:"size:20;not null"`
	Confidence     float64 `gorm:"not null"`
	Intensity      *float64
	Valence        *float64
	Arousal        *float64
	Keywords       string    `gorm:"size:500"`
	CreatedAt      time.Time `gorm:"index"`
}

func (emotionAnalysisModel) TableName() string {
	return "emotion_analyses"
}

// EmotionRepo accesses emotion analyses.
type EmotionRepo struct {
	db *gorm.DB
}

// NewEmotionRepo returns an EmotionRepo.
func NewEmotionRepo(db *gorm.DB) *EmotionRepo {
	return &EmotionRepo{db: db}
}

// GetByMessageID returns the analysis of a message, or nil when there is none.
func (r *EmotionRepo) GetByMessageID(ctx context.Context, messageID int64) (*types.EmotionAnalysis, error) {
	var record emotionAnalysisModel
	if err := r.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Limit(1).
		Find(&record).Error; err != nil {
		return nil, fmt.Errorf("failed to query emotion analysis: %w", err)
	}
	if record.ID == 0 {
		return nil, nil
	}
	result := emotionFromModel(record)
	return &result, nil
}

// CreateIfAbsent inserts the analysis unless the message already has one.
// It reports false when another writer got there first.
func (r *EmotionRepo) CreateIfAbsent(ctx context.Context, analysis *types.EmotionAnalysis) (bool, error) {
	if analysis == nil {
		return false, fmt.Errorf("analysis cannot be nil")
	}
	record := emotionAnalysisModel{
		MessageID:      analysis.MessageID,
		ConversationID: analysis.ConversationID,
		EmotionType:    string(analysis.EmotionType),
		Confidence:     analysis.Confidence,
		Intensity:      analysis.Intensity,
		Valence:        analysis.Valence,
		Arousal:        analysis.Arousal,
		Keywords:       analysis.Keywords,
		CreatedAt:      analysis.CreatedAt,
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "message_id"}}, DoNothing: true}).
		Create(&record)
	if result.Error != nil {
		return false, fmt.Errorf("failed to insert emotion analysis: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return false, nil
	}
	*analysis = emotionFromModel(record)
	return true, nil
}

// ListByOwner returns the analyses of all the owner's conversations, oldest first.
// A zero since returns the full history.
func (r *EmotionRepo) ListByOwner(ctx context.Context, userID int64, since time.Time) ([]types.EmotionAnalysis, error) {
	query := r.db.WithContext(ctx).
		Model(&emotionAnalysisModel{}).
		Joins("JOIN conversations ON conversations.id = emotion_analyses.conversation_id").
		Where("conversations.user_id = ?", userID)
	if !since.IsZero() {
		query = query.Where("emotion_analyses.created_at >= ?", since)
	}

	var records []emotionAnalysisModel
	if err := query.
		Order("emotion_analyses.created_at ASC, emotion_analyses.id ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list emotion analyses: %w", err)
	}
	return emotionsFromModels(records), nil
}

// ListByConversation returns a conversation's analyses, oldest first.
func (r *EmotionRepo) ListByConversation(ctx context.Context, conversationID int64) ([]types.EmotionAnalysis, error) {
	var records []emotionAnalysisModel
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list conversation emotion analyses: %w", err)
	}
	return emotionsFromModels(records), nil
}

func emotionFromModel(model emotionAnalysisModel) types.EmotionAnalysis {
	return types.EmotionAnalysis{
		ID:             model.ID,
		MessageID:      model.MessageID,
		ConversationID: model.ConversationID,
		EmotionType:    types.EmotionType(model.EmotionType),
		Confidence:     model.Confidence,
		Intensity:      model.Intensity,
		Valence:        model.Valence,
		Arousal:        model.Arousal,
		Keywords:       model.Keywords,
		CreatedAt:      model.CreatedAt,
	}
}

func emotionsFromModels(records []emotionAnalysisModel) []types.EmotionAnalysis {
	results := make([]types.EmotionAnalysis, 0, len(records))
	for _, record := range records {
		results = append(results, emotionFromModel(record))
	}
	return results
}
