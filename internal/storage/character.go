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

type characterModel struct {
	ID              int64  `gorm:"primaryKey"`
	UserID          int64  `gorm:"not null;index:idx_characters_user_status"`
	Name            string `gorm:"size:50;not null"`
	Description     string `gorm:"size:1000"`
	AvatarURL       string `gorm:"size:500"`
	Personality     string `gorm:"size:20;not null"`
	Gender          string `gorm:"size:10;not null"`
	Age             *int
	BackgroundStory string `gorm:"type:text"`
	SystemPrompt    string `gorm:"type:text"`
	Temperature     float64
	MaxTokens       int
	Status          string `gorm:"size:20;not null;index:idx_characters_user_status"`
	UsageCount      int64  `gorm:"not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (characterModel) TableName() string {
	return "ai_characters"
}

// characterUpdateColumns are written by Update; usage_count only moves through IncrementUsage.
var characterUpdateColumns = []string{
	"name", "description", "avatar_url", "personality", "gender", "age",
	"background_story", "system_prompt", "temperature", "max_tokens", "status", "updated_at",
}

// CharacterRepo accesses characters data.
type CharacterRepo struct {
	db *gorm.DB
}

// NewCharacterRepo returns a CharacterRepo.
func NewCharacterRepo(db *gorm.DB) *CharacterRepo {
	return &CharacterRepo{db: db}
}

func (r *CharacterRepo) Create(ctx context.Context, character *types.Character) error {
	if character == nil {
		return fmt.Errorf("character cannot be nil")
	}
	model := characterToModel(character)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("failed to insert character: %w", err)
	}
	*character = *characterFromModel(model)
	return nil
}

func (r *CharacterRepo) Update(ctx context.Context, character *types.Character) error {
	model := characterToModel(character)
	model.UpdatedAt = time.Now()
	if err := r.db.WithContext(ctx).
		Model(&characterModel{ID: character.ID}).
		Select(characterUpdateColumns).
		Updates(&model).Error; err != nil {
		return fmt.Errorf("failed to update character: %w", err)
	}
	character.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *CharacterRepo) GetByID(ctx context.Context, id int64) (*types.Character, error) {
	var model characterModel
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("角色不存在", err)
		}
		return nil, fmt.Errorf("failed to get character by id: %w", err)
	}
	return characterFromModel(model), nil
}

// NameExists reports whether the owner has another non-deleted character named name.
func (r *CharacterRepo) NameExists(ctx context.Context, userID int64, name string, excludeID int64) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&characterModel{}).
		Where("user_id = ? AND name = ? AND status <> ?", userID, name, string(types.CharacterDeleted))
	if excludeID > 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check character name: %w", err)
	}
	return count > 0, nil
}

// CountByOwner counts the owner's non-deleted characters.
func (r *CharacterRepo) CountByOwner(ctx context.Context, userID int64) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&characterModel{}).
		Where("user_id = ? AND status <> ?", userID, string(types.CharacterDeleted)).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count characters: %w", err)
	}
	return count, nil
}

// ListByOwner returns the owner's non-deleted characters, newest first.
func (r *CharacterRepo) ListByOwner(ctx context.Context, userID int64) ([]types.Character, error) {
	var records []characterModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND status <> ?", userID, string(types.CharacterDeleted)).
		Order("created_at DESC, id DESC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list characters: %w", err)
	}
	return charactersFromModels(records), nil
}

// SearchByName matches the keyword anywhere in the name, case-insensitively.
func (r *CharacterRepo) SearchByName(ctx context.Context, userID int64, keyword string) ([]types.Character, error) {
	pattern := "%" + strings.ToLower(keyword) + "%"
	var records []characterModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND status <> ?", userID, string(types.CharacterDeleted)).
		Where("LOWER(name) LIKE ?", pattern).
		Order("created_at DESC, id DESC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to search characters: %w", err)
	}
	return charactersFromModels(records), nil
}

// ListPopular returns the owner's most used non-deleted characters.
func (r *CharacterRepo) ListPopular(ctx context.Context, userID int64, limit int) ([]types.Character, error) {
	var records []characterModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND status <> ?", userID, string(types.CharacterDeleted)).
		Order("usage_count DESC, id ASC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list popular characters: %w", err)
	}
	return charactersFromModels(records), nil
}

func (r *CharacterRepo) UpdateStatus(ctx context.Context, id int64, status types.CharacterStatus) error {
	if err := r.db.WithContext(ctx).
		Model(&characterModel{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": string(status), "updated_at": time.Now()}).Error; err != nil {
		return fmt.Errorf("failed to update character status: %w", err)
	}
	return nil
}

// IncrementUsage atomically adds n to usage_count.
func (r *CharacterRepo) IncrementUsage(ctx context.Context, id int64, n int64) error {
	if err := r.db.WithContext(ctx).
		Model(&characterModel{}).
		Where("id = ?", id).
		UpdateColumn("usage_count", gorm.Expr("usage_count + ?", n)).Error; err != nil {
		return fmt.Errorf("failed to increment character usage: %w", err)
	}
	return nil
}

func characterToModel(c *types.Character) characterModel {
	return characterModel{
		ID:              c.ID,
		UserID:          c.UserID,
		Name:            c.Name,
		Description:     c.Description,
		AvatarURL:       c.AvatarURL,
		Personality:     string(c.Personality),
		Gender:          string(c.Gender),
		Age:             c.Age,
		BackgroundStory: c.BackgroundStory,
		SystemPrompt:    c.SystemPrompt,
		Temperature:     c.Temperature,
		MaxTokens:       c.MaxTokens,
		Status:          string(c.Status),
		UsageCount:      c.UsageCount,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func characterFromModel(model characterModel) *types.Character {
	return &types.Character{
		ID:              model.ID,
		UserID:          model.UserID,
		Name:            model.Name,
		Description:     model.Description,
		AvatarURL:       model.AvatarURL,
		Personality:     types.Personality(model.Personality),
		Gender:          types.Gender(model.Gender),
		Age:             model.Age,
		BackgroundStory: model.BackgroundStory,
		SystemPrompt:    model.SystemPrompt,
		Temperature:     model.Temperature,
		MaxTokens:       model.MaxTokens,
		Status:          types.CharacterStatus(model.Status),
		UsageCount:      model.UsageCount,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}

func charactersFromModels(records []characterModel) []types.Character {
	results := make([]types.Character, 0, len(records))
	for _, record := range records {
		results = append(results, *characterFromModel(record))
	}
	return results
}
