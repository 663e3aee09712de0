package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	apperrors "github.com/easeaico/companion-chat/internal/errors"
	"github.com/easeaico/companion-chat/internal/types"
)

// userModel maps to the users table. Credentials live with the identity layer.
type userModel struct {
	ID          int64          `gorm:"primaryKey"`
	Username    string         `gorm:"size:50;not null;uniqueIndex"`
	Nickname    string         `gorm:"size:50"`
	Status      string         `gorm:"size:20;not null"`
	Preferences datatypes.JSON `gorm:"type:json"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (userModel) TableName() string {
	return "users"
}

// UserRepo accesses users and their preference documents.
type UserRepo struct {
	db *gorm.DB
}

// NewUserRepo returns a UserRepo.
func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, user *types.User) error {
	if user == nil {
		return fmt.Errorf("user cannot be nil")
	}
	record := userModel{
		ID:       user.ID,
		Username: user.Username,
		Nickname: user.Nickname,
		Status:   string(user.Status),
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	*user = userFromModel(record)
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*types.User, error) {
	record, err := r.get(ctx, id)
	if err != nil {
		return nil, err
	}
	result := userFromModel(*record)
	return &result, nil
}

// GetPreferences returns the raw stored preference document, possibly empty.
func (r *UserRepo) GetPreferences(ctx context.Context, id int64) ([]byte, error) {
	record, err := r.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return []byte(record.Preferences), nil
}

// SavePreferences replaces the stored preference document.
func (r *UserRepo) SavePreferences(ctx context.Context, id int64, raw []byte) error {
	result := r.db.WithContext(ctx).
		Model(&userModel{}).
		Where("id = ?", id).
		Updates(map[string]any{"preferences": datatypes.JSON(raw), "updated_at": time.Now()})
	if result.Error != nil {
		return fmt.Errorf("failed to save user preferences: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NewNotFoundError("用户不存在", nil)
	}
	return nil
}

func (r *UserRepo) get(ctx context.Context, id int64) (*userModel, error) {
	var record userModel
	if err := r.db.WithContext(ctx).First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("用户不存在", err)
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return &record, nil
}

func userFromModel(model userModel) types.User {
	return types.User{
		ID:        model.ID,
		Username:  model.Username,
		Nickname:  model.Nickname,
		Status:    types.UserStatus(model.Status),
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}
