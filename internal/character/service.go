// Package character manages a user's AI characters.
package character

import (
	"context"
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

// Repo persists characters.
type Repo interface {
	Create(ctx context.Context, character *types.Character) error
	Update(ctx context.Context, character *types.Character) error
	NameExists(ctx context.Context, userID int64, name string, excludeID int64) (bool, error)
	CountByOwner(ctx context.Context, userID int64) (int64, error)
	ListByOwner(ctx context.Context, userID int64) ([]types.Character, error)
	SearchByName(ctx context.Context, userID int64, keyword string) ([]types.Character, error)
	ListPopular(ctx context.Context, userID int64, limit int) ([]types.Character, error)
	UpdateStatus(ctx context.Context, id int64, status types.CharacterStatus) error
}

// Authorizer resolves a character the caller owns.
type Authorizer interface {
	Character(ctx context.Context, userID, characterID int64) (*types.Character, error)
}

// Completer answers test messages.
type Completer interface {
	Complete(ctx context.Context, req models.CompletionRequest) (*models.CompletionResponse, error)
}

// Options tunes the service.
type Options struct {
	MaxPerUser         int
	DefaultTemperature float64
	DefaultMaxTokens   int
	CompletionTimeout  time.Duration
}

// UpdateRequest carries the fields to change; nil fields stay as they are.
type UpdateRequest struct {
	Name            *string            `json:"name"`
	Description     *string            `json:"description"`
	AvatarURL       *string            `json:"avatar_url"`
	Personality     *types.Personality `json:"personality"`
	Gender          *types.Gender      `json:"gender"`
	Age             *int               `json:"age"`
	BackgroundStory *string            `json:"background_story"`
	SystemPrompt    *string            `json:"system_prompt"`
	Temperature     *float64           `json:"temperature"`
	MaxTokens       *int               `json:"max_tokens"`
}

// TestResult is the reply to a test message.
type TestResult struct {
	Reply            string `json:"reply"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`
}

// Service implements character management.
type Service struct {
	repo      Repo
	authz     Authorizer
	completer Completer
	opts      Options
}

func NewService(repo Repo, authz Authorizer, completer Completer, opts Options) *Service {
	if opts.MaxPerUser <= 0 {
		opts.MaxPerUser = 10
	}
	if opts.DefaultTemperature < 0 || opts.DefaultTemperature > 1 {
		opts.DefaultTemperature = types.DefaultCharacterTemperature
	}
	if opts.DefaultMaxTokens <= 0 {
		opts.DefaultMaxTokens = types.DefaultCharacterMaxTokens
	}
	return &Service{repo: repo, authz: authz, completer: completer, opts: opts}
}

// Create adds a character for userID from card.
func (s *Service) Create(ctx context.Context, userID int64, card types.CharacterCard) (*types.Character, error) {
	character := s.fromCard(userID, card)
	if err := validateCharacter(character); err != nil {
		return nil, err
	}
	if err := s.checkName(ctx, userID, character.Name, 0); err != nil {
		return nil, err
	}
	if err := s.checkQuota(ctx, userID); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, character); err != nil {
		return nil, apperrors.NewInternalError("创建角色失败", err)
	}
	slog.Info("character created", "user_id", userID, "character_id", character.ID, "name", character.Name)
	return character, nil
}

// Update applies the non-nil fields of req.
func (s *Service) Update(ctx context.Context, userID, characterID int64, req UpdateRequest) (*types.Character, error) {
	character, err := s.authz.Character(ctx, userID, characterID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil && *req.Name != character.Name {
		if err := s.checkName(ctx, userID, *req.Name, character.ID); err != nil {
			return nil, err
		}
		character.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		character.Description = *req.Description
	}
	if req.AvatarURL != nil {
		character.AvatarURL = *req.AvatarURL
	}
	if req.Personality != nil {
		character.Personality = *req.Personality
	}
	if req.Gender != nil {
		character.Gender = *req.Gender
	}
	if req.Age != nil {
		character.Age = req.Age
	}
	if req.BackgroundStory != nil {
		character.BackgroundStory = *req.BackgroundStory
	}
	if req.SystemPrompt != nil {
		character.SystemPrompt = *req.SystemPrompt
	}
	if req.Temperature != nil {
		character.Temperature = *req.Temperature
	}
	if req.MaxTokens != nil {
		character.MaxTokens = *req.MaxTokens
	}
	if err := validateCharacter(character); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, character); err != nil {
		return nil, apperrors.NewInternalError("更新角色失败", err)
	}
	return character, nil
}

// Delete soft-deletes a character.
func (s *Service) Delete(ctx context.Context, userID, characterID int64) error {
	character, err := s.authz.Character(ctx, userID, characterID)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateStatus(ctx, character.ID, types.CharacterDeleted); err != nil {
		return apperrors.NewInternalError("删除角色失败", err)
	}
	slog.Info("character deleted", "user_id", userID, "character_id", character.ID)
	return nil
}

func (s *Service) Get(ctx context.Context, userID, characterID int64) (*types.Character, error) {
	return s.authz.Character(ctx, userID, characterID)
}

func (s *Service) List(ctx context.Context, userID int64) ([]types.Character, error) {
	characters, err := s.repo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, apperrors.NewInternalError("查询角色列表失败", err)
	}
	return characters, nil
}

// Search matches the keyword against names; a blank keyword lists everything.
func (s *Service) Search(ctx context.Context, userID int64, keyword string) ([]types.Character, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return s.List(ctx, userID)
	}
	characters, err := s.repo.SearchByName(ctx, userID, keyword)
	if err != nil {
		return nil, apperrors.NewInternalError("搜索角色失败", err)
	}
	return characters, nil
}

// Popular returns the most used characters, at most limit (default 10, max 50).
func (s *Service) Popular(ctx context.Context, userID int64, limit int) ([]types.Character, error) {
	switch {
	case limit <= 0:
		limit = 10
	case limit > 50:
		limit = 50
	}
	characters, err := s.repo.ListPopular(ctx, userID, limit)
	if err != nil {
		return nil, apperrors.NewInternalError("查询热门角色失败", err)
	}
	return characters, nil
}

// Clone copies a character under a new name. The copy starts active with no usage.
func (s *Service) Clone(ctx context.Context, userID, characterID int64, newName string) (*types.Character, error) {
	original, err := s.authz.Character(ctx, userID, characterID)
	if err != nil {
		return nil, err
	}

	clone := *original
	clone.ID = 0
	clone.Name = newName
	clone.Status = types.CharacterActive
	clone.UsageCount = 0
	clone.CreatedAt = time.Time{}
	clone.UpdatedAt = time.Time{}
	if original.Age != nil {
		age := *original.Age
		clone.Age = &age
	}
	if err := validateCharacter(&clone); err != nil {
		return nil, err
	}
	if err := s.checkName(ctx, userID, clone.Name, 0); err != nil {
		return nil, err
	}
	if err := s.checkQuota(ctx, userID); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, &clone); err != nil {
		return nil, apperrors.NewInternalError("复制角色失败", err)
	}
	slog.Info("character cloned", "user_id", userID, "from", original.ID, "to", clone.ID)
	return &clone, nil
}

// SetStatus moves a character between active and inactive.
func (s *Service) SetStatus(ctx context.Context, userID, characterID int64, status types.CharacterStatus) (*types.Character, error) {
	if status != types.CharacterActive && status != types.CharacterInactive {
		return nil, apperrors.NewFieldError("status", "无效的角色状态")
	}
	character, err := s.authz.Character(ctx, userID, characterID)
	if err != nil {
		return nil, err
	}
	if character.Status == status {
		return character, nil
	}
	if !character.Status.CanTransition(status) {
		return nil, apperrors.NewInvalidStateError(fmt.Sprintf("角色状态不能从%s变更为%s", character.Status, status), nil)
	}
	if err := s.repo.UpdateStatus(ctx, character.ID, status); err != nil {
		return nil, apperrors.NewInternalError("更新角色状态失败", err)
	}
	character.Status = status
	return character, nil
}

// Test sends one message to the character without a conversation. Nothing is stored.
func (s *Service) Test(ctx context.Context, userID, characterID int64, text string) (*TestResult, error) {
	if utils.IsBlank(text) {
		return nil, apperrors.NewFieldError("message", "测试消息不能为空")
	}
	if utils.RuneLen(text) > MaxTestMessageLength {
		return nil, apperrors.NewFieldError("message", fmt.Sprintf("测试消息不能超过%d个字符", MaxTestMessageLength))
	}
	character, err := s.authz.Character(ctx, userID, characterID)
	if err != nil {
		return nil, err
	}
	systemPrompt, err := prompt.SystemPrompt(character)
	if err != nil {
		return nil, apperrors.NewInternalError("生成系统提示词失败", err)
	}

	if s.opts.CompletionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.CompletionTimeout)
		defer cancel()
	}
	started := time.Now()
	resp, err := s.completer.Complete(ctx, models.CompletionRequest{
		SystemPrompt: systemPrompt,
		Turns:        []types.Turn{{Role: types.RoleUser, Text: text}},
		Temperature:  character.Temperature,
		MaxTokens:    character.MaxTokens,
	})
	if err == nil && (resp == nil || utils.IsBlank(resp.Text)) {
		err = fmt.Errorf("empty completion")
	}
	if err != nil {
		slog.Error("character test failed", "character_id", character.ID, "error", err.Error())
		return nil, apperrors.NewCompletionError("AI服务暂时不可用，请稍后重试", err)
	}
	return &TestResult{Reply: resp.Text, ProcessingTimeMs: time.Since(started).Milliseconds()}, nil
}

// ImportCards creates one character per card, skipping names the user already
// has. {{char}} and {{user}} in prompts are expanded at import.
func (s *Service) ImportCards(ctx context.Context, userID int64, userName string, deck types.CardDeck) ([]types.Character, error) {
	created := make([]types.Character, 0, len(deck.Characters))
	for i, card := range deck.Characters {
		card.SystemPrompt = utils.NormalizePromptText(card.SystemPrompt, card.Name, userName)
		card.BackgroundStory = utils.NormalizePromptText(card.BackgroundStory, card.Name, userName)

		exists, err := s.repo.NameExists(ctx, userID, card.Name, 0)
		if err != nil {
			return created, apperrors.NewInternalError("检查角色名称失败", err)
		}
		if exists {
			slog.Info("skipping existing character card", "user_id", userID, "name", card.Name)
			continue
		}
		character, err := s.Create(ctx, userID, card)
		if err != nil {
			return created, fmt.Errorf("card %d (%s): %w", i, card.Name, err)
		}
		created = append(created, *character)
	}
	return created, nil
}

func (s *Service) fromCard(userID int64, card types.CharacterCard) *types.Character {
	character := &types.Character{
		UserID:          userID,
		Name:            strings.TrimSpace(card.Name),
		Description:     card.Description,
		AvatarURL:       card.AvatarURL,
		Personality:     card.Personality,
		Gender:          card.Gender,
		Age:             card.Age,
		BackgroundStory: card.BackgroundStory,
		SystemPrompt:    card.SystemPrompt,
		Temperature:     s.opts.DefaultTemperature,
		MaxTokens:       s.opts.DefaultMaxTokens,
		Status:          types.CharacterActive,
	}
	if character.Personality == "" {
		character.Personality = types.PersonalityFriendly
	}
	if character.Gender == "" {
		character.Gender = types.GenderFemale
	}
	if card.Temperature != nil {
		character.Temperature = *card.Temperature
	}
	if card.MaxTokens != nil {
		character.MaxTokens = *card.MaxTokens
	}
	return character
}

func (s *Service) checkName(ctx context.Context, userID int64, name string, excludeID int64) error {
	exists, err := s.repo.NameExists(ctx, userID, strings.TrimSpace(name), excludeID)
	if err != nil {
		return apperrors.NewInternalError("检查角色名称失败", err)
	}
	if exists {
		return apperrors.NewFieldError("name", "角色名称已存在")
	}
	return nil
}

func (s *Service) checkQuota(ctx context.Context, userID int64) error {
	count, err := s.repo.CountByOwner(ctx, userID)
	if err != nil {
		return apperrors.NewInternalError("统计角色数量失败", err)
	}
	if count >= int64(s.opts.MaxPerUser) {
		return apperrors.NewFieldError("characters", fmt.Sprintf("角色数量已达上限（%d个）", s.opts.MaxPerUser))
	}
	return nil
}
