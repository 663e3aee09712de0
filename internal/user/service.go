// Package user serves the versioned user preference document.
package user

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"slices"

	"github.com/invopop/jsonschema"

	apperrors "github.com/easeaico/companion-chat/internal/errors"
	"github.com/easeaico/companion-chat/internal/types"
)

// Repo reads and writes the raw preference document of a user.
type Repo interface {
	GetPreferences(ctx context.Context, id int64) ([]byte, error)
	SavePreferences(ctx context.Context, id int64, raw []byte) error
}

var (
	colorSchemes     = []string{"light", "dark", "auto"}
	fontSizes        = []string{"small", "medium", "large"}
	styles           = []string{"formal", "casual", "playful"}
	retentionPeriods = []string{"1month", "3months", "6months", "1year", "forever"}

	clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
)

type Service struct {
	repo Repo
}

func NewService(repo Repo) *Service {
	return &Service{repo: repo}
}

// Get decodes the stored document. Missing, malformed and newer-version
// documents all yield the defaults.
func (s *Service) Get(ctx context.Context, userID int64) (*types.Preferences, error) {
	raw, err := s.repo.GetPreferences(ctx, userID)
	if err != nil {
		if apperrors.IsNotFoundError(err) {
			return nil, err
		}
		return nil, apperrors.NewInternalError("获取用户偏好失败", err)
	}
	prefs := decode(userID, raw)
	return &prefs, nil
}

// Update validates and stores a complete preference document stamped with
// the current version.
func (s *Service) Update(ctx context.Context, userID int64, prefs types.Preferences) (*types.Preferences, error) {
	prefs.Version = types.PreferencesVersion
	if err := validate(prefs); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(prefs)
	if err != nil {
		return nil, apperrors.NewInternalError("保存用户偏好失败", err)
	}
	if err := s.repo.SavePreferences(ctx, userID, raw); err != nil {
		if apperrors.IsNotFoundError(err) {
			return nil, err
		}
		return nil, apperrors.NewInternalError("保存用户偏好失败", err)
	}
	slog.Info("user preferences updated", "user_id", userID, "version", prefs.Version)
	return &prefs, nil
}

// Schema publishes the JSON schema of the preference document.
func (s *Service) Schema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := r.Reflect(&types.Preferences{})
	schema.Title = "Preferences"
	return schema
}

func decode(userID int64, raw []byte) types.Preferences {
	if len(raw) == 0 || string(raw) == "null" {
		return types.DefaultPreferences()
	}
	prefs := types.DefaultPreferences()
	if err := json.Unmarshal(raw, &prefs); err != nil {
		slog.Warn("stored preferences unreadable, using defaults", "user_id", userID, "error", err)
		return types.DefaultPreferences()
	}
	if prefs.Version > types.PreferencesVersion {
		slog.Warn("stored preferences from a newer version, using defaults", "user_id", userID, "version", prefs.Version)
		return types.DefaultPreferences()
	}
	prefs.Version = types.PreferencesVersion
	return prefs
}

func validate(p types.Preferences) error {
	var v apperrors.Collector
	v.Check(slices.Contains(colorSchemes, p.Theme.ColorScheme), "theme.color_scheme", "无效的主题配色")
	v.Check(slices.Contains(fontSizes, p.Theme.FontSize), "theme.font_size", "无效的字体大小")
	v.Check(clockPattern.MatchString(p.Notification.QuietHoursStart), "notification.quiet_hours_start", "免打扰开始时间格式应为HH:mm")
	v.Check(clockPattern.MatchString(p.Notification.QuietHoursEnd), "notification.quiet_hours_end", "免打扰结束时间格式应为HH:mm")

	ai := p.AICharacter
	v.Check(ai.PreferredPersonality == "" || ai.PreferredPersonality.Valid(), "ai_character.preferred_personality", "无效的性格类型")
	v.Check(ai.PreferredGender == "" || ai.PreferredGender.Valid(), "ai_character.preferred_gender", "无效的性别")
	v.Check(ai.PreferredAge >= 1 && ai.PreferredAge <= 200, "ai_character.preferred_age", "偏好年龄必须在1到200之间")
	v.Check(slices.Contains(styles, ai.ConversationStyle), "ai_character.conversation_style", "无效的对话风格")
	v.Check(ai.ResponseSpeed >= 0.5 && ai.ResponseSpeed <= 2.0, "ai_character.response_speed", "回复速度必须在0.5到2.0之间")

	v.Check(slices.Contains(retentionPeriods, p.Privacy.DataRetentionPeriod), "privacy.data_retention_period", "无效的数据保留期限")
	return v.Err()
}
