package character

import (
	"fmt"

	apperrors "github.com/easeaico/companion-chat/internal/errors"
	"github.com/easeaico/companion-chat/internal/types"
	"github.com/easeaico/companion-chat/internal/utils"
)

const (
	maxNameLength         = 50
	maxDescriptionLength  = 1000
	maxAvatarURLLength    = 500
	maxBackgroundLength   = 2000
	maxSystemPromptLength = 5000
	minAge, maxAge        = 1, 200
	minMaxTokens          = 100
	maxMaxTokens          = 4096

	// MaxTestMessageLength bounds the text of a character test call.
	MaxTestMessageLength = 500
)

// validateCharacter checks a complete character record.
func validateCharacter(c *types.Character) error {
	var v apperrors.Collector
	v.Check(!utils.IsBlank(c.Name), "name", "角色名称不能为空")
	v.Check(utils.RuneLen(c.Name) <= maxNameLength, "name", fmt.Sprintf("角色名称不能超过%d个字符", maxNameLength))
	v.Check(utils.RuneLen(c.Description) <= maxDescriptionLength, "description", fmt.Sprintf("角色描述不能超过%d个字符", maxDescriptionLength))
	v.Check(utils.RuneLen(c.AvatarURL) <= maxAvatarURLLength, "avatar_url", fmt.Sprintf("头像URL不能超过%d个字符", maxAvatarURLLength))
	v.Check(c.Personality.Valid(), "personality", "无效的性格类型")
	v.Check(c.Gender.Valid(), "gender", "无效的性别")
	if c.Age != nil {
		v.Check(*c.Age >= minAge && *c.Age <= maxAge, "age", fmt.Sprintf("年龄必须在%d到%d之间", minAge, maxAge))
	}
	v.Check(utils.RuneLen(c.BackgroundStory) <= maxBackgroundLength, "background_story", fmt.Sprintf("背景故事不能超过%d个字符", maxBackgroundLength))
	v.Check(utils.RuneLen(c.SystemPrompt) <= maxSystemPromptLength, "system_prompt", fmt.Sprintf("系统提示词不能超过%d个字符", maxSystemPromptLength))
	v.Check(c.Temperature >= 0 && c.Temperature <= 1, "temperature", "温度参数必须在0.0到1.0之间")
	v.Check(c.MaxTokens >= minMaxTokens && c.MaxTokens <= maxMaxTokens, "max_tokens", fmt.Sprintf("最大令牌数必须在%d到%d之间", minMaxTokens, maxMaxTokens))
	return v.Err()
}
