// Package prompt derives the system prompt sent ahead of a conversation window.
package prompt

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/easeaico/companion-chat/internal/types"
)

// SystemPrompt returns the character's explicit prompt verbatim when it is
// non-blank, otherwise one synthesized from the character's profile.
func SystemPrompt(character *types.Character) (string, error) {
	if character == nil {
		return "", fmt.Errorf("character is required")
	}
	if strings.TrimSpace(character.SystemPrompt) != "" {
		return character.SystemPrompt, nil
	}

	data := struct {
		Name            string
		Description     string
		Personality     string
		Gender          string
		Age             string
		BackgroundStory string
	}{
		Name:            character.Name,
		Description:     nonBlank(character.Description),
		Personality:     character.Personality.Description(),
		Gender:          character.Gender.Description(),
		BackgroundStory: nonBlank(character.BackgroundStory),
	}
	if character.Age != nil {
		data.Age = strconv.Itoa(*character.Age)
	}

	var buf bytes.Buffer
	if err := systemPromptTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to build system prompt: %w", err)
	}
	return buf.String(), nil
}

// StyleInstruction renders the conversation's reply style hints; empty when
// the conversation has none. The default language adds nothing.
func StyleInstruction(settings types.ConversationSettings) (string, error) {
	data := struct {
		ResponseStyle string
		Language      string
	}{
		ResponseStyle: strings.TrimSpace(settings.ResponseStyle),
	}
	if lang := strings.TrimSpace(settings.LanguagePreference); lang != "" && lang != types.DefaultLanguage {
		data.Language = lang
	}

	var buf bytes.Buffer
	if err := styleTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to build style instruction: %w", err)
	}
	return buf.String(), nil
}

func nonBlank(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	return text
}
