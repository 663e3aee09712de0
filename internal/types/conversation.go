package types

import "time"

// ConversationStatus is the lifecycle state of a conversation.
type ConversationStatus string

const (
	ConversationActive    ConversationStatus = "ACTIVE"
	ConversationPaused    ConversationStatus = "PAUSED"
	ConversationCompleted ConversationStatus = "COMPLETED"
	ConversationArchived  ConversationStatus = "ARCHIVED"
	ConversationDeleted   ConversationStatus = "DELETED"
)

// AllConversationStatuses lists statuses in display order.
var AllConversationStatuses = []ConversationStatus{
	ConversationActive,
	ConversationPaused,
	ConversationCompleted,
	ConversationArchived,
	ConversationDeleted,
}

var conversationTransitions = map[ConversationStatus][]ConversationStatus{
	ConversationActive:    {ConversationPaused, ConversationArchived, ConversationDeleted},
	ConversationPaused:    {ConversationActive, ConversationDeleted},
	ConversationArchived:  {ConversationActive, ConversationDeleted},
	ConversationCompleted: {ConversationDeleted},
}

// CanTransition reports whether the status may move to next.
// Deleted is terminal.
func (s ConversationStatus) CanTransition(next ConversationStatus) bool {
	for _, allowed := range conversationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AcceptsMessages reports whether new turns may be sent.
func (s ConversationStatus) AcceptsMessages() bool {
	return s == ConversationActive
}

// Valid reports whether s is a known status.
func (s ConversationStatus) Valid() bool {
	for _, status := range AllConversationStatuses {
		if s == status {
			return true
		}
	}
	return false
}

const (
	DefaultContextLength = 10
	DefaultLanguage      = "zh-CN"
)

// ConversationSettings are per-conversation overrides.
// Nil Temperature/MaxTokens fall back to the character's values.
type ConversationSettings struct {
	Temperature         *float64 `json:"temperature,omitempty"`
	MaxTokens           *int     `json:"max_tokens,omitempty"`
	Model               string   `json:"model,omitempty"`
	ContextLength       int      `json:"context_length"`
	AutoSaveEnabled     bool     `json:"auto_save_enabled"`
	NotificationEnabled bool     `json:"notification_enabled"`
	ResponseStyle       string   `json:"response_style,omitempty"`
	LanguagePreference  string   `json:"language_preference"`
}

// DefaultConversationSettings returns settings for a new conversation.
func DefaultConversationSettings() ConversationSettings {
	return ConversationSettings{
		ContextLength:       DefaultContextLength,
		AutoSaveEnabled:     true,
		NotificationEnabled: true,
		LanguagePreference:  DefaultLanguage,
	}
}

// Conversation is a chat thread between a user and one character.
type Conversation struct {
	ID                int64                `json:"id"`
	UserID            int64                `json:"user_id"`
	CharacterID       int64                `json:"character_id"`
	Title             string               `json:"title"`
	Description       string               `json:"description"`
	Status            ConversationStatus   `json:"status"`
	MessageCount      int64                `json:"message_count"`
	LastMessageAt     *time.Time           `json:"last_message_at,omitempty"`
	TotalTokens       int64                `json:"total_tokens"`
	AvgResponseTimeMs float64              `json:"avg_response_time_ms"`
	Settings          ConversationSettings `json:"settings"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

// IsDeleted reports whether the conversation was soft deleted.
func (c *Conversation) IsDeleted() bool {
	return c.Status == ConversationDeleted
}

// EffectiveTemperature applies the conversation override over the character default.
func (c *Conversation) EffectiveTemperature(character *Character) float64 {
	if c.Settings.Temperature != nil {
		return *c.Settings.Temperature
	}
	if character != nil {
		return character.Temperature
	}
	return DefaultCharacterTemperature
}

// EffectiveMaxTokens applies the conversation override over the character default.
func (c *Conversation) EffectiveMaxTokens(character *Character) int {
	if c.Settings.MaxTokens != nil {
		return *c.Settings.MaxTokens
	}
	if character != nil && character.MaxTokens > 0 {
		return character.MaxTokens
	}
	return DefaultCharacterMaxTokens
}

// ConversationStats summarizes a user's conversations.
type ConversationStats struct {
	Total         int64                        `json:"total"`
	ByStatus      map[ConversationStatus]int64 `json:"by_status"`
	TotalMessages int64                        `json:"total_messages"`
}

// MessageDelta describes the counter changes of one persisted batch of messages.
type MessageDelta struct {
	Messages      int64
	LastMessageAt time.Time
	Tokens        int64
	// ResponseTimeMs is set when the batch contains an AI reply.
	ResponseTimeMs *int64
}
