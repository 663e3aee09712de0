package types

import "time"

// UserStatus is the account state managed by the identity layer.
type UserStatus string

const (
	UserActive   UserStatus = "ACTIVE"
	UserInactive UserStatus = "INACTIVE"
	UserBanned   UserStatus = "BANNED"
)

// User is the owner of characters and conversations.
type User struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Nickname  string     `json:"nickname"`
	Status    UserStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// PreferencesVersion is the schema version written by this build.
const PreferencesVersion = 1

// Preferences is the versioned user preference document.
type Preferences struct {
	Version      int                    `json:"version" jsonschema:"minimum=1"`
	Theme        ThemeSettings          `json:"theme"`
	Notification NotificationSettings   `json:"notification"`
	AICharacter  AICharacterPreferences `json:"ai_character"`
	Privacy      PrivacySettings        `json:"privacy"`
}

type ThemeSettings struct {
	ColorScheme  string `json:"color_scheme" jsonschema:"enum=light,enum=dark,enum=auto"`
	PrimaryColor string `json:"primary_color"`
	Language     string `json:"language"`
	FontSize     string `json:"font_size" jsonschema:"enum=small,enum=medium,enum=large"`
}

type NotificationSettings struct {
	EmailNotification bool   `json:"email_notification"`
	PushNotification  bool   `json:"push_notification"`
	SoundEnabled      bool   `json:"sound_enabled"`
	VibrationEnabled  bool   `json:"vibration_enabled"`
	QuietHoursStart   string `json:"quiet_hours_start" jsonschema:"pattern=^([01][0-9]|2[0-3]):[0-5][0-9]$"`
	QuietHoursEnd     string `json:"quiet_hours_end" jsonschema:"pattern=^([01][0-9]|2[0-3]):[0-5][0-9]$"`
}

type AICharacterPreferences struct {
	PreferredPersonality  Personality `json:"preferred_personality"`
	PreferredGender       Gender      `json:"preferred_gender"`
	PreferredAge          int         `json:"preferred_age" jsonschema:"minimum=1,maximum=200"`
	ConversationStyle     string      `json:"conversation_style" jsonschema:"enum=formal,enum=casual,enum=playful"`
	ResponseSpeed         float64     `json:"response_speed" jsonschema:"minimum=0.5,maximum=2"`
	EnableEmotionAnalysis bool        `json:"enable_emotion_analysis"`
	EnableContextMemory   bool        `json:"enable_context_memory"`
}

type PrivacySettings struct {
	ProfileVisible       bool   `json:"profile_visible"`
	AllowDataCollection  bool   `json:"allow_data_collection"`
	ShareUsageStatistics bool   `json:"share_usage_statistics"`
	EnableAnalytics      bool   `json:"enable_analytics"`
	DataRetentionPeriod  string `json:"data_retention_period" jsonschema:"enum=1month,enum=3months,enum=6months,enum=1year,enum=forever"`
}

// DefaultPreferences returns the preferences of a fresh account.
func DefaultPreferences() Preferences {
	return Preferences{
		Version: PreferencesVersion,
		Theme: ThemeSettings{
			ColorScheme:  "light",
			PrimaryColor: "#1890ff",
			Language:     DefaultLanguage,
			FontSize:     "medium",
		},
		Notification: NotificationSettings{
			EmailNotification: true,
			PushNotification:  true,
			SoundEnabled:      true,
			VibrationEnabled:  true,
			QuietHoursStart:   "22:00",
			QuietHoursEnd:     "08:00",
		},
		AICharacter: AICharacterPreferences{
			PreferredPersonality:  PersonalityFriendly,
			PreferredGender:       GenderFemale,
			PreferredAge:          25,
			ConversationStyle:     "casual",
			ResponseSpeed:         1.0,
			EnableEmotionAnalysis: true,
			EnableContextMemory:   true,
		},
		Privacy: PrivacySettings{
			ProfileVisible:       true,
			AllowDataCollection:  true,
			ShareUsageStatistics: false,
			EnableAnalytics:      true,
			DataRetentionPeriod:  "1year",
		},
	}
}
