package types

import "time"

// Personality is the persona tag of a character.
type Personality string

const (
	PersonalityFriendly     Personality = "FRIENDLY"
	PersonalityShy          Personality = "SHY"
	PersonalityOutgoing     Personality = "OUTGOING"
	PersonalityMysterious   Personality = "MYSTERIOUS"
	PersonalityPlayful      Personality = "PLAYFUL"
	PersonalitySerious      Personality = "SERIOUS"
	PersonalityRomantic     Personality = "ROMANTIC"
	PersonalityIntellectual Personality = "INTELLECTUAL"
)

var personalityDescriptions = map[Personality]string{
	PersonalityFriendly:     "友善",
	PersonalityShy:          "害羞",
	PersonalityOutgoing:     "外向",
	PersonalityMysterious:   "神秘",
	PersonalityPlayful:      "顽皮",
	PersonalitySerious:      "严肃",
	PersonalityRomantic:     "浪漫",
	PersonalityIntellectual: "知性",
}

// Description returns the human readable label.
func (p Personality) Description() string {
	return personalityDescriptions[p]
}

// Valid reports whether p is a known personality.
func (p Personality) Valid() bool {
	_, ok := personalityDescriptions[p]
	return ok
}

// Gender is the gender tag of a character or user.
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderOther  Gender = "OTHER"
)

var genderDescriptions = map[Gender]string{
	GenderMale:   "男性",
	GenderFemale: "女性",
	GenderOther:  "其他",
}

// Description returns the human readable label.
func (g Gender) Description() string {
	return genderDescriptions[g]
}

// Valid reports whether g is a known gender.
func (g Gender) Valid() bool {
	_, ok := genderDescriptions[g]
	return ok
}

// CharacterStatus is the lifecycle state of a character.
type CharacterStatus string

const (
	CharacterActive   CharacterStatus = "ACTIVE"
	CharacterInactive CharacterStatus = "INACTIVE"
	CharacterDeleted  CharacterStatus = "DELETED"
)

var characterTransitions = map[CharacterStatus][]CharacterStatus{
	CharacterActive:   {CharacterInactive, CharacterDeleted},
	CharacterInactive: {CharacterActive, CharacterDeleted},
}

// CanTransition reports whether the status may move to next.
// Deleted is terminal.
func (s CharacterStatus) CanTransition(next CharacterStatus) bool {
	for _, allowed := range characterTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known status.
func (s CharacterStatus) Valid() bool {
	switch s {
	case CharacterActive, CharacterInactive, CharacterDeleted:
		return true
	}
	return false
}

const (
	DefaultCharacterTemperature = 0.7
	DefaultCharacterMaxTokens   = 2048
)

// Character is an AI persona owned by a user.
type Character struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"user_id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	AvatarURL       string          `json:"avatar_url"`
	Personality     Personality     `json:"personality"`
	Gender          Gender          `json:"gender"`
	Age             *int            `json:"age,omitempty"`
	BackgroundStory string          `json:"background_story"`
	SystemPrompt    string          `json:"system_prompt"`
	Temperature     float64         `json:"temperature"`
	MaxTokens       int             `json:"max_tokens"`
	Status          CharacterStatus `json:"status"`
	UsageCount      int64           `json:"usage_count"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// IsDeleted reports whether the character was soft deleted.
func (c *Character) IsDeleted() bool {
	return c.Status == CharacterDeleted
}
