package types

// CharacterCard is a portable character preset, loaded from YAML or JSON.
type CharacterCard struct {
	Name            string      `yaml:"name" json:"name"`
	Description     string      `yaml:"description" json:"description"`
	AvatarURL       string      `yaml:"avatar_url" json:"avatar_url"`
	Personality     Personality `yaml:"personality" json:"personality"`
	Gender          Gender      `yaml:"gender" json:"gender"`
	Age             *int        `yaml:"age,omitempty" json:"age,omitempty"`
	BackgroundStory string      `yaml:"background_story" json:"background_story"`
	SystemPrompt    string      `yaml:"system_prompt,omitempty" json:"system_prompt,omitempty"`
	Temperature     *float64    `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	MaxTokens       *int        `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
}

// CardDeck wraps a list of cards, as in a seed file.
type CardDeck struct {
	Characters []CharacterCard `yaml:"characters" json:"characters"`
}
