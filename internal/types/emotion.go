package types

import "time"

// EmotionType is a category of the emotion taxonomy.
type EmotionType string

const (
	EmotionJoy            EmotionType = "JOY"
	EmotionSadness        EmotionType = "SADNESS"
	EmotionAnger          EmotionType = "ANGER"
	EmotionFear           EmotionType = "FEAR"
	EmotionSurprise       EmotionType = "SURPRISE"
	EmotionDisgust        EmotionType = "DISGUST"
	EmotionLove           EmotionType = "LOVE"
	EmotionExcitement     EmotionType = "EXCITEMENT"
	EmotionCalm           EmotionType = "CALM"
	EmotionAnxiety        EmotionType = "ANXIETY"
	EmotionHappiness      EmotionType = "HAPPINESS"
	EmotionDisappointment EmotionType = "DISAPPOINTMENT"
	EmotionCuriosity      EmotionType = "CURIOSITY"
	EmotionConfusion      EmotionType = "CONFUSION"
	EmotionNeutral        EmotionType = "NEUTRAL"
)

type emotionProfile struct {
	description string
	valence     float64
	arousal     float64
}

// EmotionTypes lists the taxonomy in declaration order.
var EmotionTypes = []EmotionType{
	EmotionJoy,
	EmotionSadness,
	EmotionAnger,
	EmotionFear,
	EmotionSurprise,
	EmotionDisgust,
	EmotionLove,
	EmotionExcitement,
	EmotionCalm,
	EmotionAnxiety,
	EmotionHappiness,
	EmotionDisappointment,
	EmotionCuriosity,
	EmotionConfusion,
	EmotionNeutral,
}

var emotionProfiles = map[EmotionType]emotionProfile{
	EmotionJoy:            {"喜悦", 0.8, 0.7},
	EmotionSadness:        {"悲伤", -0.7, 0.3},
	EmotionAnger:          {"愤怒", -0.6, 0.9},
	EmotionFear:           {"恐惧", -0.8, 0.8},
	EmotionSurprise:       {"惊讶", 0.2, 0.8},
	EmotionDisgust:        {"厌恶", -0.7, 0.5},
	EmotionLove:           {"爱意", 0.9, 0.6},
	EmotionExcitement:     {"兴奋", 0.7, 0.9},
	EmotionCalm:           {"平静", 0.3, 0.1},
	EmotionAnxiety:        {"焦虑", -0.5, 0.7},
	EmotionHappiness:      {"快乐", 0.8, 0.6},
	EmotionDisappointment: {"失望", -0.6, 0.4},
	EmotionCuriosity:      {"好奇", 0.4, 0.6},
	EmotionConfusion:      {"困惑", -0.2, 0.5},
	EmotionNeutral:        {"中性", 0.0, 0.3},
}

// Description returns the human readable label.
func (e EmotionType) Description() string {
	return emotionProfiles[e].description
}

// Valence returns the canonical valence in [-1,1].
func (e EmotionType) Valence() float64 {
	return emotionProfiles[e].valence
}

// Arousal returns the canonical arousal in [0,1].
func (e EmotionType) Arousal() float64 {
	return emotionProfiles[e].arousal
}

// Valid reports whether e belongs to the taxonomy.
func (e EmotionType) Valid() bool {
	_, ok := emotionProfiles[e]
	return ok
}

// EmotionAnalysis is the cached analysis of a single message.
type EmotionAnalysis struct {
	ID             int64       `json:"id"`
	MessageID      int64       `json:"message_id"`
	ConversationID int64       `json:"conversation_id"`
	EmotionType    EmotionType `json:"emotion_type"`
	Confidence     float64     `json:"confidence"`
	Intensity      *float64    `json:"intensity,omitempty"`
	Valence        *float64    `json:"valence,omitempty"`
	Arousal        *float64    `json:"arousal,omitempty"`
	Keywords       string      `json:"keywords"`
	CreatedAt      time.Time   `json:"created_at"`
}

// ApplyDefaults fills valence/arousal from the emotion type and
// intensity from confidence when they are absent.
func (a *EmotionAnalysis) ApplyDefaults() {
	if a.Valence == nil {
		v := a.EmotionType.Valence()
		a.Valence = &v
	}
	if a.Arousal == nil {
		v := a.EmotionType.Arousal()
		a.Arousal = &v
	}
	if a.Intensity == nil {
		v := a.Confidence
		a.Intensity = &v
	}
}

// ValenceValue returns valence or the type default.
func (a *EmotionAnalysis) ValenceValue() float64 {
	if a.Valence != nil {
		return *a.Valence
	}
	return a.EmotionType.Valence()
}

// IntensityValue returns intensity or confidence.
func (a *EmotionAnalysis) IntensityValue() float64 {
	if a.Intensity != nil {
		return *a.Intensity
	}
	return a.Confidence
}

// IsPositive reports valence above 0.1.
func (a *EmotionAnalysis) IsPositive() bool {
	return a.ValenceValue() > 0.1
}

// IsNegative reports valence below -0.1.
func (a *EmotionAnalysis) IsNegative() bool {
	return a.ValenceValue() < -0.1
}

// IsNeutral reports valence within [-0.1, 0.1].
func (a *EmotionAnalysis) IsNeutral() bool {
	return !a.IsPositive() && !a.IsNegative()
}

// IsHighIntensity reports intensity above 0.7.
func (a *EmotionAnalysis) IsHighIntensity() bool {
	return a.IntensityValue() > 0.7
}

// IntensityLevel returns the qualitative intensity band.
func (a *EmotionAnalysis) IntensityLevel() string {
	v := a.IntensityValue()
	switch {
	case v >= 0.8:
		return "极强"
	case v >= 0.6:
		return "强"
	case v >= 0.4:
		return "中等"
	case v >= 0.2:
		return "弱"
	default:
		return "极弱"
	}
}
