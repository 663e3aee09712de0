package emotion

import "github.com/easeaico/companion-chat/internal/types"

// HealthLevel is the banded reading of a health score.
type HealthLevel struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

var (
	HealthExcellent        = HealthLevel{Code: "excellent", Label: "优秀"}
	HealthGood             = HealthLevel{Code: "good", Label: "良好"}
	HealthFair             = HealthLevel{Code: "fair", Label: "一般"}
	HealthNeedsAttention   = HealthLevel{Code: "needs_attention", Label: "需要关注"}
	HealthNeedsImprovement = HealthLevel{Code: "needs_improvement", Label: "需要改善"}
)

// KeywordCount is one entry of the keyword cloud.
type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

// Stats summarizes a user's analyses.
type Stats struct {
	TotalAnalyses int `json:"total_analyses"`
	// Distribution is keyed by the emotion's display label.
	Distribution    map[string]int    `json:"emotion_distribution"`
	DominantEmotion types.EmotionType `json:"dominant_emotion,omitempty"`
	PositiveRatio   float64           `json:"positive_ratio"`
	NegativeRatio   float64           `json:"negative_ratio"`
	NeutralRatio    float64           `json:"neutral_ratio"`
	HealthScore     float64           `json:"health_score"`
	HealthLevel     HealthLevel       `json:"health_level"`
	Keywords        []KeywordCount    `json:"keyword_cloud"`
}

// TrendPoint aggregates one calendar day.
type TrendPoint struct {
	Date             string  `json:"date"`
	AverageValence   float64 `json:"average_valence"`
	AverageIntensity float64 `json:"average_intensity"`
	Count            int     `json:"count"`
	ValenceLabel     string  `json:"valence_label"`
	IntensityLabel   string  `json:"intensity_label"`
}

func clamp(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}
