package emotion

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/easeaico/companion-chat/internal/types"
)

const (
	neutralConfidence = 0.5
	maxConfidence     = 0.95
	baseIntensity     = 0.5
	maxKeywords       = 5
)

// Analyzer scores message text with the keyword rules. Same text, same result.
type Analyzer struct{}

// NewAnalyzer returns an Analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze classifies text and fills every score except the record ids.
func (a *Analyzer) Analyze(text string) types.EmotionAnalysis {
	lowered := strings.ToLower(text)
	emotion := Classify(lowered)
	intensity := Intensity(lowered)
	analysis := types.EmotionAnalysis{
		EmotionType: emotion,
		Confidence:  Confidence(emotion, text),
		Intensity:   &intensity,
		Keywords:    ExtractKeywords(lowered),
	}
	analysis.ApplyDefaults()
	return analysis
}

// Classify returns the first rule's emotion with a keyword contained in text,
// or neutral. text is expected lower-cased.
func Classify(text string) types.EmotionType {
	for _, rule := range keywordRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(text, keyword) {
				return rule.emotion
			}
		}
	}
	return types.EmotionNeutral
}

// Confidence grows with text length for matched emotions.
func Confidence(emotion types.EmotionType, text string) float64 {
	if emotion == types.EmotionNeutral {
		return neutralConfidence
	}
	lengthFactor := math.Min(float64(textLength(text))/100.0, 1.0)
	return math.Min(0.7+lengthFactor*0.2, maxConfidence)
}

// Intensity rises with exclamation marks and upper-case letters.
// Analyze passes lower-cased text, so only the exclamation term applies there.
func Intensity(text string) float64 {
	exclamations := strings.Count(text, "!")
	uppercase := 0
	for _, r := range text {
		if unicode.IsUpper(r) {
			uppercase++
		}
	}
	intensity := baseIntensity +
		math.Min(float64(exclamations)*0.1, 0.3) +
		math.Min(float64(uppercase)*0.01, 0.2)
	return math.Min(intensity, 1.0)
}

// ExtractKeywords keeps the first whitespace-separated tokens longer than two characters.
func ExtractKeywords(text string) string {
	keywords := make([]string, 0, maxKeywords)
	for _, token := range strings.Fields(text) {
		if textLength(token) <= 2 {
			continue
		}
		keywords = append(keywords, token)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return strings.Join(keywords, ",")
}

// textLength counts UTF-16 code units: characters outside the BMP, such as
// most emoji, count twice.
func textLength(text string) int {
	n := 0
	for _, r := range text {
		n += utf16.RuneLen(r)
	}
	return n
}
