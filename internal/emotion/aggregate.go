package emotion

import (
	"sort"
	"time"

	"github.com/easeaico/companion-chat/internal/types"
	"github.com/easeaico/companion-chat/internal/utils"
)

const keywordCloudSize = 50

// Summarize computes the statistics of a set of analyses.
func Summarize(analyses []types.EmotionAnalysis) Stats {
	positive, negative, neutral := Ratios(analyses)
	score := HealthScore(positive, negative)
	return Stats{
		TotalAnalyses:   len(analyses),
		Distribution:    Distribution(analyses),
		DominantEmotion: DominantEmotion(analyses),
		PositiveRatio:   positive,
		NegativeRatio:   negative,
		NeutralRatio:    neutral,
		HealthScore:     score,
		HealthLevel:     LevelOf(score),
		Keywords:        KeywordCloud(analyses),
	}
}

// Distribution counts analyses per emotion label.
func Distribution(analyses []types.EmotionAnalysis) map[string]int {
	distribution := make(map[string]int)
	for _, a := range analyses {
		distribution[a.EmotionType.Description()]++
	}
	return distribution
}

// DominantEmotion is the most frequent type; ties go to the earlier type in
// the taxonomy. Empty when there are no analyses.
func DominantEmotion(analyses []types.EmotionAnalysis) types.EmotionType {
	counts := make(map[types.EmotionType]int)
	for _, a := range analyses {
		counts[a.EmotionType]++
	}
	var dominant types.EmotionType
	best := 0
	for _, emotion := range types.EmotionTypes {
		if counts[emotion] > best {
			dominant, best = emotion, counts[emotion]
		}
	}
	return dominant
}

// Ratios splits analyses by valence polarity. All zero for an empty set.
func Ratios(analyses []types.EmotionAnalysis) (positive, negative, neutral float64) {
	if len(analyses) == 0 {
		return 0, 0, 0
	}
	var pos, neg int
	for i := range analyses {
		switch {
		case analyses[i].IsPositive():
			pos++
		case analyses[i].IsNegative():
			neg++
		}
	}
	total := float64(len(analyses))
	positive = float64(pos) / total
	negative = float64(neg) / total
	neutral = float64(len(analyses)-pos-neg) / total
	return positive, negative, neutral
}

// HealthScore weighs negative emotion heavier than positive, on a 0-100 scale.
func HealthScore(positiveRatio, negativeRatio float64) float64 {
	return clamp((positiveRatio-negativeRatio*1.5+1)/2*100, 0, 100)
}

// LevelOf bands a health score.
func LevelOf(score float64) HealthLevel {
	switch {
	case score >= 80:
		return HealthExcellent
	case score >= 60:
		return HealthGood
	case score >= 40:
		return HealthFair
	case score >= 20:
		return HealthNeedsAttention
	default:
		return HealthNeedsImprovement
	}
}

// KeywordCloud counts stored keywords, most frequent first, ties alphabetical.
func KeywordCloud(analyses []types.EmotionAnalysis) []KeywordCount {
	counts := make(map[string]int)
	for _, a := range analyses {
		for _, keyword := range utils.SplitList(a.Keywords) {
			counts[keyword]++
		}
	}

	cloud := make([]KeywordCount, 0, len(counts))
	for keyword, count := range counts {
		cloud = append(cloud, KeywordCount{Keyword: keyword, Count: count})
	}
	sort.Slice(cloud, func(i, j int) bool {
		if cloud[i].Count != cloud[j].Count {
			return cloud[i].Count > cloud[j].Count
		}
		return cloud[i].Keyword < cloud[j].Keyword
	})
	if len(cloud) > keywordCloudSize {
		cloud = cloud[:keywordCloudSize]
	}
	return cloud
}

// Trend averages valence and intensity per calendar day in loc, oldest day first.
func Trend(analyses []types.EmotionAnalysis, loc *time.Location) []TrendPoint {
	if loc == nil {
		loc = time.UTC
	}
	type bucket struct {
		valence, intensity float64
		count              int
	}
	buckets := make(map[string]*bucket)
	for i := range analyses {
		day := analyses[i].CreatedAt.In(loc).Format(time.DateOnly)
		b, ok := buckets[day]
		if !ok {
			b = &bucket{}
			buckets[day] = b
		}
		b.valence += analyses[i].ValenceValue()
		b.intensity += analyses[i].IntensityValue()
		b.count++
	}

	points := make([]TrendPoint, 0, len(buckets))
	for day, b := range buckets {
		valence := b.valence / float64(b.count)
		intensity := b.intensity / float64(b.count)
		points = append(points, TrendPoint{
			Date:             day,
			AverageValence:   valence,
			AverageIntensity: intensity,
			Count:            b.count,
			ValenceLabel:     valenceLabel(valence),
			IntensityLabel:   intensityLabel(intensity),
		})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points
}

func valenceLabel(v float64) string {
	switch {
	case v > 0.3:
		return "positive"
	case v < -0.3:
		return "negative"
	default:
		return "neutral"
	}
}

func intensityLabel(v float64) string {
	switch {
	case v > 0.7:
		return "strong"
	case v > 0.4:
		return "moderate"
	default:
		return "calm"
	}
}
