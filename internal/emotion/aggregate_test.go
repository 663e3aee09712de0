package emotion

import (
	"fmt"
	"testing"
	"time"

	"github.com/easeaico/companion-chat/internal/types"
)

func analysisOf(emotion types.EmotionType, keywords string, at time.Time) types.EmotionAnalysis {
	a := types.EmotionAnalysis{EmotionType: emotion, Confidence: 0.8, Keywords: keywords, CreatedAt: at}
	a.ApplyDefaults()
	return a
}

func TestSummarizeEmpty(t *testing.T) {
	stats := Summarize(nil)
	if stats.TotalAnalyses != 0 || stats.PositiveRatio != 0 || stats.NegativeRatio != 0 || stats.NeutralRatio != 0 {
		t.Fatalf("expected zero ratios, got %#v", stats)
	}
	if stats.HealthScore != 50 || stats.HealthLevel != HealthFair {
		t.Fatalf("expected neutral health 50/fair, got %v/%v", stats.HealthScore, stats.HealthLevel)
	}
	if stats.DominantEmotion != "" || len(stats.Keywords) != 0 {
		t.Fatalf("expected no dominant emotion or keywords")
	}
}

func TestSummarizeRatiosAndHealth(t *testing.T) {
	now := time.Now()
	analyses := []types.EmotionAnalysis{
		analysisOf(types.EmotionJoy, "happy,today", now),
		analysisOf(types.EmotionJoy, "happy", now),
		analysisOf(types.EmotionSadness, "crying", now),
		analysisOf(types.EmotionNeutral, "", now),
	}
	stats := Summarize(analyses)

	if !almostEqual(stats.PositiveRatio+stats.NegativeRatio+stats.NeutralRatio, 1) {
		t.Fatalf("expected ratios to sum to 1, got %#v", stats)
	}
	if stats.PositiveRatio != 0.5 || stats.NegativeRatio != 0.25 || stats.NeutralRatio != 0.25 {
		t.Fatalf("unexpected ratios: %v/%v/%v", stats.PositiveRatio, stats.NegativeRatio, stats.NeutralRatio)
	}
	// (0.5 - 0.375 + 1) / 2 * 100
	if !almostEqual(stats.HealthScore, 56.25) || stats.HealthLevel != HealthFair {
		t.Fatalf("unexpected health: %v %v", stats.HealthScore, stats.HealthLevel)
	}
	if stats.Distribution["喜悦"] != 2 || stats.Distribution["悲伤"] != 1 || stats.Distribution["中性"] != 1 {
		t.Fatalf("unexpected distribution: %#v", stats.Distribution)
	}
	if stats.DominantEmotion != types.EmotionJoy {
		t.Fatalf("expected JOY dominant, got %s", stats.DominantEmotion)
	}
	if len(stats.Keywords) != 3 || stats.Keywords[0] != (KeywordCount{"happy", 2}) {
		t.Fatalf("unexpected keyword cloud: %#v", stats.Keywords)
	}
}

func TestHealthScoreClamps(t *testing.T) {
	if got := HealthScore(0, 1); got != 0 {
		t.Fatalf("expected clamp at 0, got %v", got)
	}
	if got := HealthScore(1, 0); got != 100 {
		t.Fatalf("expected 100, got %v", got)
	}
}

func TestLevelOfBands(t *testing.T) {
	tests := map[float64]HealthLevel{
		100: HealthExcellent, 80: HealthExcellent, 79.9: HealthGood, 60: HealthGood,
		40: HealthFair, 20: HealthNeedsAttention, 19.9: HealthNeedsImprovement, 0: HealthNeedsImprovement,
	}
	for score, want := range tests {
		if got := LevelOf(score); got != want {
			t.Fatalf("%v: expected %v, got %v", score, want, got)
		}
	}
}

func TestDominantEmotionTieUsesTaxonomyOrder(t *testing.T) {
	now := time.Now()
	analyses := []types.EmotionAnalysis{
		analysisOf(types.EmotionCalm, "", now),
		analysisOf(types.EmotionAnger, "", now),
	}
	if got := DominantEmotion(analyses); got != types.EmotionAnger {
		t.Fatalf("expected ANGER to win the tie, got %s", got)
	}
}

func TestKeywordCloudTopFifty(t *testing.T) {
	var analyses []types.EmotionAnalysis
	for i := 0; i < 60; i++ {
		analyses = append(analyses, analysisOf(types.EmotionJoy, fmt.Sprintf("kw%02d, shared ,", i), time.Now()))
	}
	cloud := KeywordCloud(analyses)
	if len(cloud) != 50 {
		t.Fatalf("expected 50 entries, got %d", len(cloud))
	}
	if cloud[0] != (KeywordCount{"shared", 60}) {
		t.Fatalf("expected shared first, got %#v", cloud[0])
	}
	if cloud[1].Keyword != "kw00" {
		t.Fatalf("expected alphabetical tie-break, got %#v", cloud[1])
	}
}

func TestTrendGroupsByCalendarDay(t *testing.T) {
	loc := time.FixedZone("CST", 8*3600)
	day1 := time.Date(2026, 3, 1, 23, 30, 0, 0, loc)
	// 16:30 UTC on Mar 1 is already Mar 2 in CST.
	day2 := time.Date(2026, 3, 1, 16, 30, 0, 0, time.UTC)
	analyses := []types.EmotionAnalysis{
		analysisOf(types.EmotionSadness, "", day2),
		analysisOf(types.EmotionJoy, "", day1),
		analysisOf(types.EmotionLove, "", day1),
	}

	points := Trend(analyses, loc)
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %#v", points)
	}
	if points[0].Date != "2026-03-01" || points[1].Date != "2026-03-02" {
		t.Fatalf("expected ascending dates, got %s, %s", points[0].Date, points[1].Date)
	}
	if points[0].Count != 2 || !almostEqual(points[0].AverageValence, 0.85) || points[0].ValenceLabel != "positive" {
		t.Fatalf("unexpected first point: %#v", points[0])
	}
	if points[0].IntensityLabel != "strong" {
		t.Fatalf("expected strong intensity, got %s", points[0].IntensityLabel)
	}
	if points[1].ValenceLabel != "negative" || points[1].Count != 1 {
		t.Fatalf("unexpected second point: %#v", points[1])
	}
}
