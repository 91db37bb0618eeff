package scoring

import (
	"fmt"
	"math"
	"strings"
)

var (
	legacyRiskMarkers     = []string{"overwhelming", "drained", "anxious", "affected", "significantly", "deeply"}
	legacyPositiveMarkers = []string{"positive", "energized", "supports", "connected", "helpful", "inspiring"}
)

// Analysis is the coarse result of the legacy keyword analysis.
type Analysis struct {
	OverallScore    float64          `json:"overall_score"`
	MoodScore       float64          `json:"mood_score"`
	UsageScore      float64          `json:"usage_score"`
	ComparisonScore float64          `json:"comparison_score"`
	RiskLevel       RiskLevel        `json:"risk_level"`
	KeyInsight      string           `json:"key_insight"`
	Recommendations []Recommendation `json:"recommendations"`
}

// FallbackAnalysis is the keyword based analysis used when neither the
// engine's weights nor an AI provider apply. It matches substrings of the
// answer values across every answered question, weighted or not.
func (e *Engine) FallbackAnalysis(platform string, responses Responses) Analysis {
	var total, risk, positive int
	for _, v := range responses {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		total++
		if containsAny(v, legacyRiskMarkers) {
			risk++
		}
		if containsAny(v, legacyPositiveMarkers) {
			positive++
		}
	}

	denom := float64(max(total, 1))
	riskRatio := float64(risk) / denom
	positiveRatio := float64(positive) / denom

	level, overall := RiskModerate, 6.0
	switch {
	case riskRatio > 0.4:
		level, overall = RiskHigh, 4
	case positiveRatio > 0.4:
		level, overall = RiskLow, 8
	}

	comparison := 6.0
	focus := "maintaining healthy boundaries"
	if level == RiskHigh {
		comparison = 4
		focus = "reducing time and managing triggers"
	}

	display := e.catalog.DisplayName(platform)
	return Analysis{
		OverallScore:    overall,
		MoodScore:       math.Max(3, overall-1),
		UsageScore:      math.Max(3, overall-2),
		ComparisonScore: comparison,
		RiskLevel:       level,
		KeyInsight:      fmt.Sprintf("Your %s usage shows %s risk patterns. Focus on %s.", display, level, focus),
		Recommendations: e.DefaultRecommendations(platform),
	}
}

// DefaultRecommendations are the three generic items offered when nothing
// more specific is known.
func (e *Engine) DefaultRecommendations(platform string) []Recommendation {
	display := e.catalog.DisplayName(platform)
	return []Recommendation{
		{
			Title:       fmt.Sprintf("Set %s time limits", display),
			Description: fmt.Sprintf("Consider using app timers to limit daily %s usage", display),
			Category:    CategoryTimeLimit,
			Impact:      ImpactHigh,
			Actionable:  true,
			Priority:    1,
		},
		{
			Title:       "Practice mindful browsing",
			Description: "Take breaks between scrolling sessions to check in with yourself",
			Category:    CategoryMindfulBrowsing,
			Impact:      ImpactMedium,
			Actionable:  true,
			Priority:    2,
		},
		{
			Title:       "Curate your feed",
			Description: "Unfollow accounts that make you feel negative emotions",
			Category:    CategoryFeedCuration,
			Impact:      ImpactHigh,
			Actionable:  true,
			Priority:    2,
		},
	}
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
