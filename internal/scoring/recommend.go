package scoring

import (
	"fmt"
	"sort"
	"strings"

	"mindtrack-backend/internal/catalog"
)

type Category string

const (
	CategoryTimeLimit       Category = "time_limit"
	CategoryMindfulBrowsing Category = "mindful_browsing"
	CategoryFeedCuration    Category = "feed_curation"
	CategoryGratitude       Category = "gratitude"
	CategorySkillBuilding   Category = "skill_building"
)

type Impact string

const (
	ImpactLow    Impact = "low"
	ImpactMedium Impact = "medium"
	ImpactHigh   Impact = "high"
)

// MaxRecommendations caps the generated list.
const MaxRecommendations = 4

type Recommendation struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Impact      Impact   `json:"impact"`
	Actionable  bool     `json:"actionable"`
	Priority    int      `json:"priority"`
}

type ruleInput struct {
	platform  catalog.Platform
	display   string
	responses Responses
	result    Result
}

// rule inspects raw responses and optionally produces a recommendation.
type rule func(in ruleInput) (Recommendation, bool)

// rules are evaluated in order; ties in priority keep this order.
var rules = []rule{
	func(in ruleInput) (Recommendation, bool) {
		if !in.answered("usage_frequency", "regularly") && !in.answered("daily_usage", "more_2hours") {
			return Recommendation{}, false
		}
		priority := 2
		if in.result.RiskLevel == RiskHigh {
			priority = 1
		}
		return Recommendation{
			Title:       fmt.Sprintf("Set %s time limits", in.display),
			Description: fmt.Sprintf("Consider using app timers to limit daily %s usage to 1-2 hours", in.display),
			Category:    CategoryTimeLimit,
			Impact:      ImpactHigh,
			Actionable:  true,
			Priority:    priority,
		}, true
	},
	func(in ruleInput) (Recommendation, bool) {
		if !in.answered("feeling_after", "drained") && !in.answered("emotional_effect", "drained") {
			return Recommendation{}, false
		}
		return Recommendation{
			Title:       "Practice mindful breaks",
			Description: "Take 5-minute mindfulness breaks between social media sessions",
			Category:    CategoryMindfulBrowsing,
			Impact:      ImpactHigh,
			Actionable:  true,
			Priority:    1,
		}, true
	},
	func(in ruleInput) (Recommendation, bool) {
		if !in.answered("comparing_life", "frequently", "almost_always") {
			return Recommendation{}, false
		}
		return Recommendation{
			Title:       "Curate your feed mindfully",
			Description: "Unfollow accounts that trigger comparison or negative emotions",
			Category:    CategoryFeedCuration,
			Impact:      ImpactHigh,
			Actionable:  true,
			Priority:    1,
		}, true
	},
	func(in ruleInput) (Recommendation, bool) {
		if !in.answered("engagement_importance", "affected") && !in.answered("streak_breaks", "upset") {
			return Recommendation{}, false
		}
		return Recommendation{
			Title:       "Reduce engagement pressure",
			Description: "Hide like counts and follower numbers to reduce social pressure",
			Category:    CategoryMindfulBrowsing,
			Impact:      ImpactMedium,
			Actionable:  true,
			Priority:    2,
		}, true
	},
	func(in ruleInput) (Recommendation, bool) {
		if in.platform != catalog.Twitter {
			return Recommendation{}, false
		}
		if !in.answered("online_arguments", "significantly") && !in.answered("trending_topics", "very_often") {
			return Recommendation{}, false
		}
		return Recommendation{
			Title:       "Limit news and debate exposure",
			Description: "Schedule specific times for news consumption and avoid political debates",
			Category:    CategoryMindfulBrowsing,
			Impact:      ImpactHigh,
			Actionable:  true,
			Priority:    1,
		}, true
	},
}

func (in ruleInput) answered(questionID string, values ...string) bool {
	got := strings.TrimSpace(in.responses[questionID])
	if got == "" {
		return false
	}
	for _, v := range values {
		if got == v {
			return true
		}
	}
	return false
}

// GenerateRecommendations evaluates every rule against the raw responses and
// returns at most MaxRecommendations items ordered by ascending priority. An
// empty slice is a valid outcome.
func (e *Engine) GenerateRecommendations(platform string, responses Responses, result Result) []Recommendation {
	in := ruleInput{
		platform:  catalog.Platform(strings.ToLower(strings.TrimSpace(platform))),
		display:   e.catalog.DisplayName(platform),
		responses: responses,
		result:    result,
	}

	recs := make([]Recommendation, 0, len(rules))
	for _, r := range rules {
		if rec, ok := r(in); ok {
			recs = append(recs, rec)
		}
	}

	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Priority < recs[j].Priority })
	if len(recs) > MaxRecommendations {
		recs = recs[:MaxRecommendations]
	}
	return recs
}

// Assess scores responses and derives recommendations in one call.
func (e *Engine) Assess(platform string, responses Responses) (Result, []Recommendation) {
	result := e.ComputeScores(platform, responses)
	return result, e.GenerateRecommendations(platform, responses, result)
}
