// Package scoring turns questionnaire answers into wellness scores, a risk
// classification and ranked recommendations. Everything here is a pure
// function of its inputs; nothing performs I/O.
package scoring

import (
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"strings"

	"mindtrack-backend/internal/catalog"
)

// Responses maps a question id to the chosen option value.
type Responses map[string]string

type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
)

const (
	positiveScore = 8.0
	negativeScore = 3.0
	riskScore     = 2.0
	neutralScore  = 5.0

	minScore = 1.0
	maxScore = 10.0

	highRiskRatio       = 0.4
	lowRiskProtective   = 0.6
	usagePenaltyRatio   = 0.3
	comparisonBonusRate = 0.5
)

// Result is the outcome of scoring one response set.
type Result struct {
	Platform            string    `json:"platform"`
	OverallScore        float64   `json:"overall_score"`
	MoodScore           float64   `json:"mood_score"`
	UsageScore          float64   `json:"usage_score"`
	ComparisonScore     float64   `json:"comparison_score"`
	RiskLevel           RiskLevel `json:"risk_level"`
	ConfidenceScore     int       `json:"confidence_score"`
	PersonalizedInsight string    `json:"personalized_insight"`
	RiskFactors         int       `json:"risk_factors"`
	ProtectiveFactors   int       `json:"protective_factors"`
	AnsweredQuestions   int       `json:"answered_questions"`
}

// Engine scores responses against a question catalog.
type Engine struct {
	catalog *catalog.Catalog
}

func NewEngine(c *catalog.Catalog) *Engine {
	if c == nil {
		c = catalog.Default()
	}
	return &Engine{catalog: c}
}

func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// ComputeScores never fails: unknown platforms and empty answers degrade to a
// neutral result with zero confidence.
func (e *Engine) ComputeScores(platform string, responses Responses) Result {
	weights := e.catalog.Weights(platform)

	var (
		weightedSum, weightTotal float64
		risk, protective         int
		processed                int
		answered                 []string
	)
	for _, w := range weights {
		value := strings.TrimSpace(responses[w.ID])
		if value == "" {
			continue
		}

		score := neutralScore
		switch {
		case w.IsPositive(value):
			score = positiveScore
			protective++
		case w.IsNegative(value):
			score = negativeScore
			if w.IsRisk(value) {
				score = riskScore
				risk++
			}
		case w.IsRisk(value):
			score = riskScore
			risk++
		}

		weightedSum += score * w.Weight
		weightTotal += w.Weight
		processed++
		answered = append(answered, w.ID+"="+value)
	}

	base := neutralScore
	if weightTotal > 0 {
		base = weightedSum / weightTotal
	}

	var riskRatio, protectiveRatio float64
	if processed > 0 {
		riskRatio = float64(risk) / float64(processed)
		protectiveRatio = float64(protective) / float64(processed)
	}

	level := classifyRisk(riskRatio, protectiveRatio)
	overall := base
	switch level {
	case RiskHigh:
		overall = math.Max(minScore, base-2)
	case RiskLow:
		overall = math.Min(maxScore, base+1)
	}
	overall = clamp(overall)

	usage := overall + 0.5
	if riskRatio > usagePenaltyRatio {
		usage = overall - 1.5
	}
	comparison := overall - 1
	if protectiveRatio > comparisonBonusRate {
		comparison = overall + 1
	}

	confidence := 0
	if len(weights) > 0 {
		confidence = int(math.Round(math.Min(100, 100*float64(processed)/float64(len(weights)))))
	}

	display := e.catalog.DisplayName(platform)
	insight := degradedInsight(display)
	if processed > 0 {
		insight = bandInsight(overall, display, risk, protective)
	}

	return Result{
		Platform:            strings.ToLower(strings.TrimSpace(platform)),
		OverallScore:        round1(overall),
		MoodScore:           round1(clamp(overall + moodOffset(platform, answered))),
		UsageScore:          round1(clamp(usage)),
		ComparisonScore:     round1(clamp(comparison)),
		RiskLevel:           level,
		ConfidenceScore:     confidence,
		PersonalizedInsight: insight,
		RiskFactors:         risk,
		ProtectiveFactors:   protective,
		AnsweredQuestions:   processed,
	}
}

// classifyRisk checks high before low, so a set meeting both is high.
func classifyRisk(riskRatio, protectiveRatio float64) RiskLevel {
	switch {
	case riskRatio >= highRiskRatio:
		return RiskHigh
	case protectiveRatio >= lowRiskProtective:
		return RiskLow
	default:
		return RiskModerate
	}
}

// moodOffset derives a reproducible perturbation in [-1, 1] from the
// answered weighted questions. No answers means no perturbation.
func moodOffset(platform string, answered []string) float64 {
	if len(answered) == 0 {
		return 0
	}
	pairs := append([]string(nil), answered...)
	sort.Strings(pairs)

	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s", strings.ToLower(strings.TrimSpace(platform)), strings.Join(pairs, "&"))
	return float64(h.Sum64()%2001)/1000 - 1
}

func clamp(v float64) float64 {
	return math.Max(minScore, math.Min(maxScore, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
