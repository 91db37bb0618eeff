package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"mindtrack-backend/internal/llm"
	"mindtrack-backend/internal/metrics"
	"mindtrack-backend/internal/model"
	"mindtrack-backend/internal/repository"
	"mindtrack-backend/utilities"
)

type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

const (
	trendWindowDays   = 30
	trendAssessments  = 5
	trendSignificance = 0.5
)

var trendFallbackText = map[Trend]string{
	TrendImproving: "Your wellness scores are trending upward. Keep leaning on the habits that are working for you.",
	TrendStable:    "Continue monitoring your digital wellness patterns. Small, consistent changes can lead to meaningful improvements.",
	TrendDeclining: "Your wellness scores have dipped recently. Revisit your goals and try shorter, more intentional sessions.",
}

// TrendInsight is the outcome of a personalised trend analysis.
type TrendInsight struct {
	Insight string `json:"insight"`
	Trend   Trend  `json:"trend"`
}

type InsightService interface {
	GetInsights(ctx context.Context, userID string) ([]model.Insight, error)
	GetLatestInsight(ctx context.Context, userID string) (*model.Insight, error)
	GenerateTrendInsight(ctx context.Context, userID string) (*TrendInsight, error)
}

type insightService struct {
	repos   *repository.Repositories
	client  llm.Client
	timeout time.Duration
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewInsightService(repos *repository.Repositories, client llm.Client, timeout time.Duration, m *metrics.Metrics) InsightService {
	return &insightService{repos: repos, client: client, timeout: timeout, metrics: m, now: time.Now}
}

func (s *insightService) GetInsights(ctx context.Context, userID string) ([]model.Insight, error) {
	return s.repos.Insights.GetInsights(ctx, userID)
}

func (s *insightService) GetLatestInsight(ctx context.Context, userID string) (*model.Insight, error) {
	return s.repos.Insights.GetLatestInsight(ctx, userID)
}

type progressPoint struct {
	Date            time.Time `json:"date"`
	OverallWellness float64   `json:"overall_wellness"`
	ScreenTime      float64   `json:"screen_time"`
	MoodScore       float64   `json:"mood_score"`
}

type assessmentPoint struct {
	Platform     string    `json:"platform"`
	OverallScore float64   `json:"overall_score"`
	CreatedAt    time.Time `json:"created_at"`
}

// GenerateTrendInsight analyses the last 30 days of progress and the most
// recent assessments, then stores the result as a new insight.
func (s *insightService) GenerateTrendInsight(ctx context.Context, userID string) (*TrendInsight, error) {
	entries, err := s.repos.Progress.GetProgressSince(ctx, userID, s.now().AddDate(0, 0, -trendWindowDays))
	if err != nil {
		return nil, err
	}
	assessments, err := s.repos.Assessments.GetRecentAssessments(ctx, userID, trendAssessments)
	if err != nil {
		return nil, err
	}

	progress := make([]progressPoint, 0, len(entries))
	for _, e := range entries {
		progress = append(progress, progressPoint{e.Date, e.OverallWellness, e.ScreenTime, e.MoodScore})
	}
	recent := make([]assessmentPoint, 0, len(assessments))
	for _, a := range assessments {
		recent = append(recent, assessmentPoint{a.Platform, a.OverallScore, a.CreatedAt})
	}

	result, enriched := s.fromLLM(ctx, progress, recent)
	if !enriched {
		result = fallbackTrendInsight(progress, recent)
	}

	if err := s.repos.Insights.CreateInsight(ctx, &model.Insight{
		UserID:     userID,
		KeyInsight: result.Insight,
		Trend:      string(result.Trend),
		Enriched:   enriched,
	}); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *insightService) fromLLM(ctx context.Context, progress []progressPoint, recent []assessmentPoint) (*TrendInsight, bool) {
	if s.client == nil {
		s.metrics.ObserveEnrichment(metrics.OutcomeFallback)
		return nil, false
	}

	progressJSON, _ := json.Marshal(progress)
	recentJSON, _ := json.Marshal(recent)
	prompt := fmt.Sprintf(`Analyze this user's mental health and social media usage trends to provide a personalized insight.

Progress data: %s
Recent assessments: %s

Provide analysis in JSON format:
- insight: string (2-3 sentences about their progress and patterns)
- trend: "improving", "stable", or "declining"

Focus on positive reinforcement and actionable observations.`, progressJSON, recentJSON)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	raw, err := s.client.Chat(ctx, []llm.ChatMessage{{Role: llm.RoleUser, Content: prompt}}, llm.Options{JSON: true, Temperature: 0.4})
	s.metrics.ObserveLLM("trend", time.Since(start).Seconds())
	if err != nil {
		utilities.Warn("trend insight generation failed: %v", err)
		s.metrics.ObserveEnrichment(metrics.OutcomeFallback)
		return nil, false
	}

	var reply TrendInsight
	if err := decodeLLMJSON(raw, &reply); err != nil || strings.TrimSpace(reply.Insight) == "" {
		utilities.Warn("trend insight reply unusable: %v", err)
		s.metrics.ObserveEnrichment(metrics.OutcomeFallback)
		return nil, false
	}
	switch reply.Trend {
	case TrendImproving, TrendStable, TrendDeclining:
	default:
		reply.Trend = TrendStable
	}
	s.metrics.ObserveEnrichment(metrics.OutcomeEnriched)
	return &reply, true
}

// fallbackTrendInsight derives the trend from the change in overall wellness
// between the earliest and latest progress entries. Assessment scores stand in
// when fewer than two progress entries exist.
func fallbackTrendInsight(progress []progressPoint, recent []assessmentPoint) *TrendInsight {
	var values []float64
	if len(progress) >= 2 {
		for _, p := range progress {
			values = append(values, p.OverallWellness)
		}
	} else {
		// recent is newest first.
		for i := len(recent) - 1; i >= 0; i-- {
			values = append(values, recent[i].OverallScore)
		}
	}

	trend := TrendStable
	if len(values) >= 2 {
		delta := values[len(values)-1] - values[0]
		switch {
		case delta >= trendSignificance:
			trend = TrendImproving
		case delta <= -trendSignificance:
			trend = TrendDeclining
		}
	}
	return &TrendInsight{Insight: trendFallbackText[trend], Trend: trend}
}
