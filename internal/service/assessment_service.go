package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"mindtrack-backend/internal/config"
	"mindtrack-backend/internal/metrics"
	"mindtrack-backend/internal/model"
	"mindtrack-backend/internal/repository"
	"mindtrack-backend/internal/scoring"
	"mindtrack-backend/utilities"
)

// Transactor runs a unit of work in one database transaction.
type Transactor interface {
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// AssessmentResult is returned by SubmitAssessment.
type AssessmentResult struct {
	Assessment      *model.Assessment        `json:"assessment"`
	Insight         *model.Insight           `json:"insight"`
	Recommendations []scoring.Recommendation `json:"recommendations"`
	Goals           []model.UserGoal         `json:"goals"`
	ConfidenceScore int                      `json:"confidence_score"`
}

type AssessmentService interface {
	SubmitAssessment(ctx context.Context, userID, platform string, responses map[string]interface{}) (*AssessmentResult, error)
	GetAssessments(ctx context.Context, userID string) ([]model.Assessment, error)
	GetLatestAssessment(ctx context.Context, userID, platform string) (*model.Assessment, error)
}

type assessmentService struct {
	engine   *scoring.Engine
	repos    *repository.Repositories
	tx       Transactor
	enricher InsightEnricher
	metrics  *metrics.Metrics
	bus      *utilities.EventBus
	goals    config.GoalsConfig
	now      func() time.Time
}

// NewAssessmentService wires the scoring pipeline. enricher may be nil when
// no text generation provider is configured.
func NewAssessmentService(
	engine *scoring.Engine,
	repos *repository.Repositories,
	tx Transactor,
	enricher InsightEnricher,
	m *metrics.Metrics,
	bus *utilities.EventBus,
	goals config.GoalsConfig,
) AssessmentService {
	return &assessmentService{
		engine:   engine,
		repos:    repos,
		tx:       tx,
		enricher: enricher,
		metrics:  m,
		bus:      bus,
		goals:    goals,
		now:      time.Now,
	}
}

// CoerceResponses keeps string answers and drops every other JSON value.
func CoerceResponses(raw map[string]interface{}) scoring.Responses {
	out := make(scoring.Responses, len(raw))
	for k, v := range raw {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			out[k] = s
		}
	}
	return out
}

// SubmitAssessment scores the answers, optionally enriches the insight and
// stores the assessment, insight and seeded goals together.
func (s *assessmentService) SubmitAssessment(ctx context.Context, userID, platform string, raw map[string]interface{}) (*AssessmentResult, error) {
	def, ok := s.engine.Catalog().Platform(platform)
	if !ok {
		return nil, invalid("unsupported platform %q", platform)
	}
	responses := CoerceResponses(raw)
	if len(responses) == 0 {
		return nil, invalid("responses are required")
	}
	platform = string(def.Name)

	result, recs := s.engine.Assess(platform, responses)
	s.metrics.ObserveAssessment(platform, string(result.RiskLevel))

	keyInsight, enriched := s.enrich(ctx, EnrichmentInput{
		Platform:    platform,
		DisplayName: def.DisplayName,
		Responses:   responses,
		Result:      result,
	}, result.PersonalizedInsight)

	responsesJSON, err := json.Marshal(responses)
	if err != nil {
		return nil, err
	}
	recsJSON, err := json.Marshal(recs)
	if err != nil {
		return nil, err
	}

	assessment := &model.Assessment{
		UserID:          userID,
		Platform:        platform,
		Responses:       datatypes.JSON(responsesJSON),
		OverallScore:    result.OverallScore,
		MoodScore:       result.MoodScore,
		UsageScore:      result.UsageScore,
		ComparisonScore: result.ComparisonScore,
		ConfidenceScore: result.ConfidenceScore,
		RiskLevel:       string(result.RiskLevel),
	}
	insight := &model.Insight{
		UserID:          userID,
		KeyInsight:      keyInsight,
		Recommendations: datatypes.JSON(recsJSON),
		RiskLevel:       string(result.RiskLevel),
		Enriched:        enriched,
	}

	seeds := recs
	if len(seeds) == 0 && s.goals.SeedDefaults {
		seeds = s.engine.DefaultRecommendations(platform)
	}
	if len(seeds) > s.goals.PerAssessment {
		seeds = seeds[:s.goals.PerAssessment]
	}

	var goals []model.UserGoal
	err = s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		repos := s.repos.WithTx(tx)
		if err := repos.Assessments.CreateAssessment(ctx, assessment); err != nil {
			return err
		}
		insight.AssessmentID = &assessment.ID
		if err := repos.Insights.CreateInsight(ctx, insight); err != nil {
			return err
		}
		due := s.now().Add(s.goals.Horizon())
		for _, rec := range seeds {
			goal := goalFromRecommendation(userID, assessment.ID, rec, due)
			if err := repos.Goals.CreateGoal(ctx, &goal); err != nil {
				return err
			}
			goals = append(goals, goal)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store assessment: %w", err)
	}

	utilities.Info("assessment %s scored for user %s: platform=%s risk=%s overall=%.1f goals=%d",
		assessment.ID, userID, platform, result.RiskLevel, result.OverallScore, len(goals))
	if s.bus != nil {
		s.bus.Publish(utilities.EventAssessmentCompleted, utilities.UserEvent{UserID: userID, Ref: assessment.ID})
	}

	return &AssessmentResult{
		Assessment:      assessment,
		Insight:         insight,
		Recommendations: recs,
		Goals:           goals,
		ConfidenceScore: result.ConfidenceScore,
	}, nil
}

// enrich returns the enriched sentence, or fallback when enrichment is
// unavailable or fails for any reason.
func (s *assessmentService) enrich(ctx context.Context, in EnrichmentInput, fallback string) (string, bool) {
	if s.enricher == nil {
		s.metrics.ObserveEnrichment(metrics.OutcomeFallback)
		return fallback, false
	}
	text, err := s.enricher.Enrich(ctx, in)
	if err != nil {
		utilities.Warn("insight enrichment failed for %s, using computed insight: %v", in.Platform, err)
		return fallback, false
	}
	return text, true
}

func goalFromRecommendation(userID, assessmentID string, rec scoring.Recommendation, due time.Time) model.UserGoal {
	target := 1
	if rec.Category == scoring.CategoryTimeLimit {
		target = 30
	}
	return model.UserGoal{
		UserID:       userID,
		AssessmentID: &assessmentID,
		Title:        rec.Title,
		Description:  rec.Description,
		Category:     string(rec.Category),
		TargetValue:  target,
		DueDate:      &due,
	}
}

func (s *assessmentService) GetAssessments(ctx context.Context, userID string) ([]model.Assessment, error) {
	return s.repos.Assessments.GetAssessments(ctx, userID)
}

// GetLatestAssessment returns the newest assessment, for one platform when
// platform is non-empty.
func (s *assessmentService) GetLatestAssessment(ctx context.Context, userID, platform string) (*model.Assessment, error) {
	if platform != "" {
		def, ok := s.engine.Catalog().Platform(platform)
		if !ok {
			return nil, invalid("unsupported platform %q", platform)
		}
		platform = string(def.Name)
	}
	return s.repos.Assessments.GetLatestAssessment(ctx, userID, platform)
}
