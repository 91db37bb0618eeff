package repository

import (
	"context"
	"sort"

	"gorm.io/gorm"

	"mindtrack-backend/internal/model"
)

type AssessmentRepository interface {
	CreateAssessment(ctx context.Context, assessment *model.Assessment) error
	GetAssessments(ctx context.Context, userID string) ([]model.Assessment, error)
	GetRecentAssessments(ctx context.Context, userID string, limit int) ([]model.Assessment, error)
	GetLatestAssessment(ctx context.Context, userID, platform string) (*model.Assessment, error)
	GetLatestByPlatform(ctx context.Context, userID string) ([]model.Assessment, error)
}

type assessmentRepository struct {
	db *gorm.DB
}

func NewAssessmentRepository(db *gorm.DB) AssessmentRepository {
	return &assessmentRepository{db: db}
}

func (r *assessmentRepository) CreateAssessment(ctx context.Context, assessment *model.Assessment) error {
	return wrap("create assessment", r.db.WithContext(ctx).Create(assessment).Error)
}

// GetAssessments returns the user's assessments, newest first.
func (r *assessmentRepository) GetAssessments(ctx context.Context, userID string) ([]model.Assessment, error) {
	return r.GetRecentAssessments(ctx, userID, 0)
}

func (r *assessmentRepository) GetRecentAssessments(ctx context.Context, userID string, limit int) ([]model.Assessment, error) {
	var assessments []model.Assessment
	q := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&assessments).Error; err != nil {
		return nil, wrap("list assessments", err)
	}
	return assessments, nil
}

// GetLatestAssessment returns the newest assessment, optionally restricted to
// one platform.
func (r *assessmentRepository) GetLatestAssessment(ctx context.Context, userID, platform string) (*model.Assessment, error) {
	var assessment model.Assessment
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if platform != "" {
		q = q.Where("platform = ?", platform)
	}
	if err := q.Order("created_at desc").First(&assessment).Error; err != nil {
		return nil, wrap("latest assessment", err)
	}
	return &assessment, nil
}

// GetLatestByPlatform returns the newest assessment of every platform the user
// has taken, ordered by platform name.
func (r *assessmentRepository) GetLatestByPlatform(ctx context.Context, userID string) ([]model.Assessment, error) {
	all, err := r.GetAssessments(ctx, userID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	latest := make([]model.Assessment, 0, 4)
	for _, a := range all {
		if seen[a.Platform] {
			continue
		}
		seen[a.Platform] = true
		latest = append(latest, a)
	}
	sort.Slice(latest, func(i, j int) bool { return latest[i].Platform < latest[j].Platform })
	return latest, nil
}
