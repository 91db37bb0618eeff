package repository

import (
	"context"

	"gorm.io/gorm"

	"mindtrack-backend/internal/model"
)

type InsightRepository interface {
	CreateInsight(ctx context.Context, insight *model.Insight) error
	GetInsights(ctx context.Context, userID string) ([]model.Insight, error)
	GetLatestInsight(ctx context.Context, userID string) (*model.Insight, error)
}

type insightRepository struct {
	db *gorm.DB
}

func NewInsightRepository(db *gorm.DB) InsightRepository {
	return &insightRepository{db: db}
}

func (r *insightRepository) CreateInsight(ctx context.Context, insight *model.Insight) error {
	return wrap("create insight", r.db.WithContext(ctx).Create(insight).Error)
}

func (r *insightRepository) GetInsights(ctx context.Context, userID string) ([]model.Insight, error) {
	var insights []model.Insight
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc").Find(&insights).Error
	if err != nil {
		return nil, wrap("list insights", err)
	}
	return insights, nil
}

func (r *insightRepository) GetLatestInsight(ctx context.Context, userID string) (*model.Insight, error) {
	var insight model.Insight
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc").First(&insight).Error; err != nil {
		return nil, wrap("latest insight", err)
	}
	return &insight, nil
}
