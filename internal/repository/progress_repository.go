package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"mindtrack-backend/internal/model"
)

type ProgressRepository interface {
	CreateProgress(ctx context.Context, entry *model.ProgressEntry) error
	GetProgressSince(ctx context.Context, userID string, since time.Time) ([]model.ProgressEntry, error)
	GetLatestProgress(ctx context.Context, userID string) (*model.ProgressEntry, error)
}

type progressRepository struct {
	db *gorm.DB
}

func NewProgressRepository(db *gorm.DB) ProgressRepository {
	return &progressRepository{db: db}
}

func (r *progressRepository) CreateProgress(ctx context.Context, entry *model.ProgressEntry) error {
	if entry.Date.IsZero() {
		entry.Date = time.Now().UTC()
	}
	return wrap("create progress", r.db.WithContext(ctx).Create(entry).Error)
}

// GetProgressSince returns entries on or after since, oldest first.
func (r *progressRepository) GetProgressSince(ctx context.Context, userID string, since time.Time) ([]model.ProgressEntry, error) {
	var entries []model.ProgressEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND date >= ?", userID, since).
		Order("date asc").
		Find(&entries).Error
	if err != nil {
		return nil, wrap("list progress", err)
	}
	return entries, nil
}

func (r *progressRepository) GetLatestProgress(ctx context.Context, userID string) (*model.ProgressEntry, error) {
	var entry model.ProgressEntry
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("date desc").First(&entry).Error; err != nil {
		return nil, wrap("latest progress", err)
	}
	return &entry, nil
}
