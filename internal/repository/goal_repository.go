package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"mindtrack-backend/internal/model"
)

type GoalRepository interface {
	CreateGoal(ctx context.Context, goal *model.UserGoal) error
	GetGoals(ctx context.Context, userID string) ([]model.UserGoal, error)
	GetActiveGoals(ctx context.Context, userID string, limit int) ([]model.UserGoal, error)
	GetGoal(ctx context.Context, userID, goalID string) (*model.UserGoal, error)
	UpdateProgress(ctx context.Context, userID, goalID string, currentValue int, completed *bool) (*model.UserGoal, error)
	CountCompleted(ctx context.Context, userID string) (int, error)
}

type goalRepository struct {
	db *gorm.DB
}

func NewGoalRepository(db *gorm.DB) GoalRepository {
	return &goalRepository{db: db}
}

func (r *goalRepository) CreateGoal(ctx context.Context, goal *model.UserGoal) error {
	return wrap("create goal", r.db.WithContext(ctx).Create(goal).Error)
}

func (r *goalRepository) GetGoals(ctx context.Context, userID string) ([]model.UserGoal, error) {
	var goals []model.UserGoal
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc").Find(&goals).Error
	if err != nil {
		return nil, wrap("list goals", err)
	}
	return goals, nil
}

func (r *goalRepository) GetActiveGoals(ctx context.Context, userID string, limit int) ([]model.UserGoal, error) {
	var goals []model.UserGoal
	q := r.db.WithContext(ctx).Where("user_id = ? AND is_completed = ?", userID, false).Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&goals).Error; err != nil {
		return nil, wrap("list active goals", err)
	}
	return goals, nil
}

// GetGoal only matches goals owned by userID.
func (r *goalRepository) GetGoal(ctx context.Context, userID, goalID string) (*model.UserGoal, error) {
	var goal model.UserGoal
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", goalID, userID).First(&goal).Error; err != nil {
		return nil, wrap("get goal", err)
	}
	return &goal, nil
}

// UpdateProgress sets the current value and, when completed is given, the
// completion state. Completing stamps completed_at; reopening clears it.
func (r *goalRepository) UpdateProgress(ctx context.Context, userID, goalID string, currentValue int, completed *bool) (*model.UserGoal, error) {
	var goal *model.UserGoal
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		goal, err = NewGoalRepository(tx).GetGoal(ctx, userID, goalID)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{"current_value": currentValue}
		if completed != nil {
			updates["is_completed"] = *completed
			if *completed && goal.CompletedAt == nil {
				now := time.Now().UTC()
				updates["completed_at"] = &now
			} else if !*completed {
				updates["completed_at"] = nil
			}
		}
		if err := tx.Model(goal).Updates(updates).Error; err != nil {
			return wrap("update goal", err)
		}
		return tx.Where("id = ?", goalID).First(goal).Error
	})
	if err != nil {
		return nil, wrap("update goal", err)
	}
	return goal, nil
}

func (r *goalRepository) CountCompleted(ctx context.Context, userID string) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.UserGoal{}).
		Where("user_id = ? AND is_completed = ?", userID, true).
		Count(&count).Error
	return int(count), wrap("count completed goals", err)
}
