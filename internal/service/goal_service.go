package service

import (
	"context"
	"strings"
	"time"

	"mindtrack-backend/internal/model"
	"mindtrack-backend/internal/repository"
	"mindtrack-backend/internal/scoring"
	"mindtrack-backend/utilities"
)

// GoalInput creates a user defined goal.
type GoalInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	TargetValue int        `json:"target_value"`
	DueDate     *time.Time `json:"due_date"`
}

// GoalUpdate changes the progress of an existing goal.
type GoalUpdate struct {
	CurrentValue int   `json:"current_value"`
	Completed    *bool `json:"completed"`
}

type GoalService interface {
	GetGoals(ctx context.Context, userID string) ([]model.UserGoal, error)
	CreateGoal(ctx context.Context, userID string, in GoalInput) (*model.UserGoal, error)
	UpdateGoal(ctx context.Context, userID, goalID string, in GoalUpdate) (*model.UserGoal, error)
}

type goalService struct {
	goals repository.GoalRepository
	bus   *utilities.EventBus
}

func NewGoalService(goals repository.GoalRepository, bus *utilities.EventBus) GoalService {
	return &goalService{goals: goals, bus: bus}
}

var goalCategories = map[string]bool{
	string(scoring.CategoryTimeLimit):       true,
	string(scoring.CategoryMindfulBrowsing): true,
	string(scoring.CategoryFeedCuration):    true,
	string(scoring.CategoryGratitude):       true,
	string(scoring.CategorySkillBuilding):   true,
	"custom":                                true,
}

func (s *goalService) GetGoals(ctx context.Context, userID string) ([]model.UserGoal, error) {
	return s.goals.GetGoals(ctx, userID)
}

func (s *goalService) CreateGoal(ctx context.Context, userID string, in GoalInput) (*model.UserGoal, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, invalid("title is required")
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = "custom"
	}
	if !goalCategories[category] {
		return nil, invalid("unknown goal category %q", category)
	}
	if in.TargetValue < 0 {
		return nil, invalid("target_value must not be negative")
	}
	target := in.TargetValue
	if target == 0 {
		target = 1
	}

	goal := &model.UserGoal{
		UserID:      userID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Category:    category,
		TargetValue: target,
		DueDate:     in.DueDate,
	}
	if err := s.goals.CreateGoal(ctx, goal); err != nil {
		return nil, err
	}
	s.publish(userID, goal.ID)
	return goal, nil
}

// UpdateGoal only touches goals owned by userID; others report not found.
func (s *goalService) UpdateGoal(ctx context.Context, userID, goalID string, in GoalUpdate) (*model.UserGoal, error) {
	if in.CurrentValue < 0 {
		return nil, invalid("current_value must not be negative")
	}
	goal, err := s.goals.UpdateProgress(ctx, userID, goalID, in.CurrentValue, in.Completed)
	if err != nil {
		return nil, err
	}
	s.publish(userID, goal.ID)
	return goal, nil
}

func (s *goalService) publish(userID, goalID string) {
	if s.bus != nil {
		s.bus.Publish(utilities.EventGoalUpdated, utilities.UserEvent{UserID: userID, Ref: goalID})
	}
}
