package service

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"mindtrack-backend/internal/model"
	"mindtrack-backend/internal/repository"
	"mindtrack-backend/utilities"
)

const defaultTotalGoals = 5

// ProgressInput is one self reported daily check-in.
type ProgressInput struct {
	OverallWellness float64            `json:"overall_wellness"`
	ScreenTime      float64            `json:"screen_time"`
	MoodScore       float64            `json:"mood_score"`
	PlatformUsage   map[string]float64 `json:"platform_usage"`
}

type ProgressService interface {
	GetProgress(ctx context.Context, userID string, days int) ([]model.ProgressEntry, error)
	RecordProgress(ctx context.Context, userID string, in ProgressInput) (*model.ProgressEntry, error)
}

type progressService struct {
	repos *repository.Repositories
	bus   *utilities.EventBus
	now   func() time.Time
}

func NewProgressService(repos *repository.Repositories, bus *utilities.EventBus) ProgressService {
	return &progressService{repos: repos, bus: bus, now: time.Now}
}

// GetProgress returns the entries of the last days days, oldest first.
func (s *progressService) GetProgress(ctx context.Context, userID string, days int) ([]model.ProgressEntry, error) {
	if days <= 0 {
		days = 7
	}
	if days > 365 {
		return nil, invalid("days must be at most 365")
	}
	return s.repos.Progress.GetProgressSince(ctx, userID, s.now().UTC().AddDate(0, 0, -days))
}

func (s *progressService) RecordProgress(ctx context.Context, userID string, in ProgressInput) (*model.ProgressEntry, error) {
	if in.OverallWellness < 0 || in.OverallWellness > 10 || in.MoodScore < 0 || in.MoodScore > 10 {
		return nil, invalid("overall_wellness and mood_score must be between 0 and 10")
	}
	if in.ScreenTime < 0 || in.ScreenTime > 24 {
		return nil, invalid("screen_time must be between 0 and 24 hours")
	}
	for platform, hours := range in.PlatformUsage {
		if hours < 0 {
			return nil, invalid("platform_usage for %s must not be negative", platform)
		}
	}

	usage := in.PlatformUsage
	if usage == nil {
		usage = map[string]float64{}
	}
	usageJSON, err := json.Marshal(usage)
	if err != nil {
		return nil, err
	}
	completed, err := s.repos.Goals.CountCompleted(ctx, userID)
	if err != nil {
		return nil, err
	}

	entry := &model.ProgressEntry{
		UserID:          userID,
		Date:            s.now().UTC(),
		OverallWellness: in.OverallWellness,
		ScreenTime:      in.ScreenTime,
		MoodScore:       in.MoodScore,
		PlatformUsage:   datatypes.JSON(usageJSON),
		GoalsCompleted:  completed,
		TotalGoals:      defaultTotalGoals,
	}
	if err := s.repos.Progress.CreateProgress(ctx, entry); err != nil {
		return nil, err
	}
	if s.bus != nil {
		s.bus.Publish(utilities.EventProgressRecorded, utilities.UserEvent{UserID: userID, Ref: entry.ID})
	}
	return entry, nil
}
