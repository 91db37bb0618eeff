package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"mindtrack-backend/internal/cache"
	"mindtrack-backend/internal/model"
	"mindtrack-backend/internal/repository"
	"mindtrack-backend/utilities"
)

const (
	dashboardHistoryDays = 7
	dashboardActiveGoals = 5
)

// Dashboard is the overview shown after login.
type Dashboard struct {
	LatestProgress      *model.ProgressEntry  `json:"latest_progress"`
	PlatformAssessments []model.Assessment    `json:"platform_assessments"`
	WeeklyProgress      []model.ProgressEntry `json:"weekly_progress"`
	ActiveGoals         []model.UserGoal      `json:"active_goals"`
	CompletedGoals      int                   `json:"completed_goals"`
	TotalGoals          int                   `json:"total_goals"`
}

type DashboardService interface {
	GetDashboard(ctx context.Context, userID string) (*Dashboard, error)
	// Invalidate drops the cached dashboard of userID.
	Invalidate(ctx context.Context, userID string)
}

type dashboardService struct {
	repos *repository.Repositories
	cache cache.DashboardCache
	now   func() time.Time

	// generations counts invalidations per user. A build only writes its
	// payload back when no invalidation happened while it was reading.
	mu          sync.Mutex
	generations map[string]uint64
}

// NewDashboardService subscribes to bus so that any change to a user's
// assessments, goals or progress evicts their cached dashboard before the
// writing call returns.
func NewDashboardService(repos *repository.Repositories, c cache.DashboardCache, bus *utilities.EventBus) DashboardService {
	if c == nil {
		c = cache.Noop{}
	}
	s := &dashboardService{repos: repos, cache: c, now: time.Now, generations: make(map[string]uint64)}
	if bus != nil {
		for _, event := range []string{
			utilities.EventAssessmentCompleted,
			utilities.EventGoalUpdated,
			utilities.EventProgressRecorded,
		} {
			bus.SubscribeSync(event, s.onUserEvent)
		}
	}
	return s
}

func (s *dashboardService) onUserEvent(data interface{}) {
	if ev, ok := data.(utilities.UserEvent); ok {
		s.Invalidate(context.Background(), ev.UserID)
	}
}

func (s *dashboardService) generation(userID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[userID]
}

func (s *dashboardService) Invalidate(ctx context.Context, userID string) {
	s.mu.Lock()
	s.generations[userID]++
	s.mu.Unlock()
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		utilities.Warn("failed to invalidate dashboard cache for %s: %v", userID, err)
	}
}

func (s *dashboardService) GetDashboard(ctx context.Context, userID string) (*Dashboard, error) {
	if payload, err := s.cache.Get(ctx, userID); err != nil {
		utilities.Warn("dashboard cache read failed for %s: %v", userID, err)
	} else if payload != nil {
		var cached Dashboard
		if err := json.Unmarshal(payload, &cached); err == nil {
			return &cached, nil
		}
	}

	gen := s.generation(userID)
	d, err := s.build(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.store(ctx, userID, gen, d)
	return d, nil
}

// store writes d back unless userID was invalidated since gen was read.
// The check and the write share the lock Invalidate bumps the generation
// under, so an invalidation either sees the payload and deletes it or makes
// the write a no-op.
func (s *dashboardService) store(ctx context.Context, userID string, gen uint64, d *Dashboard) {
	payload, err := json.Marshal(d)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generations[userID] != gen {
		return
	}
	if err := s.cache.Set(ctx, userID, payload); err != nil {
		utilities.Warn("dashboard cache write failed for %s: %v", userID, err)
	}
}

func (s *dashboardService) build(ctx context.Context, userID string) (*Dashboard, error) {
	d := &Dashboard{}

	latest, err := s.repos.Progress.GetLatestProgress(ctx, userID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		d.LatestProgress = latest
	}

	if d.PlatformAssessments, err = s.repos.Assessments.GetLatestByPlatform(ctx, userID); err != nil {
		return nil, err
	}
	if d.WeeklyProgress, err = s.repos.Progress.GetProgressSince(ctx, userID, s.now().UTC().AddDate(0, 0, -dashboardHistoryDays)); err != nil {
		return nil, err
	}
	if d.ActiveGoals, err = s.repos.Goals.GetActiveGoals(ctx, userID, dashboardActiveGoals); err != nil {
		return nil, err
	}
	if d.CompletedGoals, err = s.repos.Goals.CountCompleted(ctx, userID); err != nil {
		return nil, err
	}
	d.TotalGoals = len(d.ActiveGoals) + d.CompletedGoals

	if d.PlatformAssessments == nil {
		d.PlatformAssessments = []model.Assessment{}
	}
	if d.WeeklyProgress == nil {
		d.WeeklyProgress = []model.ProgressEntry{}
	}
	if d.ActiveGoals == nil {
		d.ActiveGoals = []model.UserGoal{}
	}
	return d, nil
}
