package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindtrack-backend/internal/llm"
	"mindtrack-backend/internal/metrics"
	"mindtrack-backend/internal/model"
	"mindtrack-backend/internal/repository"
)

func TestFallbackReply(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"I feel so STRESSED lately", chatFallbackStress},
		{"scrolling makes me anxious", chatFallbackStress},
		{"how do I cut my screen time?", chatFallbackTime},
		{"my usage is out of control", chatFallbackTime},
		{"I compare myself to everyone", chatFallbackComparison},
		{"hello", chatFallbackDefault},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FallbackReply(tt.message), tt.message)
	}
}

func TestSendMessageUsesHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fake := &fakeLLM{reply: " Try a short walk after dinner. "}
	svc := NewChatService(env.repos, fake, 2, defaultTimeout, env.metrics)

	for i, text := range []string{"first", "second", "third"} {
		require.NoError(t, env.repos.Chat.CreateMessage(ctx, &model.ChatMessage{
			Base:    model.Base{CreatedAt: time.Now().Add(time.Duration(i-10) * time.Minute)},
			UserID:  "u1",
			Message: text,
			IsBot:   i == 1,
		}))
	}

	reply, err := svc.SendMessage(ctx, "u1", "what now?")
	require.NoError(t, err)
	assert.Equal(t, "Try a short walk after dinner.", reply.BotMessage.Message)
	assert.Equal(t, metrics.SourceLLM, reply.Source)
	assert.True(t, reply.BotMessage.IsBot)

	require.Len(t, fake.calls, 1)
	convo := fake.calls[0]
	require.Len(t, convo, 4)
	assert.Equal(t, llm.RoleSystem, convo[0].Role)
	assert.Equal(t, llm.ChatMessage{Role: llm.RoleAssistant, Content: "second"}, convo[1])
	assert.Equal(t, llm.ChatMessage{Role: llm.RoleUser, Content: "third"}, convo[2])
	assert.Equal(t, llm.ChatMessage{Role: llm.RoleUser, Content: "what now?"}, convo[3])

	history, err := svc.GetHistory(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, history, 5)
	assert.Equal(t, "what now?", history[3].Message)
	assert.Equal(t, "Try a short walk after dinner.", history[4].Message)
}

func TestSendMessageFallback(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, client := range []llm.Client{nil, &fakeLLM{err: errors.New("timeout")}, &fakeLLM{reply: "   "}} {
		svc := NewChatService(env.repos, client, 10, defaultTimeout, env.metrics)
		reply, err := svc.SendMessage(ctx, "u1", "I keep comparing myself")
		require.NoError(t, err)
		assert.Equal(t, chatFallbackComparison, reply.BotMessage.Message)
		assert.Equal(t, metrics.SourceFallback, reply.Source)
	}
	assert.Equal(t, 3.0, testutil.ToFloat64(env.metrics.ChatReplies.WithLabelValues(metrics.SourceFallback)))

	_, err := NewChatService(env.repos, nil, 10, defaultTimeout, env.metrics).SendMessage(ctx, "u1", "   ")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = NewChatService(env.repos, nil, 10, defaultTimeout, env.metrics).SendMessage(ctx, "u1", strings.Repeat("a", maxChatMessage+1))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestStreamMessage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fake := &fakeLLM{chunks: []string{"Breathe ", "slowly.", ""}}
	svc := NewChatService(env.repos, fake, 10, defaultTimeout, env.metrics)

	var got []string
	var done bool
	reply, err := svc.StreamMessage(ctx, "u1", "help", func(chunk string, d bool) error {
		got = append(got, chunk)
		done = d
		return nil
	})
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, "Breathe slowly.", strings.Join(got, ""))
	assert.Equal(t, "Breathe slowly.", reply.BotMessage.Message)

	history, err := env.repos.Chat.GetHistory(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "Breathe slowly.", history[1].Message)
}

func TestStreamMessageEmptyReplySendsSingleDoneFrame(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, chunks := range [][]string{{""}, {"", ""}, {"  ", "\n"}} {
		svc := NewChatService(env.repos, &fakeLLM{chunks: chunks}, 10, defaultTimeout, env.metrics)

		var frames []string
		doneFrames := 0
		reply, err := svc.StreamMessage(ctx, "u1", "I feel stressed", func(chunk string, done bool) error {
			frames = append(frames, chunk)
			if done {
				doneFrames++
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, doneFrames, "chunks %q", chunks)
		assert.Equal(t, chatFallbackStress, frames[len(frames)-1])
		assert.Equal(t, chatFallbackStress, reply.BotMessage.Message)
		assert.Equal(t, metrics.SourceFallback, reply.Source)
	}
}

func TestStreamMessageFallback(t *testing.T) {
	env := newTestEnv(t)
	svc := NewChatService(env.repos, &fakeLLM{err: errors.New("refused")}, 10, defaultTimeout, env.metrics)

	var chunks []string
	reply, err := svc.StreamMessage(context.Background(), "u1", "too much screen time", func(chunk string, done bool) error {
		chunks = append(chunks, chunk)
		assert.True(t, done)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{chatFallbackTime}, chunks)
	assert.Equal(t, metrics.SourceFallback, reply.Source)
}

func TestFallbackTrendInsight(t *testing.T) {
	at := func(v ...float64) []progressPoint {
		var out []progressPoint
		for _, x := range v {
			out = append(out, progressPoint{OverallWellness: x})
		}
		return out
	}

	assert.Equal(t, TrendImproving, fallbackTrendInsight(at(5, 4, 5.5), nil).Trend)
	assert.Equal(t, TrendDeclining, fallbackTrendInsight(at(7, 6.5), nil).Trend)
	assert.Equal(t, TrendStable, fallbackTrendInsight(at(6, 6.4), nil).Trend)
	assert.Equal(t, TrendStable, fallbackTrendInsight(at(6), nil).Trend)
	assert.Equal(t, TrendStable, fallbackTrendInsight(nil, nil).Trend)
	assert.Equal(t, trendFallbackText[TrendStable], fallbackTrendInsight(nil, nil).Insight)

	// Assessments arrive newest first.
	recent := []assessmentPoint{{OverallScore: 8}, {OverallScore: 4}}
	assert.Equal(t, TrendImproving, fallbackTrendInsight(at(3), recent).Trend)
}

func TestGenerateTrendInsight(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i, v := range []float64{4, 5, 6} {
		require.NoError(t, env.repos.Progress.CreateProgress(ctx, &model.ProgressEntry{
			UserID:          "u1",
			Date:            now.AddDate(0, 0, i-3),
			OverallWellness: v,
		}))
	}

	svc := NewInsightService(env.repos, nil, defaultTimeout, env.metrics)
	got, err := svc.GenerateTrendInsight(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, TrendImproving, got.Trend)

	fake := &fakeLLM{reply: `{"insight": "You have been steadily improving.", "trend": "sideways"}`}
	svc = NewInsightService(env.repos, fake, defaultTimeout, env.metrics)
	got, err = svc.GenerateTrendInsight(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "You have been steadily improving.", got.Insight)
	assert.Equal(t, TrendStable, got.Trend)

	latest, err := svc.GetLatestInsight(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "You have been steadily improving.", latest.KeyInsight)
	assert.True(t, latest.Enriched)

	all, err := svc.GetInsights(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestGoalService(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewGoalService(env.repos.Goals, nil)

	_, err := svc.CreateGoal(ctx, "u1", GoalInput{Title: "  "})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.CreateGoal(ctx, "u1", GoalInput{Title: "x", Category: "astrology"})
	assert.ErrorIs(t, err, ErrValidation)

	goal, err := svc.CreateGoal(ctx, "u1", GoalInput{Title: "Phone-free dinner"})
	require.NoError(t, err)
	assert.Equal(t, "custom", goal.Category)
	assert.Equal(t, 1, goal.TargetValue)

	_, err = svc.UpdateGoal(ctx, "u2", goal.ID, GoalUpdate{CurrentValue: 1})
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = svc.UpdateGoal(ctx, "u1", goal.ID, GoalUpdate{CurrentValue: -1})
	assert.ErrorIs(t, err, ErrValidation)

	done := true
	updated, err := svc.UpdateGoal(ctx, "u1", goal.ID, GoalUpdate{CurrentValue: 1, Completed: &done})
	require.NoError(t, err)
	assert.True(t, updated.IsCompleted)
	assert.NotNil(t, updated.CompletedAt)
}

func TestProgressService(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewProgressService(env.repos, nil)

	_, err := svc.RecordProgress(ctx, "u1", ProgressInput{OverallWellness: 11})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.RecordProgress(ctx, "u1", ProgressInput{ScreenTime: 25})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.GetProgress(ctx, "u1", 1000)
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, env.repos.Goals.CreateGoal(ctx, &model.UserGoal{UserID: "u1", Title: "done", IsCompleted: true}))

	entry, err := svc.RecordProgress(ctx, "u1", ProgressInput{
		OverallWellness: 7,
		ScreenTime:      3.5,
		MoodScore:       6,
		PlatformUsage:   map[string]float64{"instagram": 2},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, entry.GoalsCompleted)
	assert.Equal(t, 5, entry.TotalGoals)
	assert.JSONEq(t, `{"instagram":2}`, string(entry.PlatformUsage))

	week, err := svc.GetProgress(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Len(t, week, 1)
}

// memoryCache is an in-process DashboardCache.
type memoryCache struct {
	mu          sync.Mutex
	data        map[string][]byte
	invalidated []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}}
}

func (m *memoryCache) Get(_ context.Context, userID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[userID], nil
}

func (m *memoryCache) Set(_ context.Context, userID string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[userID] = payload
	return nil
}

func (m *memoryCache) Invalidate(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, userID)
	m.invalidated = append(m.invalidated, userID)
	return nil
}

func TestDashboardServiceCachesAndInvalidates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	mem := newMemoryCache()
	dash := NewDashboardService(env.repos, mem, env.bus)
	goals := NewGoalService(env.repos.Goals, env.bus)

	empty, err := dash.GetDashboard(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, empty.LatestProgress)
	assert.Empty(t, empty.ActiveGoals)
	assert.NotNil(t, mem.data["u1"])

	_, err = env.assessments(nil, defaultGoals).SubmitAssessment(ctx, "u1", "instagram", highRiskInstagram())
	require.NoError(t, err)
	assert.Nil(t, mem.data["u1"])

	d, err := dash.GetDashboard(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, d.PlatformAssessments, 1)
	assert.Len(t, d.ActiveGoals, 3)
	assert.Equal(t, 0, d.CompletedGoals)
	assert.Equal(t, 3, d.TotalGoals)

	done := true
	_, err = goals.UpdateGoal(ctx, "u1", d.ActiveGoals[0].ID, GoalUpdate{CurrentValue: 1, Completed: &done})
	require.NoError(t, err)

	d, err = dash.GetDashboard(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, d.ActiveGoals, 2)
	assert.Equal(t, 1, d.CompletedGoals)
	assert.Equal(t, 3, d.TotalGoals)
	assert.Contains(t, mem.invalidated, "u1")
}

func TestDashboardReflectsWritesImmediately(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	dash := NewDashboardService(env.repos, newMemoryCache(), env.bus)
	goals := NewGoalService(env.repos.Goals, env.bus)
	progress := NewProgressService(env.repos, env.bus)

	for i := 1; i <= dashboardActiveGoals; i++ {
		_, err := dash.GetDashboard(ctx, "u1")
		require.NoError(t, err)

		_, err = goals.CreateGoal(ctx, "u1", GoalInput{Title: "walk " + strings.Repeat("far ", i)})
		require.NoError(t, err)

		d, err := dash.GetDashboard(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, d.ActiveGoals, i, "after goal %d", i)
	}

	_, err := progress.RecordProgress(ctx, "u1", ProgressInput{OverallWellness: 6, MoodScore: 7, ScreenTime: 3})
	require.NoError(t, err)
	d, err := dash.GetDashboard(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, d.LatestProgress)
	assert.Len(t, d.WeeklyProgress, 1)
}

func TestDashboardSkipsWriteBackAfterInvalidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	mem := newMemoryCache()
	dash := NewDashboardService(env.repos, mem, env.bus).(*dashboardService)

	gen := dash.generation("u1")
	stale, err := dash.build(ctx, "u1")
	require.NoError(t, err)

	dash.Invalidate(ctx, "u1")
	dash.store(ctx, "u1", gen, stale)
	assert.Nil(t, mem.data["u1"])

	dash.store(ctx, "u1", dash.generation("u1"), stale)
	assert.NotNil(t, mem.data["u1"])
}

func TestWellnessReport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := &model.User{Email: "r@example.com", PasswordHash: "x", FirstName: "Robin"}
	require.NoError(t, env.repos.Users.CreateUser(ctx, user))

	svc := NewReportService(env.repos, nil)
	pdf, err := svc.WellnessReport(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))

	_, err = env.assessments(nil, defaultGoals).SubmitAssessment(ctx, user.ID, "twitter", map[string]interface{}{"feeling_after": "drained"})
	require.NoError(t, err)
	full, err := svc.WellnessReport(ctx, user.ID)
	require.NoError(t, err)
	assert.Greater(t, len(full), len(pdf))

	_, err = svc.WellnessReport(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
