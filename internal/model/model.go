package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Base carries the uuid primary key shared by every table.
type Base struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CreatedAt time.Time `json:"created_at"`
}

func (b *Base) BeforeCreate(*gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

type User struct {
	Base
	Email           string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash    string    `json:"-" gorm:"not null"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	ProfileImageURL string    `json:"profile_image_url"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type Assessment struct {
	Base
	UserID          string         `json:"user_id" gorm:"index;not null"`
	Platform        string         `json:"platform" gorm:"index;not null"`
	Responses       datatypes.JSON `json:"responses" gorm:"not null"`
	OverallScore    float64        `json:"overall_score"`
	MoodScore       float64        `json:"mood_score"`
	UsageScore      float64        `json:"usage_score"`
	ComparisonScore float64        `json:"comparison_score"`
	ConfidenceScore int            `json:"confidence_score"`
	RiskLevel       string         `json:"risk_level"`
}

type Insight struct {
	Base
	UserID          string         `json:"user_id" gorm:"index;not null"`
	AssessmentID    *string        `json:"assessment_id" gorm:"index"`
	KeyInsight      string         `json:"key_insight" gorm:"not null"`
	Recommendations datatypes.JSON `json:"recommendations"`
	RiskLevel       string         `json:"risk_level"`
	Trend           string         `json:"trend"`
	Enriched        bool           `json:"enriched"`
}

type ProgressEntry struct {
	Base
	UserID          string         `json:"user_id" gorm:"index;not null"`
	Date            time.Time      `json:"date" gorm:"index"`
	OverallWellness float64        `json:"overall_wellness"`
	ScreenTime      float64        `json:"screen_time"`
	MoodScore       float64        `json:"mood_score"`
	PlatformUsage   datatypes.JSON `json:"platform_usage"`
	GoalsCompleted  int            `json:"goals_completed"`
	TotalGoals      int            `json:"total_goals" gorm:"default:5"`
}

type ChatMessage struct {
	Base
	UserID  string `json:"user_id" gorm:"index;not null"`
	Message string `json:"message" gorm:"not null"`
	IsBot   bool   `json:"is_bot"`
}

type UserGoal struct {
	Base
	UserID       string     `json:"user_id" gorm:"index;not null"`
	AssessmentID *string    `json:"assessment_id,omitempty" gorm:"index"`
	Title        string     `json:"title" gorm:"not null"`
	Description  string     `json:"description"`
	Category     string     `json:"category"`
	IsCompleted  bool       `json:"is_completed"`
	TargetValue  int        `json:"target_value"`
	CurrentValue int        `json:"current_value"`
	DueDate      *time.Time `json:"due_date"`
	CompletedAt  *time.Time `json:"completed_at"`
}

// All lists every model for auto-migration.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Assessment{},
		&Insight{},
		&ProgressEntry{},
		&ChatMessage{},
		&UserGoal{},
	}
}
