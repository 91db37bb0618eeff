package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Repositories bundles every repository over one handle.
type Repositories struct {
	Users       UserRepository
	Assessments AssessmentRepository
	Insights    InsightRepository
	Progress    ProgressRepository
	Chat        ChatRepository
	Goals       GoalRepository
}

func New(db *gorm.DB) *Repositories {
	return &Repositories{
		Users:       NewUserRepository(db),
		Assessments: NewAssessmentRepository(db),
		Insights:    NewInsightRepository(db),
		Progress:    NewProgressRepository(db),
		Chat:        NewChatRepository(db),
		Goals:       NewGoalRepository(db),
	}
}

// WithTx returns repositories bound to an open transaction.
func (r *Repositories) WithTx(tx *gorm.DB) *Repositories {
	return New(tx)
}
