package repository

import (
	"context"

	"gorm.io/gorm"

	"mindtrack-backend/internal/model"
)

type ChatRepository interface {
	CreateMessage(ctx context.Context, msg *model.ChatMessage) error
	// GetHistory returns up to limit most recent messages in chronological order.
	GetHistory(ctx context.Context, userID string, limit int) ([]model.ChatMessage, error)
}

type chatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) CreateMessage(ctx context.Context, msg *model.ChatMessage) error {
	return wrap("create chat message", r.db.WithContext(ctx).Create(msg).Error)
}

func (r *chatRepository) GetHistory(ctx context.Context, userID string, limit int) ([]model.ChatMessage, error) {
	var msgs []model.ChatMessage
	q := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc").Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&msgs).Error; err != nil {
		return nil, wrap("chat history", err)
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
