package service

import (
	"context"
	"strings"
	"time"

	"mindtrack-backend/internal/llm"
	"mindtrack-backend/internal/metrics"
	"mindtrack-backend/internal/model"
	"mindtrack-backend/internal/repository"
	"mindtrack-backend/utilities"
)

const chatSystemPrompt = `You are MindTrack AI, a compassionate mental health companion specializing in digital wellness and social media impact. Your role is to:

1. Provide supportive, evidence-based guidance on digital wellness
2. Help users understand their relationship with social media
3. Offer practical strategies for healthier technology use
4. Encourage self-reflection and mindful usage patterns
5. Provide emotional support without giving medical advice

Be warm, empathetic and non-judgmental. Keep responses concise (2-4 sentences) and remind users to seek professional help for serious concerns.`

const (
	chatFallbackStress     = "I understand you're feeling stressed. Taking breaks from social media can really help. Have you tried setting specific times to check your apps, or using mindfulness techniques when you feel overwhelmed?"
	chatFallbackTime       = "Managing screen time is a common challenge. Consider setting daily limits for your most-used apps, or try the 'phone-free' hour before bed. What platforms do you find yourself using most?"
	chatFallbackComparison = "Social comparison is natural but can be harmful to our wellbeing. Remember that people share their highlights, not their struggles. Try unfollowing accounts that make you feel inadequate and following those that inspire you positively."
	chatFallbackDefault    = "I'm experiencing some technical difficulties, but I'm here to support your digital wellness journey. What's on your mind about your social media use?"
)

const maxChatMessage = 2000

// ChatReply pairs the stored user message with the stored bot reply.
type ChatReply struct {
	UserMessage *model.ChatMessage `json:"user_message"`
	BotMessage  *model.ChatMessage `json:"bot_message"`
	Source      string             `json:"source"`
}

type ChatService interface {
	SendMessage(ctx context.Context, userID, message string) (*ChatReply, error)
	// StreamMessage forwards reply chunks to cb and stores the full reply
	// once the stream ends.
	StreamMessage(ctx context.Context, userID, message string, cb llm.StreamCallback) (*ChatReply, error)
	GetHistory(ctx context.Context, userID string, limit int) ([]model.ChatMessage, error)
}

type chatService struct {
	repos   *repository.Repositories
	client  llm.Client
	history int
	timeout time.Duration
	metrics *metrics.Metrics
}

func NewChatService(repos *repository.Repositories, client llm.Client, history int, timeout time.Duration, m *metrics.Metrics) ChatService {
	return &chatService{repos: repos, client: client, history: history, timeout: timeout, metrics: m}
}

// FallbackReply picks a canned answer from keywords in message.
func FallbackReply(message string) string {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "stress") || strings.Contains(lower, "anxious"):
		return chatFallbackStress
	case strings.Contains(lower, "time") || strings.Contains(lower, "usage"):
		return chatFallbackTime
	case strings.Contains(lower, "comparison") || strings.Contains(lower, "compare"):
		return chatFallbackComparison
	default:
		return chatFallbackDefault
	}
}

func (s *chatService) prepare(ctx context.Context, userID, message string) (*model.ChatMessage, []llm.ChatMessage, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, nil, invalid("message is required")
	}
	if len(message) > maxChatMessage {
		return nil, nil, invalid("message exceeds %d characters", maxChatMessage)
	}

	history, err := s.repos.Chat.GetHistory(ctx, userID, s.history)
	if err != nil {
		return nil, nil, err
	}
	userMsg := &model.ChatMessage{UserID: userID, Message: message}
	if err := s.repos.Chat.CreateMessage(ctx, userMsg); err != nil {
		return nil, nil, err
	}

	convo := make([]llm.ChatMessage, 0, len(history)+2)
	convo = append(convo, llm.ChatMessage{Role: llm.RoleSystem, Content: chatSystemPrompt})
	for _, h := range history {
		role := llm.RoleUser
		if h.IsBot {
			role = llm.RoleAssistant
		}
		convo = append(convo, llm.ChatMessage{Role: role, Content: h.Message})
	}
	convo = append(convo, llm.ChatMessage{Role: llm.RoleUser, Content: message})
	return userMsg, convo, nil
}

func (s *chatService) finish(ctx context.Context, userMsg *model.ChatMessage, reply, source string) (*ChatReply, error) {
	s.metrics.ObserveChatReply(source)
	bot := &model.ChatMessage{UserID: userMsg.UserID, Message: reply, IsBot: true}
	if err := s.repos.Chat.CreateMessage(ctx, bot); err != nil {
		return nil, err
	}
	return &ChatReply{UserMessage: userMsg, BotMessage: bot, Source: source}, nil
}

func (s *chatService) SendMessage(ctx context.Context, userID, message string) (*ChatReply, error) {
	userMsg, convo, err := s.prepare(ctx, userID, message)
	if err != nil {
		return nil, err
	}

	if s.client != nil {
		llmCtx, cancel := context.WithTimeout(ctx, s.timeout)
		start := time.Now()
		reply, err := s.client.Chat(llmCtx, convo, llm.Options{Temperature: 0.7})
		cancel()
		s.metrics.ObserveLLM("chat", time.Since(start).Seconds())
		if err == nil && strings.TrimSpace(reply) != "" {
			return s.finish(ctx, userMsg, strings.TrimSpace(reply), metrics.SourceLLM)
		}
		utilities.Warn("chat reply for user %s failed, using fallback: %v", userID, err)
	}
	return s.finish(ctx, userMsg, FallbackReply(userMsg.Message), metrics.SourceFallback)
}

func (s *chatService) StreamMessage(ctx context.Context, userID, message string, cb llm.StreamCallback) (*ChatReply, error) {
	userMsg, convo, err := s.prepare(ctx, userID, message)
	if err != nil {
		return nil, err
	}

	if s.client != nil {
		llmCtx, cancel := context.WithTimeout(ctx, s.timeout)
		var b strings.Builder
		var final string
		shown := false
		start := time.Now()
		err := s.client.StreamChat(llmCtx, convo, llm.Options{Temperature: 0.7}, func(chunk string, done bool) error {
			b.WriteString(chunk)
			// The closing frame is held back until the reply is known to
			// carry text, so the fallback can still be the only done frame.
			if done {
				final = chunk
				return nil
			}
			if chunk == "" {
				return nil
			}
			if strings.TrimSpace(chunk) != "" {
				shown = true
			}
			return cb(chunk, false)
		})
		cancel()
		s.metrics.ObserveLLM("chat_stream", time.Since(start).Seconds())
		text := strings.TrimSpace(b.String())
		if err == nil && text != "" {
			if err := cb(final, true); err != nil {
				return nil, err
			}
			return s.finish(ctx, userMsg, text, metrics.SourceLLM)
		}
		utilities.Warn("chat stream for user %s failed, using fallback: %v", userID, err)
		if shown {
			// Partial text already reached the client; keep what it saw.
			return s.finish(ctx, userMsg, text, metrics.SourceLLM)
		}
	}

	reply := FallbackReply(userMsg.Message)
	if err := cb(reply, true); err != nil {
		return nil, err
	}
	return s.finish(ctx, userMsg, reply, metrics.SourceFallback)
}

func (s *chatService) GetHistory(ctx context.Context, userID string, limit int) ([]model.ChatMessage, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.repos.Chat.GetHistory(ctx, userID, limit)
}
