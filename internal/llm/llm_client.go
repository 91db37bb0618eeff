package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"mindtrack-backend/internal/config"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrEmptyResponse is returned when a provider answers with no text.
var ErrEmptyResponse = errors.New("llm returned an empty response")

// ChatMessage represents a message in a conversation
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options tune a single completion.
type Options struct {
	// JSON asks the provider to answer with a JSON object.
	JSON        bool
	Temperature float64
}

// StreamCallback defines the callback function type for streaming responses
type StreamCallback func(response string, done bool) error

// Client is a text generation provider.
type Client interface {
	Chat(ctx context.Context, messages []ChatMessage, opts Options) (string, error)
	StreamChat(ctx context.Context, messages []ChatMessage, opts Options, callback StreamCallback) error
}

// NewClient builds the provider named in cfg. It returns nil, nil when no
// provider is configured so callers can fall back to canned text.
func NewClient(cfg config.LLMConfig, httpClient *http.Client) (Client, error) {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	switch strings.ToLower(cfg.Provider) {
	case "":
		return nil, nil
	case "ollama":
		return NewOllamaClient(cfg.URL, cfg.Model, httpClient), nil
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		return NewOpenAIClient(cfg.URL, cfg.Model, cfg.APIKey, httpClient), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// Collect runs a streaming call and concatenates the chunks.
func Collect(ctx context.Context, c Client, messages []ChatMessage, opts Options) (string, error) {
	var b strings.Builder
	err := c.StreamChat(ctx, messages, opts, func(chunk string, _ bool) error {
		b.WriteString(chunk)
		return nil
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}
