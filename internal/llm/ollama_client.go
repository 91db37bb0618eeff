package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"mindtrack-backend/utilities"
)

type OllamaClient struct {
	ollamaURL string
	model     string
	client    *http.Client
}

func NewOllamaClient(url, model string, client *http.Client) *OllamaClient {
	return &OllamaClient{
		ollamaURL: strings.TrimRight(url, "/") + "/api/chat",
		model:     model,
		client:    client,
	}
}

// StreamResponse represents a streaming response chunk from Ollama
type StreamResponse struct {
	Model     string      `json:"model"`
	CreatedAt string      `json:"created_at"`
	Message   ChatMessage `json:"message"`
	Done      bool        `json:"done"`
	Error     string      `json:"error,omitempty"`
}

func (o *OllamaClient) newRequest(ctx context.Context, messages []ChatMessage, opts Options, stream bool) (*http.Request, error) {
	body := map[string]interface{}{
		"model":    o.model,
		"messages": messages,
		"stream":   stream,
		"options":  map[string]interface{}{"temperature": opts.Temperature},
	}
	if opts.JSON {
		body["format"] = "json"
	}
	requestBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.ollamaURL, bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// Chat sends the conversation and waits for the complete reply.
func (o *OllamaClient) Chat(ctx context.Context, messages []ChatMessage, opts Options) (string, error) {
	req, err := o.newRequest(ctx, messages, opts, false)
	if err != nil {
		return "", err
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama HTTP error %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	// Some Ollama builds stream even when asked not to.
	text := AggregateStreamedResponse(string(bodyBytes))
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// StreamChat sends the conversation to Ollama and streams the response via callback
func (o *OllamaClient) StreamChat(ctx context.Context, messages []ChatMessage, opts Options, callback StreamCallback) error {
	req, err := o.newRequest(ctx, messages, opts, true)
	if err != nil {
		return err
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama HTTP error: %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var streamResp StreamResponse
		if err := json.Unmarshal([]byte(line), &streamResp); err != nil {
			utilities.Warn("ollama: skipping malformed stream chunk: %v", err)
			continue
		}
		if streamResp.Error != "" {
			return fmt.Errorf("ollama: %s", streamResp.Error)
		}

		if err := callback(streamResp.Message.Content, streamResp.Done); err != nil {
			return fmt.Errorf("callback error: %w", err)
		}

		if streamResp.Done {
			return nil
		}
	}

	if err := scanner.Err(); err != nil {
		return err
	}
	return io.ErrUnexpectedEOF
}

// AggregateStreamedResponse takes a raw response body holding one or more
// newline separated JSON chunks and concatenates their message contents.
func AggregateStreamedResponse(body string) string {
	var builder strings.Builder
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		var chunk StreamResponse
		if err := json.Unmarshal([]byte(trimmed), &chunk); err != nil {
			utilities.Warn("ollama: error unmarshaling chunk: %v", err)
			continue
		}
		builder.WriteString(chunk.Message.Content)
	}
	return builder.String()
}
