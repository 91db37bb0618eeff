package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindtrack-backend/internal/config"
)

func TestNewClient(t *testing.T) {
	c, err := NewClient(config.LLMConfig{}, nil)
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = NewClient(config.LLMConfig{Provider: "Ollama", URL: "http://x"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &OllamaClient{}, c)

	_, err = NewClient(config.LLMConfig{Provider: "openai"}, nil)
	assert.Error(t, err)

	_, err = NewClient(config.LLMConfig{Provider: "claude"}, nil)
	assert.ErrorContains(t, err, "unknown llm provider")
}

func TestOllamaChat(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"message":{"role":"assistant","content":"{\"keyInsight\":\"ok\"}"},"done":true}`)
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL+"/", "mistral", srv.Client())
	out, err := c.Chat(context.Background(), []ChatMessage{{Role: RoleUser, Content: "hi"}}, Options{JSON: true})
	require.NoError(t, err)
	assert.Equal(t, `{"keyInsight":"ok"}`, out)
	assert.Equal(t, "json", got["format"])
	assert.Equal(t, false, got["stream"])
	assert.Equal(t, "mistral", got["model"])
}

func TestOllamaStreamChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, part := range []string{"Take ", "a ", "break."} {
			fmt.Fprintf(w, `{"message":{"role":"assistant","content":%q},"done":false}`+"\n", part)
		}
		fmt.Fprint(w, "not json\n")
		fmt.Fprint(w, `{"message":{"role":"assistant","content":""},"done":true}`+"\n")
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "mistral", srv.Client())
	var chunks []string
	var finished bool
	err := c.StreamChat(context.Background(), nil, Options{}, func(s string, done bool) error {
		chunks = append(chunks, s)
		finished = done
		return nil
	})
	require.NoError(t, err)
	assert.True(t, finished)
	assert.Equal(t, "Take a break.", strings.Join(chunks, ""))

	text, err := Collect(context.Background(), c, nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, "Take a break.", text)
}

func TestOllamaErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "missing", srv.Client())
	_, err := c.Chat(context.Background(), nil, Options{})
	assert.ErrorContains(t, err, "404")

	err = c.StreamChat(context.Background(), nil, Options{}, func(string, bool) error { return nil })
	assert.ErrorContains(t, err, "404")
}

func TestOpenAIChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]interface{}{"type": "json_object"}, body["response_format"])

		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"hello"}}]}`)
	}))
	defer srv.Close()

	c := NewOpenAIClient(srv.URL+"/v1", "gpt-4o", "sk-test", srv.Client())
	out, err := c.Chat(context.Background(), []ChatMessage{{Role: RoleUser, Content: "hi"}}, Options{JSON: true})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestOpenAIChatErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.Header.Get("Authorization"), "bad") {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":{"message":"invalid api key"}}`)
			return
		}
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	_, err := NewOpenAIClient(srv.URL, "m", "bad", srv.Client()).Chat(context.Background(), nil, Options{})
	assert.ErrorContains(t, err, "invalid api key")

	_, err = NewOpenAIClient(srv.URL, "m", "good", srv.Client()).Chat(context.Background(), nil, Options{})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOpenAIStreamChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"You're ", "doing ", "well."} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", part)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c := NewOpenAIClient(srv.URL, "gpt-4o", "k", srv.Client())
	var b strings.Builder
	doneCalls := 0
	err := c.StreamChat(context.Background(), nil, Options{}, func(s string, done bool) error {
		b.WriteString(s)
		if done {
			doneCalls++
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "You're doing well.", b.String())
	assert.Equal(t, 1, doneCalls)
}

func TestStreamChatTruncated(t *testing.T) {
	openai := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"You're \"}}]}\n\n")
	}))
	defer openai.Close()
	ollama := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"message":{"role":"assistant","content":"Take "},"done":false}`+"\n")
	}))
	defer ollama.Close()

	clients := map[string]Client{
		"openai": NewOpenAIClient(openai.URL, "gpt-4o", "k", openai.Client()),
		"ollama": NewOllamaClient(ollama.URL, "mistral", ollama.Client()),
	}
	for name, c := range clients {
		t.Run(name, func(t *testing.T) {
			var chunks []string
			doneCalls := 0
			err := c.StreamChat(context.Background(), nil, Options{}, func(s string, done bool) error {
				chunks = append(chunks, s)
				if done {
					doneCalls++
				}
				return nil
			})
			assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
			assert.Equal(t, 0, doneCalls)
			assert.Len(t, chunks, 1)

			_, err = Collect(context.Background(), c, nil, Options{})
			assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
		})
	}
}

func TestAggregateStreamedResponse(t *testing.T) {
	body := `{"message":{"content":"a"}}` + "\n\n" + `{"message":{"content":"b"},"done":true}`
	assert.Equal(t, "ab", AggregateStreamedResponse(body))
}
