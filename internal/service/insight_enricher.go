package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/kaptinlin/jsonrepair"

	"mindtrack-backend/internal/llm"
	"mindtrack-backend/internal/metrics"
	"mindtrack-backend/internal/scoring"
	"mindtrack-backend/utilities"
)

const enrichmentSystemPrompt = "You are a licensed mental health professional specializing in digital wellness and social media impact analysis. Provide concise, personalized insights."

// EnrichmentInput is everything the enricher may show the model.
type EnrichmentInput struct {
	Platform    string
	DisplayName string
	Responses   scoring.Responses
	Result      scoring.Result
}

// InsightEnricher optionally rewrites the engine's insight sentence. Callers
// keep the engine sentence whenever Enrich fails.
type InsightEnricher interface {
	Enrich(ctx context.Context, in EnrichmentInput) (string, error)
}

type llmEnricher struct {
	client  llm.Client
	cache   *lru.Cache[string, string]
	timeout time.Duration
	metrics *metrics.Metrics
}

// NewInsightEnricher wraps client with a per-call timeout and an LRU of
// previous answers keyed by the scored input.
func NewInsightEnricher(client llm.Client, timeout time.Duration, cacheSize int, m *metrics.Metrics) (InsightEnricher, error) {
	cache, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create enrichment cache: %w", err)
	}
	return &llmEnricher{client: client, cache: cache, timeout: timeout, metrics: m}, nil
}

func (e *llmEnricher) Enrich(ctx context.Context, in EnrichmentInput) (string, error) {
	key := enrichmentKey(in)
	if text, ok := e.cache.Get(key); ok {
		e.metrics.ObserveEnrichment(metrics.OutcomeCached)
		return text, nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	raw, err := e.client.Chat(ctx, []llm.ChatMessage{
		{Role: llm.RoleSystem, Content: enrichmentSystemPrompt},
		{Role: llm.RoleUser, Content: enrichmentPrompt(in)},
	}, llm.Options{JSON: true, Temperature: 0.4})
	e.metrics.ObserveLLM("enrich", time.Since(start).Seconds())
	if err != nil {
		e.metrics.ObserveEnrichment(metrics.OutcomeFallback)
		return "", err
	}

	var reply struct {
		KeyInsight string `json:"keyInsight"`
		Alt        string `json:"key_insight"`
	}
	if err := decodeLLMJSON(raw, &reply); err != nil {
		e.metrics.ObserveEnrichment(metrics.OutcomeFallback)
		return "", err
	}
	text := strings.TrimSpace(reply.KeyInsight)
	if text == "" {
		text = strings.TrimSpace(reply.Alt)
	}
	if text == "" {
		e.metrics.ObserveEnrichment(metrics.OutcomeFallback)
		return "", llm.ErrEmptyResponse
	}

	e.cache.Add(key, text)
	e.metrics.ObserveEnrichment(metrics.OutcomeEnriched)
	return text, nil
}

func enrichmentPrompt(in EnrichmentInput) string {
	responses, _ := json.Marshal(in.Responses)
	return fmt.Sprintf(`You are a mental health expert analyzing social media usage patterns.
I have already calculated precise scores:

Platform: %s
Overall Score: %.1f/10
Risk Level: %s
Assessment responses: %s

Based on these specific scores and responses, provide a single, personalized key insight (2-3 sentences)
that explains the main finding about their %s usage patterns and mental health impact.

Focus on:
- Specific patterns in their responses
- How %s uniquely affects them
- The most important area for improvement

Return JSON with only: { "keyInsight": "your insight here" }`,
		in.DisplayName, in.Result.OverallScore, in.Result.RiskLevel, responses, in.DisplayName, in.DisplayName)
}

func enrichmentKey(in EnrichmentInput) string {
	pairs := make([]string, 0, len(in.Responses))
	for k, v := range in.Responses {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return fmt.Sprintf("%s|%.1f|%s|%s", strings.ToLower(in.Platform), in.Result.OverallScore, in.Result.RiskLevel, strings.Join(pairs, "&"))
}

// decodeLLMJSON extracts the outermost JSON object from a model reply and
// repairs common defects such as trailing commas or single quotes.
func decodeLLMJSON(raw string, dst interface{}) error {
	text := strings.TrimSpace(raw)
	if i := strings.Index(text, "{"); i >= 0 {
		if j := strings.LastIndex(text, "}"); j > i {
			text = text[i : j+1]
		}
	}
	if err := json.Unmarshal([]byte(text), dst); err == nil {
		return nil
	}

	repaired, err := jsonrepair.JSONRepair(text)
	if err != nil {
		return fmt.Errorf("repair llm json: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), dst); err != nil {
		utilities.Debug("llm reply could not be decoded after repair: %q", raw)
		return fmt.Errorf("decode llm json: %w", err)
	}
	return nil
}
