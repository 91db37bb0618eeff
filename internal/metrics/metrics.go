package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Enrichment outcomes.
const (
	OutcomeEnriched = "enriched"
	OutcomeFallback = "fallback"
	OutcomeCached   = "cached"
)

// Chat reply sources.
const (
	SourceLLM      = "llm"
	SourceFallback = "fallback"
)

// Metrics holds the application collectors.
type Metrics struct {
	AssessmentsScored *prometheus.CounterVec
	InsightEnrichment *prometheus.CounterVec
	ChatReplies       *prometheus.CounterVec
	LLMLatency        *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New registers the collectors with reg. Collectors already registered by an
// earlier call are reused.
func New(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	m := &Metrics{
		AssessmentsScored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mindtrack",
			Name:      "assessments_scored_total",
			Help:      "Assessments scored, by platform and risk level.",
		}, []string{"platform", "risk_level"}),
		InsightEnrichment: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mindtrack",
			Name:      "insight_enrichment_total",
			Help:      "Insight enrichment attempts, by outcome.",
		}, []string{"outcome"}),
		ChatReplies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mindtrack",
			Name:      "chat_replies_total",
			Help:      "Chat companion replies, by source.",
		}, []string{"source"}),
		LLMLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mindtrack",
			Name:      "llm_request_seconds",
			Help:      "Latency of text generation calls.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8),
		}, []string{"operation"}),
		gatherer: gatherer,
	}

	m.AssessmentsScored = register(reg, m.AssessmentsScored)
	m.InsightEnrichment = register(reg, m.InsightEnrichment)
	m.ChatReplies = register(reg, m.ChatReplies)
	m.LLMLatency = register(reg, m.LLMLatency)
	return m
}

// NewDefault registers with the process wide Prometheus registry.
func NewDefault() *Metrics {
	return New(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// NewIsolated uses a private registry, for tests and the offline CLI.
func NewIsolated() *Metrics {
	reg := prometheus.NewRegistry()
	return New(reg, reg)
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveAssessment(platform, riskLevel string) {
	m.AssessmentsScored.WithLabelValues(platform, riskLevel).Inc()
}

func (m *Metrics) ObserveEnrichment(outcome string) {
	m.InsightEnrichment.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveChatReply(source string) {
	m.ChatReplies.WithLabelValues(source).Inc()
}

func (m *Metrics) ObserveLLM(operation string, seconds float64) {
	m.LLMLatency.WithLabelValues(operation).Observe(seconds)
}
