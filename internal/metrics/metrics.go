package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CallsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "interview_calls_active",
		Help: "Currently open interview call sockets",
	})

	CallsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interview_calls_total",
		Help: "Total interview call sockets accepted",
	})

	CallTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_call_transitions_total",
		Help: "Call status transitions by target status",
	}, []string{"status"})

	Utterances = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_utterances_total",
		Help: "Final transcript utterances recorded, by role",
	}, []string{"role"})

	FeedbackOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedback_outcomes_total",
		Help: "Feedback synthesis results (scored, fallback, error)",
	}, []string{"outcome"})

	FeedbackScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "feedback_total_score",
		Help:    "Distribution of model-scored total scores",
		Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	})

	LLMDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "llm_structured_duration_seconds",
		Help:    "Structured-output model call latency",
		Buckets: []float64{0.25, 0.5, 1.0, 2.0, 3.0, 5.0, 8.0, 13.0, 20.0},
	}, []string{"engine"})

	InterviewsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interviews_generated_total",
		Help: "Interviews generated through the voice workflow",
	})

	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_errors_total",
		Help: "Error counts by stage",
	}, []string{"stage", "error_type"})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "domain_events_published_total",
		Help: "Domain events by type and outcome (ok, logged, error)",
	}, []string{"event_type", "outcome"})
)
