package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hubenschmidt/interview-coach/internal/metrics"
)

// Request is one structured-output generation: the model must answer with a
// JSON object matching Schema.
type Request struct {
	Model      string
	System     string
	Prompt     string
	SchemaName string
	Schema     *Schema
}

// Result holds the raw JSON object text with timing.
type Result struct {
	Text      string  `json:"text"`
	Engine    string  `json:"engine"`
	LatencyMs float64 `json:"latency_ms"`
}

// StructuredClient produces a schema-shaped JSON object from a prompt.
type StructuredClient interface {
	Generate(ctx context.Context, req Request) (*Result, error)
}

// Generator routes a request to a named engine; *StructuredRouter implements it.
type Generator interface {
	Generate(ctx context.Context, engine string, req Request) (*Result, error)
}

// StructuredRouter dispatches to the correct backend based on engine name.
type StructuredRouter struct {
	*Router[StructuredClient]
}

// NewStructuredRouter creates a router with registered backends and a fallback default.
func NewStructuredRouter(backends map[string]StructuredClient, fallback string) *StructuredRouter {
	return &StructuredRouter{Router: NewRouter(backends, fallback)}
}

// Generate routes to the correct backend and records latency per engine.
func (r *StructuredRouter) Generate(ctx context.Context, engine string, req Request) (*Result, error) {
	backend, served, err := r.Route(engine)
	if err != nil {
		metrics.Errors.WithLabelValues("llm", "route").Inc()
		return nil, err
	}
	start := time.Now()
	res, err := backend.Generate(ctx, req)
	latency := time.Since(start)
	metrics.LLMDuration.WithLabelValues(served).Observe(latency.Seconds())
	if err != nil {
		metrics.Errors.WithLabelValues("llm", served).Inc()
		return nil, fmt.Errorf("%s: %w", served, err)
	}
	res.Engine = served
	if res.LatencyMs == 0 {
		res.LatencyMs = float64(latency.Milliseconds())
	}
	return res, nil
}

// Decode unmarshals a result into T. Markdown code fences around the object
// are tolerated since instruction-only backends sometimes add them.
func Decode[T any](res *Result) (T, error) {
	var out T
	if res == nil {
		return out, fmt.Errorf("decode: empty result")
	}
	text := stripFences(res.Text)
	if text == "" {
		return out, fmt.Errorf("decode: empty response text")
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return out, fmt.Errorf("decode structured output: %w", err)
	}
	return out, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

var _ Generator = (*StructuredRouter)(nil)
