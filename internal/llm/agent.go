package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nlpodyssey/openai-agents-go/agents"
	"github.com/nlpodyssey/openai-agents-go/modelsettings"
	"github.com/openai/openai-go/v2/packages/param"
)

// AgentClient produces structured output through the openai-agents-go runner.
// The schema travels in the instructions, so it also works with providers that
// lack native structured output.
type AgentClient struct {
	provider  agents.ModelProvider
	model     string
	maxTokens int
}

// NewAgentClient wraps a model provider with a default model.
func NewAgentClient(provider agents.ModelProvider, model string, maxTokens int) *AgentClient {
	return &AgentClient{provider: provider, model: model, maxTokens: maxTokens}
}

// NewOpenAIAgentClient builds the provider for an OpenAI-compatible endpoint.
func NewOpenAIAgentClient(apiKey, baseURL, model string, maxTokens int) *AgentClient {
	params := agents.OpenAIProviderParams{
		APIKey:       param.NewOpt(apiKey),
		UseResponses: param.NewOpt(false),
	}
	if baseURL != "" {
		params.BaseURL = param.NewOpt(baseURL)
	}
	return NewAgentClient(agents.NewOpenAIProvider(params), model, maxTokens)
}

// Generate runs a single-turn agent and collects the streamed text.
func (c *AgentClient) Generate(ctx context.Context, req Request) (*Result, error) {
	useModel := c.model
	if req.Model != "" {
		useModel = req.Model
	}

	settings := modelsettings.ModelSettings{}
	if c.maxTokens > 0 {
		settings.MaxTokens = param.NewOpt(int64(c.maxTokens))
	}

	agent := agents.New("evaluator").
		WithInstructions(agentInstructions(req)).
		WithModel(useModel).
		WithModelSettings(settings)

	runner := agents.Runner{Config: agents.RunConfig{
		ModelProvider:   c.provider,
		MaxTurns:        1,
		TracingDisabled: true,
	}}

	start := time.Now()

	events, errCh, err := runner.RunStreamedChan(ctx, agent, req.Prompt)
	if err != nil {
		return nil, fmt.Errorf("agent stream start: %w", err)
	}

	var textBuf strings.Builder
	for ev := range events {
		collectDelta(ev, &textBuf)
	}

	if streamErr := <-errCh; streamErr != nil {
		return nil, fmt.Errorf("agent stream: %w", streamErr)
	}

	return &Result{
		Text:      textBuf.String(),
		LatencyMs: float64(time.Since(start).Milliseconds()),
	}, nil
}

func collectDelta(ev agents.StreamEvent, textBuf *strings.Builder) {
	raw, ok := ev.(agents.RawResponsesStreamEvent)
	if !ok {
		return
	}
	if raw.Data.Type != "response.output_text.delta" {
		return
	}
	textBuf.WriteString(raw.Data.Delta)
}

func agentInstructions(req Request) string {
	if req.Schema == nil {
		return req.System
	}
	var b strings.Builder
	if req.System != "" {
		b.WriteString(req.System)
		b.WriteString("\n\n")
	}
	b.WriteString("Respond with a single JSON object that matches this JSON Schema exactly. ")
	b.WriteString("Return only the JSON object, no markdown, no explanation.\n")
	b.WriteString(req.Schema.JSON())
	return b.String()
}
