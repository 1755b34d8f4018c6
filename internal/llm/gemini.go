package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"
)

// GeminiClient generates structured output with the Gemini API.
type GeminiClient struct {
	models    *genai.Models
	model     string
	maxTokens int32
}

// NewGeminiClient creates a Gemini client sharing the pooled HTTP client.
func NewGeminiClient(ctx context.Context, apiKey, model string, maxTokens int, httpClient *http.Client) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &GeminiClient{models: client.Models, model: model, maxTokens: int32(maxTokens)}, nil
}

// Generate sends the prompt with a JSON response schema.
func (c *GeminiClient) Generate(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	useModel := c.model
	if req.Model != "" {
		useModel = req.Model
	}

	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.2),
	}
	if c.maxTokens > 0 {
		cfg.MaxOutputTokens = c.maxTokens
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Schema != nil {
		cfg.ResponseSchema = req.Schema.Genai()
	}

	resp, err := c.models.GenerateContent(ctx, useModel, []*genai.Content{
		genai.NewContentFromText(req.Prompt, genai.RoleUser),
	}, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("gemini generate: empty response")
	}

	return &Result{
		Text:      text,
		LatencyMs: float64(time.Since(start).Milliseconds()),
	}, nil
}
