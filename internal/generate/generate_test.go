package generate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubenschmidt/interview-coach/internal/llm"
	"github.com/hubenschmidt/interview-coach/internal/store"
)

type fakeLLM struct {
	text string
	err  error
	last llm.Request
}

func (f *fakeLLM) Generate(_ context.Context, _ string, req llm.Request) (*llm.Result, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Result{Text: f.text}, nil
}

func TestGenerate_StoresFinalizedInterview(t *testing.T) {
	mem := store.NewMemory()
	gen := &fakeLLM{text: `{"questions":["What is a goroutine?","Explain  */ interfaces"," "]}`}
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	g := New(Config{Store: mem, LLM: gen, Now: func() time.Time { return now }, PickCover: func(int) int { return 2 }})

	iv, err := g.Generate(context.Background(), Params{
		Type: "technical", Role: "Backend Engineer", Level: "Senior", Techstack: "Go, Postgres,", Amount: 3, UserID: "u1",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"What is a goroutine?", "Explain    interfaces"}, iv.Questions)
	assert.Equal(t, []string{"Go", "Postgres"}, iv.Techstack)
	assert.True(t, iv.Finalized)
	assert.Equal(t, CoverImages[2], iv.CoverImage)
	assert.Equal(t, now, iv.CreatedAt)
	assert.Contains(t, gen.last.Prompt, "The amount of questions required is: 3.")

	stored, err := mem.GetInterview(context.Background(), iv.ID)
	require.NoError(t, err)
	assert.Equal(t, "u1", stored.UserID)
}

func TestGenerate_DefaultsAmount(t *testing.T) {
	gen := &fakeLLM{text: `{"questions":["q"]}`}
	g := New(Config{Store: store.NewMemory(), LLM: gen})

	_, err := g.Generate(context.Background(), Params{Role: "SRE", UserID: "u1"})
	require.NoError(t, err)
	assert.Contains(t, gen.last.Prompt, "The amount of questions required is: 5.")
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		gen    *fakeLLM
		params Params
	}{
		{"missing role", &fakeLLM{text: `{"questions":["q"]}`}, Params{UserID: "u1"}},
		{"missing user", &fakeLLM{text: `{"questions":["q"]}`}, Params{Role: "SRE"}},
		{"too many", &fakeLLM{text: `{"questions":["q"]}`}, Params{Role: "SRE", UserID: "u1", Amount: 50}},
		{"model error", &fakeLLM{err: errors.New("boom")}, Params{Role: "SRE", UserID: "u1"}},
		{"no questions", &fakeLLM{text: `{"questions":[]}`}, Params{Role: "SRE", UserID: "u1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(Config{Store: store.NewMemory(), LLM: tt.gen})
			_, err := g.Generate(context.Background(), tt.params)
			assert.Error(t, err)
		})
	}
}

func TestSplitTechstack(t *testing.T) {
	assert.Equal(t, []string{}, SplitTechstack(""))
	assert.Equal(t, []string{"Go", "React"}, SplitTechstack(" Go ,React,, "))
}
