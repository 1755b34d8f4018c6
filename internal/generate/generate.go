// Package generate creates interview question sets on behalf of the voice workflow.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hubenschmidt/interview-coach/internal/events"
	"github.com/hubenschmidt/interview-coach/internal/interview"
	"github.com/hubenschmidt/interview-coach/internal/llm"
	"github.com/hubenschmidt/interview-coach/internal/metrics"
	"github.com/hubenschmidt/interview-coach/internal/prompts"
	"github.com/hubenschmidt/interview-coach/internal/store"
)

const (
	defaultAmount = 5
	maxAmount     = 20
)

// CoverImages are the interview card covers a generated interview picks from.
var CoverImages = []string{
	"/covers/adobe.png",
	"/covers/amazon.png",
	"/covers/facebook.png",
	"/covers/hostinger.png",
	"/covers/pinterest.png",
	"/covers/quora.png",
	"/covers/reddit.png",
	"/covers/skype.png",
	"/covers/spotify.png",
	"/covers/telegram.png",
	"/covers/tiktok.png",
	"/covers/yahoo.png",
}

// Params is the request sent by the voice workflow at the end of a generation call.
type Params struct {
	Type      string `json:"type"`
	Role      string `json:"role"`
	Level     string `json:"level"`
	Techstack string `json:"techstack"`
	Amount    int    `json:"amount"`
	UserID    string `json:"userid"`
}

// Validate rejects requests missing the fields the prompt needs.
func (p Params) Validate() error {
	var errs []error
	if strings.TrimSpace(p.Role) == "" {
		errs = append(errs, errors.New("role is required"))
	}
	if strings.TrimSpace(p.UserID) == "" {
		errs = append(errs, errors.New("userid is required"))
	}
	if p.Amount < 0 || p.Amount > maxAmount {
		errs = append(errs, fmt.Errorf("amount must be between 1 and %d", maxAmount))
	}
	return errors.Join(errs...)
}

// Config wires the generator.
type Config struct {
	Store  store.Store
	LLM    llm.Generator
	Events *events.Publisher
	Engine string
	Model  string
	Now    func() time.Time
	// PickCover returns an index into CoverImages.
	PickCover func(n int) int
}

// Generator asks the model for questions and stores the interview.
type Generator struct {
	cfg Config
}

// New creates a generator.
func New(cfg Config) *Generator {
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.PickCover == nil {
		cfg.PickCover = rand.IntN
	}
	return &Generator{cfg: cfg}
}

type questionsOutput struct {
	Questions []string `json:"questions"`
}

// QuestionsSchema is the structured-output contract for question generation.
func QuestionsSchema() *llm.Schema {
	return llm.Object(
		llm.Prop("questions", llm.Array("Interview questions, plain text without special characters", llm.String(""), 1)),
	)
}

// Generate produces and stores a finalized interview.
func (g *Generator) Generate(ctx context.Context, p Params) (*interview.Interview, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	amount := p.Amount
	if amount == 0 {
		amount = defaultAmount
	}

	res, err := g.cfg.LLM.Generate(ctx, g.cfg.Engine, llm.Request{
		Model:      g.cfg.Model,
		Prompt:     prompts.QuestionsPrompt(p.Role, p.Level, p.Techstack, p.Type, amount),
		SchemaName: "interview_questions",
		Schema:     QuestionsSchema(),
	})
	if err != nil {
		return nil, fmt.Errorf("generate questions: %w", err)
	}
	out, err := llm.Decode[questionsOutput](res)
	if err != nil {
		return nil, err
	}
	questions := cleanQuestions(out.Questions)
	if len(questions) == 0 {
		return nil, errors.New("generate questions: model returned no questions")
	}

	iv := interview.Interview{
		ID:         uuid.NewString(),
		UserID:     p.UserID,
		Role:       strings.TrimSpace(p.Role),
		Level:      strings.TrimSpace(p.Level),
		Type:       strings.TrimSpace(p.Type),
		Techstack:  SplitTechstack(p.Techstack),
		Questions:  questions,
		Finalized:  true,
		CoverImage: CoverImages[g.cfg.PickCover(len(CoverImages))],
		CreatedAt:  g.cfg.Now(),
	}
	if err = g.cfg.Store.CreateInterview(ctx, iv); err != nil {
		return nil, fmt.Errorf("store interview: %w", err)
	}

	metrics.InterviewsGenerated.Inc()
	slog.Info("interview generated", "interview_id", iv.ID, "user_id", iv.UserID, "questions", len(questions))

	ev := events.InterviewGeneratedEvent{
		InterviewID: iv.ID,
		UserID:      iv.UserID,
		Role:        iv.Role,
		Questions:   len(questions),
		CreatedAt:   iv.CreatedAt,
	}
	if err = g.cfg.Events.Publish(ctx, events.InterviewGenerated, iv.ID, ev); err != nil {
		slog.Warn("interview event publish failed", "interview_id", iv.ID, "error", err)
	}
	return &iv, nil
}

// SplitTechstack turns "Go, React ,," into ["Go", "React"].
func SplitTechstack(s string) []string {
	out := []string{}
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func cleanQuestions(in []string) []string {
	out := make([]string, 0, len(in))
	for _, q := range in {
		q = strings.TrimSpace(strings.NewReplacer("/", " ", "*", "").Replace(q))
		if q != "" {
			out = append(out, q)
		}
	}
	return out
}
