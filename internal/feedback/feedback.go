// Package feedback scores a finished interview transcript and stores the result.
package feedback

import (
	"context"
	"fmt"
	"log/slog"
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

// Params identifies the interview being scored.
type Params struct {
	InterviewID string                      `json:"interviewId"`
	UserID      string                      `json:"userId"`
	Transcript  []interview.TranscriptEntry `json:"transcript"`
	// FeedbackID, when set, is overwritten instead of allocating a new record.
	FeedbackID string `json:"feedbackId,omitempty"`
}

// Result reports the outcome; failures carry Success false and no id.
type Result struct {
	Success    bool   `json:"success"`
	FeedbackID string `json:"feedbackId,omitempty"`
}

// Config wires the synthesizer's collaborators.
type Config struct {
	Store  store.Store
	LLM    llm.Generator
	Events *events.Publisher
	Engine string
	Model  string
	Now    func() time.Time
}

// Synthesizer turns transcripts into feedback records.
type Synthesizer struct {
	store  store.Store
	llm    llm.Generator
	events *events.Publisher
	engine string
	model  string
	now    func() time.Time
}

// New creates a synthesizer.
func New(cfg Config) *Synthesizer {
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Synthesizer{
		store:  cfg.Store,
		llm:    cfg.LLM,
		events: cfg.Events,
		engine: cfg.Engine,
		model:  cfg.Model,
		now:    now,
	}
}

type modelOutput struct {
	TotalScore          int                       `json:"totalScore"`
	CategoryScores      []interview.CategoryScore `json:"categoryScores"`
	Strengths           []string                  `json:"strengths"`
	AreasForImprovement []string                  `json:"areasForImprovement"`
	FinalAssessment     string                    `json:"finalAssessment"`
}

// Create scores p.Transcript and persists the record. It never returns an
// error; failures are logged and reported through Result.
func (s *Synthesizer) Create(ctx context.Context, p Params) Result {
	log := slog.With("interview_id", p.InterviewID, "user_id", p.UserID)

	fb, fallback, err := s.evaluate(ctx, p)
	if err != nil {
		log.Error("feedback evaluation failed", "error", err)
		metrics.FeedbackOutcomes.WithLabelValues("error").Inc()
		return Result{}
	}

	id := p.FeedbackID
	if id == "" {
		id = uuid.NewString()
	}
	if err = s.store.SaveFeedback(ctx, id, fb); err != nil {
		log.Error("feedback save failed", "feedback_id", id, "error", err)
		metrics.FeedbackOutcomes.WithLabelValues("error").Inc()
		return Result{}
	}

	outcome := "scored"
	if fallback {
		outcome = "fallback"
	} else {
		metrics.FeedbackScore.Observe(float64(fb.TotalScore))
	}
	metrics.FeedbackOutcomes.WithLabelValues(outcome).Inc()
	log.Info("feedback saved", "feedback_id", id, "outcome", outcome, "total_score", fb.TotalScore)

	ev := events.FeedbackCreatedEvent{
		FeedbackID:  id,
		InterviewID: p.InterviewID,
		UserID:      p.UserID,
		TotalScore:  fb.TotalScore,
		Fallback:    fallback,
		CreatedAt:   fb.CreatedAt,
	}
	if err = s.events.Publish(ctx, events.FeedbackCreated, p.InterviewID, ev); err != nil {
		log.Warn("feedback event publish failed", "error", err)
	}

	return Result{Success: true, FeedbackID: id}
}

// evaluate returns the record to store and whether it is the canned
// empty-transcript record.
func (s *Synthesizer) evaluate(ctx context.Context, p Params) (interview.Feedback, bool, error) {
	lines := CandidateLines(p.Transcript)
	if strings.TrimSpace(lines) == "" {
		return interview.EmptyFeedback(p.InterviewID, p.UserID, s.now()), true, nil
	}

	res, err := s.llm.Generate(ctx, s.engine, llm.Request{
		Model:      s.model,
		System:     prompts.FeedbackSystem,
		Prompt:     prompts.FeedbackPrompt(lines),
		SchemaName: "interview_feedback",
		Schema:     Schema(),
	})
	if err != nil {
		return interview.Feedback{}, false, fmt.Errorf("generate feedback: %w", err)
	}
	out, err := llm.Decode[modelOutput](res)
	if err != nil {
		return interview.Feedback{}, false, err
	}

	return interview.Feedback{
		InterviewID:         p.InterviewID,
		UserID:              p.UserID,
		TotalScore:          interview.ClampScore(out.TotalScore),
		CategoryScores:      interview.NormalizeScores(out.CategoryScores),
		Strengths:           nonNil(out.Strengths),
		AreasForImprovement: nonNil(out.AreasForImprovement),
		FinalAssessment:     strings.TrimSpace(out.FinalAssessment),
		CreatedAt:           s.now(),
	}, false, nil
}

// GetByInterview loads the caller's feedback for an interview.
func (s *Synthesizer) GetByInterview(ctx context.Context, interviewID, userID string) (*interview.Feedback, error) {
	return s.store.GetFeedbackByInterview(ctx, interviewID, userID)
}

// CandidateLines renders the candidate's utterances as dash-prefixed lines.
func CandidateLines(transcript []interview.TranscriptEntry) string {
	var b strings.Builder
	for _, e := range transcript {
		if !e.Role.IsCandidate() {
			continue
		}
		b.WriteString("- ")
		b.WriteString(e.Content)
		b.WriteString("\n")
	}
	return b.String()
}

// Schema is the structured-output contract for a feedback evaluation.
func Schema() *llm.Schema {
	category := llm.Object(
		llm.Prop("name", llm.Enum("Category name", interview.CategoryNames()...)),
		llm.Prop("score", llm.Integer("Score from 0 to 100", 0, 100)),
		llm.Prop("comment", llm.String("Short justification (1-3 sentences)")),
	)
	return llm.Object(
		llm.Prop("totalScore", llm.Integer("Overall score from 0 to 100", 0, 100)),
		llm.Prop("categoryScores", llm.Array("One entry per category, in the listed order", category, int64(len(interview.Categories)))),
		llm.Prop("strengths", llm.Array("At least two strengths", llm.String(""), 2)),
		llm.Prop("areasForImprovement", llm.Array("At least two areas for improvement", llm.String(""), 2)),
		llm.Prop("finalAssessment", llm.String("Overall impression in 3-4 sentences")),
	)
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
