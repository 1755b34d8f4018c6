package interview

import (
	"strings"
	"time"
)

// Category describes one of the fixed scoring dimensions.
type Category struct {
	Name        string
	Description string
}

// Categories is the fixed, ordered category table. Feedback records always
// carry exactly one score per entry, in this order.
var Categories = [...]Category{
	{Name: "Communication Skills", Description: "clarity, articulation, logical structure"},
	{Name: "Technical Knowledge", Description: "accuracy, depth, and relevance of answers"},
	{Name: "Problem Solving", Description: "reasoning, creativity, handling challenges"},
	{Name: "Cultural & Role Fit", Description: "alignment with company/team values, collaboration, motivation"},
	{Name: "Confidence & Clarity", Description: "confidence, tone, and decisiveness"},
}

// NoResponsesAssessment is the final assessment of the canned empty-transcript record.
const NoResponsesAssessment = "No feedback could be generated. The candidate did not provide any responses during the interview."

// CategoryNames returns the category names in table order.
func CategoryNames() []string {
	names := make([]string, len(Categories))
	for i, c := range Categories {
		names[i] = c.Name
	}
	return names
}

// EmptyFeedback returns the deterministic all-zero record used when the
// candidate said nothing.
func EmptyFeedback(interviewID, userID string, now time.Time) Feedback {
	scores := make([]CategoryScore, len(Categories))
	for i, c := range Categories {
		scores[i] = CategoryScore{Name: c.Name}
	}
	return Feedback{
		InterviewID:         interviewID,
		UserID:              userID,
		TotalScore:          0,
		CategoryScores:      scores,
		Strengths:           []string{},
		AreasForImprovement: []string{},
		FinalAssessment:     NoResponsesAssessment,
		CreatedAt:           now,
	}
}

// NormalizeScores projects model output onto the category table: names are
// matched case-insensitively, missing categories score 0 and scores are
// clamped to 0..100. Unknown names are dropped.
func NormalizeScores(in []CategoryScore) []CategoryScore {
	byName := make(map[string]CategoryScore, len(in))
	for _, cs := range in {
		key := strings.ToLower(strings.TrimSpace(cs.Name))
		if _, dup := byName[key]; !dup {
			byName[key] = cs
		}
	}
	out := make([]CategoryScore, len(Categories))
	for i, c := range Categories {
		cs := byName[strings.ToLower(c.Name)]
		out[i] = CategoryScore{
			Name:    c.Name,
			Score:   ClampScore(cs.Score),
			Comment: strings.TrimSpace(cs.Comment),
		}
	}
	return out
}

// ClampScore bounds a score to 0..100.
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
