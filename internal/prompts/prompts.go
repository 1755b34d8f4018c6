package prompts

import (
	"fmt"
	"strings"

	"github.com/hubenschmidt/interview-coach/internal/interview"
)

// FeedbackSystem is the system instruction for transcript evaluation.
const FeedbackSystem = `You are a professional interviewer analyzing a mock interview.
Provide structured and realistic feedback, not vague or overly positive.`

// InterviewerSystem is the persona prompt of the scripted interviewer.
// {{questions}} is substituted by the voice provider.
const InterviewerSystem = `You are a professional job interviewer conducting a real-time voice interview with a candidate. Your goal is to assess their qualifications, motivation, and fit for the role.

Interview Guidelines:
Follow the structured question flow:
{{questions}}

Engage naturally and react appropriately:
- Listen actively to responses and acknowledge them before moving forward.
- Ask brief follow-up questions if a response is vague or requires more detail.
- Keep the conversation flowing smoothly while maintaining control.

Be professional, yet warm and welcoming. Keep responses concise and to the point, like in a real voice interview.

Conclude the interview properly: thank the candidate for their time and inform them that the company will reach out soon with feedback.`

// InterviewerGreeting is the first thing the interviewer says.
const InterviewerGreeting = "Hello! Thank you for taking the time to speak with me today. I'm excited to learn more about you and your experience."

// FeedbackPrompt embeds the candidate lines and the scoring instructions.
func FeedbackPrompt(candidateLines string) string {
	var b strings.Builder
	b.WriteString("You are an experienced technical interviewer.\n")
	b.WriteString("Evaluate the candidate's performance strictly and fairly.\n\n")
	b.WriteString("Transcript:\n")
	b.WriteString(candidateLines)
	b.WriteString("\nInstructions for scoring:\n")
	b.WriteString("- Give each category a score between 0 and 100.\n")
	b.WriteString("- Justify the score with a short but specific comment (1-3 sentences).\n")
	b.WriteString("- Use concrete examples from the transcript if possible.\n")
	b.WriteString("- Categories:\n")
	for i, c := range interview.Categories {
		fmt.Fprintf(&b, "%d. %s: %s.\n", i+1, c.Name, c.Description)
	}
	b.WriteString("\nAdditional:\n")
	b.WriteString("- Provide at least 2 bullet points for strengths and areas for improvement.\n")
	b.WriteString("- FinalAssessment: a short paragraph (3-4 sentences) giving your overall impression.\n")
	return b.String()
}

// QuestionsPrompt asks for voice-friendly interview questions.
func QuestionsPrompt(role, level, techstack, focus string, amount int) string {
	return fmt.Sprintf(`Prepare questions for a job interview.
The job role is %s.
The job experience level is %s.
The tech stack used in the job is: %s.
The focus between behavioural and technical questions should lean towards: %s.
The amount of questions required is: %d.
Please return only the questions, without any additional text.
The questions are going to be read by a voice assistant so do not use "/" or "*" or any other special characters which might break the voice assistant.`,
		role, level, techstack, focus, amount)
}

// FormatQuestions renders a question list as dash-prefixed lines for the
// interviewer's {{questions}} variable.
func FormatQuestions(questions []string) string {
	lines := make([]string, len(questions))
	for i, q := range questions {
		lines[i] = "- " + q
	}
	return strings.Join(lines, "\n")
}
