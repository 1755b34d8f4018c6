// Package voice is the client side of the hosted voice session provider.
package voice

import (
	"context"

	"github.com/hubenschmidt/interview-coach/internal/prompts"
)

// EventType names a provider event.
type EventType string

const (
	EventCallStart   EventType = "call-start"
	EventCallEnd     EventType = "call-end"
	EventMessage     EventType = "message"
	EventSpeechStart EventType = "speech-start"
	EventSpeechEnd   EventType = "speech-end"
	EventError       EventType = "error"
)

const (
	MessageTranscript = "transcript"
	TranscriptFinal   = "final"
	TranscriptPartial = "partial"
)

// Message is the payload of a "message" event.
type Message struct {
	Type           string `json:"type"`
	TranscriptType string `json:"transcriptType,omitempty"`
	Role           string `json:"role,omitempty"`
	Transcript     string `json:"transcript,omitempty"`
}

// IsFinalTranscript reports whether m is a finalized utterance.
func (m *Message) IsFinalTranscript() bool {
	return m != nil && m.Type == MessageTranscript && m.TranscriptType == TranscriptFinal
}

// Event is one provider event delivered to listeners.
type Event struct {
	Type    EventType `json:"type"`
	Message *Message  `json:"message,omitempty"`
	Err     string    `json:"error,omitempty"`
}

// Listener receives provider events. Listeners run on the client's read goroutine.
type Listener func(Event)

// StartRequest opens a session either with an inline assistant or a workflow.
type StartRequest struct {
	Assistant      *Assistant        `json:"assistant,omitempty"`
	WorkflowID     string            `json:"workflowId,omitempty"`
	VariableValues map[string]string `json:"variableValues,omitempty"`
}

// Client is a voice session handle. One call is open at a time.
type Client interface {
	Start(ctx context.Context, req StartRequest) error
	Stop(ctx context.Context) error
	// Subscribe registers l and returns a function that removes it.
	Subscribe(l Listener) (unsubscribe func())
}

// Assistant is an inline interviewer persona.
type Assistant struct {
	Name         string      `json:"name"`
	FirstMessage string      `json:"firstMessage"`
	Transcriber  Transcriber `json:"transcriber"`
	Voice        Voice       `json:"voice"`
	Model        Model       `json:"model"`
}

type Transcriber struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Language string `json:"language"`
}

type Voice struct {
	Provider        string  `json:"provider"`
	VoiceID         string  `json:"voiceId"`
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarityBoost"`
	Speed           float64 `json:"speed"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"useSpeakerBoost"`
}

type Model struct {
	Provider string         `json:"provider"`
	Model    string         `json:"model"`
	Messages []ModelMessage `json:"messages"`
}

type ModelMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// DefaultInterviewer returns the scripted interviewer persona. The system
// prompt keeps the {{questions}} placeholder for provider-side substitution.
func DefaultInterviewer() Assistant {
	return Assistant{
		Name:         "Interviewer",
		FirstMessage: prompts.InterviewerGreeting,
		Transcriber: Transcriber{
			Provider: "deepgram",
			Model:    "nova-2",
			Language: "en",
		},
		Voice: Voice{
			Provider:        "11labs",
			VoiceID:         "sarah",
			Stability:       0.4,
			SimilarityBoost: 0.8,
			Speed:           0.9,
			Style:           0.5,
			UseSpeakerBoost: true,
		},
		Model: Model{
			Provider: "openai",
			Model:    "gpt-4",
			Messages: []ModelMessage{{Role: "system", Content: prompts.InterviewerSystem}},
		},
	}
}
