// Package call drives one browser's voice interview session.
package call

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hubenschmidt/interview-coach/internal/calllog"
	"github.com/hubenschmidt/interview-coach/internal/feedback"
	"github.com/hubenschmidt/interview-coach/internal/interview"
	"github.com/hubenschmidt/interview-coach/internal/metrics"
	"github.com/hubenschmidt/interview-coach/internal/prompts"
	"github.com/hubenschmidt/interview-coach/internal/voice"
)

// ErrAlreadyStarted is returned by Start while a call is connecting or active.
var ErrAlreadyStarted = errors.New("call already in progress")

const (
	// HomePath is where the browser goes after generation or a failed synthesis.
	HomePath = "/"

	defaultReactionTimeout = 2 * time.Minute
	stopTimeout            = 5 * time.Second
)

// Synthesizer scores a finished transcript; *feedback.Synthesizer implements it.
type Synthesizer interface {
	Create(ctx context.Context, p feedback.Params) feedback.Result
}

// Update types pushed to the browser.
const (
	UpdateStatus     = "status"
	UpdateSpeaking   = "speaking"
	UpdateTranscript = "transcript"
	UpdateError      = "error"
)

// Update is a UI-facing change in controller state.
type Update struct {
	Type     string                     `json:"type"`
	Status   string                     `json:"status,omitempty"`
	Speaking *bool                      `json:"speaking,omitempty"`
	Entry    *interview.TranscriptEntry `json:"entry,omitempty"`
	Text     string                     `json:"text,omitempty"`
}

// Config wires a controller to its collaborators.
type Config struct {
	Voice       voice.Client
	Synthesizer Synthesizer
	Mode        Mode

	UserName    string
	UserID      string
	InterviewID string
	FeedbackID  string
	Questions   []string
	WorkflowID  string
	Interviewer voice.Assistant

	// Navigate receives the path the browser should move to after the call.
	Navigate func(path string)
	// OnUpdate receives status, speaking, transcript and error updates.
	OnUpdate func(Update)
	Recorder *calllog.Recorder

	// ReactionTimeout bounds feedback synthesis after the call ends.
	ReactionTimeout time.Duration
}

// Controller is the call state machine. Voice events arrive on the voice
// client's read goroutine and user actions on the caller's, so all state is
// guarded by mu. Callbacks are invoked without mu held.
type Controller struct {
	cfg Config

	mu          sync.Mutex
	status      Status
	speaking    bool
	transcript  []interview.TranscriptEntry
	unsubscribe func()
	gen         int // bumped per session; stale listener events are dropped
	reacted     bool
	callID      string

	reactions sync.WaitGroup
}

// New creates an inactive controller.
func New(cfg Config) *Controller {
	if cfg.ReactionTimeout <= 0 {
		cfg.ReactionTimeout = defaultReactionTimeout
	}
	return &Controller{cfg: cfg}
}

// Status returns the current call status.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Speaking reports whether the interviewer is currently talking.
func (c *Controller) Speaking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speaking
}

// Transcript returns a copy of the finalized utterances of the current session.
func (c *Controller) Transcript() []interview.TranscriptEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]interview.TranscriptEntry(nil), c.transcript...)
}

// Start opens a voice session. It is rejected with ErrAlreadyStarted unless
// the call is inactive or finished. A failed start rolls back to inactive.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if !c.status.canStart() {
		status := c.status
		c.mu.Unlock()
		slog.Warn("call start rejected", "status", status.String())
		return ErrAlreadyStarted
	}
	c.gen++
	gen := c.gen
	c.status = StatusConnecting
	c.speaking = false
	c.transcript = nil
	c.reacted = false
	c.unsubscribe = c.cfg.Voice.Subscribe(func(ev voice.Event) { c.handleEvent(gen, ev) })
	c.callID = uuid.NewString()
	callID := c.callID
	c.mu.Unlock()

	c.cfg.Recorder.StartCall(callID, string(c.cfg.Mode), c.cfg.InterviewID, StatusConnecting.String())

	metrics.CallTransitions.WithLabelValues(StatusConnecting.String()).Inc()
	c.update(Update{Type: UpdateStatus, Status: StatusConnecting.String()})

	err := c.cfg.Voice.Start(ctx, c.startRequest())
	if err == nil {
		c.stopIfFinished(gen)
		return nil
	}

	c.mu.Lock()
	rolledBack := c.gen == gen && c.status == StatusConnecting
	if rolledBack {
		c.gen++
		c.status = StatusInactive
		c.detachLocked()
	}
	c.mu.Unlock()

	slog.Error("call start failed", "mode", c.cfg.Mode, "interview_id", c.cfg.InterviewID, "error", err)
	metrics.Errors.WithLabelValues("call", "start").Inc()
	if rolledBack {
		c.cfg.Recorder.EndCall(callID, StatusInactive.String())
		metrics.CallTransitions.WithLabelValues(StatusInactive.String()).Inc()
		c.update(Update{Type: UpdateStatus, Status: StatusInactive.String()})
	}
	return fmt.Errorf("start voice session: %w", err)
}

// Stop ends the call from the user side. The voice provider's stop is always
// invoked, so repeated stops are safe.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	var fire func()
	if c.status != StatusInactive {
		fire = c.finishLocked()
	}
	c.mu.Unlock()

	if fire != nil {
		fire()
	}
	if err := c.cfg.Voice.Stop(ctx); err != nil {
		slog.Warn("voice stop failed", "error", err)
		return fmt.Errorf("stop voice session: %w", err)
	}
	return nil
}

// stopIfFinished closes a voice session whose dial completed after the user
// had already stopped the call.
func (c *Controller) stopIfFinished(gen int) {
	c.mu.Lock()
	finished := c.gen == gen && c.status == StatusFinished
	c.mu.Unlock()
	if !finished {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := c.cfg.Voice.Stop(ctx); err != nil {
		slog.Warn("voice stop after late start failed", "error", err)
	}
}

// Wait blocks until any in-flight post-call reaction completes.
func (c *Controller) Wait() {
	c.reactions.Wait()
}

func (c *Controller) startRequest() voice.StartRequest {
	if c.cfg.Mode == ModeGenerate {
		return voice.StartRequest{
			WorkflowID: c.cfg.WorkflowID,
			VariableValues: map[string]string{
				"username": c.cfg.UserName,
				"userid":   c.cfg.UserID,
			},
		}
	}
	interviewer := c.cfg.Interviewer
	return voice.StartRequest{
		Assistant: &interviewer,
		VariableValues: map[string]string{
			"questions": prompts.FormatQuestions(c.cfg.Questions),
		},
	}
}

func (c *Controller) handleEvent(gen int, ev voice.Event) {
	var updates []Update
	var logs []func()
	var fire func()

	c.mu.Lock()
	if gen != c.gen || c.status.IsTerminal() {
		c.mu.Unlock()
		return
	}

	callID := c.callID
	switch ev.Type {
	case voice.EventCallStart:
		if c.status == StatusConnecting {
			c.status = StatusActive
			logs = append(logs, func() { c.cfg.Recorder.Status(callID, StatusActive.String()) })
			metrics.CallTransitions.WithLabelValues(StatusActive.String()).Inc()
			updates = append(updates, Update{Type: UpdateStatus, Status: StatusActive.String()})
		}
	case voice.EventCallEnd:
		fire = c.finishLocked()
	case voice.EventMessage:
		if ev.Message.IsFinalTranscript() {
			entry := interview.TranscriptEntry{Role: interview.Role(ev.Message.Role), Content: ev.Message.Transcript}
			c.transcript = append(c.transcript, entry)
			logs = append(logs, func() { c.cfg.Recorder.Utterance(callID, ev.Message.Role, ev.Message.Transcript) })
			metrics.Utterances.WithLabelValues(ev.Message.Role).Inc()
			updates = append(updates, Update{Type: UpdateTranscript, Entry: &entry})
		}
	case voice.EventSpeechStart, voice.EventSpeechEnd:
		speaking := ev.Type == voice.EventSpeechStart
		c.speaking = speaking
		updates = append(updates, Update{Type: UpdateSpeaking, Speaking: &speaking})
	case voice.EventError:
		slog.Error("voice provider error", "call_id", c.callID, "error", ev.Err)
		logs = append(logs, func() { c.cfg.Recorder.Error(callID, ev.Err) })
		metrics.Errors.WithLabelValues("voice", "provider").Inc()
		updates = append(updates, Update{Type: UpdateError, Text: ev.Err})
	}
	c.mu.Unlock()

	for _, l := range logs {
		l()
	}
	for _, u := range updates {
		c.update(u)
	}
	if fire != nil {
		fire()
	}
}

// finishLocked moves to Finished and detaches listeners. It returns the
// post-call side effects, call log included, to run once mu is released, or
// nil when the call was already finished.
func (c *Controller) finishLocked() func() {
	if c.status == StatusFinished {
		return nil
	}
	c.status = StatusFinished
	c.speaking = false
	c.detachLocked()
	callID := c.callID
	metrics.CallTransitions.WithLabelValues(StatusFinished.String()).Inc()

	if c.reacted {
		return func() {
			c.cfg.Recorder.EndCall(callID, StatusFinished.String())
			c.update(Update{Type: UpdateStatus, Status: StatusFinished.String()})
		}
	}
	c.reacted = true
	transcript := append([]interview.TranscriptEntry(nil), c.transcript...)
	c.reactions.Add(1)

	return func() {
		c.cfg.Recorder.EndCall(callID, StatusFinished.String())
		c.update(Update{Type: UpdateStatus, Status: StatusFinished.String()})
		go c.react(transcript)
	}
}

func (c *Controller) detachLocked() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

// react runs the post-call policy on a context detached from the request so
// a closing socket does not cancel an in-flight synthesis.
func (c *Controller) react(transcript []interview.TranscriptEntry) {
	defer c.reactions.Done()

	if c.cfg.Mode == ModeGenerate {
		c.navigate(HomePath)
		return
	}

	log := slog.With("interview_id", c.cfg.InterviewID, "user_id", c.cfg.UserID)
	if c.cfg.InterviewID == "" || c.cfg.UserID == "" || c.cfg.Synthesizer == nil {
		log.Error("feedback skipped: call has no interview or user")
		c.navigate(HomePath)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ReactionTimeout)
	defer cancel()

	res := c.cfg.Synthesizer.Create(ctx, feedback.Params{
		InterviewID: c.cfg.InterviewID,
		UserID:      c.cfg.UserID,
		Transcript:  transcript,
		FeedbackID:  c.cfg.FeedbackID,
	})
	if !res.Success || res.FeedbackID == "" {
		log.Error("error saving feedback")
		c.navigate(HomePath)
		return
	}
	c.navigate(FeedbackPath(c.cfg.InterviewID))
}

// FeedbackPath is the feedback view of an interview.
func FeedbackPath(interviewID string) string {
	return "/interview/" + interviewID + "/feedback"
}

func (c *Controller) navigate(path string) {
	if c.cfg.Navigate != nil {
		c.cfg.Navigate(path)
	}
}

func (c *Controller) update(u Update) {
	if c.cfg.OnUpdate != nil {
		c.cfg.OnUpdate(u)
	}
}
