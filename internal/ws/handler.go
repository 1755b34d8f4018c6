// Package ws serves the browser's interview call socket.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hubenschmidt/interview-coach/internal/auth"
	"github.com/hubenschmidt/interview-coach/internal/call"
	"github.com/hubenschmidt/interview-coach/internal/calllog"
	"github.com/hubenschmidt/interview-coach/internal/interview"
	"github.com/hubenschmidt/interview-coach/internal/metrics"
	"github.com/hubenschmidt/interview-coach/internal/store"
	"github.com/hubenschmidt/interview-coach/internal/voice"
)

const (
	msgStartFailed    = "Could not start the call. Please try again."
	msgAlreadyStarted = "A call is already in progress."
	msgUnknownAction  = "Unknown action."

	eventRedirect = "redirect"

	stopTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandlerConfig holds the shared collaborators for all call sockets.
type HandlerConfig struct {
	Auth        *auth.Service
	Store       store.Store
	Synthesizer call.Synthesizer
	// NewVoice returns a fresh voice client per socket.
	NewVoice        func() voice.Client
	Interviewer     voice.Assistant
	WorkflowID      string
	MaxConcurrent   int
	ReactionTimeout time.Duration
}

// Handler manages interview call sockets with admission control.
type Handler struct {
	cfg HandlerConfig
	sem chan struct{}
}

// NewHandler creates a WebSocket handler with a concurrency limit.
func NewHandler(cfg HandlerConfig) *Handler {
	maxConc := cfg.MaxConcurrent
	if maxConc <= 0 {
		maxConc = 100
	}
	return &Handler{
		cfg: cfg,
		sem: make(chan struct{}, maxConc),
	}
}

// callMetadata is the first text frame sent by the client.
type callMetadata struct {
	Type        string `json:"type"`
	InterviewID string `json:"interviewId"`
	FeedbackID  string `json:"feedbackId"`
}

// command is every later text frame.
type command struct {
	Action string `json:"action"`
}

// event is a server-to-browser frame.
type event struct {
	call.Update
	Path string `json:"path,omitempty"`
}

// ServeHTTP authenticates, upgrades the connection and runs the call.
// Returns 401 without a session and 503 at capacity.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := h.cfg.Auth.CurrentUser(r)
	if user == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	select {
	case h.sem <- struct{}{}:
		defer func() { <-h.sem }()
	default:
		http.Error(w, "at capacity", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	metrics.CallsActive.Inc()
	metrics.CallsTotal.Inc()
	defer metrics.CallsActive.Dec()

	h.runSession(conn, user)
}

func (h *Handler) runSession(conn *websocket.Conn, user *interview.User) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sendEvent := newEventSender(conn)

	meta, err := readMetadata(conn)
	if err != nil {
		slog.Error("read metadata", "error", err)
		return
	}
	mode := call.ParseMode(meta.Type)

	var questions []string
	if mode == call.ModeInterview {
		iv, loadErr := h.cfg.Store.GetInterview(ctx, meta.InterviewID)
		if loadErr != nil {
			slog.Warn("interview lookup failed", "interview_id", meta.InterviewID, "error", loadErr)
			sendEvent(event{Update: call.Update{Type: call.UpdateError, Text: "Interview not found."}})
			return
		}
		questions = iv.Questions
	}

	rec := calllog.NewRecorder(h.cfg.Store, user.ID)
	defer rec.Close()

	ctrl := call.New(call.Config{
		Voice:           h.cfg.NewVoice(),
		Synthesizer:     h.cfg.Synthesizer,
		Mode:            mode,
		UserName:        user.Name,
		UserID:          user.ID,
		InterviewID:     meta.InterviewID,
		FeedbackID:      meta.FeedbackID,
		Questions:       questions,
		WorkflowID:      h.cfg.WorkflowID,
		Interviewer:     h.cfg.Interviewer,
		Navigate:        func(path string) { sendEvent(event{Update: call.Update{Type: eventRedirect}, Path: path}) },
		OnUpdate:        func(u call.Update) { sendEvent(event{Update: u}) },
		Recorder:        rec,
		ReactionTimeout: h.cfg.ReactionTimeout,
	})

	slog.Info("call socket opened", "user_id", user.ID, "mode", mode, "interview_id", meta.InterviewID)
	sendEvent(event{Update: call.Update{Type: call.UpdateStatus, Status: ctrl.Status().String()}})

	processMessages(ctx, conn, ctrl, sendEvent)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
	defer stopCancel()
	if ctrl.Status() != call.StatusInactive {
		if err = ctrl.Stop(stopCtx); err != nil {
			slog.Warn("stop on close", "error", err)
		}
	}
	ctrl.Wait()

	slog.Info("call socket closed", "user_id", user.ID)
}

// processMessages reads start/stop commands until the socket closes. Start
// runs on its own goroutine so a stop can cancel a call that is still
// connecting.
func processMessages(ctx context.Context, conn *websocket.Conn, ctrl *call.Controller, sendEvent func(event)) {
	var starting sync.WaitGroup
	cancelStart := context.CancelFunc(func() {})
	defer func() {
		cancelStart()
		starting.Wait()
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			slog.Info("connection closed", "error", err)
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var cmd command
		if err = json.Unmarshal(data, &cmd); err != nil {
			slog.Warn("bad command frame", "error", err)
			continue
		}

		switch cmd.Action {
		case "start":
			startCtx, cancel := context.WithCancel(ctx)
			cancelStart = cancel
			starting.Add(1)
			go func() {
				defer starting.Done()
				defer cancel()
				startCall(startCtx, ctrl, sendEvent)
			}()
		case "stop":
			cancelStart()
			if err = ctrl.Stop(ctx); err != nil {
				slog.Warn("stop", "error", err)
			}
		default:
			sendEvent(event{Update: call.Update{Type: call.UpdateError, Text: msgUnknownAction}})
		}
	}
}

func startCall(ctx context.Context, ctrl *call.Controller, sendEvent func(event)) {
	err := ctrl.Start(ctx)
	switch {
	case err == nil:
	case errors.Is(err, call.ErrAlreadyStarted):
		sendEvent(event{Update: call.Update{Type: call.UpdateError, Text: msgAlreadyStarted}})
	case ctx.Err() != nil:
		slog.Info("call start cancelled", "error", err)
	default:
		sendEvent(event{Update: call.Update{Type: call.UpdateError, Text: msgStartFailed}})
	}
}

func newEventSender(conn *websocket.Conn) func(event) {
	var mu sync.Mutex
	return func(ev event) {
		mu.Lock()
		defer mu.Unlock()

		jsonBytes, err := json.Marshal(ev)
		if err != nil {
			return
		}
		if err = conn.WriteMessage(websocket.TextMessage, jsonBytes); err != nil {
			slog.Debug("write event", "type", ev.Type, "error", err)
		}
	}
}

func readMetadata(conn *websocket.Conn) (*callMetadata, error) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	var meta callMetadata
	if err = json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}
