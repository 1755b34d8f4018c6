// Package calllog persists call sessions and their events off the hot path.
package calllog

import (
	"context"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/hubenschmidt/interview-coach/internal/metrics"
	"github.com/hubenschmidt/interview-coach/internal/store"
)

const (
	maxContentLen = 2000
	queueSize     = 64
	writeTimeout  = 5 * time.Second
)

// write is one pending store operation.
type write struct {
	op    string
	apply func(ctx context.Context, s store.Store) error
}

// Recorder queues call log writes for a single connection and applies them
// in order on one goroutine. Enqueueing never blocks: when the queue is full
// the write is dropped and counted. A nil *Recorder records nothing.
type Recorder struct {
	store  store.Store
	userID string

	mu     sync.RWMutex
	closed bool
	queue  chan write
	done   chan struct{}
}

// NewRecorder starts a recorder for userID's calls. Close releases it.
func NewRecorder(s store.Store, userID string) *Recorder {
	r := &Recorder{
		store:  s,
		userID: userID,
		queue:  make(chan write, queueSize),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *Recorder) run() {
	defer close(r.done)
	for w := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := w.apply(ctx, r.store); err != nil {
			slog.Warn("call log write failed", "op", w.op, "error", err)
		}
		cancel()
	}
}

func (r *Recorder) enqueue(w write) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.queue <- w:
	default:
		metrics.Errors.WithLabelValues("calllog", "dropped").Inc()
		slog.Warn("call log queue full, dropping write", "op", w.op)
	}
}

// StartCall opens the session callID.
func (r *Recorder) StartCall(callID, mode, interviewID, status string) {
	if r == nil || callID == "" {
		return
	}
	cs := store.CallSession{
		ID:          callID,
		UserID:      r.userID,
		InterviewID: interviewID,
		Mode:        mode,
		Status:      status,
		StartedAt:   time.Now().UTC(),
	}
	r.enqueue(write{op: "start", apply: func(ctx context.Context, s store.Store) error {
		return s.CreateCallSession(ctx, cs)
	}})
}

// Status records a status transition.
func (r *Recorder) Status(callID, status string) {
	r.append(callID, "status", "", status)
}

// Utterance records a finalized transcript entry.
func (r *Recorder) Utterance(callID, role, content string) {
	r.append(callID, "utterance", role, content)
}

// Error records a voice provider fault.
func (r *Recorder) Error(callID, text string) {
	r.append(callID, "error", "", text)
}

// EndCall closes the session with its terminal status.
func (r *Recorder) EndCall(callID, status string) {
	if r == nil || callID == "" {
		return
	}
	r.enqueue(write{op: "end", apply: func(ctx context.Context, s store.Store) error {
		return s.EndCallSession(ctx, callID, status)
	}})
}

func (r *Recorder) append(callID, kind, role, content string) {
	if r == nil || callID == "" {
		return
	}
	ev := store.CallEvent{
		SessionID: callID,
		Kind:      kind,
		Role:      role,
		Content:   clip(content, maxContentLen),
		At:        time.Now().UTC(),
	}
	r.enqueue(write{op: kind, apply: func(ctx context.Context, s store.Store) error {
		return s.AppendCallEvent(ctx, ev)
	}})
}

// Close applies the queued writes and stops the goroutine. Later calls
// record nothing.
func (r *Recorder) Close() {
	if r == nil {
		return
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()
	<-r.done
}

// clip shortens s to at most max bytes without splitting a rune.
func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
