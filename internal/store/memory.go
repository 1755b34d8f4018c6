package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hubenschmidt/interview-coach/internal/interview"
)

// Memory is an in-process Store used when no database is configured.
type Memory struct {
	mu         sync.RWMutex
	users      map[string]interview.User
	emails     map[string]string // lowercased email -> user id
	interviews map[string]interview.Interview
	feedback   map[string]interview.Feedback
	sessions   map[string]CallSession
	events     map[string][]CallEvent
	sessionIDs []string // insertion order, oldest first
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:      make(map[string]interview.User),
		emails:     make(map[string]string),
		interviews: make(map[string]interview.Interview),
		feedback:   make(map[string]interview.Feedback),
		sessions:   make(map[string]CallSession),
		events:     make(map[string][]CallEvent),
	}
}

func (m *Memory) Ping(context.Context) error { return nil }
func (m *Memory) Close() error               { return nil }

func (m *Memory) GetUser(_ context.Context, id string) (*interview.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *Memory) GetUserByEmail(_ context.Context, email string) (*interview.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.emails[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	u := m.users[id]
	return &u, nil
}

func (m *Memory) CreateUser(_ context.Context, u interview.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(u.Email)
	if _, taken := m.emails[key]; taken {
		return ErrEmailTaken
	}
	if _, exists := m.users[u.ID]; exists {
		return fmt.Errorf("user %s exists", u.ID)
	}
	m.users[u.ID] = u
	m.emails[key] = u.ID
	return nil
}

func (m *Memory) GetInterview(_ context.Context, id string) (*interview.Interview, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	iv, ok := m.interviews[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &iv, nil
}

func (m *Memory) CreateInterview(_ context.Context, iv interview.Interview) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.interviews[iv.ID]; exists {
		return fmt.Errorf("interview %s exists", iv.ID)
	}
	m.interviews[iv.ID] = iv
	return nil
}

func (m *Memory) ListInterviewsByUser(_ context.Context, userID string) ([]interview.Interview, error) {
	return m.filterInterviews(func(iv interview.Interview) bool { return iv.UserID == userID }, 0), nil
}

func (m *Memory) ListLatestInterviews(_ context.Context, excludeUserID string, limit int) ([]interview.Interview, error) {
	if limit <= 0 {
		limit = DefaultLatestLimit
	}
	return m.filterInterviews(func(iv interview.Interview) bool {
		return iv.Finalized && iv.UserID != excludeUserID
	}, limit), nil
}

func (m *Memory) CountFinalizedInterviews(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, iv := range m.interviews {
		if iv.Finalized {
			n++
		}
	}
	return n, nil
}

// filterInterviews returns matches newest first, truncated to limit when > 0.
func (m *Memory) filterInterviews(keep func(interview.Interview) bool, limit int) []interview.Interview {
	m.mu.RLock()
	out := []interview.Interview{}
	for _, iv := range m.interviews {
		if keep(iv) {
			out = append(out, iv)
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (m *Memory) SaveFeedback(_ context.Context, id string, fb interview.Feedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	fb.ID = id
	m.feedback[id] = fb
	return nil
}

func (m *Memory) GetFeedbackByInterview(_ context.Context, interviewID, userID string) (*interview.Feedback, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var newest *interview.Feedback
	for _, fb := range m.feedback {
		if fb.InterviewID != interviewID || fb.UserID != userID {
			continue
		}
		if newest == nil || fb.CreatedAt.After(newest.CreatedAt) ||
			(fb.CreatedAt.Equal(newest.CreatedAt) && fb.ID > newest.ID) {
			newest = &fb
		}
	}
	if newest == nil {
		return nil, ErrNotFound
	}
	return newest, nil
}

func (m *Memory) CreateCallSession(_ context.Context, cs CallSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[cs.ID]; exists {
		return fmt.Errorf("call session %s exists", cs.ID)
	}
	m.sessions[cs.ID] = cs
	m.sessionIDs = append(m.sessionIDs, cs.ID)
	for len(m.sessionIDs) > maxCallSessions {
		oldest := m.sessionIDs[0]
		m.sessionIDs = m.sessionIDs[1:]
		delete(m.sessions, oldest)
		delete(m.events, oldest)
	}
	return nil
}

func (m *Memory) AppendCallEvent(_ context.Context, ev CallEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[ev.SessionID]; !ok {
		return ErrNotFound
	}
	m.events[ev.SessionID] = append(m.events[ev.SessionID], ev)
	return nil
}

func (m *Memory) EndCallSession(_ context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cs, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	cs.Status = status
	cs.EndedAt = &now
	m.sessions[id] = cs
	return nil
}

func (m *Memory) GetCallSession(_ context.Context, id string) (*CallSession, []CallEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cs, ok := m.sessions[id]
	if !ok {
		return nil, nil, ErrNotFound
	}
	events := append([]CallEvent(nil), m.events[id]...)
	cs.EventCount = len(events)
	return &cs, events, nil
}
