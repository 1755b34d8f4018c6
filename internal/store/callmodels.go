package store

import "time"

// CallSession represents one voice interview call.
type CallSession struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	InterviewID string     `json:"interview_id,omitempty"`
	Mode        string     `json:"mode"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	EventCount  int        `json:"event_count,omitempty"`
}

// CallEvent is a status transition or a final utterance within a call.
type CallEvent struct {
	SessionID string    `json:"session_id"`
	Kind      string    `json:"kind"` // "status", "utterance", "error"
	Role      string    `json:"role,omitempty"`
	Content   string    `json:"content"`
	At        time.Time `json:"at"`
}
