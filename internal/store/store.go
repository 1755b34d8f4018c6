// Package store persists users, interviews, feedback and call logs.
package store

import (
	"context"
	"errors"

	"github.com/hubenschmidt/interview-coach/internal/interview"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailTaken is returned by CreateUser when another account owns the email.
var ErrEmailTaken = errors.New("email already in use")

// DefaultLatestLimit bounds the catalog of others' interviews.
const DefaultLatestLimit = 20

// maxCallSessions caps retained call logs; older sessions are pruned on insert.
const maxCallSessions = 500

// Store is the document store contract used by the gateway.
type Store interface {
	GetUser(ctx context.Context, id string) (*interview.User, error)
	GetUserByEmail(ctx context.Context, email string) (*interview.User, error)
	CreateUser(ctx context.Context, u interview.User) error

	GetInterview(ctx context.Context, id string) (*interview.Interview, error)
	CreateInterview(ctx context.Context, iv interview.Interview) error
	ListInterviewsByUser(ctx context.Context, userID string) ([]interview.Interview, error)
	ListLatestInterviews(ctx context.Context, excludeUserID string, limit int) ([]interview.Interview, error)
	CountFinalizedInterviews(ctx context.Context) (int, error)

	// SaveFeedback writes fb under id, replacing any existing record.
	SaveFeedback(ctx context.Context, id string, fb interview.Feedback) error
	GetFeedbackByInterview(ctx context.Context, interviewID, userID string) (*interview.Feedback, error)

	CreateCallSession(ctx context.Context, s CallSession) error
	AppendCallEvent(ctx context.Context, ev CallEvent) error
	EndCallSession(ctx context.Context, id, status string) error
	GetCallSession(ctx context.Context, id string) (*CallSession, []CallEvent, error)

	Ping(ctx context.Context) error
	Close() error
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*Postgres)(nil)
)
