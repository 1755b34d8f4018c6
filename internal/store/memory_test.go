package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubenschmidt/interview-coach/internal/interview"
)

func TestMemory_Users(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.CreateUser(ctx, interview.User{ID: "u1", Name: "Ada", Email: "Ada@Example.com"}))

	u, err := m.GetUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)

	err = m.CreateUser(ctx, interview.User{ID: "u2", Name: "Other", Email: "ada@example.com"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = m.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_ListLatestInterviews(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	seed := []interview.Interview{
		{ID: "a", UserID: "me", Finalized: true, CreatedAt: base},
		{ID: "b", UserID: "other", Finalized: true, CreatedAt: base.Add(time.Hour)},
		{ID: "c", UserID: "other", Finalized: false, CreatedAt: base.Add(2 * time.Hour)},
		{ID: "d", UserID: "other", Finalized: true, CreatedAt: base.Add(3 * time.Hour)},
	}
	for _, iv := range seed {
		require.NoError(t, m.CreateInterview(ctx, iv))
	}

	latest, err := m.ListLatestInterviews(ctx, "me", 10)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "d", latest[0].ID)
	assert.Equal(t, "b", latest[1].ID)

	limited, err := m.ListLatestInterviews(ctx, "me", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	mine, err := m.ListInterviewsByUser(ctx, "me")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "a", mine[0].ID)

	none, err := m.ListInterviewsByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	n, err := m.CountFinalizedInterviews(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestMemory_SaveFeedbackOverwrites(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	fb := interview.EmptyFeedback("iv1", "u1", time.Now())
	require.NoError(t, m.SaveFeedback(ctx, "fb1", fb))

	fb.TotalScore = 80
	require.NoError(t, m.SaveFeedback(ctx, "fb1", fb))

	got, err := m.GetFeedbackByInterview(ctx, "iv1", "u1")
	require.NoError(t, err)
	assert.Equal(t, "fb1", got.ID)
	assert.Equal(t, 80, got.TotalScore)
	assert.Len(t, m.feedback, 1)

	_, err = m.GetFeedbackByInterview(ctx, "iv1", "someone-else")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_GetFeedbackByInterviewReturnsNewest(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"fb-b", "fb-c", "fb-a"} {
		fb := interview.EmptyFeedback("iv1", "u1", base.Add(time.Duration(i)*time.Minute))
		fb.TotalScore = i * 10
		require.NoError(t, m.SaveFeedback(ctx, id, fb))
	}

	for range 20 {
		got, err := m.GetFeedbackByInterview(ctx, "iv1", "u1")
		require.NoError(t, err)
		assert.Equal(t, "fb-a", got.ID)
		assert.Equal(t, 20, got.TotalScore)
	}
}

func TestMemory_CallLog(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.CreateCallSession(ctx, CallSession{ID: "s1", UserID: "u1", Mode: "interview", Status: "CONNECTING", StartedAt: time.Now()}))
	require.NoError(t, m.AppendCallEvent(ctx, CallEvent{SessionID: "s1", Kind: "status", Content: "ACTIVE"}))
	require.NoError(t, m.AppendCallEvent(ctx, CallEvent{SessionID: "s1", Kind: "utterance", Role: "user", Content: "hi"}))
	require.NoError(t, m.EndCallSession(ctx, "s1", "FINISHED"))

	cs, events, err := m.GetCallSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "FINISHED", cs.Status)
	assert.NotNil(t, cs.EndedAt)
	assert.Equal(t, 2, cs.EventCount)
	assert.Equal(t, "hi", events[1].Content)

	assert.ErrorIs(t, m.AppendCallEvent(ctx, CallEvent{SessionID: "missing"}), ErrNotFound)
}

func TestMemory_PrunesOldCallSessions(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	for i := 0; i < maxCallSessions+5; i++ {
		require.NoError(t, m.CreateCallSession(ctx, CallSession{ID: fmt.Sprintf("s%d", i), StartedAt: time.Now()}))
	}

	assert.Len(t, m.sessions, maxCallSessions)
	_, _, err := m.GetCallSession(ctx, "s0")
	assert.ErrorIs(t, err, ErrNotFound)
	_, _, err = m.GetCallSession(ctx, fmt.Sprintf("s%d", maxCallSessions+4))
	assert.NoError(t, err)
}
