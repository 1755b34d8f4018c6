package calllog

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubenschmidt/interview-coach/internal/store"
)

// stalledStore blocks every event append until release is closed.
type stalledStore struct {
	*store.Memory
	release chan struct{}
}

func (s *stalledStore) AppendCallEvent(ctx context.Context, ev store.CallEvent) error {
	<-s.release
	return s.Memory.AppendCallEvent(ctx, ev)
}

func TestRecorder_PersistsCall(t *testing.T) {
	mem := store.NewMemory()
	rec := NewRecorder(mem, "u1")

	id := uuid.NewString()
	rec.StartCall(id, "interview", "iv1", "CONNECTING")
	rec.Status(id, "ACTIVE")
	rec.Utterance(id, "user", "I like Go")
	rec.Error(id, "socket hiccup")
	rec.EndCall(id, "FINISHED")
	rec.Close()

	cs, events, err := mem.GetCallSession(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "u1", cs.UserID)
	assert.Equal(t, "iv1", cs.InterviewID)
	assert.Equal(t, "FINISHED", cs.Status)
	require.Len(t, events, 3)
	assert.Equal(t, "status", events[0].Kind)
	assert.Equal(t, "user", events[1].Role)
	assert.Equal(t, "error", events[2].Kind)
}

func TestRecorder_ClipsContent(t *testing.T) {
	mem := store.NewMemory()
	rec := NewRecorder(mem, "u1")

	id := uuid.NewString()
	rec.StartCall(id, "interview", "", "CONNECTING")
	rec.Utterance(id, "user", strings.Repeat("x", maxContentLen+10))
	rec.Utterance(id, "user", "a"+strings.Repeat("é", 1500))
	rec.Close()

	_, events, err := mem.GetCallSession(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Len(t, events[0].Content, maxContentLen)
	assert.True(t, utf8.ValidString(events[1].Content))
	assert.Len(t, events[1].Content, maxContentLen-1)
}

func TestClip(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"abcdef", 3, "abc"},
		{"aé", 2, "a"},
		{"éé", 3, "é"},
		{"日本", 2, ""},
	}
	for _, tt := range tests {
		got := clip(tt.in, tt.max)
		assert.Equal(t, tt.want, got, tt.in)
		assert.True(t, utf8.ValidString(got))
	}
}

func TestRecorder_FullQueueDoesNotBlock(t *testing.T) {
	slow := &stalledStore{Memory: store.NewMemory(), release: make(chan struct{})}
	rec := NewRecorder(slow, "u1")

	id := uuid.NewString()
	rec.StartCall(id, "interview", "iv1", "ACTIVE")

	done := make(chan struct{})
	go func() {
		for range queueSize * 4 {
			rec.Utterance(id, "user", "hello")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("utterances blocked behind a stalled store")
	}

	close(slow.release)
	rec.Close()

	_, events, err := slow.GetCallSession(context.Background(), id)
	require.NoError(t, err)
	assert.NotEmpty(t, events)
	assert.Less(t, len(events), queueSize*4)
}

func TestRecorder_CloseTwiceAndWriteAfterClose(t *testing.T) {
	mem := store.NewMemory()
	rec := NewRecorder(mem, "u1")
	rec.Close()
	rec.Close()
	rec.StartCall(uuid.NewString(), "interview", "", "CONNECTING")
}

func TestRecorder_NilSafe(t *testing.T) {
	var rec *Recorder
	rec.StartCall("x", "generate", "", "CONNECTING")
	rec.Status("x", "ACTIVE")
	rec.EndCall("x", "FINISHED")
	rec.Close()
}
