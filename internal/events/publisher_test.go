package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_DisabledWithoutBrokers(t *testing.T) {
	p := New(Config{Topic: "interview.events"})
	assert.False(t, p.enabled)
	assert.Nil(t, p.writer)
	assert.Equal(t, "interview.events", p.topic)
}

func TestNew_EnabledWithBrokers(t *testing.T) {
	p := New(Config{Brokers: []string{"localhost:9092"}, Topic: "interview.events"})
	defer p.Close()
	assert.True(t, p.enabled)
	assert.NotNil(t, p.writer)
}

func TestPublish_Disabled(t *testing.T) {
	p := New(Config{})
	err := p.Publish(context.Background(), FeedbackCreated, "fb1", FeedbackCreatedEvent{FeedbackID: "fb1"})
	assert.NoError(t, err)
}

func TestPublish_Unmarshalable(t *testing.T) {
	p := New(Config{})
	err := p.Publish(context.Background(), FeedbackCreated, "k", map[string]any{"bad": make(chan int)})
	assert.Error(t, err)
}

func TestPublisher_NilSafe(t *testing.T) {
	var p *Publisher
	assert.NoError(t, p.Publish(context.Background(), InterviewGenerated, "k", nil))
	assert.NoError(t, p.Close())
}
