package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/grievance-service/internal/config"
	"github.com/spec-kit/grievance-service/internal/events"
)

type capturePublisher struct {
	channels []string
	messages [][]byte
	err      error
}

func (p *capturePublisher) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	p.channels = append(p.channels, channel)
	p.messages = append(p.messages, message.([]byte))
	return redis.NewIntResult(1, p.err)
}

func TestNotificationService_FansOutToRedisChannel(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	publisher := &capturePublisher{}
	svc := NewNotificationService(dispatcher, publisher, nil, config.NotificationConfig{RedisChannel: "grievance.events"})
	svc.RegisterHandlers()

	err := dispatcher.Publish(context.Background(), events.Event{
		ID:      "evt-1",
		Type:    events.EventIssueEscalated,
		IssueID: "issue-1",
		Actor:   events.Actor{System: true},
		Payload: events.IssueEscalatedPayload{Level: 2, ToHandler: "dean-1"},
	})
	require.NoError(t, err)

	require.Equal(t, []string{"grievance.events"}, publisher.channels)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(publisher.messages[0], &decoded))
	assert.Equal(t, "issue_escalated", decoded["type"])
	assert.Equal(t, "issue-1", decoded["issue_id"])
}

func TestNotificationService_PublishErrorSurfaces(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	publisher := &capturePublisher{err: errors.New("redis down")}
	NewNotificationService(dispatcher, publisher, nil, config.NotificationConfig{RedisChannel: "c"}).RegisterHandlers()

	err := dispatcher.Publish(context.Background(), events.Event{Type: events.EventIssueCreated, Payload: events.IssueCreatedPayload{}})
	assert.EqualError(t, err, "redis down")
}

func TestNotificationService_WithoutPublisher(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	NewNotificationService(dispatcher, nil, nil, config.NotificationConfig{RedisChannel: "c"}).RegisterHandlers()

	assert.NoError(t, dispatcher.Publish(context.Background(), events.Event{Type: events.EventIssueReopened}))
}
