package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/campusdesk/reception-service/internal/domain"
	"github.com/campusdesk/reception-service/internal/events"
)

func TestPresenceMirroredToRedis(t *testing.T) {
	srv, client := newRedisClient(t)
	logger := zaptest.NewLogger(t)
	dispatcher := events.NewInMemoryDispatcher(logger)
	svc := NewNotificationService(dispatcher, client, "reception", logger)
	svc.RegisterHandlers()

	ctx := context.Background()
	sub := client.Subscribe(ctx, svc.PresenceChannel())
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	lastSeen := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		ID:        "evt-1",
		Type:      events.EventPresenceChanged,
		SubjectID: "s1",
		Timestamp: lastSeen,
		Payload: events.PresenceChangedPayload{
			Name:     "Dr. Alice C. Smith",
			Status:   domain.PresenceOnline,
			LastSeen: lastSeen,
		},
	}))

	raw := srv.HGet(svc.PresenceKey(), "s1")
	require.NotEmpty(t, raw)
	var snapshot events.PresenceChangedPayload
	require.NoError(t, json.Unmarshal([]byte(raw), &snapshot))
	assert.Equal(t, domain.PresenceOnline, snapshot.Status)
	assert.True(t, lastSeen.Equal(snapshot.LastSeen))

	select {
	case msg := <-sub.Channel():
		var evt struct {
			ID        string `json:"id"`
			SubjectID string `json:"subject_id"`
		}
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &evt))
		assert.Equal(t, "evt-1", evt.ID)
		assert.Equal(t, "s1", evt.SubjectID)
	case <-time.After(2 * time.Second):
		t.Fatal("presence event not published")
	}
}

func TestNotificationServiceWithoutRedis(t *testing.T) {
	logger := zaptest.NewLogger(t)
	dispatcher := events.NewInMemoryDispatcher(logger)
	NewNotificationService(dispatcher, nil, "reception", logger).RegisterHandlers()

	for _, typ := range []events.EventType{events.EventPresenceChanged, events.EventCallStarted, events.EventCallEnded, events.EventRequestExpired} {
		assert.NoError(t, dispatcher.Publish(context.Background(), events.Event{ID: "e", Type: typ, SubjectID: "s1"}))
	}
}
