package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/campusdesk/reception-service/internal/events"
)

// NotificationService mirrors switchboard events to Redis so other processes
// (dashboards, kiosks) can read presence without holding a socket.
type NotificationService struct {
	dispatcher events.Dispatcher
	client     *redis.Client
	prefix     string
	logger     *zap.Logger
}

// NewNotificationService creates the service. A nil client only logs.
func NewNotificationService(dispatcher events.Dispatcher, client *redis.Client, prefix string, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		client:     client,
		prefix:     prefix,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events. Call it once.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventPresenceChanged, n.handlePresenceChanged)
	n.dispatcher.Subscribe(events.EventCallStarted, n.handleCallStarted)
	n.dispatcher.Subscribe(events.EventCallEnded, n.handleCallEnded)
	n.dispatcher.Subscribe(events.EventRequestExpired, n.handleRequestExpired)
}

// PresenceKey is the hash holding one JSON snapshot per staff id.
func (n *NotificationService) PresenceKey() string {
	return fmt.Sprintf("%s:presence", n.prefix)
}

// PresenceChannel is the pub/sub channel carrying every presence event.
func (n *NotificationService) PresenceChannel() string {
	return fmt.Sprintf("%s:presence-events", n.prefix)
}

func (n *NotificationService) handlePresenceChanged(ctx context.Context, event events.Event) error {
	n.logger.Debug("PresenceChanged", zap.String("staff_id", event.SubjectID), zap.Any("payload", event.Payload))
	if n.client == nil {
		return nil
	}

	snapshot, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("encode presence payload: %w", err)
	}
	message, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode presence event: %w", err)
	}

	pipe := n.client.TxPipeline()
	pipe.HSet(ctx, n.PresenceKey(), event.SubjectID, snapshot)
	pipe.Publish(ctx, n.PresenceChannel(), message)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("mirror presence: %w", err)
	}
	return nil
}

func (n *NotificationService) handleCallStarted(_ context.Context, event events.Event) error {
	n.logger.Info("CallStarted", zap.String("staff_id", event.SubjectID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleCallEnded(_ context.Context, event events.Event) error {
	n.logger.Info("CallEnded", zap.String("staff_id", event.SubjectID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleRequestExpired(_ context.Context, event events.Event) error {
	n.logger.Info("RequestExpired", zap.String("staff_id", event.SubjectID), zap.Any("payload", event.Payload))
	return nil
}
