package signaling

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusdesk/reception-service/internal/domain"
	"github.com/campusdesk/reception-service/internal/events"
)

// outbox collects side effects produced while the switchboard lock is held.
// They are flushed after the lock is released so persistence and event fan-out
// never delay an in-memory transition.
type outbox struct {
	now    func() time.Time
	logs   []domain.CallLogEntry
	events []events.Event
}

func (o *outbox) persist(entry domain.CallLogEntry) {
	o.logs = append(o.logs, entry)
}

func (o *outbox) publish(eventType events.EventType, subject string, payload any) {
	o.events = append(o.events, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SubjectID: subject,
		Timestamp: o.now(),
		Payload:   payload,
	})
}

func (o *outbox) drain() ([]domain.CallLogEntry, []events.Event) {
	logs, evts := o.logs, o.events
	o.logs, o.events = nil, nil
	return logs, evts
}

type frameMetrics interface {
	FrameDropped(msgType string)
}

// notifier pushes frames onto connection buffers without blocking. A full
// buffer drops the frame.
type notifier struct {
	logger  *zap.Logger
	metrics frameMetrics
}

func (n notifier) send(conn *Conn, msgType string, data any) {
	if conn == nil {
		return
	}
	frame, err := encodeFrame(msgType, data)
	if err != nil {
		n.logger.Error("encode frame", zap.String("type", msgType), zap.Error(err))
		return
	}
	n.sendFrame(conn, msgType, frame)
}

func (n notifier) sendFrame(conn *Conn, msgType string, frame []byte) {
	if conn.closed {
		return
	}
	if !conn.push(frame) {
		n.metrics.FrameDropped(msgType)
		n.logger.Warn("drop frame for connection",
			zap.String("conn_id", conn.ID),
			zap.String("type", msgType))
	}
}
