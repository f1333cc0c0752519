package events

import (
	"time"

	"github.com/campusdesk/reception-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventPresenceChanged EventType = "presence_changed"
	EventCallStarted     EventType = "call_started"
	EventCallEnded       EventType = "call_ended"
	EventRequestExpired  EventType = "request_expired"
)

// Event represents a domain event emitted by the switchboard. SubjectID is the
// staff identity the event concerns.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SubjectID string      `json:"subject_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// PresenceChangedPayload payload.
type PresenceChangedPayload struct {
	Name       string                `json:"name"`
	Department string                `json:"department,omitempty"`
	Status     domain.PresenceStatus `json:"status"`
	LastSeen   time.Time             `json:"last_seen"`
}

// CallStartedPayload payload.
type CallStartedPayload struct {
	CallID     string `json:"call_id"`
	RequestID  string `json:"request_id,omitempty"`
	ClientName string `json:"client_name"`
}

// CallEndedPayload payload.
type CallEndedPayload struct {
	CallID          string `json:"call_id"`
	Status          string `json:"status"`
	EndedBy         string `json:"ended_by"`
	Reason          string `json:"reason,omitempty"`
	DurationSeconds int64  `json:"duration_seconds"`
}

// RequestExpiredPayload payload.
type RequestExpiredPayload struct {
	RequestID string `json:"request_id"`
	Reason    string `json:"reason"`
}
