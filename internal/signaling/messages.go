package signaling

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/campusdesk/reception-service/internal/domain"
	apperrors "github.com/campusdesk/reception-service/pkg/util/errorutil"
)

// Inbound event names.
const (
	MsgLogin             = "login"
	MsgSubmitCallRequest = "submit-call-request"
	MsgRespondToRequest  = "respond-to-request"
	MsgSignal            = "signal"
	MsgEndCall           = "end-call"
	MsgPing              = "ping"
)

// Outbound event names.
const (
	MsgLoggedIn        = "logged-in"
	MsgRequestSent     = "request-sent"
	MsgRequestQueued   = "request-queued"
	MsgRequestAccepted = "request-accepted"
	MsgRequestRejected = "request-rejected"
	MsgRequestExpired  = "request-expired"
	MsgIncomingRequest = "incoming-request"
	MsgSessionStarted  = "session-started"
	MsgCallEnded       = "call-ended"
	MsgPresenceChanged = "presence-changed"
	MsgSessionReplaced = "session-replaced"
	MsgError           = "error"
	MsgPong            = "pong"
)

// SignalKind names one signaling payload forwarded between call participants.
type SignalKind string

const (
	SignalOffer        SignalKind = "offer"
	SignalAnswer       SignalKind = "answer"
	SignalICECandidate SignalKind = "ice-candidate"
	SignalRequestOffer SignalKind = "request-offer"
)

// Envelope is the frame exchanged over the socket in both directions.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Inbound is implemented by every validated client event.
type Inbound interface {
	EventType() string
}

type LoginMessage struct {
	Identifier string `json:"identifier" validate:"required,max=320"`
	Password   string `json:"password" validate:"required,max=256"`
}

type SubmitCallRequestMessage struct {
	Target     string `json:"target" validate:"required,max=200"`
	Purpose    string `json:"purpose" validate:"max=1000"`
	ClientName string `json:"clientName" validate:"max=120"`
}

type RespondToRequestMessage struct {
	RequestID string `json:"requestId" validate:"required,uuid"`
	Accepted  *bool  `json:"accepted" validate:"required"`
	Reason    string `json:"reason" validate:"max=300"`
}

type SignalMessage struct {
	Kind    SignalKind      `json:"kind" validate:"required,oneof=offer answer ice-candidate request-offer"`
	CallID  string          `json:"callId" validate:"required,uuid"`
	Payload json.RawMessage `json:"payload"`
}

type EndCallMessage struct {
	CallID string `json:"callId" validate:"required,uuid"`
	Reason string `json:"reason" validate:"max=300"`
}

type PingMessage struct{}

func (LoginMessage) EventType() string             { return MsgLogin }
func (SubmitCallRequestMessage) EventType() string { return MsgSubmitCallRequest }
func (RespondToRequestMessage) EventType() string  { return MsgRespondToRequest }
func (SignalMessage) EventType() string            { return MsgSignal }
func (EndCallMessage) EventType() string           { return MsgEndCall }
func (PingMessage) EventType() string              { return MsgPing }

var validate = validator.New(validator.WithRequiredStructEnabled())

// ParseInbound decodes a raw frame into its typed event and validates required
// fields. Failures are VALIDATION_FAILED domain errors.
func ParseInbound(raw []byte) (Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, apperrors.NewValidationError("malformed frame", nil)
	}

	var msg Inbound
	switch env.Type {
	case MsgLogin:
		msg = &LoginMessage{}
	case MsgSubmitCallRequest:
		msg = &SubmitCallRequestMessage{}
	case MsgRespondToRequest:
		msg = &RespondToRequestMessage{}
	case MsgSignal:
		msg = &SignalMessage{}
	case MsgEndCall:
		msg = &EndCallMessage{}
	case MsgPing:
		return PingMessage{}, nil
	default:
		return nil, apperrors.NewValidationError("unknown event type", map[string]any{"type": env.Type})
	}

	if len(env.Data) == 0 {
		return nil, apperrors.NewValidationError("missing data", map[string]any{"type": env.Type})
	}
	if err := json.Unmarshal(env.Data, msg); err != nil {
		return nil, apperrors.NewValidationError("invalid data", map[string]any{"type": env.Type})
	}
	if err := validate.Struct(msg); err != nil {
		return nil, apperrors.NewValidationError("invalid data", map[string]any{
			"type":   env.Type,
			"fields": fieldErrors(err),
		})
	}
	if sig, ok := msg.(*SignalMessage); ok && sig.Kind != SignalRequestOffer && !hasPayload(sig.Payload) {
		return nil, apperrors.NewValidationError("payload required", map[string]any{"type": env.Type, "kind": sig.Kind})
	}
	return msg, nil
}

func hasPayload(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed != "" && trimmed != "null"
}

func fieldErrors(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fmt.Sprintf("%s:%s", fe.Field(), fe.Tag()))
	}
	return out
}

type LoggedInData struct {
	StaffID    string                `json:"staffId"`
	Name       string                `json:"name"`
	Department string                `json:"department,omitempty"`
	Status     domain.PresenceStatus `json:"status"`
}

type RequestAckData struct {
	RequestID string `json:"requestId"`
	StaffID   string `json:"staffId"`
	StaffName string `json:"staffName"`
	Status    string `json:"status"`
}

type IncomingRequestData struct {
	RequestID  string    `json:"requestId"`
	Purpose    string    `json:"purpose"`
	ClientName string    `json:"clientName"`
	CreatedAt  time.Time `json:"createdAt"`
}

type RequestAcceptedData struct {
	RequestID string `json:"requestId"`
	StaffName string `json:"staffName"`
	CallID    string `json:"callId"`
}

type RequestRejectedData struct {
	RequestID string `json:"requestId"`
	Reason    string `json:"reason"`
}

type RequestExpiredData struct {
	RequestID string `json:"requestId"`
	Reason    string `json:"reason"`
}

type SessionStartedData struct {
	CallID string `json:"callId"`
	Role   string `json:"role"`
	Peer   string `json:"peer"`
}

type SignalData struct {
	Kind     SignalKind      `json:"kind"`
	CallID   string          `json:"callId"`
	From     string          `json:"from"`
	FromConn string          `json:"fromConnId"`
	FromRole string          `json:"fromRole"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

type CallEndedData struct {
	CallID          string `json:"callId"`
	Reason          string `json:"reason"`
	EndedBy         string `json:"endedBy"`
	DurationSeconds int64  `json:"durationSeconds"`
}

type PresenceChangedData struct {
	Identity string                `json:"identity"`
	Name     string                `json:"name"`
	Status   domain.PresenceStatus `json:"status"`
	LastSeen time.Time             `json:"lastSeen"`
}

type ErrorData struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Event   string         `json:"event,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

func encodeFrame(msgType string, data any) ([]byte, error) {
	env := struct {
		Type string `json:"type"`
		Data any    `json:"data,omitempty"`
	}{Type: msgType, Data: data}
	return json.Marshal(env)
}
