package signaling

import (
	"encoding/json"

	"go.uber.org/zap"

	apperrors "github.com/campusdesk/reception-service/pkg/util/errorutil"
)

type relayMetrics interface {
	SignalForwarded(kind string)
	SignalRejected(kind string)
}

// SignalingRelay forwards offers, answers and candidates between the two
// participants of one session. Payloads are opaque.
type SignalingRelay struct {
	sessions *CallSessionManager
	notify   notifier
	logger   *zap.Logger
	metrics  relayMetrics
}

func newSignalingRelay(sessions *CallSessionManager, notify notifier, logger *zap.Logger, metrics relayMetrics) *SignalingRelay {
	return &SignalingRelay{sessions: sessions, notify: notify, logger: logger, metrics: metrics}
}

// Forward delivers a signal from one participant to the other. Non-participants
// are rejected and nothing is forwarded.
func (r *SignalingRelay) Forward(from *Conn, kind SignalKind, callID string, payload json.RawMessage) error {
	sess := r.sessions.Get(callID)
	if sess == nil || !sess.Active() {
		r.metrics.SignalRejected(string(kind))
		return apperrors.NewNotFound("call", map[string]any{"call_id": callID})
	}
	if !r.sessions.ValidateParticipant(callID, from.ID) {
		r.metrics.SignalRejected(string(kind))
		r.logger.Warn("rejected signal from non-participant",
			zap.String("call_id", callID),
			zap.String("conn_id", from.ID),
			zap.String("kind", string(kind)))
		return apperrors.NewUnauthorized("not a participant of this call")
	}

	role := sess.roleOf(from)
	sender := sess.ClientName
	if role == RoleStaff {
		sender = sess.StaffID
	}
	r.notify.send(sess.other(from), MsgSignal, SignalData{
		Kind:     kind,
		CallID:   callID,
		From:     sender,
		FromConn: from.ID,
		FromRole: role,
		Payload:  payload,
	})
	if kind == SignalAnswer {
		r.sessions.MarkInProgress(sess)
	}
	r.metrics.SignalForwarded(string(kind))
	return nil
}
