package signaling

import (
	"context"
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"

	apperrors "github.com/campusdesk/reception-service/pkg/util/errorutil"
)

// HandleMessage parses one inbound frame and runs the matching transition.
// Failures, including panics, are answered with an error event on conn.
func (s *Switchboard) HandleMessage(ctx context.Context, conn *Conn, raw []byte) {
	event := ""
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic recovered in message handler",
				zap.String("conn_id", conn.ID),
				zap.String("event", event),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			s.replyError(conn, event, apperrors.NewInternalError(fmt.Errorf("panic: %v", r)))
		}
	}()

	msg, err := ParseInbound(raw)
	if err != nil {
		s.replyError(conn, event, err)
		return
	}
	event = msg.EventType()
	if err := s.dispatch(ctx, conn, msg); err != nil {
		s.replyError(conn, event, err)
	}
}

func (s *Switchboard) dispatch(ctx context.Context, conn *Conn, msg Inbound) error {
	switch m := msg.(type) {
	case *LoginMessage:
		return s.Login(ctx, conn, m.Identifier, m.Password)
	case *SubmitCallRequestMessage:
		return s.SubmitCallRequest(ctx, conn, m.Target, m.Purpose, m.ClientName)
	case *RespondToRequestMessage:
		return s.RespondToRequest(ctx, conn, m.RequestID, *m.Accepted, m.Reason)
	case *SignalMessage:
		return s.Relay(ctx, conn, m.Kind, m.CallID, m.Payload)
	case *EndCallMessage:
		return s.EndCall(ctx, conn, m.CallID, m.Reason)
	case PingMessage:
		return s.apply(ctx, func() error {
			s.notify.send(conn, MsgPong, nil)
			return nil
		})
	}
	return apperrors.NewValidationError("unsupported event", map[string]any{"type": msg.EventType()})
}

func (s *Switchboard) replyError(conn *Conn, event string, err error) {
	domainErr := apperrors.ToDomainError(err)
	fields := []zap.Field{
		zap.String("conn_id", conn.ID),
		zap.String("event", event),
		zap.String("code", domainErr.Code),
	}
	if domainErr.Code == apperrors.CodeInternal || domainErr.Code == apperrors.CodeTransient {
		s.logger.Error("message handling failed", append(fields, zap.Error(err))...)
	} else {
		s.logger.Info("message rejected", append(fields, zap.String("message", domainErr.Message))...)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.notify.send(conn, MsgError, ErrorData{
		Code:    domainErr.Code,
		Message: domainErr.Message,
		Event:   event,
		Details: domainErr.Details,
	})
}

// ReportError answers conn with an error event outside the inbound message path,
// such as a token login that fails during the upgrade.
func (s *Switchboard) ReportError(conn *Conn, event string, err error) {
	s.replyError(conn, event, err)
}
