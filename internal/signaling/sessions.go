package signaling

import (
	"time"

	"go.uber.org/zap"

	"github.com/campusdesk/reception-service/internal/domain"
	"github.com/campusdesk/reception-service/internal/events"
	apperrors "github.com/campusdesk/reception-service/pkg/util/errorutil"
)

// Participant roles and the system actor used in call-ended notifications.
const (
	RoleClient    = "client"
	RoleStaff     = "staff"
	EndedBySystem = "system"

	ReasonHangup       = "hangup"
	ReasonDisconnected = "participant-disconnected"
)

// CallSession binds exactly two connections for the lifetime of one call.
type CallSession struct {
	ID         string
	RequestID  string
	Client     *Conn
	Staff      *Conn
	StaffID    string
	StaffName  string
	ClientName string
	Purpose    string
	Status     domain.CallStatus
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
}

// Active reports whether the session has not reached a terminal status.
func (s *CallSession) Active() bool {
	return !s.Status.Terminal()
}

// roleOf returns the participant role of conn, or "" for outsiders.
func (s *CallSession) roleOf(conn *Conn) string {
	switch {
	case conn == nil:
		return ""
	case s.Client != nil && s.Client.ID == conn.ID:
		return RoleClient
	case s.Staff != nil && s.Staff.ID == conn.ID:
		return RoleStaff
	}
	return ""
}

// other returns the participant that is not conn.
func (s *CallSession) other(conn *Conn) *Conn {
	if s.roleOf(conn) == RoleClient {
		return s.Staff
	}
	return s.Client
}

// CallSessionManager owns active two-party calls. Terminal sessions are kept as
// tombstones until pruned so a repeated end is absorbed as a no-op.
type CallSessionManager struct {
	sessions map[string]*CallSession
	byConn   map[string]string
	byStaff  map[string]string

	registry *PresenceRegistry
	out      *outbox
	notify   notifier
	now      func() time.Time
	newID    func() string
	logger   *zap.Logger
	metrics  sessionMetrics
}

type sessionMetrics interface {
	CallStarted()
	CallEnded(status string, duration time.Duration)
}

func newCallSessionManager(registry *PresenceRegistry, out *outbox, notify notifier, now func() time.Time, newID func() string, logger *zap.Logger, metrics sessionMetrics) *CallSessionManager {
	return &CallSessionManager{
		sessions: make(map[string]*CallSession),
		byConn:   make(map[string]string),
		byStaff:  make(map[string]string),
		registry: registry,
		out:      out,
		notify:   notify,
		now:      now,
		newID:    newID,
		logger:   logger,
		metrics:  metrics,
	}
}

// Create starts a session between a client and a staff connection. It fails
// with Conflict when the two are the same connection or either is already in
// an active call.
func (m *CallSessionManager) Create(client, staff *Conn, req *CallRequest) (*CallSession, error) {
	if client == nil || staff == nil || client.closed || staff.closed {
		return nil, apperrors.NewConflict("participant no longer connected", nil)
	}
	if client.ID == staff.ID {
		return nil, apperrors.NewConflict("cannot start a call with yourself", nil)
	}
	for _, c := range []*Conn{client, staff} {
		if callID, busy := m.byConn[c.ID]; busy {
			return nil, apperrors.NewConflict("connection already in a call", map[string]any{"call_id": callID})
		}
	}
	if callID, busy := m.byStaff[staff.StaffID]; busy {
		return nil, apperrors.NewConflict("staff already in a call", map[string]any{"call_id": callID})
	}

	ident := m.registry.Get(staff.StaffID)
	sess := &CallSession{
		ID:         m.newID(),
		Client:     client,
		Staff:      staff,
		StaffID:    staff.StaffID,
		ClientName: client.displayName(),
		Status:     domain.CallStatusConnecting,
		StartTime:  m.now(),
	}
	if ident != nil {
		sess.StaffName = ident.Name
	}
	if req != nil {
		sess.RequestID = req.ID
		sess.Purpose = req.Purpose
		sess.ClientName = req.ClientName
	}

	m.sessions[sess.ID] = sess
	m.byConn[client.ID] = sess.ID
	m.byConn[staff.ID] = sess.ID
	m.byStaff[sess.StaffID] = sess.ID
	m.registry.Refresh(sess.StaffID)

	m.notify.send(client, MsgSessionStarted, SessionStartedData{CallID: sess.ID, Role: RoleClient, Peer: sess.StaffName})
	m.notify.send(staff, MsgSessionStarted, SessionStartedData{CallID: sess.ID, Role: RoleStaff, Peer: sess.ClientName})
	m.out.publish(events.EventCallStarted, sess.StaffID, events.CallStartedPayload{
		CallID:     sess.ID,
		RequestID:  sess.RequestID,
		ClientName: sess.ClientName,
	})
	m.metrics.CallStarted()
	m.logger.Info("call started",
		zap.String("call_id", sess.ID),
		zap.String("staff_id", sess.StaffID),
		zap.String("client_conn", client.ID))
	return sess, nil
}

// Get returns a session by id, including tombstoned ones.
func (m *CallSessionManager) Get(callID string) *CallSession {
	return m.sessions[callID]
}

// ValidateParticipant is true only when connID is the client or staff
// connection of the session.
func (m *CallSessionManager) ValidateParticipant(callID, connID string) bool {
	sess := m.sessions[callID]
	if sess == nil || connID == "" {
		return false
	}
	return (sess.Client != nil && sess.Client.ID == connID) || (sess.Staff != nil && sess.Staff.ID == connID)
}

// ActiveFor returns the active session bound to conn, if any.
func (m *CallSessionManager) ActiveFor(conn *Conn) *CallSession {
	if callID, ok := m.byConn[conn.ID]; ok {
		return m.sessions[callID]
	}
	return nil
}

// StaffBusy reports whether the staff identity is in an active session.
func (m *CallSessionManager) StaffBusy(staffID string) bool {
	_, ok := m.byStaff[staffID]
	return ok
}

// MarkInProgress moves a connecting session forward after a signaling exchange.
func (m *CallSessionManager) MarkInProgress(sess *CallSession) {
	if sess.Status == domain.CallStatusConnecting {
		sess.Status = domain.CallStatusInProgress
	}
}

// End finalizes a session. Ending an already terminal session is a no-op.
// endedByConn is the participant that ended it, or the connection that was lost
// when endedBy is the system; the notification goes to the other participant.
func (m *CallSessionManager) End(callID string, endedByConn *Conn, endedBy, reason string, status domain.CallStatus) error {
	sess := m.sessions[callID]
	if sess == nil {
		return apperrors.NewNotFound("call", map[string]any{"call_id": callID})
	}
	if !sess.Active() {
		m.logger.Info("ignoring end for finished call",
			zap.String("call_id", callID),
			zap.String("status", string(sess.Status)),
			zap.String("ended_by", endedBy))
		return nil
	}

	sess.EndTime = m.now()
	sess.Duration = sess.EndTime.Sub(sess.StartTime)
	if sess.Duration < 0 {
		sess.Duration = 0
		sess.EndTime = sess.StartTime
	}
	sess.Status = status

	delete(m.byConn, sess.Client.ID)
	delete(m.byConn, sess.Staff.ID)
	if m.byStaff[sess.StaffID] == sess.ID {
		delete(m.byStaff, sess.StaffID)
	}
	m.registry.Refresh(sess.StaffID)

	if peer := sess.other(endedByConn); peer != nil {
		m.notify.send(peer, MsgCallEnded, CallEndedData{
			CallID:          sess.ID,
			Reason:          reason,
			EndedBy:         endedBy,
			DurationSeconds: int64(sess.Duration / time.Second),
		})
	}

	entry := domain.CallLogEntry{
		CallID:          sess.ID,
		StaffID:         sess.StaffID,
		StaffName:       sess.StaffName,
		ClientName:      sess.ClientName,
		Purpose:         sess.Purpose,
		Status:          sess.Status,
		EndedBy:         endedBy,
		Reason:          reason,
		StartedAt:       sess.StartTime,
		EndedAt:         sess.EndTime,
		DurationSeconds: int64(sess.Duration / time.Second),
	}
	m.out.persist(entry)
	m.out.publish(events.EventCallEnded, sess.StaffID, events.CallEndedPayload{
		CallID:          sess.ID,
		Status:          string(sess.Status),
		EndedBy:         endedBy,
		Reason:          reason,
		DurationSeconds: entry.DurationSeconds,
	})
	m.metrics.CallEnded(string(sess.Status), sess.Duration)
	m.logger.Info("call ended",
		zap.String("call_id", sess.ID),
		zap.String("staff_id", sess.StaffID),
		zap.String("status", string(sess.Status)),
		zap.String("ended_by", endedBy),
		zap.String("reason", reason),
		zap.Duration("duration", sess.Duration))
	return nil
}

// Prune drops tombstones that ended before cutoff.
func (m *CallSessionManager) Prune(cutoff time.Time) int {
	removed := 0
	for id, sess := range m.sessions {
		if !sess.Active() && sess.EndTime.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// ActiveCount returns the number of calls that have not ended.
func (m *CallSessionManager) ActiveCount() int {
	n := 0
	for _, sess := range m.sessions {
		if sess.Active() {
			n++
		}
	}
	return n
}
