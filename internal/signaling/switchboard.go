package signaling

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusdesk/reception-service/internal/domain"
	"github.com/campusdesk/reception-service/internal/events"
	apperrors "github.com/campusdesk/reception-service/pkg/util/errorutil"
)

// IdentityResolver looks up a staff member in the directory. It returns nil
// without error when nothing matches.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, identifier string) (*domain.StaffMember, error)
}

// CredentialVerifier checks staff credentials and returns the matching member.
type CredentialVerifier interface {
	VerifyCredentials(ctx context.Context, identifier, password string) (*domain.StaffMember, error)
}

// ClassStatusReader reports whether a class is in progress for the staff member.
type ClassStatusReader interface {
	ReadCurrentClassStatus(ctx context.Context, staffID string) (bool, error)
}

// CallLogSink accepts finished call records. Enqueue must not block.
type CallLogSink interface {
	Enqueue(entry domain.CallLogEntry)
}

// Metrics is the instrumentation the switchboard reports to.
type Metrics interface {
	sessionMetrics
	requestMetrics
	relayMetrics
	frameMetrics
	ConnectionOpened()
	ConnectionClosed()
}

// Dependencies are the collaborators of a Switchboard. Only Logger is
// required; missing collaborators disable the feature they back.
type Dependencies struct {
	Logger     *zap.Logger
	Metrics    Metrics
	Directory  IdentityResolver
	Verifier   CredentialVerifier
	Classes    ClassStatusReader
	CallLogs   CallLogSink
	Events     events.Dispatcher
	Clock      func() time.Time
	NewID      func() string
	SendBuffer int
}

// Switchboard is the process-scoped owner of presence, requests and sessions.
// One mutex serializes every transition; collaborator I/O runs outside it.
type Switchboard struct {
	mu    sync.Mutex
	conns map[string]*Conn

	registry   *PresenceRegistry
	router     *CallRequestRouter
	sessions   *CallSessionManager
	relay      *SignalingRelay
	reconciler *DisconnectReconciler
	out        *outbox
	notify     notifier

	directory  IdentityResolver
	verifier   CredentialVerifier
	classes    ClassStatusReader
	callLogs   CallLogSink
	dispatcher events.Dispatcher

	logger     *zap.Logger
	metrics    Metrics
	now        func() time.Time
	newID      func() string
	sendBuffer int
}

// NewSwitchboard wires the signaling components around a fresh state.
func NewSwitchboard(deps Dependencies) *Switchboard {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	newID := deps.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	s := &Switchboard{
		conns:      make(map[string]*Conn),
		out:        &outbox{now: now},
		notify:     notifier{logger: logger, metrics: metrics},
		directory:  deps.Directory,
		verifier:   deps.Verifier,
		classes:    deps.Classes,
		callLogs:   deps.CallLogs,
		dispatcher: deps.Events,
		logger:     logger,
		metrics:    metrics,
		now:        now,
		newID:      newID,
		sendBuffer: deps.SendBuffer,
	}
	s.registry = newPresenceRegistry(now)
	s.sessions = newCallSessionManager(s.registry, s.out, s.notify, now, newID, logger.Named("sessions"), metrics)
	s.router = newCallRequestRouter(s.registry, s.sessions, s.out, s.notify, now, newID, logger.Named("router"), metrics)
	s.relay = newSignalingRelay(s.sessions, s.notify, logger.Named("relay"), metrics)
	s.reconciler = newDisconnectReconciler(s.registry, s.router, s.sessions, logger.Named("reconciler"))
	s.registry.busy = s.sessions.StaffBusy
	s.registry.onChange = s.presenceChanged
	return s
}

// Connect registers a new anonymous connection.
func (s *Switchboard) Connect(clientName string) *Conn {
	conn := NewConn(s.newID(), clientName, s.sendBuffer)
	s.mu.Lock()
	s.conns[conn.ID] = conn
	s.mu.Unlock()
	s.metrics.ConnectionOpened()
	s.logger.Debug("connection opened", zap.String("conn_id", conn.ID))
	return conn
}

// SyncDirectory loads staff members into the registry so they resolve before
// their first login.
func (s *Switchboard) SyncDirectory(ctx context.Context, members []domain.StaffMember) {
	_ = s.apply(ctx, func() error {
		for _, member := range members {
			s.registry.Upsert(member)
		}
		return nil
	})
	s.logger.Info("directory synced", zap.Int("members", len(members)))
}

// Login verifies credentials and binds the staff identity to conn.
func (s *Switchboard) Login(ctx context.Context, conn *Conn, identifier, password string) error {
	if s.verifier == nil {
		return apperrors.NewUnauthorized("staff login is not available")
	}
	member, err := s.verifier.VerifyCredentials(ctx, identifier, password)
	if err != nil {
		return err
	}
	if member == nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}
	return s.LoginMember(ctx, conn, *member)
}

// LoginMember binds an already authenticated staff member to conn. A previous
// connection of the same identity is told it was replaced and its unanswered
// requests move to the new connection.
func (s *Switchboard) LoginMember(ctx context.Context, conn *Conn, member domain.StaffMember) error {
	inClass, classKnown := s.readClassStatus(ctx, member.ID)

	return s.apply(ctx, func() error {
		if _, ok := s.conns[conn.ID]; !ok || conn.closed {
			return apperrors.NewConflict("connection is closed", nil)
		}
		if conn.StaffID != "" && conn.StaffID != member.ID {
			return apperrors.NewConflict("connection is logged in as another staff member", nil)
		}
		if s.sessions.ActiveFor(conn) != nil && conn.StaffID == "" {
			return apperrors.NewConflict("connection is in a call", nil)
		}

		ident := s.registry.Upsert(member)
		if classKnown {
			ident.inClass = inClass
		}
		if prev := s.registry.Register(member.ID, conn); prev != nil {
			requeued := s.router.Requeue(prev)
			s.notify.send(prev, MsgSessionReplaced, nil)
			prev.replaced()
			s.logger.Info("staff session replaced",
				zap.String("staff_id", member.ID),
				zap.String("old_conn", prev.ID),
				zap.String("new_conn", conn.ID),
				zap.Int("requeued_requests", requeued))
		}

		s.notify.send(conn, MsgLoggedIn, LoggedInData{
			StaffID:    ident.ID,
			Name:       ident.Name,
			Department: ident.Department,
			Status:     ident.Status,
		})
		s.router.OnLogin(member.ID, conn)
		s.logger.Info("staff logged in", zap.String("staff_id", member.ID), zap.String("conn_id", conn.ID))
		return nil
	})
}

// SubmitCallRequest routes a client's request. Identifiers the registry cannot
// match exactly go to the directory; a display name substring match against the
// registry is only used when the directory has nothing either.
func (s *Switchboard) SubmitCallRequest(ctx context.Context, conn *Conn, target, purpose, clientName string) error {
	resolved := false
	err := s.apply(ctx, func() error {
		ident := s.registry.LookupExact(target)
		if ident == nil {
			return nil
		}
		resolved = true
		_, err := s.router.Submit(conn, ident.ID, purpose, clientName)
		return err
	})
	if resolved || err != nil {
		return err
	}

	member, err := s.resolve(ctx, target)
	if err != nil {
		return err
	}
	if member != nil {
		return s.apply(ctx, func() error {
			s.registry.Upsert(*member)
			_, err := s.router.Submit(conn, member.ID, purpose, clientName)
			return err
		})
	}

	return s.apply(ctx, func() error {
		ident := s.registry.LookupFuzzy(target)
		if ident == nil {
			s.metrics.CallRequest("not_found")
			return apperrors.NewNotFound("staff", map[string]any{"target": target})
		}
		_, err := s.router.Submit(conn, ident.ID, purpose, clientName)
		return err
	})
}

// RespondToRequest applies a staff accept or reject.
func (s *Switchboard) RespondToRequest(ctx context.Context, conn *Conn, requestID string, accepted bool, reason string) error {
	return s.apply(ctx, func() error {
		return s.router.Respond(conn, requestID, accepted, reason)
	})
}

// Relay forwards a signaling payload to the other participant of callID.
func (s *Switchboard) Relay(ctx context.Context, conn *Conn, kind SignalKind, callID string, payload []byte) error {
	return s.apply(ctx, func() error {
		return s.relay.Forward(conn, kind, callID, payload)
	})
}

// EndCall ends a session on behalf of one of its participants.
func (s *Switchboard) EndCall(ctx context.Context, conn *Conn, callID, reason string) error {
	return s.apply(ctx, func() error {
		sess := s.sessions.Get(callID)
		if sess == nil {
			return apperrors.NewNotFound("call", map[string]any{"call_id": callID})
		}
		if !s.sessions.ValidateParticipant(callID, conn.ID) {
			return apperrors.NewUnauthorized("not a participant of this call")
		}
		if reason == "" {
			reason = ReasonHangup
		}
		return s.sessions.End(callID, conn, sess.roleOf(conn), reason, domain.CallStatusCompleted)
	})
}

// Disconnect reconciles and releases conn. Later calls for the same
// connection do nothing.
func (s *Switchboard) Disconnect(ctx context.Context, conn *Conn) {
	_ = s.apply(ctx, func() error {
		if _, ok := s.conns[conn.ID]; !ok {
			return nil
		}
		s.reconciler.Reconcile(conn)
		delete(s.conns, conn.ID)
		conn.shutdown()
		s.metrics.ConnectionClosed()
		return nil
	})
}

// SetInClass records a timetable reading for the identity.
func (s *Switchboard) SetInClass(ctx context.Context, staffID string, inClass bool) {
	_ = s.apply(ctx, func() error {
		s.registry.SetInClass(staffID, inClass)
		return nil
	})
}

// OnlineStaff lists identities that currently have a connection.
func (s *Switchboard) OnlineStaff() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.registry.OnlineIDs()
	sort.Strings(ids)
	return ids
}

// Presence returns every known identity ordered by name.
func (s *Switchboard) Presence() []domain.PresenceSnapshot {
	s.mu.Lock()
	snapshot := s.registry.Snapshot()
	s.mu.Unlock()
	sort.Slice(snapshot, func(i, j int) bool {
		if snapshot[i].Name == snapshot[j].Name {
			return snapshot[i].StaffID < snapshot[j].StaffID
		}
		return snapshot[i].Name < snapshot[j].Name
	})
	return snapshot
}

// ExpireStale expires pending requests older than ttl. A non-positive ttl
// disables expiry.
func (s *Switchboard) ExpireStale(ctx context.Context, ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	expired := 0
	_ = s.apply(ctx, func() error {
		expired = s.router.ExpireOlderThan(s.now().Add(-ttl))
		return nil
	})
	return expired
}

// PruneEnded forgets sessions and requests settled longer than retention ago.
func (s *Switchboard) PruneEnded(ctx context.Context, retention time.Duration) int {
	pruned := 0
	_ = s.apply(ctx, func() error {
		cutoff := s.now().Add(-retention)
		pruned = s.sessions.Prune(cutoff) + s.router.Prune(cutoff)
		return nil
	})
	return pruned
}

// ActiveCalls returns the number of sessions that have not ended.
func (s *Switchboard) ActiveCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions.ActiveCount()
}

// Connections returns the number of live transport sessions.
func (s *Switchboard) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Close disconnects every connection.
func (s *Switchboard) Close(ctx context.Context) {
	s.mu.Lock()
	conns := make([]*Conn, 0, len(s.conns))
	for _, conn := range s.conns {
		conns = append(conns, conn)
	}
	s.mu.Unlock()
	for _, conn := range conns {
		s.Disconnect(ctx, conn)
	}
}

// apply runs fn under the lock and flushes collected effects after unlocking.
func (s *Switchboard) apply(ctx context.Context, fn func() error) (err error) {
	var (
		logs []domain.CallLogEntry
		evts []events.Event
	)
	func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		defer func() { logs, evts = s.out.drain() }()
		err = fn()
	}()
	s.flush(ctx, logs, evts)
	return err
}

func (s *Switchboard) flush(ctx context.Context, logs []domain.CallLogEntry, evts []events.Event) {
	if s.callLogs != nil {
		for _, entry := range logs {
			s.callLogs.Enqueue(entry)
		}
	}
	if s.dispatcher == nil || len(evts) == 0 {
		return
	}
	detached := context.WithoutCancel(ctx)
	for _, evt := range evts {
		if err := s.dispatcher.Publish(detached, evt); err != nil {
			s.logger.Warn("publish event", zap.String("event_type", string(evt.Type)), zap.Error(err))
		}
	}
}

func (s *Switchboard) resolve(ctx context.Context, identifier string) (*domain.StaffMember, error) {
	if s.directory == nil {
		return nil, nil
	}
	member, err := s.directory.ResolveIdentity(ctx, identifier)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeNotFound) {
			return nil, nil
		}
		s.logger.Warn("directory lookup failed", zap.String("identifier", identifier), zap.Error(err))
		return nil, apperrors.NewTransient("directory unavailable", err)
	}
	return member, nil
}

func (s *Switchboard) readClassStatus(ctx context.Context, staffID string) (bool, bool) {
	if s.classes == nil {
		return false, false
	}
	inClass, err := s.classes.ReadCurrentClassStatus(ctx, staffID)
	if err != nil {
		s.logger.Warn("timetable read failed", zap.String("staff_id", staffID), zap.Error(err))
		return false, false
	}
	return inClass, true
}

func (s *Switchboard) presenceChanged(ident *Identity) {
	frame, err := encodeFrame(MsgPresenceChanged, PresenceChangedData{
		Identity: ident.ID,
		Name:     ident.Name,
		Status:   ident.Status,
		LastSeen: ident.LastSeen,
	})
	if err != nil {
		s.logger.Error("encode presence", zap.String("staff_id", ident.ID), zap.Error(err))
		return
	}
	for _, conn := range s.conns {
		s.notify.sendFrame(conn, MsgPresenceChanged, frame)
	}
	s.out.publish(events.EventPresenceChanged, ident.ID, events.PresenceChangedPayload{
		Name:       ident.Name,
		Department: ident.Department,
		Status:     ident.Status,
		LastSeen:   ident.LastSeen,
	})
}

type noopMetrics struct{}

func (noopMetrics) CallStarted()                    {}
func (noopMetrics) CallEnded(string, time.Duration) {}
func (noopMetrics) CallRequest(string)              {}
func (noopMetrics) SignalForwarded(string)          {}
func (noopMetrics) SignalRejected(string)           {}
func (noopMetrics) FrameDropped(string)             {}
func (noopMetrics) ConnectionOpened()               {}
func (noopMetrics) ConnectionClosed()               {}
