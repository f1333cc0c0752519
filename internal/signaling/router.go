package signaling

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/campusdesk/reception-service/internal/events"
	apperrors "github.com/campusdesk/reception-service/pkg/util/errorutil"
)

// RequestStatus tracks a call request from submission to its terminal state.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestRejected RequestStatus = "rejected"
	RequestExpired  RequestStatus = "expired"
)

const (
	expiryRequesterGone = "requester-disconnected"
	expiryTimedOut      = "timed-out"
	defaultRejectReason = "declined"
)

// CallRequest is a client's ask to talk to one staff identity.
type CallRequest struct {
	ID         string
	Seq        uint64
	Requester  *Conn
	ClientName string
	TargetID   string
	Purpose    string
	CreatedAt  time.Time
	Status     RequestStatus
	ClosedAt   time.Time

	deliveredTo *Conn
}

// CallRequestRouter delivers requests to online staff or parks them in a per
// identity FIFO queue until the next login.
type CallRequestRouter struct {
	requests map[string]*CallRequest
	queues   map[string][]*CallRequest
	seq      uint64

	registry *PresenceRegistry
	sessions *CallSessionManager
	out      *outbox
	notify   notifier
	now      func() time.Time
	newID    func() string
	logger   *zap.Logger
	metrics  requestMetrics
}

type requestMetrics interface {
	CallRequest(outcome string)
}

func newCallRequestRouter(registry *PresenceRegistry, sessions *CallSessionManager, out *outbox, notify notifier, now func() time.Time, newID func() string, logger *zap.Logger, metrics requestMetrics) *CallRequestRouter {
	return &CallRequestRouter{
		requests: make(map[string]*CallRequest),
		queues:   make(map[string][]*CallRequest),
		registry: registry,
		sessions: sessions,
		out:      out,
		notify:   notify,
		now:      now,
		newID:    newID,
		logger:   logger,
		metrics:  metrics,
	}
}

// Submit creates a request for an already resolved identity and either
// delivers it or queues it. Repeated submissions are not deduplicated.
func (r *CallRequestRouter) Submit(client *Conn, staffID, purpose, clientName string) (*CallRequest, error) {
	ident := r.registry.Get(staffID)
	if ident == nil {
		r.metrics.CallRequest("not_found")
		return nil, apperrors.NewNotFound("staff", map[string]any{"target": staffID})
	}
	if client.StaffID == staffID {
		return nil, apperrors.NewConflict("cannot call yourself", nil)
	}
	if clientName == "" {
		clientName = client.displayName()
	}

	r.seq++
	req := &CallRequest{
		ID:         r.newID(),
		Seq:        r.seq,
		Requester:  client,
		ClientName: clientName,
		TargetID:   staffID,
		Purpose:    purpose,
		CreatedAt:  r.now(),
		Status:     RequestPending,
	}
	r.requests[req.ID] = req

	ack := RequestAckData{RequestID: req.ID, StaffID: ident.ID, StaffName: ident.Name}
	if staffConn := r.registry.Connection(staffID); staffConn != nil {
		r.deliver(req, staffConn)
		ack.Status = "sent"
		r.notify.send(client, MsgRequestSent, ack)
		r.metrics.CallRequest("sent")
	} else {
		r.enqueue(req)
		ack.Status = "queued"
		r.notify.send(client, MsgRequestQueued, ack)
		r.metrics.CallRequest("queued")
	}
	r.logger.Info("call request submitted",
		zap.String("request_id", req.ID),
		zap.String("staff_id", staffID),
		zap.String("client_conn", client.ID),
		zap.String("status", ack.Status))
	return req, nil
}

// OnLogin drains the identity's queue in submission order onto conn.
func (r *CallRequestRouter) OnLogin(staffID string, conn *Conn) int {
	queue := r.queues[staffID]
	delete(r.queues, staffID)
	delivered := 0
	for _, req := range queue {
		if req.Status != RequestPending {
			continue
		}
		r.deliver(req, conn)
		delivered++
	}
	if delivered > 0 {
		r.logger.Info("delivered queued requests", zap.String("staff_id", staffID), zap.Int("count", delivered))
	}
	return delivered
}

// Respond applies a staff answer. Answering a request that is no longer
// pending changes nothing.
func (r *CallRequestRouter) Respond(staffConn *Conn, requestID string, accepted bool, reason string) error {
	req := r.requests[requestID]
	if req == nil {
		return apperrors.NewNotFound("call request", map[string]any{"request_id": requestID})
	}
	owner := r.registry.Owner(staffConn)
	if owner == nil || owner.ID != req.TargetID {
		return apperrors.NewUnauthorized("request is addressed to another staff member")
	}
	if req.Status != RequestPending {
		r.logger.Info("ignoring response for settled request",
			zap.String("request_id", requestID),
			zap.String("status", string(req.Status)),
			zap.Bool("accepted", accepted))
		return nil
	}

	if !accepted {
		if reason == "" {
			reason = defaultRejectReason
		}
		r.close(req, RequestRejected)
		r.notify.send(req.Requester, MsgRequestRejected, RequestRejectedData{RequestID: req.ID, Reason: reason})
		r.metrics.CallRequest("rejected")
		r.logger.Info("call request rejected", zap.String("request_id", req.ID), zap.String("reason", reason))
		return nil
	}

	sess, err := r.sessions.Create(req.Requester, staffConn, req)
	if err != nil {
		return err
	}
	r.close(req, RequestAccepted)
	r.notify.send(req.Requester, MsgRequestAccepted, RequestAcceptedData{
		RequestID: req.ID,
		StaffName: owner.Name,
		CallID:    sess.ID,
	})
	r.metrics.CallRequest("accepted")
	return nil
}

// ExpireFrom expires every pending request made by conn.
func (r *CallRequestRouter) ExpireFrom(conn *Conn) int {
	expired := 0
	for _, req := range r.requests {
		if req.Status == RequestPending && req.Requester.ID == conn.ID {
			r.expire(req, expiryRequesterGone, false)
			expired++
		}
	}
	return expired
}

// ExpireOlderThan expires pending requests created before cutoff.
func (r *CallRequestRouter) ExpireOlderThan(cutoff time.Time) int {
	expired := 0
	for _, req := range r.requests {
		if req.Status == RequestPending && req.CreatedAt.Before(cutoff) {
			r.expire(req, expiryTimedOut, true)
			expired++
		}
	}
	return expired
}

// Requeue puts requests delivered to conn but never answered back on their
// target's queue so the next login sees them again.
func (r *CallRequestRouter) Requeue(conn *Conn) int {
	requeued := 0
	for _, req := range r.requests {
		if req.Status == RequestPending && req.deliveredTo == conn {
			req.deliveredTo = nil
			r.enqueue(req)
			requeued++
		}
	}
	return requeued
}

// Prune forgets settled requests closed before cutoff.
func (r *CallRequestRouter) Prune(cutoff time.Time) int {
	removed := 0
	for id, req := range r.requests {
		if req.Status != RequestPending && req.ClosedAt.Before(cutoff) {
			delete(r.requests, id)
			removed++
		}
	}
	return removed
}

// Get returns a request by id.
func (r *CallRequestRouter) Get(requestID string) *CallRequest {
	return r.requests[requestID]
}

// Queued returns the pending queue of an identity in delivery order.
func (r *CallRequestRouter) Queued(staffID string) []*CallRequest {
	return append([]*CallRequest(nil), r.queues[staffID]...)
}

func (r *CallRequestRouter) deliver(req *CallRequest, staffConn *Conn) {
	req.deliveredTo = staffConn
	r.notify.send(staffConn, MsgIncomingRequest, IncomingRequestData{
		RequestID:  req.ID,
		Purpose:    req.Purpose,
		ClientName: req.ClientName,
		CreatedAt:  req.CreatedAt,
	})
}

func (r *CallRequestRouter) enqueue(req *CallRequest) {
	queue := append(r.queues[req.TargetID], req)
	sort.SliceStable(queue, func(i, j int) bool { return queue[i].Seq < queue[j].Seq })
	r.queues[req.TargetID] = queue
}

func (r *CallRequestRouter) dequeue(req *CallRequest) {
	queue := r.queues[req.TargetID]
	for i, queued := range queue {
		if queued == req {
			queue = append(queue[:i], queue[i+1:]...)
			break
		}
	}
	if len(queue) == 0 {
		delete(r.queues, req.TargetID)
		return
	}
	r.queues[req.TargetID] = queue
}

func (r *CallRequestRouter) close(req *CallRequest, status RequestStatus) {
	req.Status = status
	req.ClosedAt = r.now()
	r.dequeue(req)
}

func (r *CallRequestRouter) expire(req *CallRequest, reason string, tellRequester bool) {
	staffConn := req.deliveredTo
	r.close(req, RequestExpired)
	req.deliveredTo = nil

	data := RequestExpiredData{RequestID: req.ID, Reason: reason}
	if staffConn != nil {
		r.notify.send(staffConn, MsgRequestExpired, data)
	}
	if tellRequester {
		r.notify.send(req.Requester, MsgRequestExpired, data)
	}
	r.out.publish(events.EventRequestExpired, req.TargetID, events.RequestExpiredPayload{
		RequestID: req.ID,
		Reason:    reason,
	})
	r.metrics.CallRequest("expired")
	r.logger.Info("call request expired",
		zap.String("request_id", req.ID),
		zap.String("staff_id", req.TargetID),
		zap.String("reason", reason))
}
