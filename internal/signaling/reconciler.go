package signaling

import (
	"go.uber.org/zap"

	"github.com/campusdesk/reception-service/internal/domain"
)

// DisconnectReconciler restores consistency when a connection goes away. It
// owns the ordering of cleanup across the registry, router and sessions.
type DisconnectReconciler struct {
	registry *PresenceRegistry
	router   *CallRequestRouter
	sessions *CallSessionManager
	logger   *zap.Logger
}

func newDisconnectReconciler(registry *PresenceRegistry, router *CallRequestRouter, sessions *CallSessionManager, logger *zap.Logger) *DisconnectReconciler {
	return &DisconnectReconciler{registry: registry, router: router, sessions: sessions, logger: logger}
}

// Reconcile runs the cleanup for conn. Running it twice is harmless.
func (d *DisconnectReconciler) Reconcile(conn *Conn) {
	ident := d.registry.Unregister(conn)

	aborted := ""
	if sess := d.sessions.ActiveFor(conn); sess != nil {
		aborted = sess.ID
		if err := d.sessions.End(sess.ID, conn, EndedBySystem, ReasonDisconnected, domain.CallStatusAborted); err != nil {
			d.logger.Warn("abort call on disconnect", zap.String("call_id", sess.ID), zap.Error(err))
		}
	}

	expired := d.router.ExpireFrom(conn)
	requeued := d.router.Requeue(conn)

	fields := []zap.Field{
		zap.String("conn_id", conn.ID),
		zap.Int("expired_requests", expired),
		zap.Int("requeued_requests", requeued),
	}
	if ident != nil {
		fields = append(fields, zap.String("staff_id", ident.ID))
	}
	if aborted != "" {
		fields = append(fields, zap.String("aborted_call", aborted))
	}
	d.logger.Info("connection reconciled", fields...)
}
