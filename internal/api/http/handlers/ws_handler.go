package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/campusdesk/reception-service/internal/auth"
	"github.com/campusdesk/reception-service/internal/domain"
	"github.com/campusdesk/reception-service/internal/observability"
	"github.com/campusdesk/reception-service/internal/signaling"
)

const (
	localStaff      = "ws_staff"
	localClientName = "ws_client_name"

	writeWait          = 10 * time.Second
	defaultPongWait    = 60 * time.Second
	defaultReadLimit   = 512 * 1024
	closeReasonReplace = "session replaced"
)

// SignalingHub is the part of the switchboard a socket talks to.
type SignalingHub interface {
	Connect(clientName string) *signaling.Conn
	LoginMember(ctx context.Context, conn *signaling.Conn, member domain.StaffMember) error
	HandleMessage(ctx context.Context, conn *signaling.Conn, raw []byte)
	ReportError(conn *signaling.Conn, event string, err error)
	Disconnect(ctx context.Context, conn *signaling.Conn)
}

// WSHandler upgrades /ws and pumps frames between the socket and the switchboard.
type WSHandler struct {
	hub       SignalingHub
	logger    *zap.Logger
	pongWait  time.Duration
	readLimit int64
	origins   []string
	active    sync.WaitGroup
}

// NewWSHandler constructs handler. Empty origins accept any origin.
func NewWSHandler(hub SignalingHub, logger *zap.Logger, pongWait time.Duration, readLimit int64, origins []string) *WSHandler {
	if pongWait <= 0 {
		pongWait = defaultPongWait
	}
	if readLimit <= 0 {
		readLimit = defaultReadLimit
	}
	return &WSHandler{hub: hub, logger: logger, pongWait: pongWait, readLimit: readLimit, origins: origins}
}

// Upgrade rejects plain HTTP and hands the caller's identity to the socket.
// It runs after the optional auth middleware.
func (h *WSHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	if principal, ok := auth.PrincipalFromContext(c); ok {
		if principal.Staff != nil {
			c.Locals(localStaff, *principal.Staff)
		} else if principal.DisplayName != "" {
			c.Locals(localClientName, principal.DisplayName)
		}
	}
	if c.Locals(localClientName) == nil {
		if name := c.Query("name"); name != "" {
			c.Locals(localClientName, name)
		}
	}
	return c.Next()
}

// Serve returns the upgrade handler.
func (h *WSHandler) Serve() fiber.Handler {
	return websocket.New(h.serve, websocket.Config{Origins: h.origins})
}

// Drain waits until every accepted socket has finished its teardown. Call it
// once no new upgrades can arrive.
func (h *WSHandler) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.active.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *WSHandler) serve(ws *websocket.Conn) {
	h.active.Add(1)
	defer h.active.Done()
	ctx := context.Background()
	clientName, _ := ws.Locals(localClientName).(string)
	conn := h.hub.Connect(clientName)
	logger := h.logger.With(zap.String("conn_id", conn.ID))

	done := make(chan struct{})
	go h.writePump(ws, conn, logger, done)

	if staff, ok := ws.Locals(localStaff).(domain.StaffMember); ok {
		if err := h.hub.LoginMember(ctx, conn, staff); err != nil {
			h.hub.ReportError(conn, signaling.MsgLogin, err)
		}
	}

	h.readPump(ctx, ws, conn, logger)
	h.hub.Disconnect(ctx, conn)
	<-done
}

func (h *WSHandler) readPump(ctx context.Context, ws *websocket.Conn, conn *signaling.Conn, logger *zap.Logger) {
	ws.SetReadLimit(h.readLimit)
	_ = ws.SetReadDeadline(time.Now().Add(h.pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(h.pongWait))
	})

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				logger.Info("socket read failed", zap.Error(err))
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(h.pongWait))
		msgCtx, span := observability.Tracer().Start(ctx, "ws.message",
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("conn_id", conn.ID), attribute.Int("bytes", len(raw))))
		h.hub.HandleMessage(msgCtx, conn, raw)
		span.End()
	}
}

func (h *WSHandler) writePump(ws *websocket.Conn, conn *signaling.Conn, logger *zap.Logger, done chan<- struct{}) {
	ticker := time.NewTicker(h.pongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		_ = ws.Close()
		close(done)
	}()

	for {
		select {
		case frame, ok := <-conn.Outbound():
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				logger.Debug("socket write failed", zap.Error(err))
				return
			}

		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-conn.Kicked():
			h.flushPending(ws, conn)
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, closeReasonReplace),
				time.Now().Add(writeWait))
			logger.Info("socket replaced by newer login")
			return
		}
	}
}

// flushPending writes frames already queued, such as session-replaced.
func (h *WSHandler) flushPending(ws *websocket.Conn, conn *signaling.Conn) {
	for {
		select {
		case frame, ok := <-conn.Outbound():
			if !ok {
				return
			}
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		default:
			return
		}
	}
}
