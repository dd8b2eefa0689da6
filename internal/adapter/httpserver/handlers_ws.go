package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/tablehub/internal/metrics"
	"github.com/pscheid92/tablehub/internal/platform/correlation"
	apperrors "github.com/pscheid92/tablehub/internal/platform/errors"
	"github.com/pscheid92/tablehub/internal/protocol"
)

const (
	submitTimeout     = 5 * time.Second
	closeWriteTimeout = time.Second
)

func (s *Server) handleWebSocket(c echo.Context) error {
	ip := c.RealIP()
	if ok, reason := s.limits.Acquire(ip); !ok {
		metrics.WebSocketConnectionsRejected.WithLabelValues(string(reason)).Inc()
		slog.WarnContext(c.Request().Context(), "WebSocket connection refused", "remote_ip", ip, "reason", string(reason))
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "too many connections"})
	}
	defer s.limits.Release(ip)

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already written an HTTP error.
		slog.DebugContext(c.Request().Context(), "WebSocket upgrade failed", "remote_ip", ip, "error", err)
		return nil
	}
	conn.SetReadLimit(s.config.MaxMessageBytes)

	connID, err := s.hub.Connect(conn)
	if err != nil {
		metrics.WebSocketConnectionsRejected.WithLabelValues(string(LimitReasonHub)).Inc()
		slog.WarnContext(c.Request().Context(), "Hub refused connection", "remote_ip", ip, "error", err)
		closeWithReason(conn, websocket.CloseTryAgainLater, "server busy")
		return nil
	}

	metrics.WebSocketConnectionsTotal.Inc()
	start := time.Now()
	ctx := correlation.WithConnection(context.WithoutCancel(c.Request().Context()), connID)
	slog.InfoContext(ctx, "Client connected", "remote_ip", ip)

	s.readPump(ctx, conn, connID)

	s.hub.Disconnect(connID)
	duration := time.Since(start)
	metrics.WebSocketConnectionDuration.Observe(duration.Seconds())
	slog.InfoContext(ctx, "Client disconnected", "remote_ip", ip, "duration", duration)
	return nil
}

// readPump decodes frames in arrival order and submits them to the hub until the connection ends.
// Rejected frames are logged and dropped; the client gets no reply.
func (s *Server) readPump(ctx context.Context, conn *websocket.Conn, connID uuid.UUID) {
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				slog.DebugContext(ctx, "WebSocket read ended", "error", err)
			}
			return
		}

		req, err := protocol.Decode(frame)
		if err != nil {
			rejectFrame(ctx, err)
			continue
		}

		submitCtx, cancel := context.WithTimeout(ctx, submitTimeout)
		err = s.hub.Submit(submitCtx, connID, req)
		cancel()
		if err != nil {
			slog.WarnContext(ctx, "Failed to submit event, closing connection", "event", string(req.Event()), "error", err)
			closeWithReason(conn, websocket.CloseTryAgainLater, "server busy")
			return
		}
	}
}

func rejectFrame(ctx context.Context, err error) {
	structuredErr := apperrors.AsStructuredError(err)

	label := "unknown"
	if event, ok := structuredErr.Context["event"].(string); ok && protocol.IsInbound(protocol.EventName(event)) {
		label = event
	}
	metrics.HubEventsTotal.WithLabelValues(label, "rejected").Inc()
	slog.InfoContext(ctx, "Rejected inbound frame", structuredErr.LogAttrs()...)
}

func closeWithReason(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteTimeout))
	_ = conn.Close()
}
