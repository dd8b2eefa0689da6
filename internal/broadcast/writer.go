package broadcast

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/tablehub/internal/metrics"
)

const (
	writeDeadline = 5 * time.Second
	pingInterval  = 30 * time.Second
	pongDeadline  = 60 * time.Second
	outboxSize    = 16
)

// clientWriter owns all writes to one connection. gorilla allows a single concurrent writer.
type clientWriter struct {
	connID uuid.UUID
	conn   *websocket.Conn
	clock  clockwork.Clock
	outbox chan []byte
	quit   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

func newClientWriter(connID uuid.UUID, conn *websocket.Conn, clock clockwork.Clock) *clientWriter {
	cw := &clientWriter{
		connID: connID,
		conn:   conn,
		clock:  clock,
		outbox: make(chan []byte, outboxSize),
		quit:   make(chan struct{}),
	}
	cw.armReadDeadline()
	conn.SetPongHandler(func(string) error {
		cw.armReadDeadline()
		return nil
	})

	cw.wg.Add(1)
	go cw.run()
	return cw
}

// enqueue hands a frame to the writer without blocking. False means the outbox is full.
func (cw *clientWriter) enqueue(frame []byte) bool {
	select {
	case cw.outbox <- frame:
		return true
	default:
		return false
	}
}

func (cw *clientWriter) run() {
	defer cw.wg.Done()

	pings := cw.clock.NewTicker(pingInterval)
	defer pings.Stop()

	for {
		select {
		case frame := <-cw.outbox:
			start := cw.clock.Now()
			if err := cw.write(websocket.TextMessage, frame); err != nil {
				slog.Debug("Write failed, writer exiting", "conn_id", cw.connID.String(), "error", err)
				return
			}
			metrics.WebSocketMessageSendDuration.Observe(cw.clock.Since(start).Seconds())
		case <-pings.Chan():
			if err := cw.write(websocket.PingMessage, nil); err != nil {
				metrics.WebSocketPingFailures.Inc()
				slog.Debug("Ping failed, writer exiting", "conn_id", cw.connID.String(), "error", err)
				return
			}
		case <-cw.quit:
			return
		}
	}
}

func (cw *clientWriter) write(messageType int, data []byte) error {
	_ = cw.conn.SetWriteDeadline(cw.clock.Now().Add(writeDeadline))
	return cw.conn.WriteMessage(messageType, data)
}

// stop drops the connection without a close frame. Used for evictions.
func (cw *clientWriter) stop() {
	cw.once.Do(func() {
		close(cw.quit)
		_ = cw.conn.Close()
	})
	cw.wg.Wait()
}

// stopGraceful waits for run to exit, then sends a normal-closure frame carrying reason.
func (cw *clientWriter) stopGraceful(reason string) {
	cw.once.Do(func() {
		close(cw.quit)
		cw.wg.Wait()

		_ = cw.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason))
		_ = cw.conn.Close()
	})
}

func (cw *clientWriter) armReadDeadline() {
	_ = cw.conn.SetReadDeadline(cw.clock.Now().Add(pongDeadline))
}
