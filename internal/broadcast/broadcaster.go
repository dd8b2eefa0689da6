package broadcast

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/tablehub/internal/domain"
	"github.com/pscheid92/tablehub/internal/metrics"
)

// Frame is one encoded outbound message together with its audience.
type Frame struct {
	Event      string
	Data       []byte
	Recipients domain.Recipients
	Originator uuid.UUID
}

// Broadcaster fans frames out to registered WebSocket connections.
// All methods are called from the hub goroutine (no concurrent access).
type Broadcaster struct {
	clock      clockwork.Clock
	clients    map[uuid.UUID]*clientWriter
	maxClients int
}

// NewBroadcaster creates a broadcaster accepting at most maxClients connections.
func NewBroadcaster(clock clockwork.Clock, maxClients int) *Broadcaster {
	return &Broadcaster{
		clock:      clock,
		clients:    make(map[uuid.UUID]*clientWriter),
		maxClients: maxClients,
	}
}

// Register starts a writer for conn. The caller keeps ownership of conn when an error is returned.
func (b *Broadcaster) Register(connID uuid.UUID, conn *websocket.Conn) error {
	if _, exists := b.clients[connID]; exists {
		return fmt.Errorf("connection %s already registered", connID)
	}
	if len(b.clients) >= b.maxClients {
		slog.Warn("Rejecting client: max clients reached", "conn_id", connID.String(), "max_clients", b.maxClients)
		return fmt.Errorf("%w: max clients (%d) reached", domain.ErrTooManyClients, b.maxClients)
	}

	b.clients[connID] = newClientWriter(connID, conn, b.clock)
	metrics.BroadcasterConnectedClients.Set(float64(len(b.clients)))

	slog.Debug("Client registered", "conn_id", connID.String(), "total_clients", len(b.clients))
	return nil
}

// Unregister stops the writer and closes the connection. Unknown ids are ignored.
func (b *Broadcaster) Unregister(connID uuid.UUID) {
	cw, exists := b.clients[connID]
	if !exists {
		return
	}

	cw.stop()
	delete(b.clients, connID)
	metrics.BroadcasterConnectedClients.Set(float64(len(b.clients)))

	slog.Debug("Client unregistered", "conn_id", connID.String(), "remaining_clients", len(b.clients))
}

// Deliver enqueues f.Data for every connection selected by f.Recipients and returns
// how many connections it reached.
func (b *Broadcaster) Deliver(f Frame) int {
	delivered := 0
	var slow []uuid.UUID

	for connID, writer := range b.clients {
		if !Selects(f.Recipients, connID, f.Originator) {
			continue
		}
		if writer.enqueue(f.Data) {
			delivered++
		} else {
			slow = append(slow, connID)
		}
	}

	for _, connID := range slow {
		slog.Warn("Disconnecting slow client", "conn_id", connID.String(), "event", f.Event)
		metrics.BroadcasterSlowClientsEvicted.Inc()
		b.Unregister(connID)
	}

	metrics.BroadcasterMessagesTotal.WithLabelValues(f.Event, f.Recipients.String()).Add(float64(delivered))
	return delivered
}

// Selects reports whether connection connID belongs to the audience described by
// recipients for a frame produced by originator.
func Selects(recipients domain.Recipients, connID, originator uuid.UUID) bool {
	switch recipients {
	case domain.RecipientsAll:
		return true
	case domain.RecipientsOthers:
		return connID != originator
	case domain.RecipientsOriginator:
		return connID == originator
	default:
		return false
	}
}

func (b *Broadcaster) ClientCount() int {
	return len(b.clients)
}

// CloseAll sends every client a close frame carrying reason and forgets them.
func (b *Broadcaster) CloseAll(reason string) {
	total := len(b.clients)
	for connID, cw := range b.clients {
		cw.stopGraceful(reason)
		delete(b.clients, connID)
	}
	metrics.BroadcasterConnectedClients.Set(0)

	slog.Info("Broadcaster closed all clients", "disconnected_clients", total, "reason", reason)
}
