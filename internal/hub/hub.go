package hub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/tablehub/internal/broadcast"
	"github.com/pscheid92/tablehub/internal/domain"
	"github.com/pscheid92/tablehub/internal/metrics"
	"github.com/pscheid92/tablehub/internal/protocol"
	"github.com/pscheid92/tablehub/internal/state"
)

const (
	commandTimeout    = 5 * time.Second
	stopTimeout       = 10 * time.Second
	depthSampleTicker = 1 * time.Second
	shutdownReason    = "server shutting down"
	commandBufferSize = 256
)

// Fanout delivers encoded frames to connected clients. It is only called from the hub goroutine.
type Fanout interface {
	Register(connID uuid.UUID, conn *websocket.Conn) error
	Unregister(connID uuid.UUID)
	Deliver(f broadcast.Frame) int
	ClientCount() int
	CloseAll(reason string)
}

// Mirror receives a copy of every frame broadcast to more than the originator.
// Enqueue must not block.
type Mirror interface {
	Enqueue(event string, frame []byte)
}

// Options toggles behavior clients may rely on.
type Options struct {
	// SyncStateOnConnect also pushes tables and kitchen orders to a new connection.
	SyncStateOnConnect bool
	// BroadcastTableUpdates sends sync_state to everyone after update_table.
	BroadcastTableUpdates bool
}

type hubCmd interface{ isHubCmd() }

type baseHubCmd struct{}

func (baseHubCmd) isHubCmd() {}

type connectCmd struct {
	baseHubCmd
	connID       uuid.UUID
	connection   *websocket.Conn
	errorChannel chan error
}

type disconnectCmd struct {
	baseHubCmd
	connID uuid.UUID
}

type eventCmd struct {
	baseHubCmd
	ctx     context.Context
	connID  uuid.UUID
	request protocol.Request
}

type snapshotCmd struct {
	baseHubCmd
	replyChannel chan state.Snapshot
}

type clientCountCmd struct {
	baseHubCmd
	replyChannel chan int
}

type stopCmd struct {
	baseHubCmd
}

// Hub is the single consumer of client events.
type Hub struct {
	cmdCh       chan hubCmd
	mu          sync.RWMutex
	closed      bool
	stopping    chan struct{}
	clock       clockwork.Clock
	store       *state.Store
	fanout      Fanout
	mirror      Mirror
	handlers    map[protocol.EventName]mutationHandler
	opts        Options
	done        chan struct{}
	stopOnce    sync.Once
	stopTimeout time.Duration
}

// New starts a hub owning store. mirror may be nil.
func New(store *state.Store, fanout Fanout, mirror Mirror, clock clockwork.Clock, opts Options) *Hub {
	return newHub(store, fanout, mirror, clock, opts, randomOrderID)
}

func newHub(store *state.Store, fanout Fanout, mirror Mirror, clock clockwork.Clock, opts Options, newOrderID func() domain.ID) *Hub {
	h := &Hub{
		cmdCh:       make(chan hubCmd, commandBufferSize),
		clock:       clock,
		store:       store,
		fanout:      fanout,
		mirror:      mirror,
		handlers:    newDispatchTable(opts, newOrderID),
		opts:        opts,
		done:        make(chan struct{}),
		stopping:    make(chan struct{}),
		stopTimeout: stopTimeout,
	}
	h.observeState()
	go h.run()
	return h
}

// Connect registers conn and pushes the bootstrap messages to it.
// On error the caller still owns conn.
func (h *Hub) Connect(conn *websocket.Conn) (uuid.UUID, error) {
	connID := uuid.New()
	errCh := make(chan error, 1)
	if err := h.send(connectCmd{connID: connID, connection: conn, errorChannel: errCh}); err != nil {
		return uuid.Nil, err
	}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case err := <-errCh:
		if err != nil {
			return uuid.Nil, err
		}
		return connID, nil
	case <-timer.Chan():
		// The command may still be applied later; make sure it does not linger.
		h.Disconnect(connID)
		return uuid.Nil, fmt.Errorf("connect: %w after %v", domain.ErrCommandTimedOut, commandTimeout)
	case <-h.done:
		return uuid.Nil, domain.ErrHubStopped
	}
}

// Disconnect unregisters the connection. Unknown ids are ignored.
func (h *Hub) Disconnect(connID uuid.UUID) {
	_ = h.send(disconnectCmd{connID: connID})
}

// Submit enqueues req from connection connID. Events are applied in the order they are submitted,
// and every event accepted with a nil error is applied, even when Stop follows right after.
// ctx bounds the wait for queue space; its values are used for logging.
func (h *Hub) Submit(ctx context.Context, connID uuid.UUID, req protocol.Request) error {
	cmd := eventCmd{ctx: context.WithoutCancel(ctx), connID: connID, request: req}
	if err := h.enqueue(ctx, cmd); err != nil {
		if errors.Is(err, domain.ErrHubStopped) {
			return err
		}
		return fmt.Errorf("submit %s: %w", req.Event(), err)
	}
	return nil
}

// Snapshot returns a copy of the whole store, taken after every previously submitted event.
func (h *Hub) Snapshot(ctx context.Context) (state.Snapshot, error) {
	replyCh := make(chan state.Snapshot, 1)
	if err := h.send(snapshotCmd{replyChannel: replyCh}); err != nil {
		return state.Snapshot{}, err
	}

	select {
	case snap := <-replyCh:
		return snap, nil
	case <-h.done:
		return state.Snapshot{}, domain.ErrHubStopped
	case <-ctx.Done():
		return state.Snapshot{}, fmt.Errorf("snapshot: %w", ctx.Err())
	}
}

// ClientCount returns the number of registered connections, or -1 if the hub does not answer in time.
func (h *Hub) ClientCount() int {
	replyCh := make(chan int, 1)
	if err := h.send(clientCountCmd{replyChannel: replyCh}); err != nil {
		return -1
	}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case count := <-replyCh:
		return count
	case <-timer.Chan():
		slog.Warn("ClientCount timed out", "timeout", commandTimeout)
		return -1
	case <-h.done:
		return -1
	}
}

// Stop closes every client with a close frame and waits for the hub goroutine to exit.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		if err := h.send(stopCmd{}); err != nil {
			return
		}

		timeout := h.clock.NewTimer(h.stopTimeout)
		defer timeout.Stop()

		select {
		case <-h.done:
			slog.Info("Hub stopped gracefully")
		case <-timeout.Chan():
			slog.Warn("Hub stop timeout exceeded", "timeout", h.stopTimeout)
			metrics.HubStopTimeoutsTotal.Inc()
		}
	})
}

// Done is closed once the hub goroutine has exited.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) send(cmd hubCmd) error {
	return h.enqueue(context.Background(), cmd)
}

// enqueue hands cmd to the hub goroutine. Once shutdown has taken the write lock,
// nothing more gets in, so every command accepted before that is still drained.
func (h *Hub) enqueue(ctx context.Context, cmd hubCmd) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return domain.ErrHubStopped
	}

	select {
	case h.cmdCh <- cmd:
		return nil
	case <-h.stopping:
		return domain.ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) run() {
	defer close(h.done)

	depthTicker := h.clock.NewTicker(depthSampleTicker)
	defer depthTicker.Stop()

	for {
		select {
		case <-depthTicker.Chan():
			metrics.HubCommandChannelDepth.Set(float64(len(h.cmdCh)))
		case cmd := <-h.cmdCh:
			if _, ok := cmd.(stopCmd); ok {
				h.shutdown()
				return
			}
			h.dispatch(cmd)
		}
	}
}

func (h *Hub) dispatch(cmd hubCmd) {
	switch c := cmd.(type) {
	case connectCmd:
		c.errorChannel <- h.handleConnect(c.connID, c.connection)
	case disconnectCmd:
		h.fanout.Unregister(c.connID)
	case eventCmd:
		h.handleEvent(c)
	case snapshotCmd:
		c.replyChannel <- h.store.Snapshot()
	case clientCountCmd:
		c.replyChannel <- h.fanout.ClientCount()
	}
}

// shutdown closes intake, applies the commands that were already accepted and
// then closes every client. Late connections are refused.
func (h *Hub) shutdown() {
	close(h.stopping)
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()

	drained := 0
	for {
		select {
		case cmd := <-h.cmdCh:
			drained++
			switch c := cmd.(type) {
			case connectCmd:
				c.errorChannel <- domain.ErrHubStopped
			case stopCmd:
			default:
				h.dispatch(c)
			}
		default:
			if drained > 0 {
				slog.Info("Applied queued commands before shutdown", "count", drained)
			}
			h.fanout.CloseAll(shutdownReason)
			return
		}
	}
}

func (h *Hub) handleConnect(connID uuid.UUID, conn *websocket.Conn) error {
	if err := h.fanout.Register(connID, conn); err != nil {
		return fmt.Errorf("register connection: %w", err)
	}

	for _, e := range bootstrap(h.store, h.opts.SyncStateOnConnect) {
		h.emit(context.Background(), connID, e)
	}
	return nil
}

func (h *Hub) handleEvent(cmd eventCmd) {
	event := cmd.request.Event()
	handler, ok := h.handlers[event]
	if !ok {
		slog.WarnContext(cmd.ctx, "No handler for event", "event", string(event), "conn_id", cmd.connID.String())
		metrics.HubEventsTotal.WithLabelValues(string(event), "unhandled").Inc()
		return
	}

	start := h.clock.Now()
	emissions, err := h.apply(handler, cmd.request)
	metrics.HubEventDuration.WithLabelValues(string(event)).Observe(h.clock.Since(start).Seconds())

	if err != nil {
		slog.ErrorContext(cmd.ctx, "Mutation panicked, state may be partially applied", "event", string(event), "conn_id", cmd.connID.String(), "error", err)
		metrics.HubEventsTotal.WithLabelValues(string(event), "panic").Inc()
		return
	}
	metrics.HubEventsTotal.WithLabelValues(string(event), "applied").Inc()

	for _, e := range emissions {
		h.emit(cmd.ctx, cmd.connID, e)
	}
	h.observeState()
}

// apply runs one mutation, converting a panic into an error so a bad event cannot stop the hub.
func (h *Hub) apply(handler mutationHandler, req protocol.Request) (emissions []emission, err error) {
	defer func() {
		if r := recover(); r != nil {
			metrics.HubPanicsTotal.Inc()
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return handler(h.store, req), nil
}

func (h *Hub) emit(ctx context.Context, originator uuid.UUID, e emission) {
	frame, err := protocol.Encode(e.event, e.payload)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to encode outbound event", "event", string(e.event), "error", err)
		return
	}

	delivered := h.fanout.Deliver(broadcast.Frame{
		Event:      string(e.event),
		Data:       frame,
		Recipients: e.recipients,
		Originator: originator,
	})
	slog.DebugContext(ctx, "Event emitted", "event", string(e.event), "recipients", e.recipients.String(), "delivered", delivered)

	if h.mirror != nil && e.recipients != domain.RecipientsOriginator {
		h.mirror.Enqueue(string(e.event), frame)
	}
}

func (h *Hub) observeState() {
	tables, pending, history := h.store.Counts()
	metrics.StateTables.Set(float64(tables))
	metrics.StatePendingOrders.Set(float64(pending))
	metrics.StateHistoryLength.Set(float64(history))
}
