package redis

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pscheid92/tablehub/internal/metrics"
	apperrors "github.com/pscheid92/tablehub/internal/platform/errors"
	goredis "github.com/redis/go-redis/v9"
)

const (
	mirrorQueueSize = 1024
	publishTimeout  = 2 * time.Second
	drainTimeout    = 5 * time.Second
)

type mirrorFrame struct {
	event string
	frame []byte
}

// EventMirror publishes encoded frames to "<prefix>:<event>" from a single goroutine.
// Enqueue never blocks; frames arriving while the queue is full are dropped.
type EventMirror struct {
	rdb    *goredis.Client
	prefix string

	queue     chan mirrorFrame
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewEventMirror starts the publisher goroutine. Call Close to stop it.
func NewEventMirror(client *Client, prefix string) *EventMirror {
	m := &EventMirror{
		rdb:    client.rdb,
		prefix: prefix,
		queue:  make(chan mirrorFrame, mirrorQueueSize),
		done:   make(chan struct{}),
	}
	m.wg.Add(1)
	go m.run()
	return m
}

// Channel returns the pub/sub channel an event is mirrored to.
func Channel(prefix, event string) string {
	return prefix + ":" + event
}

func (m *EventMirror) Enqueue(event string, frame []byte) {
	select {
	case <-m.done:
		return
	default:
	}

	select {
	case m.queue <- mirrorFrame{event: event, frame: frame}:
	default:
		metrics.MirrorDroppedTotal.Inc()
		slog.Warn("Mirror queue full, dropping event", "event", event)
	}
}

// Close stops accepting frames, publishes what is still queued and waits for the goroutine.
func (m *EventMirror) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
		m.wg.Wait()
	})
}

func (m *EventMirror) run() {
	defer m.wg.Done()

	for {
		select {
		case f := <-m.queue:
			m.publish(context.Background(), f)
		case <-m.done:
			m.drain()
			return
		}
	}
}

func (m *EventMirror) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	for {
		select {
		case f := <-m.queue:
			m.publish(ctx, f)
		default:
			return
		}
	}
}

func (m *EventMirror) publish(ctx context.Context, f mirrorFrame) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := m.rdb.Publish(ctx, Channel(m.prefix, f.event), f.frame).Err(); err != nil {
		metrics.MirrorPublishedTotal.WithLabelValues(f.event, "error").Inc()
		publishErr := apperrors.ExternalError("redis publish failed", err).WithField("event", f.event)
		slog.Debug("Mirror publish failed", publishErr.LogAttrs()...)
		return
	}
	metrics.MirrorPublishedTotal.WithLabelValues(f.event, "success").Inc()
}
