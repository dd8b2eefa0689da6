package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Hub Metrics
var (
	// HubEventsTotal tracks inbound events by event name and result (applied/rejected/unhandled/panic)
	HubEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tablehub_hub_events_total",
			Help: "Inbound events by event name and result",
		},
		[]string{"event", "result"},
	)

	// HubEventDuration tracks how long a mutation takes to apply and fan out
	HubEventDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tablehub_hub_event_duration_seconds",
			Help:    "Time to apply an inbound event and enqueue its broadcasts",
			Buckets: []float64{.00005, .0001, .0005, .001, .005, .01, .05, .1},
		},
		[]string{"event"},
	)

	// HubCommandChannelDepth tracks current command channel depth
	HubCommandChannelDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tablehub_hub_command_channel_depth",
			Help: "Current hub command channel depth",
		},
	)

	// HubPanicsTotal tracks mutations that panicked and were recovered
	HubPanicsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tablehub_hub_panics_total",
			Help: "Total hub panic recoveries",
		},
	)

	// HubStopTimeoutsTotal tracks hub stops that exceeded timeout
	HubStopTimeoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tablehub_hub_stop_timeouts_total",
			Help: "Hub stops that exceeded timeout",
		},
	)

	// HistoryMergesTotal tracks history merge decisions (accepted/rejected)
	HistoryMergesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tablehub_history_merges_total",
			Help: "History merge decisions by outcome",
		},
		[]string{"outcome"},
	)
)

// State Metrics
var (
	// StateTables tracks the number of tables in the store
	StateTables = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tablehub_state_tables",
			Help: "Number of tables in the shared state",
		},
	)

	// StatePendingOrders tracks the number of orders waiting in the kitchen
	StatePendingOrders = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tablehub_state_pending_orders",
			Help: "Number of pending kitchen orders",
		},
	)

	// StateHistoryLength tracks the length of the authoritative order history
	StateHistoryLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tablehub_state_history_length",
			Help: "Number of records in the order history",
		},
	)
)

// Broadcaster Metrics
var (
	// BroadcasterConnectedClients tracks registered WebSocket clients
	BroadcasterConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tablehub_broadcaster_connected_clients",
			Help: "Number of WebSocket clients registered with the broadcaster",
		},
	)

	// BroadcasterMessagesTotal tracks delivered frames by event and recipients policy
	BroadcasterMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tablehub_broadcaster_messages_total",
			Help: "Frames enqueued to clients by event and recipients policy",
		},
		[]string{"event", "recipients"},
	)

	// BroadcasterSlowClientsEvicted tracks clients evicted because their buffer was full
	BroadcasterSlowClientsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tablehub_broadcaster_slow_clients_evicted_total",
			Help: "Total number of slow WebSocket clients evicted due to buffer full",
		},
	)
)

// WebSocket Metrics
var (
	// WebSocketConnectionsTotal tracks accepted WebSocket upgrades
	WebSocketConnectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tablehub_websocket_connections_total",
			Help: "Total accepted WebSocket connections",
		},
	)

	// WebSocketConnectionsRejected tracks refused connections by reason
	WebSocketConnectionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tablehub_websocket_connections_rejected_total",
			Help: "WebSocket connections rejected by reason",
		},
		[]string{"reason"},
	)

	// WebSocketConnectionDuration tracks how long connections stay open
	WebSocketConnectionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tablehub_websocket_connection_duration_seconds",
			Help:    "WebSocket connection lifetime in seconds",
			Buckets: []float64{1, 10, 60, 300, 1800, 3600, 14400, 43200},
		},
	)

	// WebSocketMessageSendDuration tracks per-frame write latency
	WebSocketMessageSendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tablehub_websocket_message_send_duration_seconds",
			Help:    "Time to write a frame to a WebSocket client",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
	)

	// WebSocketPingFailures tracks failed keepalive pings
	WebSocketPingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tablehub_websocket_ping_failures_total",
			Help: "Total WebSocket ping failures",
		},
	)
)

// Redis Metrics
var (
	// RedisOpsTotal tracks Redis operations by operation type and status
	RedisOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tablehub_redis_operations_total",
			Help: "Total Redis operations by operation and status",
		},
		[]string{"operation", "status"},
	)

	// RedisOpDuration tracks Redis operation latency in seconds
	RedisOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tablehub_redis_operation_duration_seconds",
			Help:    "Redis operation duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	// RedisConnectionErrors tracks Redis dial failures
	RedisConnectionErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tablehub_redis_connection_errors_total",
			Help: "Total Redis connection errors",
		},
	)

	// CircuitBreakerStateChanges tracks circuit breaker transitions
	CircuitBreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tablehub_circuit_breaker_state_changes_total",
			Help: "Circuit breaker state transitions by component and new state",
		},
		[]string{"component", "state"},
	)

	// CircuitBreakerState tracks current circuit breaker state (0=closed, 1=half-open, 2=open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tablehub_circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"component"},
	)

	// MirrorPublishedTotal tracks events mirrored to Redis by event and status
	MirrorPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tablehub_mirror_published_total",
			Help: "Outbound events mirrored to Redis pub/sub by event and status",
		},
		[]string{"event", "status"},
	)

	// MirrorDroppedTotal tracks events dropped because the mirror queue was full
	MirrorDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tablehub_mirror_dropped_total",
			Help: "Outbound events dropped because the mirror queue was full",
		},
	)
)

// HTTP Metrics
var (
	// HTTPRequestsTotal tracks HTTP requests by method, route and status code
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tablehub_http_requests_total",
			Help: "HTTP requests by method, route and status code",
		},
		[]string{"method", "route", "status_code"},
	)

	// HTTPRequestDuration tracks HTTP request latency by method and route
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tablehub_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Build Information Metrics
var (
	// BuildInfo is a gauge that always returns 1, with build metadata as labels
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tablehub_build_info",
			Help: "Build information with version, commit, build_time, and go_version labels (value is always 1)",
		},
		[]string{"version", "commit", "build_time", "go_version"},
	)
)
