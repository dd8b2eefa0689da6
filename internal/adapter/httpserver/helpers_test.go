package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/tablehub/internal/broadcast"
	"github.com/pscheid92/tablehub/internal/hub"
	"github.com/pscheid92/tablehub/internal/platform/config"
	"github.com/pscheid92/tablehub/internal/protocol"
	"github.com/pscheid92/tablehub/internal/state"
	"github.com/stretchr/testify/require"
)

// mockHub is a hubService whose answers are set per test.
type mockHub struct {
	snapshot    state.Snapshot
	snapshotErr error
	connectErr  error
	submitted   []protocol.Request
}

func (m *mockHub) Connect(*websocket.Conn) (uuid.UUID, error) {
	if m.connectErr != nil {
		return uuid.Nil, m.connectErr
	}
	return uuid.New(), nil
}

func (m *mockHub) Disconnect(uuid.UUID) {}

func (m *mockHub) Submit(_ context.Context, _ uuid.UUID, req protocol.Request) error {
	m.submitted = append(m.submitted, req)
	return nil
}

func (m *mockHub) Snapshot(context.Context) (state.Snapshot, error) {
	return m.snapshot, m.snapshotErr
}

type serverOption func(*config.Config, *[]HealthCheck)

func withHealthChecks(checks ...HealthCheck) serverOption {
	return func(_ *config.Config, hc *[]HealthCheck) { *hc = checks }
}

func withConfig(fn func(*config.Config)) serverOption {
	return func(cfg *config.Config, _ *[]HealthCheck) { fn(cfg) }
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		AppEnv:                  "test",
		Port:                    "0",
		StaticDir:               t.TempDir(),
		LogLevel:                "info",
		LogFormat:               "text",
		SeedTables:              6,
		MaxWebSocketConnections: 16,
		MaxConnectionsPerIP:     8,
		MaxMessageBytes:         1 << 20,
		UpgradeRate:             100,
		UpgradeBurst:            100,
		RedisChannelPrefix:      "tablehub",
	}
}

func newTestServer(t *testing.T, h hubService, opts ...serverOption) *Server {
	t.Helper()
	cfg := testConfig(t)
	var checks []HealthCheck
	for _, opt := range opts {
		opt(cfg, &checks)
	}
	return NewServer(cfg, h, checks)
}

// newLiveServer wires a real hub and broadcaster behind an httptest server.
func newLiveServer(t *testing.T, opts ...serverOption) (*httptest.Server, *hub.Hub) {
	t.Helper()
	clock := clockwork.NewRealClock()
	b := broadcast.NewBroadcaster(clock, 16)
	h := hub.New(state.NewStore(state.DefaultTables(6)), b, nil, clock, hub.Options{})
	t.Cleanup(h.Stop)

	srv := httptest.NewServer(newTestServer(t, h, opts...))
	t.Cleanup(srv.Close)
	return srv, h
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dialExpectingStatus(t *testing.T, srv *httptest.Server, header http.Header) int {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	if conn != nil {
		_ = conn.Close()
	}
	require.Error(t, err)
	require.NotNil(t, resp)
	_ = resp.Body.Close()
	return resp.StatusCode
}

func newHTTPTestServer(t *testing.T, h hubService, opts ...serverOption) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(newTestServer(t, h, opts...))
	t.Cleanup(srv.Close)
	return srv
}
