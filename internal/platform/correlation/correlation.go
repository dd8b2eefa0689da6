// Package correlation carries request and connection identifiers through context.Context
// so every log line of one WebSocket session or HTTP request can be grouped.
package correlation

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// HeaderName is the HTTP header clients may use to supply their own correlation ID.
const HeaderName = "X-Correlation-ID"

type (
	idKey   struct{}
	connKey struct{}
)

// NewID generates an 8-character hex correlation ID.
func NewID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// ForConnection derives the correlation ID of a WebSocket connection: the first 8 hex chars of its id.
func ForConnection(connID uuid.UUID) string {
	return hex.EncodeToString(connID[:4])
}

func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, idKey{}, id)
}

// ID extracts the correlation ID from ctx, returning ("", false) if not present.
func ID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(idKey{}).(string)
	return id, ok && id != ""
}

// WithConnection tags ctx with a WebSocket connection and its derived correlation ID.
func WithConnection(ctx context.Context, connID uuid.UUID) context.Context {
	ctx = context.WithValue(ctx, connKey{}, connID)
	return WithID(ctx, ForConnection(connID))
}

// Connection returns the connection id stored by WithConnection.
func Connection(ctx context.Context) (uuid.UUID, bool) {
	connID, ok := ctx.Value(connKey{}).(uuid.UUID)
	return connID, ok
}

// Handler wraps a slog.Handler and adds "correlation_id" (and "conn_id" for
// WebSocket traffic) from the record's context.
type Handler struct {
	inner slog.Handler
}

func NewHandler(inner slog.Handler) *Handler {
	return &Handler{inner: inner}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	if id, ok := ID(ctx); ok {
		r.AddAttrs(slog.String("correlation_id", id))
	}
	if connID, ok := Connection(ctx); ok {
		r.AddAttrs(slog.String("conn_id", connID.String()))
	}
	if err := h.inner.Handle(ctx, r); err != nil {
		return fmt.Errorf("correlation handler: %w", err)
	}
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{inner: h.inner.WithAttrs(attrs)}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{inner: h.inner.WithGroup(name)}
}
