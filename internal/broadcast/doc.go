// Package broadcast implements the WebSocket fanout used by the hub.
//
// The Broadcaster keeps one writer goroutine per connection and delivers each encoded frame to the
// audience chosen by a domain.Recipients policy. It has no goroutine of its own: the hub actor is its
// only caller, so the client map needs no mutex. Clients whose send buffer is full are evicted.
package broadcast
