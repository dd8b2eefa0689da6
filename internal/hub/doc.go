// Package hub owns the shared restaurant state and serializes every change to it.
//
// A single goroutine consumes commands (connect, disconnect, inbound events, snapshots) from one
// channel, applies each event to completion through a dispatch table of mutation handlers, and hands
// the resulting emissions to the fanout in the order they were produced. Because only that goroutine
// touches the state.Store, no locking is needed and events from one connection apply in send order.
package hub
