// Package redis mirrors outbound hub events onto Redis pub/sub channels.
//
// The mirror is a one-way feed for external consumers such as dashboards or
// a printer service. Nothing is read back; the in-memory store stays the only
// source of truth. Every command passes through MetricsHook and
// CircuitBreakerHook so an unreachable Redis fails fast instead of stalling
// the publisher goroutine.
package redis
