// Package state holds the authoritative in-memory snapshot shared by all devices.
//
// The Store exposes get/replace over five collections and nothing else. It is owned by
// the hub goroutine, so it carries no locks; callers outside that goroutine only ever
// see copies produced by Snapshot.
package state
