package httpserver

import (
	"sync"
	"sync/atomic"
)

// LimitReason labels why a WebSocket upgrade was refused.
type LimitReason string

const (
	LimitReasonGlobal LimitReason = "global_limit"
	LimitReasonPerIP  LimitReason = "per_ip_limit"
	LimitReasonRate   LimitReason = "rate_limit"
	LimitReasonHub    LimitReason = "hub_rejected"
)

// globalLimiter caps concurrent connections for the whole process without locking.
type globalLimiter struct {
	current atomic.Int64
	max     int64
}

func (l *globalLimiter) acquire() bool {
	for {
		current := l.current.Load()
		if current >= l.max {
			return false
		}
		if l.current.CompareAndSwap(current, current+1) {
			return true
		}
	}
}

func (l *globalLimiter) release() {
	l.current.Add(-1)
}

// ipLimiter caps concurrent connections per client IP so one tablet stuck in a
// reconnect loop cannot take every slot.
type ipLimiter struct {
	mu     sync.Mutex
	ips    map[string]int
	maxPer int
}

func (l *ipLimiter) acquire(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ips[ip] >= l.maxPer {
		return false
	}
	l.ips[ip]++
	return true
}

func (l *ipLimiter) release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if count := l.ips[ip]; count > 1 {
		l.ips[ip] = count - 1
	} else {
		delete(l.ips, ip)
	}
}

func (l *ipLimiter) count(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ips[ip]
}

// ConnectionLimits combines the global and per-IP limits. Upgrade rate is limited by middleware.
type ConnectionLimits struct {
	global *globalLimiter
	perIP  *ipLimiter
}

func NewConnectionLimits(globalMax int64, perIPMax int) *ConnectionLimits {
	return &ConnectionLimits{
		global: &globalLimiter{max: globalMax},
		perIP:  &ipLimiter{ips: make(map[string]int), maxPer: perIPMax},
	}
}

// Acquire reserves a slot for ip, or reports which limit refused it.
func (l *ConnectionLimits) Acquire(ip string) (bool, LimitReason) {
	if !l.global.acquire() {
		return false, LimitReasonGlobal
	}
	if !l.perIP.acquire(ip) {
		l.global.release()
		return false, LimitReasonPerIP
	}
	return true, ""
}

func (l *ConnectionLimits) Release(ip string) {
	l.perIP.release(ip)
	l.global.release()
}

// Active returns the number of reserved slots.
func (l *ConnectionLimits) Active() int64 {
	return l.global.current.Load()
}

// ActiveFor returns the number of reserved slots for ip.
func (l *ConnectionLimits) ActiveFor(ip string) int {
	return l.perIP.count(ip)
}
