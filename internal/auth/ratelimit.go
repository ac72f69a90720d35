package auth

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// RateLimiter decides whether a request identified by key may proceed, and
// if not, how long the caller should wait.
type RateLimiter interface {
	Allow(key string) (bool, time.Duration)
}

// MemoryRateLimiter admits at most max requests per key in any window-long
// span. Each key keeps the times of its admitted requests; a request is
// rejected while max of them are younger than window. Idle keys are evicted
// so the map cannot grow without bound.
type MemoryRateLimiter struct {
	mu      sync.Mutex
	hits    map[string]*limiterEntry
	window  time.Duration
	max     int
	idleTTL time.Duration
	now     func() time.Time

	stopOnce    sync.Once
	stopCleanup chan struct{}
}

// limiterEntry is a ring of admitted request times, oldest at next.
type limiterEntry struct {
	times    []time.Time
	next     int
	lastSeen time.Time
}

// NewMemoryRateLimiter starts a limiter and its eviction goroutine; call
// Stop to end it.
func NewMemoryRateLimiter(window time.Duration, max int) *MemoryRateLimiter {
	l := newMemoryRateLimiter(window, max, time.Now)
	go l.cleanupLoop(window)
	return l
}

func newMemoryRateLimiter(window time.Duration, max int, now func() time.Time) *MemoryRateLimiter {
	if max < 1 {
		max = 1
	}
	idle := 2 * window
	if idle < time.Minute {
		idle = time.Minute
	}
	return &MemoryRateLimiter{
		hits:        make(map[string]*limiterEntry),
		window:      window,
		max:         max,
		idleTTL:     idle,
		now:         now,
		stopCleanup: make(chan struct{}),
	}
}

// Allow records an admitted request. A rejected request is not recorded and
// reports how long until the oldest admitted one leaves the window.
func (l *MemoryRateLimiter) Allow(key string) (bool, time.Duration) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.hits[key]
	if !ok {
		entry = &limiterEntry{times: make([]time.Time, 0, l.max)}
		l.hits[key] = entry
	}
	entry.lastSeen = now

	if len(entry.times) < l.max {
		entry.times = append(entry.times, now)
		return true, 0
	}

	oldest := entry.times[entry.next]
	if wait := oldest.Add(l.window).Sub(now); wait > 0 {
		return false, wait
	}
	entry.times[entry.next] = now
	entry.next = (entry.next + 1) % l.max
	return true, 0
}

func (l *MemoryRateLimiter) cleanupLoop(interval time.Duration) {
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stopCleanup:
			return
		}
	}
}

func (l *MemoryRateLimiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, entry := range l.hits {
		if now.Sub(entry.lastSeen) > l.idleTTL {
			delete(l.hits, key)
		}
	}
}

// Stop ends the eviction goroutine.
func (l *MemoryRateLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCleanup) })
}

// clientIP returns the caller's address. Forwarding headers are read only when
// the direct peer is a trusted proxy; X-Forwarded-For is walked from the right
// and the first hop outside the trusted CIDRs wins, since entries to its left
// are client-supplied.
func clientIP(r *http.Request, trusted []*net.IPNet) string {
	if r == nil {
		return ""
	}

	remoteIP := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		remoteIP = host
	}
	if !isTrustedProxy(remoteIP, trusted) {
		return remoteIP
	}

	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		hops := strings.Split(forwarded, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if i == 0 || !isTrustedProxy(hop, trusted) {
				return hop
			}
		}
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return strings.TrimSpace(realIP)
	}
	return remoteIP
}

func isTrustedProxy(ip string, trusted []*net.IPNet) bool {
	if len(trusted) == 0 {
		return false
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, cidr := range trusted {
		if cidr.Contains(parsed) {
			return true
		}
	}
	return false
}

func parseCIDRs(values []string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(values))
	for _, v := range values {
		_, cidr, err := net.ParseCIDR(strings.TrimSpace(v))
		if err != nil {
			continue
		}
		nets = append(nets, cidr)
	}
	return nets
}
