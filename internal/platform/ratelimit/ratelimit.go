// Package ratelimit throttles requests per client with token buckets.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	applog "github.com/janisto/index-api/internal/platform/logging"
	"github.com/janisto/index-api/internal/platform/respond"
)

// KeyFunc derives the bucket key for a request.
type KeyFunc func(r *http.Request) string

// Options configures a Limiter.
type Options struct {
	// RPS is the sustained rate per key. Zero or negative disables limiting.
	RPS float64
	// Burst is the bucket size. Values below 1 are raised to 1.
	Burst int
	// IdleTTL is how long an unused bucket is kept before the sweeper drops it.
	IdleTTL time.Duration
	// SweepInterval is the sweeper period. Zero uses IdleTTL.
	SweepInterval time.Duration
	// KeyFn defaults to ClientIP.
	KeyFn KeyFunc
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter holds one token bucket per key and evicts idle ones in the background.
type Limiter struct {
	opts    Options
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// New builds a Limiter and starts its sweeper. Call Close to stop it.
func New(opts Options) *Limiter {
	if opts.Burst < 1 {
		opts.Burst = 1
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 5 * time.Minute
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = opts.IdleTTL
	}
	if opts.KeyFn == nil {
		opts.KeyFn = ClientIP
	}
	l := &Limiter{
		opts:    opts,
		entries: make(map[string]*entry),
		now:     time.Now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go l.sweepLoop()
	return l
}

// Enabled reports whether requests are throttled at all.
func (l *Limiter) Enabled() bool {
	return l.opts.RPS > 0
}

// Allow consumes a token for key. When no token is available it returns false
// and the delay until the next token.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	if !l.Enabled() {
		return true, 0
	}
	now := l.now()

	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(rate.Limit(l.opts.RPS), l.opts.Burst)}
		l.entries[key] = e
	}
	e.lastSeen = now
	l.mu.Unlock()

	res := e.limiter.ReserveN(now, 1)
	if !res.OK() {
		return false, time.Second
	}
	delay := res.DelayFrom(now)
	if delay == 0 {
		return true, 0
	}
	res.CancelAt(now)
	return false, delay
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Sweep drops buckets unused for longer than IdleTTL.
func (l *Limiter) Sweep() {
	cutoff := l.now().Add(-l.opts.IdleTTL)
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, e := range l.entries {
		if e.lastSeen.Before(cutoff) {
			delete(l.entries, key)
		}
	}
}

func (l *Limiter) sweepLoop() {
	defer close(l.done)
	ticker := time.NewTicker(l.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.Sweep()
		case <-l.stop:
			return
		}
	}
}

// Close stops the sweeper and waits for it to exit. It is safe to call more than once.
func (l *Limiter) Close() error {
	l.stopOnce.Do(func() { close(l.stop) })
	<-l.done
	return nil
}

// Middleware rejects requests over the limit with a 429 problem and Retry-After.
func (l *Limiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !l.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := l.opts.KeyFn(r)
			if ok, retryAfter := l.Allow(key); !ok {
				applog.LogWarn(r.Context(), "rate limit exceeded",
					zap.String("key", key),
					zap.String("path", r.URL.Path),
					zap.Duration("retryAfter", retryAfter),
				)
				respond.WriteTooManyRequests(w, r, retryAfter)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP keys on the host part of RemoteAddr, which chi's RealIP middleware
// rewrites from X-Forwarded-For / X-Real-IP when the server sits behind a proxy.
func ClientIP(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
		return host
	}
	if addr != "" {
		return addr
	}
	return "unknown"
}
