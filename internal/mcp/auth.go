package mcp

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	defaultBodyLimitBytes int64 = 1 << 20 // 1MiB
	defaultClientRate           = 60      // requests per minute

	// Idle buckets are dropped once the map grows past this, so a rotating
	// client population cannot grow it without bound.
	limiterSweepSize = 1024
)

// HTTPHandlerConfig guards the streamable HTTP transport. The signal tools
// expose per-user data, so the transport is never served unauthenticated.
type HTTPHandlerConfig struct {
	AuthToken       string
	RateLimitPerMin int
	MaxBodyBytes    int64
}

// wrapHTTPHandler layers the guards outside the transport handler: bearer
// auth first, then the per-client limiter, then the body cap. An
// unauthenticated request never consumes limiter tokens.
func wrapHTTPHandler(base http.Handler, cfg HTTPHandlerConfig) http.Handler {
	h := capRequestBody(base, cfg.MaxBodyBytes)
	h = limitClients(h, newClientLimiter(cfg.RateLimitPerMin))
	h = requireBearer(h, cfg.AuthToken)
	return h
}

func requireBearer(next http.Handler, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(authz, "Bearer ") {
			denyJSON(w, http.StatusUnauthorized, "bearer token required")
			return
		}
		presented := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
		if token == "" || presented == "" || presented != token {
			denyJSON(w, http.StatusForbidden, "bearer token rejected")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func capRequestBody(next http.Handler, limit int64) http.Handler {
	if limit <= 0 {
		limit = defaultBodyLimitBytes
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
		}
		next.ServeHTTP(w, r)
	})
}

func limitClients(next http.Handler, limiter *clientLimiter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		if !limiter.allow(clientKey(r)) {
			denyJSON(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientKey scopes the limiter to token+host so one operator behind a shared
// address cannot starve another, and a shared token still splits by origin.
func clientKey(r *http.Request) string {
	token := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		host = strings.TrimSpace(r.RemoteAddr)
	}
	if host == "" {
		host = "unknown"
	}
	if token == "" {
		return host
	}
	return token + "|" + host
}

// clientLimiter is a token bucket per client key, refilled continuously at
// the configured per-minute rate with burst equal to one minute's allowance.
type clientLimiter struct {
	mu      sync.Mutex
	rate    float64
	burst   float64
	buckets map[string]*bucket
}

type bucket struct {
	tokens float64
	seen   time.Time
}

func newClientLimiter(perMin int) *clientLimiter {
	if perMin <= 0 {
		perMin = defaultClientRate
	}
	return &clientLimiter{
		rate:    float64(perMin) / 60.0,
		burst:   float64(perMin),
		buckets: make(map[string]*bucket),
	}
}

func (l *clientLimiter) allow(key string) bool {
	if l == nil {
		return true
	}
	if key == "" {
		key = "unknown"
	}

	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		if len(l.buckets) >= limiterSweepSize {
			l.sweep(now)
		}
		l.buckets[key] = &bucket{tokens: l.burst - 1, seen: now}
		return true
	}

	if elapsed := now.Sub(b.seen).Seconds(); elapsed > 0 {
		b.tokens += elapsed * l.rate
		if b.tokens > l.burst {
			b.tokens = l.burst
		}
	}
	b.seen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// sweep drops buckets idle long enough to have refilled completely; callers
// hold the mutex.
func (l *clientLimiter) sweep(now time.Time) {
	idle := time.Duration(l.burst/l.rate) * time.Second
	for key, b := range l.buckets {
		if now.Sub(b.seen) > idle {
			delete(l.buckets, key)
		}
	}
}

func denyJSON(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
