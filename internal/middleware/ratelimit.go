package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"go-video-hub/internal/metrics"
)

// SharedLimiter counts credential attempts across server instances.
type SharedLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type clientLimiter struct {
	general  *rate.Limiter
	auth     *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware applies a per-IP budget. Credential endpoints (POST
// under /api/auth) draw from a stricter bucket, shared through Redis when a
// SharedLimiter is configured. A non-positive general RPM disables the
// general bucket.
type RateLimitMiddleware struct {
	generalRPM int
	authRPM    int
	shared     SharedLimiter
	metrics    *metrics.Metrics
	mu         sync.Mutex
	clients    map[string]*clientLimiter
}

func NewRateLimitMiddleware(generalRPM int, authRPM int) *RateLimitMiddleware {
	if authRPM <= 0 {
		authRPM = 10
	}

	return &RateLimitMiddleware{
		generalRPM: generalRPM,
		authRPM:    authRPM,
		clients:    map[string]*clientLimiter{},
	}
}

func (m *RateLimitMiddleware) WithShared(shared SharedLimiter) *RateLimitMiddleware {
	m.shared = shared
	return m
}

func (m *RateLimitMiddleware) WithMetrics(metrics *metrics.Metrics) *RateLimitMiddleware {
	m.metrics = metrics
	return m
}

func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := ClientIP(r)

		if isCredentialRequest(r) {
			if !m.allowAuth(r.Context(), clientIP) {
				m.reject(w, "auth")
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		if m.generalRPM > 0 && !m.getLimiter(clientIP).general.Allow() {
			m.reject(w, "general")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *RateLimitMiddleware) allowAuth(ctx context.Context, clientIP string) bool {
	if m.shared != nil {
		allowed, err := m.shared.Allow(ctx, "auth:"+clientIP)
		if err == nil {
			return allowed
		}
		slog.Warn("shared rate limiter unavailable, using local bucket", "error", err)
	}
	return m.getLimiter(clientIP).auth.Allow()
}

func (m *RateLimitMiddleware) reject(w http.ResponseWriter, bucket string) {
	m.metrics.RateLimited(bucket)
	w.Header().Set("Retry-After", "60")
	writeJSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
}

func isCredentialRequest(r *http.Request) bool {
	return r.Method == http.MethodPost && strings.HasPrefix(strings.ToLower(r.URL.Path), "/api/auth/")
}

func (m *RateLimitMiddleware) getLimiter(clientIP string) *clientLimiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limiter, exists := m.clients[clientIP]; exists {
		limiter.lastSeen = time.Now()
		m.gcLocked()
		return limiter
	}

	created := &clientLimiter{
		auth:     rate.NewLimiter(rate.Every(time.Minute/time.Duration(m.authRPM)), m.authRPM),
		lastSeen: time.Now(),
	}
	if m.generalRPM > 0 {
		created.general = rate.NewLimiter(rate.Every(time.Minute/time.Duration(m.generalRPM)), m.generalRPM)
	}
	m.clients[clientIP] = created
	m.gcLocked()

	return created
}

func (m *RateLimitMiddleware) gcLocked() {
	if len(m.clients) < 1000 {
		return
	}

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, limiter := range m.clients {
		if limiter.lastSeen.Before(cutoff) {
			delete(m.clients, ip)
		}
	}
}
