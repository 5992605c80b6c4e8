package server

import (
	"net"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/hyperjump/manabu/internal/metrics"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// requestID keeps a client-supplied X-Request-ID or assigns a new UUID, and echoes it on
// the response.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(RequestIDHeader, id)
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// recordMetrics counts requests by route pattern and status.
func (s *Server) recordMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
		next.ServeHTTP(rec, r)
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		metrics.HTTPRequestsTotal.WithLabelValues(path, strconv.Itoa(rec.Status)).Inc()
	})
}

// maxTrackedClients bounds the per-client buckets kept in memory. The least recently seen
// client is forgotten first and starts over with a full bucket.
const maxTrackedClients = 10000

// IPRateLimiter keeps one token bucket per client address, for at most a fixed number of
// recently seen clients.
type IPRateLimiter struct {
	mu       sync.Mutex
	limiters *lru.Cache[string, *rate.Limiter]
	limit    rate.Limit
	burst    int
}

// NewIPRateLimiter allows rps requests per second per client with the given burst.
func NewIPRateLimiter(rps float64, burst int) *IPRateLimiter {
	return newIPRateLimiter(rps, burst, maxTrackedClients)
}

func newIPRateLimiter(rps float64, burst, clients int) *IPRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if clients <= 0 {
		clients = maxTrackedClients
	}
	// New only fails for a non-positive size.
	limiters, _ := lru.New[string, *rate.Limiter](clients)
	return &IPRateLimiter{limiters: limiters, limit: rate.Limit(rps), burst: burst}
}

// GetLimiter returns the limiter for ip, creating it on first use.
func (l *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	limiter, ok := l.limiters.Get(ip)
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters.Add(ip, limiter)
	}
	return limiter
}

// Clients returns the number of client buckets currently held.
func (l *IPRateLimiter) Clients() int {
	return l.limiters.Len()
}

// Middleware rejects requests over the client's rate with 429.
func (l *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if !l.GetLimiter(ip).Allow() {
			w.Header().Set("Retry-After", "1")
			respondJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
