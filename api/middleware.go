package api

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/notedrop/notedrop/worker"
)

// statusRecorder captures the response status for the request counter and
// stamps the processing time header just before the status line goes out.
type statusRecorder struct {
	http.ResponseWriter
	status  int
	started time.Time
	wrote   bool
}

func (rec *statusRecorder) WriteHeader(status int) {
	if !rec.wrote {
		rec.wrote = true
		rec.status = status
		rec.Header().Set("X-Process-Time", fmt.Sprintf("%.5fs", time.Since(rec.started).Seconds()))
	}
	rec.ResponseWriter.WriteHeader(status)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	if !rec.wrote {
		rec.WriteHeader(http.StatusOK)
	}
	return rec.ResponseWriter.Write(b)
}

// countRequests feeds every request into the counter batcher.
func countRequests(counter *worker.RequestCounterBatcher, next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK, started: time.Now()}
		next.ServeHTTP(rec, r)
		counter.Observe(r.URL.Path, rec.status)
	}
}

// clientRateLimiter keeps one token bucket per client address. Its main
// job is slowing down secret guessing on the retrieval endpoint.
type clientRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	limit    rate.Limit
	burst    int
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const limiterIdleEviction = 10 * time.Minute

func newClientRateLimiter(limit rate.Limit, burst int) *clientRateLimiter {
	return &clientRateLimiter{
		limiters: make(map[string]*clientLimiter),
		limit:    limit,
		burst:    burst,
	}
}

func (rl *clientRateLimiter) allow(clientAddr string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cl, ok := rl.limiters[clientAddr]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[clientAddr] = cl

		// Evict idle clients while the map is already locked.
		for addr, other := range rl.limiters {
			if now.Sub(other.lastSeen) > limiterIdleEviction {
				delete(rl.limiters, addr)
			}
		}
	}
	cl.lastSeen = now

	return cl.limiter.Allow()
}

func rateLimit(rl *clientRateLimiter, next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientAddr, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			clientAddr = r.RemoteAddr
		}

		if !rl.allow(clientAddr) {
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	}
}

// allowCORS reflects the origin back when it is on the allow-list and
// short-circuits preflight requests.
func allowCORS(allowedOrigins []string, next http.Handler) http.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}

	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if _, ok := allowed[origin]; ok {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	}
}
