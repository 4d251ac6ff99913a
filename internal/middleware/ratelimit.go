package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/studioshot/platform/internal/app/system"
	"github.com/studioshot/platform/pkg/logger"
)

var _ system.Service = (*RateLimiter)(nil)

// maxTrackedKeys caps the limiter map before the cleanup loop resets it.
const maxTrackedKeys = 10000

// RateLimiter throttles requests per caller: the authenticated person when
// present, the remote address otherwise. It is lifecycle-managed so the
// cleanup loop stops with the rest of the application.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	interval time.Duration
	log      *logger.Logger

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewRateLimiter creates a rate limiter.
func NewRateLimiter(requestsPerSecond, burst int, log *logger.Logger) *RateLimiter {
	if requestsPerSecond < 1 {
		requestsPerSecond = 1
	}
	if burst < 1 {
		burst = requestsPerSecond
	}
	if log == nil {
		log = logger.NewDefault("ratelimit")
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		interval: time.Minute,
		log:      log,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = limiter
	}
	return limiter
}

// Handler returns the rate limiting middleware handler.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := GetPersonID(r.Context())
		if key == "" {
			key = r.RemoteAddr
		}

		if !rl.getLimiter(key).Allow() {
			rl.log.WithFields(map[string]interface{}{
				"key":  key,
				"path": r.URL.Path,
			}).Warn("rate limit exceeded")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"rate limit exceeded"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) Name() string { return "rate-limiter" }

// Start launches the cleanup loop that resets the limiter map when it grows
// past maxTrackedKeys.
func (rl *RateLimiter) Start(ctx context.Context) error {
	rl.mu.Lock()
	if rl.running {
		rl.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	rl.cancel = cancel
	rl.running = true
	rl.mu.Unlock()

	rl.wg.Add(1)
	go func() {
		defer rl.wg.Done()
		ticker := time.NewTicker(rl.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				rl.cleanup()
			}
		}
	}()
	return nil
}

func (rl *RateLimiter) Stop(ctx context.Context) error {
	rl.mu.Lock()
	if !rl.running {
		rl.mu.Unlock()
		return nil
	}
	cancel := rl.cancel
	rl.running = false
	rl.cancel = nil
	rl.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		rl.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if len(rl.limiters) > maxTrackedKeys {
		rl.limiters = make(map[string]*rate.Limiter)
	}
}
